package percentencoding_test

import (
	"testing"

	"github.com/regenlabs/regen/internal/cache/disk/percentencoding"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	require.Equal(t, "simple-key_1", percentencoding.Encode("simple-key_1"))
	require.Equal(t, "%2fblog%2fa%7clang%3den", percentencoding.Encode("/blog/a|lang=en"))

	// Path traversal attempts must not survive encoding
	require.Equal(t, "%2e%2e%2f%2e%2e%2fetc%2fpasswd", percentencoding.Encode("../../etc/passwd"))
}
