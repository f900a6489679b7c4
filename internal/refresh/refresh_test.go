package refresh_test

import (
	"testing"

	"github.com/regenlabs/regen/internal/refresh"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSimple(t *testing.T) {
	sealer, err := refresh.NewSealer("")
	require.NoError(t, err)

	expectedGrant := refresh.Grant{
		Key: uuid.NewString(),
	}

	sealedGrant, err := sealer.Seal(expectedGrant)
	require.NoError(t, err)

	unsealedGrant, err := sealer.Unseal(sealedGrant)
	require.NoError(t, err)

	require.Equal(t, expectedGrant, unsealedGrant)
}

func TestSharedSecret(t *testing.T) {
	// Two sealers configured with the same secret accept each other's grants
	first, err := refresh.NewSealer("such secret")
	require.NoError(t, err)

	second, err := refresh.NewSealer("such secret")
	require.NoError(t, err)

	sealedGrant, err := first.Seal(refresh.Grant{Key: "/blog/a"})
	require.NoError(t, err)

	unsealedGrant, err := second.Unseal(sealedGrant)
	require.NoError(t, err)
	require.Equal(t, "/blog/a", unsealedGrant.Key)
}

func TestFailsClosed(t *testing.T) {
	sealer, err := refresh.NewSealer("such secret")
	require.NoError(t, err)

	// A grant sealed under a different secret must not unseal
	otherSealer, err := refresh.NewSealer("other secret")
	require.NoError(t, err)

	sealedGrant, err := otherSealer.Seal(refresh.Grant{Key: "/blog/a"})
	require.NoError(t, err)

	_, err = sealer.Unseal(sealedGrant)
	require.Error(t, err)

	// ...and neither must garbage
	_, err = sealer.Unseal("not-a-token")
	require.Error(t, err)
}
