package fail

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Fail logs the failure and reports it to the requester as a JSON body,
// unless the response prelude already reached the transport, in which case
// the stream is simply cut short.
func Fail(c echo.Context, status int, format string, args ...interface{}) error {
	message := fmt.Sprintf(format, args...)

	zap.L().Warn(message)

	if c.Response().Committed {
		return nil
	}

	jsonResp := struct {
		Message string `json:"message"`
	}{
		Message: message,
	}

	return c.JSON(status, &jsonResp)
}
