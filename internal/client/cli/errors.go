package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/receiptvault/internal/client/client"
	"github.com/dmitrijs2005/receiptvault/internal/common"
)

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func isUsage(err error) bool {
	var u usageError
	return errors.As(err, &u)
}

// describeError turns err into the single line shown to the user. Each
// failure category has its own wording.
func describeError(cmd string, err error) string {
	switch {
	case isUsage(err):
		return "usage: " + err.Error() + " (see 'receipts-cli help')"
	case errors.Is(err, client.ErrNotLoggedIn):
		return "not logged in, run 'receipts-cli login' first"
	case errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrRefreshTokenExpired):
		return "session expired, please log in again"
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		if cmd == "login" {
			return "invalid username or password"
		}
		return "not authorized, please log in again"
	case errors.Is(err, common.ErrorAlreadyExists):
		return "username is already taken"
	case errors.Is(err, common.ErrorNotFound):
		return "receipt not found"
	case errors.Is(err, common.ErrorValidation):
		return "rejected: " + err.Error()
	case errors.Is(err, common.ErrorStorage):
		return "receipt storage is unavailable, try again later"
	case errors.Is(err, common.ErrorUnsupported):
		return "direct download links are not supported by this server"
	case errors.Is(err, client.ErrMalformedResponse):
		return "unexpected response from server: " + err.Error()
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, common.ErrorInternal):
		return "server error, try again later"
	default:
		return "error: " + err.Error()
	}
}
