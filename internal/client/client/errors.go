package client

import "errors"

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrMalformedResponse = errors.New("malformed server response")
	ErrNotLoggedIn       = errors.New("not logged in")
)
