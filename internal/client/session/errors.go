package session

import "errors"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoToken          = errors.New("login response carries no token")
)
