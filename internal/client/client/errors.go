package client

import "errors"

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrEmptyID     = errors.New("empty id")
)
