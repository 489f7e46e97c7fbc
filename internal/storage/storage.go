package storage

import "errors"

var (
	ErrNoSession  = errors.New("no session found")
	ErrNoDraft    = errors.New("no draft found")
	ErrNoClient   = errors.New("no client found")
	ErrNoDiscount = errors.New("no discount package found")
)
