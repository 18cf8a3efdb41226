package database

import "errors"

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrServiceNotFound   = errors.New("service type not found")
	ErrInvalidTransition = errors.New("booking status can no longer change")
	ErrInvalidStatus     = errors.New("invalid target status")
)
