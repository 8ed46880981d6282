package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrBalanceUpdating = errors.New("balance updating")
	ErrBelowMinSize    = errors.New("below minimum size")
	ErrBookInvalid     = errors.New("order book invalid")
	ErrBookStale       = errors.New("order book stale")
	ErrInFlight        = errors.New("operation already in flight")
	ErrResponseTimeout = errors.New("venue response timeout")
	ErrMissingMarket   = errors.New("instrument has no market mapping")
	ErrLockHeld        = errors.New("lock held by another process")
)
