package order

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInsufficientStock = errors.New("not enough stock for product")
	ErrInvalidOrder      = errors.New("invalid order")
)
