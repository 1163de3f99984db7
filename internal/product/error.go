package product

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInUse    = errors.New("product is referenced by existing orders")
	ErrInvalidProduct  = errors.New("invalid product")
)
