// Package errors holds the sentinel errors shared by the storefront layers.
// The REST boundary maps them to status codes with errors.Is.
package errors

import "errors"

var (
	// ErrProductNotFound is returned when no product matches the requested id or slug.
	ErrProductNotFound = errors.New("product not found")
	// ErrConcurrentUpdate means the product disappeared between the existence check and the write.
	ErrConcurrentUpdate = errors.New("product changed during update")
	// ErrInvalidCatalog is returned when the persisted catalog cannot be decoded.
	ErrInvalidCatalog = errors.New("invalid catalog data")
	// ErrInvalidProduct wraps field level problems detected below the validator.
	ErrInvalidProduct = errors.New("invalid product")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrEmptyCart      = errors.New("cart is empty")
)
