// Package errors provides the sentinel errors shared by storefront components.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrCardNotRendered = errors.New("product is not in the rendered grid")
var ErrNoDetailOpen = errors.New("no product detail is open")

var ErrValidation = errors.New("form validation failed")

var ErrPersistCart = errors.New("failed to persist cart")
var ErrPersistOrder = errors.New("failed to persist order")
var ErrPersistTheme = errors.New("failed to persist theme")
