// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// Driver and GORM errors are translated to store.ErrNotFound,
// store.ErrConflict and store.ErrInvalidState so that callers never depend
// on GORM directly.
package gorm
