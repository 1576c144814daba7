// Package httputil writes JSON and RFC 7807 problem responses shared by the
// middleware and endpoint handlers.
package httputil
