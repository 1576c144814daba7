// Package middleware provides the HTTP middleware chain: bearer token
// authentication, admin authorization, panic recovery, per-IP rate limiting
// and CORS.
//
// Tokens are verified either against a JWKS endpoint (RS256 or ES256) or a
// shared HS256 secret. A verified subject is resolved to a users row and
// stored in the request context as an identity.Identity.
package middleware
