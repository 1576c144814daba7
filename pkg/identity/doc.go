// Package identity provides the authenticated identity of a request.
//
// The authentication middleware verifies the bearer token, ensures a users
// row exists for its subject and stores the resulting Identity in the
// request context. Handlers read it back to make ownership decisions.
//
// # Basic Usage
//
//	id := identity.FromUser(user).
//	    WithExpiry(claims.ExpiresAt.Time).
//	    WithRemoteIP(clientIP)
//
//	ctx = identity.Set(ctx, id)
//
//	id, ok := identity.Get(ctx)
//	if !id.CanAccess(project.OwnerID) {
//	    // respond 404
//	}
package identity
