// Package auth issues and validates the bearer tokens of the REST API.
//
// Tokens are HS256 JWTs carrying a subject and a role. There is no user
// store: operators mint tokens offline with `thermlog --issue-token` and
// hand them to clients. Roles map to a fixed permission list:
//
//	viewer    logging:read
//	operator  logging:read, logging:operate, sampler:operate
//	admin     everything operator has, plus system:admin
package auth
