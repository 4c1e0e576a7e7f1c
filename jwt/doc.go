// Package jwt issues and verifies operator tokens for the admin surface (metrics and policy
// inspection). Tokens are short-lived, scoped and signed with Ed25519 or HS256.
package jwt
