// Package middleware exposes HTTP adapters around the gate and operator tokens.
//
//   - [ClientIP] resolves the caller address once per request and stores it in the context.
//   - [EndpointLimit] applies the generic per-endpoint budget through Gate.EvaluateEndpoint.
//   - [RequireOperator] guards admin routes with a scoped operator token.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Gate and token-manager calls. It does NOT
// implement admission logic itself.
//
// # What this package must NOT do
//
//   - Access Redis directly.
//   - Leak store error detail into response bodies.
package middleware
