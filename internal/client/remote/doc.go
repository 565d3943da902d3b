// Package remote talks to the finny backend on behalf of the sync engine.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) with one
//     method per remote operation: paginated list, create, update and delete
//     for budgets and transactions, attachment upload, and Ping.
//  2. A tagged result type (Result) with exactly three variants: success with
//     a payload, business error with the server's message, and transport
//     error with its cause. Expected failures never surface as panics or as
//     bare errors.
//  3. Two implementations: HTTPClient (JSON over HTTP, the default) and
//     GRPCClient (google.protobuf.Struct payloads over gRPC).
//  4. TokenStore, which keeps the opaque bearer credential in the local
//     metadata table and refreshes it when the server rejects it or when its
//     exp claim has passed.
//
// # Error Handling
//
// Result.Err returns a *Error whose Kind says whether the failure is
// retryable. Match with errors.Is against ErrTransport or ErrBusiness;
// authentication failures additionally match common.ErrUnauthorized.
//
// # Concurrency & Contexts
//
// Clients are safe for concurrent use. Every call is bounded by the
// configured request timeout on top of the caller's context.
package remote
