// Package remotesim is an in-memory budget API for development and tests.
//
// It speaks both wire forms the sync engine understands: the HTTP/JSON API
// (envelope {status, data, message}, paged lists) and the gRPC service whose
// methods carry google.protobuf.Struct messages. Access tokens are HS256
// JWTs; refresh tokens are opaque. Faults can be injected per operation to
// exercise retry and partial-failure paths.
package remotesim
