// Package common contains shared constants and sentinel errors used across
// finnysync components.
package common

const (
	// AuthorizationHeaderName is the HTTP header / gRPC metadata key carrying
	// the bearer credential on outbound requests.
	AuthorizationHeaderName = "authorization"

	// BearerPrefix precedes the access token in AuthorizationHeaderName.
	BearerPrefix = "Bearer "
)
