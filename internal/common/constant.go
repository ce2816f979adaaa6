// Package common contains shared constants and sentinel errors used across
// Postboard components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound identity requests.
const AccessTokenHeaderName = "access_token"

// LoggedOutMessage is returned to the caller after a successful logout.
const LoggedOutMessage = "logged out"
