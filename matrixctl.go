// Package matrixctl provides an operator CLI for administering a self-hosted
// Matrix (Synapse) homeserver. It talks to the Synapse admin API, drives the
// deployment playbook, and inspects the homeserver database over SSH.
//
// This package contains domain types, interfaces, and the pure algorithms
// of the admin-API engine (request building, pagination planning, identifier
// sanitizing, table rendering) following Ben Johnson's Standard Package
// Layout. Implementations live in subdirectories named after their primary
// dependency (e.g., http/, yaml/, oidc/, postgres/).
package matrixctl

// Version is the matrixctl release. It is sent in the User-Agent header.
var Version = "0.13.0"

// UserAgent returns the User-Agent header value for admin API requests.
func UserAgent() string {
	return "matrixctl" + Version
}
