// Package integration manages third-party account connections for a user:
// the OAuth connect and callback flow, encrypted token storage, connection
// health testing, and disconnect with cleanup of dependent resources.
//
// The package is split into a Manager, which owns the lifecycle rules and is
// transport-agnostic, and a Service, which mounts the HTTP surface via
// Handle(). Provider behavior lives behind the oauth.Adapter interface so the
// manager never branches on provider names beyond registry lookup.
package integration
