package integration

import "errors"

var (
	// ErrNotFound is returned for unknown integration ids. Disconnect never
	// returns it; disconnecting an absent integration is a successful no-op.
	ErrNotFound = errors.New("integration: not found")

	// ErrCorruptedToken means a stored token failed to decrypt. The row is
	// left intact for diagnostics; the user must reconnect.
	ErrCorruptedToken = errors.New("integration: stored token corrupted, reconnect required")

	// ErrReconnectRequired means the provider rejected a decrypted token
	// (revoked or expired beyond refresh).
	ErrReconnectRequired = errors.New("integration: provider rejected token, reconnect required")

	// ErrUnknownProvider is returned for provider ids no adapter claims.
	ErrUnknownProvider = errors.New("integration: unknown provider")

	// ErrInvalidType is returned for integration types outside the enum or
	// unsupported by the requested provider.
	ErrInvalidType = errors.New("integration: invalid integration type")
)
