package oauth

import "errors"

var (
	// ErrExchangeFailed wraps failures of the provider token endpoint call.
	// Propagated as-is to the caller; this layer never retries.
	ErrExchangeFailed = errors.New("oauth: code exchange failed")

	// ErrTokenRejected means the provider refused a stored access token
	// (expired, revoked). Callers should prompt a reconnect, not a retry.
	ErrTokenRejected = errors.New("oauth: provider rejected access token")

	// ErrNoIdentity is returned when the provider profile lacks a stable
	// user id, which would make the integration record unkeyable.
	ErrNoIdentity = errors.New("oauth: provider returned no user identity")

	// ErrUnsupportedType is returned when a provider has no scope set for
	// the requested integration type.
	ErrUnsupportedType = errors.New("oauth: integration type not supported by provider")

	// ErrVerifierRequired is returned when a PKCE provider is asked to build
	// an authorization URL or exchange a code without verifier material.
	ErrVerifierRequired = errors.New("oauth: PKCE verifier material required")
)
