package statetoken

import "errors"

var (
	// ErrNoSecret is returned when an issuer is constructed without a signing secret.
	ErrNoSecret = errors.New("statetoken: signing secret is required")

	// ErrStateInvalid covers malformed tokens, signature mismatches and
	// store-backed tokens that were already consumed or never issued.
	ErrStateInvalid = errors.New("statetoken: invalid state token")

	// ErrStateExpired is returned when a well-formed token is past its TTL.
	ErrStateExpired = errors.New("statetoken: state token expired")

	// ErrTokenNotFound is returned by stores when no live row matches the token.
	ErrTokenNotFound = errors.New("statetoken: token not found")
)
