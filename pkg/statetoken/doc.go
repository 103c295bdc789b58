// Package statetoken issues and validates the CSRF/replay correlation tokens
// used for the OAuth redirect round trip.
//
// A token encodes {userId, timestamp, random nonce} as JSON, base64url-encoded
// and signed with a truncated HMAC-SHA256. Two issuer variants exist and they
// are deliberately not interchangeable:
//
//   - Issuer (cookie-nonce): the token is carried in an httpOnly cookie and
//     validity is a signature plus age check. Replay inside the TTL window is
//     not detected by this component alone.
//   - StoreIssuer (store-backed): the token is additionally persisted with an
//     explicit expiry and deleted on first successful validation, enforcing
//     single use and surviving a browser or device change mid-flow.
//
// Stores: PostgresStore (generic verification_tokens table), RedisStore
// (SET with TTL + GETDEL) and MemoryStore for tests.
//
// Validate returns ErrStateExpired for well-formed tokens past their TTL and
// ErrStateInvalid for everything else, so callers can tell "please retry"
// apart from tampering.
package statetoken
