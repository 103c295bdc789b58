// Package cookie manages the short-lived httpOnly cookies used during the
// OAuth redirect round trip: the anti-CSRF state token and, for PKCE
// providers, the code verifier.
//
// Cookies default to httpOnly with SameSite=Lax; Secure comes from
// configuration and must be enabled in production. Signed values carry an
// HMAC-SHA256 signature verified in constant time, with multi-secret support
// so signing keys can rotate without breaking in-flight authorization flows.
package cookie
