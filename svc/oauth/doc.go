// Package oauth defines the provider adapters that link third-party accounts
// (Google, Microsoft, Facebook) to the application.
//
// Each adapter declares its capabilities statically: the scope set per
// integration type and whether the authorization flow requires PKCE. The
// orchestration layer treats all providers uniformly through the Adapter
// interface; nothing provider-specific leaks past this package.
//
// Adapters build authorization URLs, exchange authorization codes for
// credentials plus the user's identity at the provider, and run read-only
// capability probes ("list calendars", "list ad accounts") with a live access
// token. Probe auth failures surface as ErrTokenRejected so the caller can
// prompt a reconnect instead of a blind retry.
package oauth
