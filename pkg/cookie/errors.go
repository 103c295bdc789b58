package cookie

import "errors"

var (
	ErrNoSecret         = errors.New("cookie: no signing secret configured")
	ErrSecretTooShort   = errors.New("cookie: signing secret too short")
	ErrInvalidFormat    = errors.New("cookie: malformed signed value")
	ErrInvalidSignature = errors.New("cookie: signature mismatch")
	ErrCookieNotFound   = errors.New("cookie: not found")
)
