package statetoken

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL bounds the authorization round trip: the value is long enough for
// a user to complete the provider consent screen, short enough to limit replay.
const DefaultTTL = 600 * time.Second

// payload is the signed token body. Field names are kept short because the
// encoded token travels in a query parameter and a cookie.
type payload struct {
	UserID   uuid.UUID `json:"uid"`
	IssuedAt int64     `json:"iat"`
	Nonce    string    `json:"n"`
}

// Validator is the variant-agnostic view of a state token issuer. Both the
// cookie-nonce Issuer and the store-backed StoreIssuer satisfy it, but their
// replay guarantees differ: only the store-backed variant enforces single use.
type Validator interface {
	Issue(ctx context.Context, userID uuid.UUID) (token string, ttl time.Duration, err error)
	Validate(ctx context.Context, token string) (uuid.UUID, error)
}

// Issuer is the cookie-nonce variant: the encoded value itself is the
// verification material and validity is an age check only. Replay within the
// TTL window is not detected here; defense relies on the value only being
// reachable via an httpOnly cookie scoped to one browser session.
type Issuer struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithTTL overrides the default token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock injects a time source, used by tests to pin expiry boundaries.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer creates a cookie-nonce issuer signing tokens with the given secret.
func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	i := &Issuer{
		secret: secret,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// TTL reports the configured token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue encodes {userId, timestamp, random nonce} into a signed token.
func (i *Issuer) Issue(_ context.Context, userID uuid.UUID) (string, time.Duration, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", 0, err
	}

	data, err := json.Marshal(payload{
		UserID:   userID,
		IssuedAt: i.now().Unix(),
		Nonce:    base64.RawURLEncoding.EncodeToString(nonce),
	})
	if err != nil {
		return "", 0, err
	}

	return base64.RawURLEncoding.EncodeToString(data) + "." + i.sign(data), i.ttl, nil
}

// Validate verifies the signature and the token age. The age check accepts a
// token aged exactly TTL and rejects anything older.
func (i *Issuer) Validate(_ context.Context, token string) (uuid.UUID, error) {
	data, err := i.verify(token)
	if err != nil {
		return uuid.Nil, err
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return uuid.Nil, errors.Join(ErrStateInvalid, err)
	}

	age := i.now().Sub(time.Unix(p.IssuedAt, 0))
	if age < 0 {
		return uuid.Nil, ErrStateInvalid
	}
	if age > i.ttl {
		return uuid.Nil, ErrStateExpired
	}

	return p.UserID, nil
}

func (i *Issuer) sign(data []byte) string {
	h := hmac.New(sha256.New, []byte(i.secret))
	h.Write(data)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)[:8])
}

func (i *Issuer) verify(token string) ([]byte, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, ErrStateInvalid
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrStateInvalid, err)
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, errors.Join(ErrStateInvalid, err)
	}

	h := hmac.New(sha256.New, []byte(i.secret))
	h.Write(data)
	if subtle.ConstantTimeCompare(gotSig, h.Sum(nil)[:8]) != 1 {
		return nil, ErrStateInvalid
	}

	return data, nil
}

// StoreIssuer is the store-backed variant: issued tokens are also persisted
// with an explicit expiry and consumed on first successful validation, which
// makes every token single-use and lets the callback land outside the browser
// session that started the flow.
type StoreIssuer struct {
	issuer *Issuer
	store  Store
}

// NewStoreIssuer wraps a cookie-nonce issuer with a persistence layer.
func NewStoreIssuer(issuer *Issuer, store Store) *StoreIssuer {
	return &StoreIssuer{issuer: issuer, store: store}
}

// TTL reports the underlying issuer's token lifetime.
func (s *StoreIssuer) TTL() time.Duration { return s.issuer.TTL() }

// Issue signs a token and persists {token, subject, expires}.
func (s *StoreIssuer) Issue(ctx context.Context, userID uuid.UUID) (string, time.Duration, error) {
	token, ttl, err := s.issuer.Issue(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	if err := s.store.Save(ctx, token, userID.String(), s.issuer.now().Add(ttl)); err != nil {
		return "", 0, err
	}
	return token, ttl, nil
}

// Validate performs the signature and age checks, then consumes the persisted
// row. A second validation of the same token fails with ErrStateInvalid.
func (s *StoreIssuer) Validate(ctx context.Context, token string) (uuid.UUID, error) {
	userID, err := s.issuer.Validate(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}

	subject, err := s.store.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return uuid.Nil, ErrStateInvalid
		}
		return uuid.Nil, err
	}
	if subject != userID.String() {
		return uuid.Nil, ErrStateInvalid
	}

	return userID, nil
}
