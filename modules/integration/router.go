package integration

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealersync/integrations/pkg/cookie"
	"github.com/dealersync/integrations/pkg/pkce"
	"github.com/dealersync/integrations/pkg/response"
	"github.com/dealersync/integrations/pkg/statetoken"
	"github.com/dealersync/integrations/svc/oauth"
)

// UserResolver produces the authenticated user id for a request. The session
// and cookie machinery behind it lives outside this module; handlers only see
// the opaque id.
type UserResolver interface {
	UserID(r *http.Request) (uuid.UUID, error)
}

// StateStrategy pairs a provider with its state token variant. CookieBound
// marks the cookie-nonce variant, where the callback state must also match
// the value held in the browser's httpOnly cookie. Store-backed providers
// skip that check because the callback may land outside the original browser
// session; their replay protection is the consumed store row instead.
type StateStrategy struct {
	Validator   statetoken.Validator
	CookieBound bool
}

// Config is the module's environment configuration.
type Config struct {
	// AppReturnURL is where the browser is sent after a callback, with
	// either a "connected" or an "error" query parameter appended.
	AppReturnURL string `env:"APP_RETURN_URL,required"`
}

// Service exposes the integration lifecycle over HTTP.
type Service struct {
	cfg     Config
	manager *Manager
	cookies *cookie.Manager
	states  map[string]StateStrategy
	users   UserResolver
	log     *slog.Logger
}

// NewService wires the HTTP service. The states map must contain an entry for
// every provider registered with the manager.
func NewService(cfg Config, manager *Manager, cookies *cookie.Manager, states map[string]StateStrategy, users UserResolver, log *slog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		manager: manager,
		cookies: cookies,
		states:  states,
		users:   users,
		log:     log,
	}
}

// Handle returns the module router, meant to be mounted under /integrations.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.list)
	r.Post("/test/{id}", s.test)
	r.Get("/{provider}/connect", s.connect)
	r.Get("/{provider}/callback", s.callback)
	r.Delete("/{provider}", s.disconnect)

	return r
}

func stateCookie(provider string) string    { return "oauth_state_" + provider }
func verifierCookie(provider string) string { return "oauth_verifier_" + provider }
func typeCookie(provider string) string     { return "oauth_type_" + provider }

func (s *Service) connect(w http.ResponseWriter, r *http.Request) {
	userID, err := s.users.UserID(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "sign in to connect an account")
		return
	}

	provider := chi.URLParam(r, "provider")
	adapter, err := s.manager.Adapter(provider)
	if err != nil {
		response.Error(w, http.StatusNotFound, "unknown_provider", "no such provider")
		return
	}

	t := oauth.IntegrationType(r.URL.Query().Get("type"))
	if !t.Valid() {
		response.Error(w, http.StatusBadRequest, "invalid_type", "unknown integration type")
		return
	}

	strategy, ok := s.states[provider]
	if !ok {
		s.log.ErrorContext(r.Context(), "no state strategy registered", slog.String("provider", provider))
		response.Error(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	token, ttl, err := strategy.Validator.Issue(r.Context(), userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "issuing state token failed", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	maxAge := cookie.WithMaxAge(int(ttl / time.Second))

	var pair *pkce.Pair
	if adapter.RequiresPKCE() {
		p, err := pkce.Generate()
		if err != nil {
			s.log.ErrorContext(r.Context(), "generating PKCE pair failed", slog.Any("error", err))
			response.Error(w, http.StatusInternalServerError, "internal_error", "")
			return
		}
		pair = &p
		s.cookies.SetSigned(w, verifierCookie(provider), p.Verifier, maxAge)
	}

	authURL, err := adapter.AuthURL(token, t, pair)
	if err != nil {
		if errors.Is(err, oauth.ErrUnsupportedType) {
			response.Error(w, http.StatusBadRequest, "invalid_type", "integration type not supported by provider")
			return
		}
		s.log.ErrorContext(r.Context(), "building authorization url failed", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	s.cookies.SetSigned(w, stateCookie(provider), token, maxAge)
	s.cookies.SetSigned(w, typeCookie(provider), string(t), maxAge)

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Service) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")

	adapter, err := s.manager.Adapter(provider)
	if err != nil {
		response.Error(w, http.StatusNotFound, "unknown_provider", "no such provider")
		return
	}

	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		s.redirectBack(w, r, url.Values{"error": {"provider_denied"}})
		return
	}

	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		s.redirectBack(w, r, url.Values{"error": {"oauth_state_invalid"}})
		return
	}

	strategy, ok := s.states[provider]
	if !ok {
		s.log.ErrorContext(ctx, "no state strategy registered", slog.String("provider", provider))
		s.redirectBack(w, r, url.Values{"error": {"internal_error"}})
		return
	}

	if strategy.CookieBound {
		cookieState, err := s.cookies.GetSigned(r, stateCookie(provider))
		if err != nil || cookieState != state {
			s.redirectBack(w, r, url.Values{"error": {"oauth_state_invalid"}})
			return
		}
	}

	userID, err := strategy.Validator.Validate(ctx, state)
	if err != nil {
		code := "oauth_state_invalid"
		if errors.Is(err, statetoken.ErrStateExpired) {
			code = "oauth_state_expired"
		}
		s.redirectBack(w, r, url.Values{"error": {code}})
		return
	}

	var verifier string
	if adapter.RequiresPKCE() {
		if verifier, err = s.cookies.GetSigned(r, verifierCookie(provider)); err != nil {
			s.redirectBack(w, r, url.Values{"error": {"oauth_state_invalid"}})
			return
		}
	}

	typeValue, err := s.cookies.GetSigned(r, typeCookie(provider))
	t := oauth.IntegrationType(typeValue)
	if err != nil || !t.Valid() {
		s.redirectBack(w, r, url.Values{"error": {"oauth_state_invalid"}})
		return
	}

	creds, err := adapter.ExchangeCode(ctx, code, verifier)
	if err != nil {
		s.log.ErrorContext(ctx, "code exchange failed",
			slog.String("provider", provider), slog.Any("error", err))
		s.redirectBack(w, r, url.Values{"error": {"provider_exchange_failed"}})
		return
	}

	in, err := s.manager.Connect(ctx, userID, provider, t, creds)
	if err != nil {
		s.log.ErrorContext(ctx, "persisting integration failed",
			slog.String("provider", provider), slog.Any("error", err))
		s.redirectBack(w, r, url.Values{"error": {"connect_failed"}})
		return
	}

	s.manager.Snapshot(ctx, in, creds.AccessToken)

	s.cookies.Delete(w, stateCookie(provider))
	s.cookies.Delete(w, verifierCookie(provider))
	s.cookies.Delete(w, typeCookie(provider))

	s.redirectBack(w, r, url.Values{"connected": {provider}})
}

// redirectBack bounces the browser to the application's integrations page,
// preserving any query already present on the configured return URL.
func (s *Service) redirectBack(w http.ResponseWriter, r *http.Request, params url.Values) {
	target, err := url.Parse(s.cfg.AppReturnURL)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	q := target.Query()
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// integrationView is the list item DTO; token ciphertext never leaves the API.
type integrationView struct {
	ID            uuid.UUID `json:"id"`
	Provider      string    `json:"provider"`
	Type          string    `json:"integration_type"`
	ProviderEmail string    `json:"provider_email"`
	Status        string    `json:"status"`
	ConnectedAt   time.Time `json:"connected_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *Service) list(w http.ResponseWriter, r *http.Request) {
	userID, err := s.users.UserID(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	integrations, err := s.manager.List(r.Context(), userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "listing integrations failed", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	views := make([]integrationView, 0, len(integrations))
	for _, in := range integrations {
		views = append(views, integrationView{
			ID:            in.ID,
			Provider:      in.Provider,
			Type:          string(in.Type),
			ProviderEmail: in.ProviderEmail,
			Status:        string(in.Status),
			ConnectedAt:   in.CreatedAt,
			UpdatedAt:     in.UpdatedAt,
		})
	}
	response.JSON(w, http.StatusOK, views)
}

func (s *Service) test(w http.ResponseWriter, r *http.Request) {
	userID, err := s.users.UserID(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid_id", "integration id must be a UUID")
		return
	}

	// Ownership check before probing so foreign ids read as absent.
	in, err := s.manager.Get(r.Context(), id)
	if err != nil || in.UserID != userID {
		response.Error(w, http.StatusNotFound, "not_found", "")
		return
	}

	report, err := s.manager.Test(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(w, http.StatusNotFound, "not_found", "")
		case errors.Is(err, ErrCorruptedToken), errors.Is(err, ErrReconnectRequired):
			response.Error(w, http.StatusConflict, "integration_reconnect_required",
				"the stored credentials no longer work, reconnect the account")
		default:
			s.log.ErrorContext(r.Context(), "integration test failed", slog.Any("error", err))
			response.Error(w, http.StatusBadGateway, "provider_unreachable", "try again")
		}
		return
	}

	response.JSON(w, http.StatusOK, report)
}

func (s *Service) disconnect(w http.ResponseWriter, r *http.Request) {
	userID, err := s.users.UserID(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	provider := chi.URLParam(r, "provider")

	var types []oauth.IntegrationType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := oauth.IntegrationType(raw)
		if !t.Valid() {
			response.Error(w, http.StatusBadRequest, "invalid_type", "unknown integration type")
			return
		}
		types = append(types, t)
	}

	if err := s.manager.Disconnect(r.Context(), userID, provider, types...); err != nil {
		if errors.Is(err, ErrUnknownProvider) {
			response.Error(w, http.StatusNotFound, "unknown_provider", "no such provider")
			return
		}
		s.log.ErrorContext(r.Context(), "disconnect failed", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	response.NoContent(w)
}
