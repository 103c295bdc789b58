package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dealersync/integrations/modules/integration"
	"github.com/dealersync/integrations/pkg/config"
	"github.com/dealersync/integrations/pkg/cookie"
	"github.com/dealersync/integrations/pkg/httpserver"
	"github.com/dealersync/integrations/pkg/logger"
	"github.com/dealersync/integrations/pkg/pg"
	"github.com/dealersync/integrations/pkg/redis"
	"github.com/dealersync/integrations/pkg/statetoken"
	"github.com/dealersync/integrations/pkg/tokencipher"
	"github.com/dealersync/integrations/svc/oauth"
)

type appConfig struct {
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY,required"`
	StateTokenSecret   string `env:"STATE_TOKEN_SECRET,required"`

	// StateStore selects the backing store for the store-backed state token
	// variant: postgres, redis or memory.
	StateStore string `env:"STATE_STORE" envDefault:"postgres"`
}

func main() {
	ctx := context.Background()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.New("integrations", logCfg)

	if err := run(ctx, log); err != nil {
		log.ErrorContext(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		appCfg    appConfig
		pgCfg     pg.Config
		httpCfg   httpserver.Config
		cookieCfg cookie.Config
		moduleCfg integration.Config
		googleCfg oauth.GoogleConfig
		msCfg     oauth.MicrosoftConfig
		fbCfg     oauth.FacebookConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&cookieCfg)
	config.MustLoad(&moduleCfg)
	config.MustLoad(&googleCfg)
	config.MustLoad(&msCfg)
	config.MustLoad(&fbCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	cipher, err := tokencipher.New(appCfg.TokenEncryptionKey)
	if err != nil {
		return err
	}

	cookies, err := cookie.NewFromConfig(cookieCfg)
	if err != nil {
		return err
	}

	issuer, err := statetoken.NewIssuer(appCfg.StateTokenSecret)
	if err != nil {
		return err
	}

	probes := []func(context.Context) error{pg.Healthcheck(pool)}

	// Google callbacks may land outside the browser session that started the
	// flow, so its state tokens live in a store and are consumed on first
	// use. Microsoft and Facebook stay cookie-bound.
	var store statetoken.Store
	switch appCfg.StateStore {
	case "redis":
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		store = statetoken.NewRedisStore(client)
		probes = append(probes, redis.Healthcheck(client))
	case "memory":
		store = statetoken.NewMemoryStore()
	case "postgres":
		store = statetoken.NewPostgresStore(pool)
	default:
		return errors.New("unknown STATE_STORE value: " + appCfg.StateStore)
	}

	google := oauth.NewGoogle(googleCfg)
	microsoft := oauth.NewMicrosoft(msCfg)
	facebook := oauth.NewFacebook(fbCfg)

	repo := integration.NewPostgresRepository(pool)
	manager := integration.NewManager(repo, cipher, []oauth.Adapter{google, microsoft, facebook}, log)

	states := map[string]integration.StateStrategy{
		oauth.ProviderGoogle:    {Validator: statetoken.NewStoreIssuer(issuer, store)},
		oauth.ProviderMicrosoft: {Validator: issuer, CookieBound: true},
		oauth.ProviderFacebook:  {Validator: issuer, CookieBound: true},
	}

	svc := integration.NewService(moduleCfg, manager, cookies, states, headerUserResolver{}, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/health", httpserver.Healthcheck(log, probes...))
	r.Mount("/integrations", svc.Handle())

	return httpserver.Run(ctx, httpCfg, r, log)
}

// headerUserResolver trusts the X-User-ID header set by the authenticating
// reverse proxy in front of this service.
type headerUserResolver struct{}

func (headerUserResolver) UserID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, errors.New("missing X-User-ID header")
	}
	return uuid.Parse(raw)
}
