package devserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/leukemia-dashboard/internal/classifier"
	authHandler "github.com/jwalitptl/leukemia-dashboard/internal/handler/auth"
	"github.com/jwalitptl/leukemia-dashboard/internal/handler/health"
	"github.com/jwalitptl/leukemia-dashboard/internal/handler/media"
	"github.com/jwalitptl/leukemia-dashboard/internal/handler/patient"
	"github.com/jwalitptl/leukemia-dashboard/internal/handler/predict"
	"github.com/jwalitptl/leukemia-dashboard/internal/handler/prometheus"
	"github.com/jwalitptl/leukemia-dashboard/internal/handler/record"
	"github.com/jwalitptl/leukemia-dashboard/internal/middleware"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/repository/memory"
	"github.com/jwalitptl/leukemia-dashboard/internal/router"
	"github.com/jwalitptl/leukemia-dashboard/pkg/auth"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
	"github.com/jwalitptl/leukemia-dashboard/pkg/security"
	"github.com/jwalitptl/leukemia-dashboard/pkg/validator"
)

// Config is read from DEVSERVER_* environment variables.
type Config struct {
	Addr         string        `envconfig:"ADDR" default:"127.0.0.1:8000"`
	JWTSecret    string        `envconfig:"JWT_SECRET" default:"devserver-insecure-secret"`
	TokenTTL     time.Duration `envconfig:"TOKEN_TTL" default:"0s"`
	BcryptCost   int           `envconfig:"BCRYPT_COST" default:"10"`
	RateLimit    float64       `envconfig:"RATE_LIMIT" default:"0"`
	RateBurst    int           `envconfig:"RATE_BURST" default:"20"`
	MaxUploadMB  int64         `envconfig:"MAX_UPLOAD_MB" default:"20"`
	CORSOrigins  []string      `envconfig:"CORS_ORIGINS"`
	SeedEmail    string        `envconfig:"SEED_EMAIL"`
	SeedPassword string        `envconfig:"SEED_PASSWORD"`
	SeedName     string        `envconfig:"SEED_NAME" default:"Demo Lab"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string        `envconfig:"LOG_FORMAT" default:"console"`
	ShutdownWait time.Duration `envconfig:"SHUTDOWN_WAIT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("devserver", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process devserver env: %w", err)
	}
	return cfg, nil
}

// Server is the in-memory emulator of the dashboard backend.
type Server struct {
	store  *memory.Store
	tokens auth.TokenService
	hasher security.PasswordHasher
	router *router.Router
}

func New(cfg Config, log *logger.Logger) *Server {
	store := memory.NewStore()
	tokens := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	v := validator.New()
	metrics := prometheus.New("devserver")
	authMW := middleware.NewAuthMiddleware(tokens, store)

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSOrigins) > 0 {
		cors.AllowOrigins = cfg.CORSOrigins
	}
	limits := middleware.DefaultSizeLimitConfig()
	if cfg.MaxUploadMB > 0 {
		limits.MaxUploadSize = cfg.MaxUploadMB << 20
	}

	r := router.NewRouter(
		log,
		router.RouterConfig{
			RateLimit: rate.Limit(cfg.RateLimit),
			RateBurst: cfg.RateBurst,
			CORS:      cors,
			SizeLimit: limits,
		},
		authMW,
		metrics,
		authHandler.NewHandler(store, tokens, hasher, v, authMW),
		health.NewHandler(),
		media.NewHandler(store),
		patient.NewHandler(store, store, v),
		record.NewHandler(store, store, v),
		predict.NewHandler(store, store, store, classifier.Stub{}),
	)
	r.Setup()

	return &Server{
		store:  store,
		tokens: tokens,
		hasher: hasher,
		router: r,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router.Engine()
}

func (s *Server) Store() *memory.Store {
	return s.store
}

// Seed creates an account directly in the store and returns it with a valid
// token, bypassing the HTTP login.
func (s *Server) Seed(ctx context.Context, email, password, name string) (*model.Account, string, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}
	account := &model.Account{
		Identity: model.Identity{
			Email:            email,
			Username:         name,
			IsOrganization:   true,
			OrganizationName: name,
			OrganizationType: model.OrganizationLab,
		},
		Name:         name,
		PasswordHash: hashed,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}
