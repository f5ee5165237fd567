// Package httpserver manages server creation and api routing.
package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/accountdelivery"
	"github.com/go-petr/pet-ledger/internal/accountservice"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/storage"
	"github.com/go-petr/pet-ledger/internal/transferdelivery"
	"github.com/go-petr/pet-ledger/internal/transferservice"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
)

// Server holds store handles, handlers router and configuration.
type Server struct {
	Stores storage.Stores
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(stores storage.Stores, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	defaultBalance, err := decimal.NewFromString(config.DefaultBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid default balance %q: %w", config.DefaultBalance, err)
	}

	tokenKey := config.TokenSymmetricKey
	if tokenKey == "" && !config.RequireAuth {
		tokenKey = randompkg.String(32)
		logger.Warn().Msg("TOKEN_SYMMETRIC_KEY is not set, access tokens are valid until restart")
	}

	tokenMaker, err := tokenpkg.New(config.TokenType, tokenKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	if err := accountdelivery.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("cannot register validators: %w", err)
	}

	accountService := accountservice.New(stores.Accounts, defaultBalance)
	transferService := transferservice.New(stores.Accounts, stores.Transfers, transferservice.RetryPolicy{
		CreditInterval:   config.CreditRetryInterval,
		CreditMaxRetries: config.CreditMaxRetries,
		LedgerInterval:   config.LedgerRetryInterval,
		LedgerMaxRetries: config.LedgerMaxRetries,
		SettleTimeout:    config.SettleTimeout,
	})

	accountHandler := accountdelivery.NewHandler(accountService, tokenMaker, config.AccessTokenDuration)
	transferHandler := transferdelivery.NewHandler(transferService)

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())
	engine.Use(middleware.Metrics())

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/auth", accountHandler.Login)

	engine.POST("/accounts", accountHandler.Create)
	engine.GET("/accounts/:id", accountHandler.Get)
	engine.GET("/accounts", accountHandler.List)

	engine.POST("/users", accountHandler.Create)
	engine.GET("/users/:id", accountHandler.Get)
	engine.GET("/user_ids", accountHandler.List)

	transferRoutes := engine.Group("/")
	if config.RequireAuth {
		transferRoutes.Use(middleware.AuthMiddleware(tokenMaker))
	}

	transferRoutes.POST("/transfer", transferHandler.Create)
	transferRoutes.GET("/accounts/:id/transfers", transferHandler.List)
	transferRoutes.GET("/users/:id/transfers", transferHandler.List)

	server := &Server{
		Stores: stores,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
