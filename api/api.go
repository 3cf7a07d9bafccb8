// Package api exposes the poll ledger over HTTP: signed transaction
// submission, point-in-time queries, the public FHE parameters and the
// relayer user decryption endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vocdoni/confidential-polls/gateway"
	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/metrics"
	"github.com/vocdoni/confidential-polls/relayer"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Gateway *gateway.Gateway
	// Relayer is optional, without it the decryption endpoint answers with
	// ErrNotInitialized.
	Relayer *relayer.Relayer
	// DecryptionDurationDays is the grant duration advertised to clients.
	DecryptionDurationDays uint64
}

// API type represents the API HTTP server.
type API struct {
	router       *chi.Mux
	server       *http.Server
	gateway      *gateway.Gateway
	relayer      *relayer.Relayer
	durationDays uint64
}

// New creates a new API instance with the given configuration. The server
// is not listening until Start is called.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Gateway == nil {
		return nil, fmt.Errorf("missing gateway instance")
	}
	a := &API{
		gateway:      conf.Gateway,
		relayer:      conf.Relayer,
		durationDays: conf.DecryptionDurationDays,
	}

	// Initialize router
	a.initRouter()
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Start serves the API in the background.
func (a *API) Start() {
	go func() {
		log.Infow("starting API server", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (a *API) Stop(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.info)
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Handle(MetricsEndpoint, metrics.Handler())

	// transactions
	log.Infow("register handler", "endpoint", TransactionsEndpoint, "method", "POST")
	a.router.Post(TransactionsEndpoint, a.submitTransaction)
	log.Infow("register handler", "endpoint", AccountNonceEndpoint, "method", "GET")
	a.router.Get(AccountNonceEndpoint, a.accountNonce)

	// platforms
	log.Infow("register handler", "endpoint", PlatformsEndpoint, "method", "GET")
	a.router.Get(PlatformsEndpoint, a.platforms)
	log.Infow("register handler", "endpoint", PlatformEndpoint, "method", "GET")
	a.router.Get(PlatformEndpoint, a.platform)
	log.Infow("register handler", "endpoint", MemberEndpoint, "method", "GET")
	a.router.Get(MemberEndpoint, a.member)
	log.Infow("register handler", "endpoint", MemberProofEndpoint, "method", "GET")
	a.router.Get(MemberProofEndpoint, a.memberProof)

	// polls
	log.Infow("register handler", "endpoint", PollsEndpoint, "method", "GET")
	a.router.Get(PollsEndpoint, a.polls)
	log.Infow("register handler", "endpoint", PollEndpoint, "method", "GET")
	a.router.Get(PollEndpoint, a.poll)
	log.Infow("register handler", "endpoint", PollCountsEndpoint, "method", "GET")
	a.router.Get(PollCountsEndpoint, a.pollCounts)
	log.Infow("register handler", "endpoint", PollVoterEndpoint, "method", "GET")
	a.router.Get(PollVoterEndpoint, a.pollVoter)

	// decryption
	log.Infow("register handler", "endpoint", DecryptEndpoint, "method", "POST")
	a.router.Post(DecryptEndpoint, a.userDecrypt)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(60 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
