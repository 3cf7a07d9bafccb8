package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/confidential-polls/api"
	"github.com/vocdoni/confidential-polls/gateway"
	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/relayer"
)

// shutdownTimeout bounds the graceful shutdown of the API server.
const shutdownTimeout = 5 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	gateway      *gateway.Gateway
	relayer      *relayer.Relayer
	api          *api.API
	mu           sync.Mutex
	cancel       context.CancelFunc
	host         string
	port         int
	durationDays uint64
}

// NewAPI creates a new APIService instance serving gw and, if not nil, r.
func NewAPI(gw *gateway.Gateway, r *relayer.Relayer, host string, port int, durationDays uint64) *APIService {
	return &APIService{
		gateway:      gw,
		relayer:      r,
		host:         host,
		port:         port,
		durationDays: durationDays,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start. The server stops when ctx is
// canceled.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:                   as.host,
		Port:                   as.port,
		Gateway:                as.gateway,
		Relayer:                as.relayer,
		DecryptionDurationDays: as.durationDays,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	var sctx context.Context
	sctx, as.cancel = context.WithCancel(ctx)
	as.api.Start()

	srv := as.api
	go func() {
		<-sctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Warnw("API server shutdown failed", "error", err)
		}
	}()
	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
