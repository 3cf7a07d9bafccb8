package service

import (
	"context"

	"github.com/vocdoni/confidential-polls/gateway"
	"github.com/vocdoni/confidential-polls/log"
)

// GatewayService runs the ledger gateway worker.
type GatewayService struct {
	gateway *gateway.Gateway
}

// NewGateway wraps gw in a service.
func NewGateway(gw *gateway.Gateway) *GatewayService {
	return &GatewayService{gateway: gw}
}

// Start begins executing transactions. It returns an error if the service
// is already running.
func (gs *GatewayService) Start(ctx context.Context) error {
	return gs.gateway.Start(ctx)
}

// Stop halts the gateway. Queued transactions are dropped.
func (gs *GatewayService) Stop() {
	if err := gs.gateway.Stop(); err != nil {
		log.Warnw("gateway service stopped", "error", err)
	}
}

// Gateway returns the wrapped gateway.
func (gs *GatewayService) Gateway() *gateway.Gateway {
	return gs.gateway
}
