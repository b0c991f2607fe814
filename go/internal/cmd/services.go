package main

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/planningpoker/go/internal/poker/gateway"
	"github.com/mcdev12/planningpoker/go/internal/rooms"
	"github.com/mcdev12/planningpoker/go/internal/votes"
)

// Services holds the wired application services
type Services struct {
	Rooms   *rooms.Service
	Gateway *gateway.Service
}

func setupServices(cfg *Config, pool *pgxpool.Pool) (*Services, error) {
	votesRepo := votes.NewRepository(pool)
	votesApp := votes.NewApp(votesRepo)

	roomsRepo := rooms.NewRepository(pool)
	roomsApp := rooms.NewApp(roomsRepo, votesApp)

	registry := gateway.NewRegistry(roomsApp)

	gatewayConfig := gateway.DefaultConfig()
	if cfg.Gateway.SweepIntervalSec > 0 {
		gatewayConfig.SweepInterval = time.Duration(cfg.Gateway.SweepIntervalSec) * time.Second
	}

	var relay *gateway.Relay
	if cfg.Relay.NATSURL != "" {
		relayConfig := gateway.DefaultRelayConfig()
		relayConfig.URL = cfg.Relay.NATSURL

		var err error
		relay, err = gateway.NewRelay(relayConfig, registry)
		if err != nil {
			return nil, fmt.Errorf("failed to create broadcast relay: %w", err)
		}
	}

	return &Services{
		Rooms:   rooms.NewService(roomsApp),
		Gateway: gateway.NewService(gatewayConfig, registry, votesApp, relay),
	}, nil
}
