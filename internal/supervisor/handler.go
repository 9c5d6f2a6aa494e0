package supervisor

import (
	"context"
	"fmt"

	"github.com/larsks/carpid/internal/cli"
)

// Handler implements cli.CommandHandler for the carpid supervisor.
type Handler struct{}

// NewHandler creates a new supervisor command handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Start builds and runs the Supervisor until it receives a termination
// signal.
func (h *Handler) Start(config cli.Configurable) error {
	cfg, ok := config.(*Config)
	if !ok {
		return fmt.Errorf("invalid config type for carpid supervisor")
	}

	sup, err := New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}

	return sup.Run(context.Background())
}
