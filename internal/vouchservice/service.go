package vouchservice

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/vouchsafe/vouchsafe/common/concurrent"
	"github.com/vouchsafe/vouchsafe/common/logging"
	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/protocol"
	"github.com/vouchsafe/vouchsafe/internal/rpc"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

// eventLogger mirrors the journal into the service log so that an operator
// can follow settlements without querying the RPC.
type eventLogger struct {
	logger zerolog.Logger
}

func (l *eventLogger) OnEvent(event types.Event) {
	l.logger.Info().
		Stringer(logging.FieldTaskId, event.TaskId).
		Stringer("kind", event.Kind).
		Msg("Journal entry")
}

// Run wires the verifier and RPC server over the given database and blocks
// until the context is cancelled. Returns the process exit code.
func Run(ctx context.Context, cfg *Config, database *db.BadgerDB) int {
	logger := logging.NewLogger("vouchservice")

	verifier := protocol.NewVerifier(database, logging.NewLogger("verifier"))
	verifier.Subscribe(&eventLogger{logger: logging.NewLogger("journal")})

	server := rpc.NewServer(rpc.ServerConfig{Endpoint: cfg.RPCEndpoint}, verifier, logging.NewLogger("rpc"))

	funcs := []concurrent.Func{
		server.Run,
	}
	if cfg.DB.Path != "" {
		funcs = append(funcs, func(ctx context.Context) error {
			return database.LogGC(ctx, cfg.DB.DiscardRatio, cfg.DB.GcFrequency)
		})
	}

	if err := concurrent.Run(ctx, funcs...); err != nil {
		logger.Error().Err(err).Msg("service failed")
		return 1
	}

	logger.Info().Msg("service stopped")
	return 0
}
