package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/open-townhall/townhall/src/api/config"
	"github.com/open-townhall/townhall/src/api/data"
	"github.com/open-townhall/townhall/src/api/engine"
)

// The sweeper closes expired elections and resolves expired proposals on a
// timer. Both operations are idempotent, so running several sweepers, or a
// sweeper alongside explicit triggers, is safe.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	db := data.MustMySQL(cfg.MySQLDSN)

	cfgStore, err := engine.NewConfigStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("config store")
	}
	eng := engine.New(db, cfgStore, engine.SystemClock(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interval := time.Duration(cfg.SweepInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Dur("interval", interval).Msg("sweeper running")
	for {
		// Settings may have changed since the last pass (proposals
		// legislate over term lengths), so refresh the cache first.
		if err := cfgStore.Reload(); err != nil {
			log.Warn().Err(err).Msg("settings reload")
		}
		closed, resolved, err := eng.Sweep(ctx)
		if err != nil {
			log.Error().Err(err).Msg("sweep")
		} else if closed > 0 || resolved > 0 {
			log.Info().Int("elections_closed", closed).Int("proposals_resolved", resolved).Msg("sweep complete")
		}

		select {
		case <-ticker.C:
		case <-sig:
			return
		}
	}
}
