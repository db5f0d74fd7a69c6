package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/config"
	"github.com/open-townhall/townhall/src/api/data"
	"github.com/open-townhall/townhall/src/api/engine"
	"github.com/open-townhall/townhall/src/api/types"
	"github.com/open-townhall/townhall/src/api/webserver"
)

var allModels = []interface{}{
	&types.Citizen{}, &types.Community{},
	&types.Post{}, &types.Comment{}, &types.PostUpvote{},
	&types.DailyUsage{}, &types.CommunityBan{},
	&types.ModeratorRole{}, &types.ModLog{},
	&types.Election{}, &types.Candidate{}, &types.ElectionVote{},
	&types.Proposal{}, &types.ProposalVote{},
	&types.Setting{},
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)

	cfgStore, err := engine.NewConfigStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("config store")
	}
	if err := cfgStore.Seed(); err != nil {
		log.Fatal().Err(err).Msg("settings seed")
	}

	// Proposals are resolved by the sweeper process; poll the settings
	// table so legislated parameter changes reach this ledger too.
	reloadCtx, stopReload := context.WithCancel(context.Background())
	defer stopReload()
	go cfgStore.AutoReload(reloadCtx, time.Duration(cfg.SettingsRefresh)*time.Second)

	eng := engine.New(db, cfgStore, engine.SystemClock(), nil)
	rdb := data.MustRedis(cfg.RedisURL)

	router := webserver.New(cfg, db, rdb, eng)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("Town Hall API listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutCtx)
}
