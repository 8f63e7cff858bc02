package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soleshop/solerec/config"
	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/db"
	"github.com/soleshop/solerec/engine"
	"github.com/soleshop/solerec/service"
	"github.com/soleshop/solerec/store"
)

func main() {
	configPath := flag.String("config", "", "YAML 配置文件路径（空用默认配置）")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("solerec: exiting")
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required (or set SOLEREC_DB_DSN)")
	}

	source, err := db.Open(cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer source.Close()
	log.Info().Msg("solerec: mysql connected")

	st, err := openStore(cfg.Snapshot)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := engine.New(source, st, engine.Options{
		SnapshotKey:   cfg.Snapshot.Key,
		ExcludeRule:   cfg.Recommend.ExcludeRule,
		CFWeight:      cfg.Recommend.CFWeight,
		ContentWeight: cfg.Recommend.ContentWeight,
		Logger:        log.Logger,
	})
	if err != nil {
		return err
	}

	// 启动即加载：有快照接着用，没有就同步训练一次
	if err := eng.Warmup(context.Background()); err != nil {
		return err
	}

	if cfg.Train.Cron != "" {
		c := cron.New(cron.WithSeconds())
		if _, err := c.AddFunc(cfg.Train.Cron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := eng.Train(ctx); err != nil {
				log.Error().Err(err).Msg("solerec: scheduled retrain failed")
			}
		}); err != nil {
			return fmt.Errorf("invalid train cron %q: %w", cfg.Train.Cron, err)
		}
		c.Start()
		defer c.Stop()
		log.Info().Str("cron", cfg.Train.Cron).Msg("solerec: retrain schedule armed")
	}

	srv := service.New(eng, service.Options{
		DefaultN: cfg.Recommend.DefaultN,
		Logger:   log.Logger,
	})
	return srv.Run(cfg.HTTP.Addr)
}

func openStore(cfg config.Snapshot) (core.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "file":
		dir := cfg.Dir
		if dir == "" {
			dir = "data"
		}
		return store.NewFileStore(dir)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("snapshot.redis_addr is required for the redis backend")
		}
		return store.NewRedisStore(cfg.RedisAddr, 0)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}
