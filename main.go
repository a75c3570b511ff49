package main

import (
	"context"
	"galmirror/cmd/scrape"
	"galmirror/config"
	"galmirror/crawler"
	"galmirror/log"
	"galmirror/mirror"
	"galmirror/routes"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const cachePruneInterval = 5 * time.Minute

func main() {
	rootCmd := &cobra.Command{
		Use: "galmirror",
		Run: func(_ *cobra.Command, _ []string) {
			runServer()
		},
	}
	rootCmd.AddCommand(scrape.Scrape)

	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log.Setup(cfg.LogLevel, cfg.Env.IsDevOrTest())

	client := crawler.NewHttpClientImpl(cfg.Http.Timeout, cfg.Http.MaxContentLengthB)
	service := mirror.NewService(client, cfg)
	logger := crawler.NewZeroLogger(log.Base)

	ctx := context.Background()
	service.StartBackgroundRefresh(ctx, cfg.Ranking.RefreshInterval, logger)
	go func() {
		ticker := time.NewTicker(cachePruneInterval)
		defer ticker.Stop()
		for range ticker.C {
			if pruned := service.PruneCaches(); pruned > 0 {
				log.Info().Int("pruned", pruned).Msg("Pruned expired cache entries")
			}
		}
	}()

	log.Info().
		Str("env", cfg.Env.String()).
		Str("addr", cfg.ListenAddr).
		Msg("Started")
	if err := http.ListenAndServe(cfg.ListenAddr, routes.Router(service, cfg.Env)); err != nil {
		panic(err)
	}
}
