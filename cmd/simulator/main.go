package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
)

var (
	planFile    = flag.StringP("plan-file", "f", "./plan.json", "file path to read the simulation plan from")
	duration    = flag.Int("duration", 0, "override the plan's duration in seconds")
	verbose     = flag.BoolP("verbose", "v", false, "log every keeper node's activity")
	metricsPort = flag.Int("metrics-port", 0, "serve prometheus metrics on this port (0 disables)")
)

func main() {
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))

	if *metricsPort > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: ":" + strconv.Itoa(*metricsPort), Handler: mux}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	plan, err := LoadPlan(*planFile)
	if err != nil {
		logger.Error("failed to load plan", "err", err)
		os.Exit(1)
	}
	if *duration > 0 {
		plan.DurationSeconds = *duration
	}

	sim, err := setup(plan, *verbose, logger)
	if err != nil {
		logger.Error("failed to set up simulation", "err", err)
		os.Exit(1)
	}

	sim.run()

	if err := sim.report(context.Background()); err != nil {
		logger.Error("failed to build report", "err", err)
		os.Exit(1)
	}
}
