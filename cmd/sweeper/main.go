/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"challenge-goals-go/internal/common"
	"challenge-goals-go/internal/config"
	"challenge-goals-go/internal/jobs"
	"challenge-goals-go/internal/metrics"

	"go.uber.org/zap"
)

// installFallbackLogger replaces the no-op global logger so errors raised
// before InitializeLogger still reach stderr.
func installFallbackLogger() {
	if logger, err := zap.NewProduction(); err == nil {
		zap.ReplaceGlobals(logger)
	}
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zap.L().Info("Metrics endpoint listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("Metrics server failed", zap.Error(err))
		}
	}()
	return server
}

func main() {
	once := flag.Bool("once", false, "Run a single sweep and reward retry, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		installFallbackLogger()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting challenge sweeper")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	metrics.Init()
	scheduler := jobs.NewScheduler(services.Engine, services.Clock, cfg.Scheduler, services.Clock.Location())

	if *once {
		report, err := scheduler.RunSweep(ctx)
		if err != nil {
			zap.L().Error("Sweep finished with errors", zap.Error(err))
		}
		if _, err := scheduler.RetryRewards(ctx); err != nil {
			zap.L().Warn("Reward retry incomplete", zap.Error(err))
		}
		zap.L().Info("Single sweep done",
			zap.Int64("challenges_failed", report.ChallengesFailed),
			zap.Int("streaks_expired", report.StreaksExpired),
			zap.Int("rewards_delivered", report.RewardsDelivered))
		return
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics.ListenAddr)
	}

	if err := scheduler.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start scheduler", zap.Error(err))
	}

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping scheduler...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
			}
		}
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Sweeper stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
