package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"eve-dispatch/internal/config"
	"eve-dispatch/internal/logger"
	"eve-dispatch/internal/scenario"
	"eve-dispatch/internal/simulator"
	"eve-dispatch/internal/store"
)

var version = "dev"

// loadDotEnv loads environment variables from a local .env file so a
// double-clicked binary (without a shell) can still pick up overrides.
// Order of lookup:
//  1. ./.env (current working directory)
//  2. <binary-dir>/.env
//
// Existing OS env vars are never overridden.
func loadDotEnv() {
	paths := []string{".env"}
	if exePath, err := os.Executable(); err == nil {
		if exeDir := filepath.Dir(exePath); exeDir != "" {
			paths = append(paths, filepath.Join(exeDir, ".env"))
		}
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true

		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			l := strings.TrimSpace(line)
			if l == "" || strings.HasPrefix(l, "#") {
				continue
			}
			parts := strings.SplitN(l, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key, val := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if key == "" {
				continue
			}
			if os.Getenv(key) == "" {
				os.Setenv(key, val)
			}
		}
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func main() {
	loadDotEnv()

	tickSize := flag.Float64("tick-size", 0.5, "simulation clock advance per tick")
	timeStop := flag.Float64("time-stop", 200, "clock value at which the run ends")
	numOrders := flag.Int("orders", 20, "number of randomly generated orders")
	numCouriers := flag.Int("couriers", 4, "number of randomly generated couriers")
	urgentPct := flag.Float64("urgent-percentage", 20, "percentage of generated orders treated as urgent")
	mapSize := flag.Float64("map-size", 100, "width/height of the square map orders and couriers are placed on")
	seed := flag.Int64("seed", 1, "seed for the scenario's random generator")
	storePath := flag.String("store", "", "SQLite file the run's schedule/events are persisted to (empty = in-memory)")
	flag.Parse()

	logger.Banner(version)

	cfg := config.Default()
	cfg.TickSize = *tickSize
	cfg.TimeStop = *timeStop
	cfg.StorePath = envOrDefault("EVE_DISPATCH_STORE_PATH", *storePath)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		logger.Error("store", fmt.Sprintf("failed to open: %v", err))
		os.Exit(1)
	}
	defer st.Close()

	r := rand.New(rand.NewSource(*seed))
	orders := scenario.GenerateOrders(r, scenario.OrderParams{
		Count: *numOrders, UrgentPercentage: *urgentPct,
		Map: scenario.MapSize{Width: *mapSize, Height: *mapSize}, MaxAppearanceTime: *timeStop / 4, AvgCourierSpeed: 10,
	})
	couriers := scenario.GenerateCouriers(r, scenario.CourierParams{
		Count: *numCouriers, Map: scenario.MapSize{Width: *mapSize, Height: *mapSize},
	})

	logger.Section("scenario")
	logger.Stats("orders", len(orders))
	logger.Stats("couriers", len(couriers))

	script := scenario.BuildScript(orders, couriers)
	sim := simulator.New(script, cfg, st, func(s simulator.Stats) {
		logger.Stats("tick", fmt.Sprintf("%d (t=%.2f)", s.TickCounter, s.Time))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("simulator", "interrupt received, stopping after the current tick")
		sim.Stop()
	}()

	sim.Run()

	logger.Success("simulator", fmt.Sprintf("run %s complete", st.RunID()))
}
