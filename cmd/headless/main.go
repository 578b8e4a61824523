package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	golog "github.com/tochemey/goakt/v3/log"
	"github.com/ttacon/chalk"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/fleet"
)

func main() {
	configPath := flag.String("config", "", "fleet configuration file (.json or .toml)")
	duration := flag.Duration("duration", 60*time.Second, "simulated time to fly")
	agents := flag.Int("agents", 0, "agent count, overrides the configuration")
	strategy := flag.String("strategy", "", "formation strategy, overrides the configuration")
	switchAt := flag.Duration("switch", 0, "toggle the strategy at this simulated time")
	players := flag.Int("players", 22, "number of scripted players")
	seed := flag.Uint64("seed", 1, "seed of every random draw")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg := flight.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = flight.LoadConfig(*configPath); err != nil {
			log.Fatalf("💥 loading config: %v", err)
		}
	}
	if *agents != 0 {
		cfg.AgentCount = *agents
	}
	if *strategy != "" {
		cfg.Strategy = *strategy
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("💥 %v", err)
	}

	level := golog.InfoLevel
	if *verbose {
		level = golog.DebugLevel
	}

	start := time.Now()
	stats, err := run(context.Background(), options{
		cfg:      cfg,
		duration: *duration,
		players:  *players,
		seed:     *seed,
		switchAt: *switchAt,
		logger:   golog.New(level, os.Stdout),
	})
	if err != nil {
		log.Fatalf("💥 %v", err)
	}
	report(os.Stdout, cfg, stats, time.Since(start))
	if !stats.Bounded() {
		os.Exit(1)
	}
}

func report(w io.Writer, cfg *flight.Config, st *fleet.Stats, wall time.Duration) {
	fmt.Fprintf(w, "\n📊 %d ticks of %d agents (%s) in %s\n", st.Samples, cfg.AgentCount, cfg.Strategy, wall.Round(time.Millisecond))
	fmt.Fprintf(w, "   height       %.2f .. %.2f (band %.1f .. %.1f)\n", st.MinHeight, st.MaxHeight, cfg.MinHeight, cfg.MaxHeight)
	fmt.Fprintf(w, "   max radius   %.2f (limit %.1f)\n", st.MaxRadius, cfg.MaxDistanceFromCenter)
	fmt.Fprintf(w, "   max speed    %.2f m/s\n", st.MaxSpeed)
	fmt.Fprintf(w, "   min spacing  %.2f m\n", st.MinSeparation)
	fmt.Fprintf(w, "   clamps       %d, near misses up to %d\n", st.ClampEvents, st.MaxNearMisses)
	fmt.Fprintf(w, "   quality      %.1f\n", st.MeanQuality())
	if st.Bounded() {
		fmt.Fprintln(w, chalk.Green.Color("✅ BOUNDED: every agent stayed inside the flight volume"))
		return
	}
	fmt.Fprintln(w, chalk.Red.Color(fmt.Sprintf("❌ OUT OF BOUNDS: %d agent samples outside the flight volume", st.Violations)))
}
