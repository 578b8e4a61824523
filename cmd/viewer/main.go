package main

import (
	"context"
	"flag"
	"log"
	"math/rand/v2"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-drone-formation/internal/scene"
	"github.com/lao-tseu-is-alive/go-drone-formation/internal/viewer"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/fleet"
)

func main() {
	configPath := flag.String("config", "", "fleet configuration file (.json or .toml)")
	players := flag.Int("players", 22, "number of scripted players")
	seed := flag.Uint64("seed", 1, "seed of every random draw")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	ctx := context.Background()

	cfg := flight.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = flight.LoadConfig(*configPath); err != nil {
			log.Fatalf("💥 loading config: %v", err)
		}
	}

	level := golog.InfoLevel
	if *verbose {
		level = golog.DebugLevel
	}
	logger := golog.New(level, os.Stdout)

	// 1. Actor system, its own chatter discarded
	system, err := actor.NewActorSystem("DroneFleet", actor.WithLogger(golog.DiscardLogger))
	if err != nil {
		log.Fatalf("💥 creating actor system: %v", err)
	}
	if err := system.Start(ctx); err != nil {
		log.Fatalf("💥 starting actor system: %v", err)
	}
	defer system.Stop(ctx)

	// 2. Fleet and scripted scene
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	f, err := fleet.NewFleet(cfg, fleet.WithLogger(logger), fleet.WithRand(rng))
	if err != nil {
		log.Fatalf("💥 %v", err)
	}
	script, err := scene.NewScript(cfg, *players, rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	if err != nil {
		log.Fatalf("💥 %v", err)
	}

	game, err := viewer.NewGame(ctx, system, f, script)
	if err != nil {
		log.Fatalf("💥 %v", err)
	}

	ebiten.SetWindowSize(viewer.ScreenWidth, viewer.ScreenHeight)
	ebiten.SetWindowTitle("Drone formation")
	ebiten.SetTPS(int(cfg.ControlRate))
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
