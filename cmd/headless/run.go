package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-drone-formation/internal/scene"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/fleet"
)

const askTimeout = 5 * time.Second

type options struct {
	cfg      *flight.Config
	duration time.Duration
	players  int
	seed     uint64
	// switchAt toggles the strategy once at that simulated time, zero never
	switchAt time.Duration
	logger   golog.Logger
}

// run flies a scripted match through the fleet actor and returns the
// statistics of every tick.
func run(ctx context.Context, opts options) (*fleet.Stats, error) {
	// 1. actor system
	system, err := actor.NewActorSystem("DroneFleetHeadless", actor.WithLogger(golog.DiscardLogger))
	if err != nil {
		return nil, fmt.Errorf("creating actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting actor system: %w", err)
	}
	defer func() { _ = system.Stop(ctx) }()

	// 2. fleet and scene
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	f, err := fleet.NewFleet(opts.cfg, fleet.WithLogger(opts.logger), fleet.WithRand(rng))
	if err != nil {
		return nil, err
	}
	script, err := scene.NewScript(opts.cfg, opts.players, rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	if err != nil {
		return nil, err
	}
	pid, err := system.Spawn(ctx, "fleet", fleet.NewFleetActor(f, script, nil))
	if err != nil {
		return nil, fmt.Errorf("spawning fleet: %w", err)
	}

	// 3. fixed step loop
	// a zero tick duration steps by exactly one control period
	dt := opts.cfg.TimeStep()
	ticks := int(math.Round(opts.duration.Seconds() / dt))
	switchTick := -1
	if opts.switchAt > 0 {
		switchTick = int(math.Round(opts.switchAt.Seconds() / dt))
	}
	stats := fleet.NewStats(opts.cfg.Bounds())
	for i := 0; i < ticks; i++ {
		if i == switchTick {
			next := flight.StrategyZonal
			if opts.cfg.Strategy == flight.StrategyZonal {
				next = flight.StrategyGeometric
			}
			if err := actor.Tell(ctx, pid, wrapperspb.String(next)); err != nil {
				return nil, err
			}
		}
		if err := actor.Tell(ctx, pid, durationpb.New(0)); err != nil {
			return nil, err
		}
		s, err := askSnapshot(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", i, err)
		}
		stats.Observe(s)
	}
	return stats, nil
}

func askSnapshot(ctx context.Context, pid *actor.PID) (*fleet.Snapshot, error) {
	reply, err := actor.Ask(ctx, pid, &emptypb.Empty{}, askTimeout)
	if err != nil {
		return nil, err
	}
	st, ok := reply.(*structpb.Struct)
	if !ok {
		return nil, fmt.Errorf("unexpected snapshot reply %T", reply)
	}
	return fleet.SnapshotFromProto(st), nil
}
