package fleet

import (
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/formation"
)

// SceneSource supplies the ball, the players and the obstacles at simulated
// time t, in seconds since deployment.
type SceneSource interface {
	Scene(t float64) formation.Scene
}

// SceneFunc adapts a function to SceneSource.
type SceneFunc func(t float64) formation.Scene

func (f SceneFunc) Scene(t float64) formation.Scene { return f(t) }

// FleetActor owns a Fleet and drives it from messages:
//
//	*durationpb.Duration   advance one tick of that length (zero means the control period)
//	*wrapperspb.Int32Value deploy that many agents
//	*wrapperspb.StringValue switch to the named strategy
//	*emptypb.Empty         reply with the snapshot as a *structpb.Struct
//
// After every tick the snapshot is offered to the snapshot channel, skipped
// when the reader is busy.
type FleetActor struct {
	fleet      *Fleet
	scenes     SceneSource
	snapshotCh chan<- *Snapshot

	// --- stats ---
	ticks       int
	lastLogTime time.Time
}

// NewFleetActor wraps fleet. snapshotCh may be nil.
func NewFleetActor(fleet *Fleet, scenes SceneSource, snapshotCh chan<- *Snapshot) *FleetActor {
	return &FleetActor{
		fleet:       fleet,
		scenes:      scenes,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
}

func (a *FleetActor) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Info("Fleet actor starting...")
	return nil
}

func (a *FleetActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		// 1. deploy the configured fleet unless somebody already did
		if !a.fleet.Deployed() {
			if err := a.fleet.Deploy(a.fleet.Config().AgentCount); err != nil {
				a.fail(ctx, "deploy", err)
			}
		}
		ctx.Logger().Infof("Fleet started with %d agents", a.fleet.Count())

	case *durationpb.Duration:
		dt := msg.AsDuration().Seconds()
		if dt <= 0 {
			dt = a.fleet.TimeStep()
		}
		var scene formation.Scene
		if a.scenes != nil {
			scene = a.scenes.Scene(a.fleet.Elapsed())
		}
		if err := a.fleet.Step(ctx.Context(), dt, scene); err != nil {
			a.fail(ctx, "tick", err)
			return
		}
		a.ticks++
		a.logStats(ctx)
		a.pushSnapshot()

	case *wrapperspb.Int32Value:
		if err := a.fleet.Deploy(int(msg.GetValue())); err != nil {
			a.fail(ctx, "deploy", err)
		}

	case *wrapperspb.StringValue:
		if err := a.fleet.SetStrategy(msg.GetValue()); err != nil {
			a.fail(ctx, "strategy", err)
		}

	case *emptypb.Empty:
		st, err := a.fleet.Snapshot().Proto()
		if err != nil {
			a.fail(ctx, "snapshot", err)
			return
		}
		ctx.Response(st)

	default:
		ctx.Unhandled()
	}
}

func (a *FleetActor) fail(ctx *actor.ReceiveContext, what string, err error) {
	ctx.Logger().Errorf("fleet %s failed: %v", what, err)
}

func (a *FleetActor) logStats(ctx *actor.ReceiveContext) {
	if time.Since(a.lastLogTime) < time.Second {
		return
	}
	s := a.fleet.Snapshot()
	ctx.Logger().Infof("📊 TICK RATE: %d/sec | Agents: %d | Clamps: %d | Near misses: %d",
		a.ticks, len(s.Agents), s.ClampEvents, s.NearMisses)
	a.ticks = 0
	a.lastLogTime = time.Now()
}

func (a *FleetActor) pushSnapshot() {
	if a.snapshotCh == nil {
		return
	}
	select {
	case a.snapshotCh <- a.fleet.Snapshot():
	default:
		// reader busy, skip frame
	}
}

func (a *FleetActor) PostStop(ctx *actor.Context) error {
	a.fleet.Clear()
	ctx.ActorSystem().Logger().Info("Fleet actor stopped")
	return nil
}
