// Package viewer is a top-down ebiten window over a running fleet: the field,
// the ball and players, the agents colored by height, their goals and
// camera sightlines, and a control panel.
package viewer

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tochemey/goakt/v3/actor"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-drone-formation/internal/scene"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/fleet"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/ui"
)

const (
	ScreenWidth  = 1100
	ScreenHeight = 820
	panelWidth   = 260
)

var (
	whiteImage = ebiten.NewImage(3, 3)

	fieldColor    = color.RGBA{R: 30, G: 90, B: 40, A: 255}
	lineColor     = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	boundaryColor = color.RGBA{R: 255, G: 200, B: 60, A: 160}
	ballColor     = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	playerColor   = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	obstacleColor = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	goalColor     = color.RGBA{R: 255, G: 255, B: 255, A: 120}
	sightColor    = color.RGBA{R: 120, G: 220, B: 255, A: 60}
)

func init() {
	whiteImage.Fill(color.White)
}

type Game struct {
	ctx        context.Context
	System     actor.ActorSystem
	fleetPID   *actor.PID
	snapshotCh chan *fleet.Snapshot
	lastState  *fleet.Snapshot
	script     *scene.Script
	cfg        flight.Config
	proj       Projection

	// UI Controls
	panel            *ui.Panel
	widgetAgents     *ui.Slider
	widgetGoals      *ui.Checkbox
	widgetSightlines *ui.Checkbox
	widgetBoundary   *ui.Checkbox
	widgetPaused     *ui.Checkbox
	strategyButtons  map[string]*ui.Button
	deployedCount    int

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64
}

// NewGame spawns the fleet actor on system and builds the window around it.
func NewGame(ctx context.Context, system actor.ActorSystem, f *fleet.Fleet, script *scene.Script) (*Game, error) {
	// 1. Create Channels for communication
	snapshotCh := make(chan *fleet.Snapshot, 4)

	// 2. Spawn the fleet actor; it pushes a snapshot after each tick
	pid, err := system.Spawn(ctx, "fleet", fleet.NewFleetActor(f, script, snapshotCh))
	if err != nil {
		return nil, fmt.Errorf("failed to spawn fleet: %w", err)
	}

	cfg := f.Config()
	g := &Game{
		ctx:             ctx,
		System:          system,
		fleetPID:        pid,
		snapshotCh:      snapshotCh,
		lastState:       f.Snapshot(),
		script:          script,
		cfg:             cfg,
		proj:            FitProjection(&cfg, panelWidth+20, 10, ScreenWidth-panelWidth-30, ScreenHeight-20),
		strategyButtons: make(map[string]*ui.Button),
		deployedCount:   cfg.AgentCount,
	}

	// 3. Control panel
	g.panel = ui.NewPanel("Fleet control", 10, 10, panelWidth, ScreenHeight-20)
	g.panel.Section("Fleet")
	g.widgetAgents = g.panel.AddSlider("Agents", flight.MinAgents, flight.MaxAgents, float64(cfg.AgentCount), 1)
	g.panel.AddButton("Redeploy", func() { g.deploy(g.widgetAgents.Int()) })
	g.panel.Section("Formation")
	for _, name := range []string{flight.StrategyGeometric, flight.StrategyZonal} {
		g.strategyButtons[name] = g.panel.AddButton(name, func() { g.setStrategy(name) })
	}
	g.panel.Section("Visualization")
	g.widgetGoals = g.panel.AddCheckbox("Show goals", true)
	g.widgetSightlines = g.panel.AddCheckbox("Show camera sightlines", false)
	g.widgetBoundary = g.panel.AddCheckbox("Show flight boundary", true)
	g.widgetPaused = g.panel.AddCheckbox("Pause", false)
	g.markStrategy(cfg.Strategy)
	return g, nil
}

func (g *Game) deploy(n int) {
	if err := actor.Tell(g.ctx, g.fleetPID, wrapperspb.Int32(int32(n))); err == nil {
		g.deployedCount = n
	}
}

func (g *Game) setStrategy(name string) {
	if err := actor.Tell(g.ctx, g.fleetPID, wrapperspb.String(name)); err == nil {
		g.markStrategy(name)
	}
}

func (g *Game) markStrategy(name string) {
	for n, b := range g.strategyButtons {
		b.Toggled = n == name
	}
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	// 1. Update UI Panel
	g.panel.Update()
	if n := g.widgetAgents.Int(); n != g.deployedCount && !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.deploy(n)
	}

	// 2. Right click pins the ball, R gives it back to the script
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
		mx, my := ebiten.CursorPosition()
		if mx > panelWidth+10 {
			g.script.PinBall(g.proj.ToWorld(float64(mx), float64(my)))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.script.ReleaseBall()
	}

	// 3. Retrieve Latest State (Non-blocking)
	select {
	case snap := <-g.snapshotCh:
		g.lastState = snap
	default:
		// Use previous state if new one isn't ready
	}

	// 4. Trigger Simulation Step at the control period
	if !g.widgetPaused.Value {
		if err := actor.Tell(g.ctx, g.fleetPID, durationpb.New(0)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	g.drawField(screen)
	sc := g.script.Scene(g.lastState.Elapsed)
	for _, o := range g.script.Obstacles() {
		x, y := g.proj.ToScreen(o.Center)
		vector.FillCircle(screen, x, y, g.proj.Length(o.Radius), obstacleColor, true)
	}
	for _, p := range sc.Players {
		x, y := g.proj.ToScreen(p.Position)
		vector.FillCircle(screen, x, y, 3, playerColor, true)
	}
	bx, by := g.proj.ToScreen(sc.Ball)
	vector.FillCircle(screen, bx, by, 4, ballColor, true)

	// agents
	s := g.lastState
	for i, a := range s.Agents {
		x, y := g.proj.ToScreen(a.Position)
		if g.widgetGoals.Value && i < len(s.Goals) {
			gx, gy := g.proj.ToScreen(s.Goals[i])
			vector.StrokeLine(screen, x, y, gx, gy, 1, goalColor, true)
			vector.StrokeRect(screen, gx-2, gy-2, 4, 4, 1, goalColor, true)
		}
		if g.widgetSightlines.Value && a.HasLookAt {
			lx, ly := g.proj.ToScreen(a.LookAt)
			vector.StrokeLine(screen, x, y, lx, ly, 1, sightColor, true)
		}
		clr := HeightColor(a.Position.Y, g.cfg.MinHeight, g.cfg.MaxHeight)
		if !a.Active {
			clr = obstacleColor
		}
		drawAgent(screen, x, y, math.Atan2(a.Velocity.Z, a.Velocity.X), clr)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%d", a.ID), int(x)+6, int(y)-6)
	}

	g.panel.Draw(screen)
	g.drawStats(screen)
}

func (g *Game) drawField(screen *ebiten.Image) {
	hw, hl := g.cfg.FieldWidth/2, g.cfg.FieldLength/2
	x0, y0 := g.proj.ToScreen(groundPoint(-hw, -hl))
	x1, y1 := g.proj.ToScreen(groundPoint(hw, hl))
	vector.FillRect(screen, x0, y0, x1-x0, y1-y0, fieldColor, true)
	vector.StrokeRect(screen, x0, y0, x1-x0, y1-y0, 2, lineColor, true)
	// yard lines every 10 m
	for z := -hl + 10; z < hl; z += 10 {
		_, y := g.proj.ToScreen(groundPoint(0, z))
		vector.StrokeLine(screen, x0, y, x1, y, 1, color.RGBA{R: 200, G: 200, B: 200, A: 80}, true)
	}
	if g.widgetBoundary.Value {
		cx, cy := g.proj.ToScreen(groundPoint(0, 0))
		vector.StrokeCircle(screen, cx, cy, g.proj.Length(g.cfg.MaxDistanceFromCenter), 1, boundaryColor, true)
	}
}

func (g *Game) drawStats(screen *ebiten.Image) {
	s := g.lastState
	id := s.DeploymentID
	if len(id) > 8 {
		id = id[:8]
	}
	msg := fmt.Sprintf("FPS: %.1f  TPS: %.1f\nUpdate: %.2fms  Draw: %.2fms\n\nDeployment: %s\nStrategy: %s\nAgents: %d  Tick: %d\nRotation: %.2f rad\nClamps: %d  Near misses: %d\n\nright click: pin ball, R: release",
		ebiten.ActualFPS(), ebiten.ActualTPS(), g.updateAvg, g.drawAvg,
		id, s.Strategy, len(s.Agents), s.Tick, s.Rotation, s.ClampEvents, s.NearMisses)
	ebitenutil.DebugPrintAt(screen, msg, ScreenWidth-250, 10)
}

// drawAgent draws a small triangle pointing along heading.
func drawAgent(screen *ebiten.Image, x, y float32, heading float64, clr color.RGBA) {
	px, py := float64(x), float64(y)
	r, g, b, a := float32(clr.R)/255, float32(clr.G)/255, float32(clr.B)/255, float32(clr.A)/255
	vertex := func(angle, length float64) ebiten.Vertex {
		return ebiten.Vertex{
			DstX:   float32(px + math.Cos(angle)*length),
			DstY:   float32(py + math.Sin(angle)*length),
			SrcX:   1, SrcY: 1,
			ColorR: r, ColorG: g, ColorB: b, ColorA: a,
		}
	}
	vertices := []ebiten.Vertex{
		vertex(heading, 8),
		vertex(heading+2.5, 6),
		vertex(heading-2.5, 6),
	}
	screen.DrawTriangles(vertices, []uint16{0, 1, 2}, whiteImage, &ebiten.DrawTrianglesOptions{})
}

func (g *Game) Layout(w, h int) (int, int) { return ScreenWidth, ScreenHeight }
