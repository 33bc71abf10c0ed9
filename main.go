package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/tsym/splash/config"
	"github.com/tsym/splash/fluid"
	"github.com/tsym/splash/scene"
	"github.com/tsym/splash/telemetry"
)

// app ties the simulation to telemetry and drives the tick loop.
type app struct {
	cfg  *config.Config
	sim  *fluid.Sim
	perf *telemetry.PerfCollector
	out  *telemetry.OutputManager

	logStats    bool
	statsWindow float64 // Seconds of sim time per stats record

	tick       int32
	simTime    float64
	nextWindow float64

	paused        bool
	slowMotion    bool
	heatIntensity float32
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	backend := flag.String("backend", "", "Compute backend override: serial or parallel")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster headless runs)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	params := fluid.ParamsFromConfig(cfg)
	if *backend != "" {
		params.Backend = *backend
	}

	sim, err := fluid.New(params)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	defer sim.Close()

	scene.Setup(sim, &cfg.Scene)

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	// Use config stats window if not overridden by CLI
	statsWindowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}

	a := &app{
		cfg:           cfg,
		sim:           sim,
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		out:           out,
		logStats:      *logStats,
		statsWindow:   statsWindowSec,
		nextWindow:    statsWindowSec,
		heatIntensity: float32(cfg.Heat.Intensity),
	}
	sim.Timer = a.perf

	slog.Info("simulation ready",
		"particles", sim.Count(),
		"backend", sim.BackendName(),
		"dt", cfg.Sim.DT,
		"headless", *headless,
	)

	if *headless {
		for {
			for i := 0; i < *stepsPerUpdate; i++ {
				a.step()
			}
			if *maxTicks > 0 && int(a.tick) >= *maxTicks {
				slog.Info("max ticks reached", "tick", a.tick)
				return
			}
		}
	}

	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Splash")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	for !rl.WindowShouldClose() {
		a.handleInput()
		if !a.paused {
			a.step()
		}
		a.perf.RecordFrame()
		a.draw()

		if *maxTicks > 0 && int(a.tick) >= *maxTicks {
			break
		}
	}
}

// step advances the simulation one tick and flushes telemetry at window
// boundaries.
func (a *app) step() {
	dt := a.cfg.Derived.DT32
	if a.slowMotion {
		dt *= float32(a.cfg.Sim.SlowMotionFactor)
	}

	a.perf.StartTick()
	a.sim.Step(dt)
	a.perf.StartPhase(telemetry.PhaseTelemetry)

	a.tick++
	a.simTime += float64(dt)

	if a.simTime >= a.nextWindow {
		a.flushWindow()
		a.nextWindow = a.simTime + a.statsWindow
	}

	a.perf.EndTick()
}

// flushWindow samples the fluid state and writes/logs the window records.
func (a *app) flushWindow() {
	stats := telemetry.Collect(a.sim, a.tick, a.simTime)
	perfStats := a.perf.Stats()

	if a.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := a.out.WriteTelemetry(stats); err != nil {
		slog.Error("telemetry write failed", "error", err)
	}
	if err := a.out.WritePerf(perfStats, a.tick); err != nil {
		slog.Error("perf write failed", "error", err)
	}
}

// handleInput processes mouse interaction: left click drops a pebble at the
// cursor, holding the right button heats the fluid around it.
func (a *app) handleInput() {
	if rl.IsKeyPressed(rl.KeySpace) {
		a.paused = !a.paused
	}

	mouse := rl.GetMousePosition()
	wx, wy := a.screenToWorld(mouse.X, mouse.Y)

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		pos := fluid.Vec3{X: wx, Y: wy, Z: a.sim.DomainMax() / 2}
		vel := vec3(a.cfg.Scene.Pebble.Velocity)
		if !scene.SpawnPebble(a.sim, pos, vel, float32(a.cfg.Scene.Pebble.MassScale)) {
			slog.Warn("pebble spawn failed: particle store full")
		}
	}

	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		a.sim.ApplyHeatSource(wx, wy, float32(a.cfg.Heat.Radius), a.heatIntensity)
	}
}

func (a *app) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	positions := a.sim.Positions()
	temps := a.sim.Temperatures()
	for i, p := range positions {
		sx, sy := a.worldToScreen(p.X, p.Y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, 2, tempColor(temps[i]))
	}

	a.drawPanel()

	rl.EndDrawing()
}

// drawPanel renders the control panel: heat slider, pause and slow motion
// toggles, and live counters.
func (a *app) drawPanel() {
	panelX := float32(10)
	panelY := float32(10)

	rl.DrawText(fmt.Sprintf("particles: %d", a.sim.Count()), int32(panelX), int32(panelY), 16, rl.RayWhite)
	panelY += 20
	rl.DrawText(fmt.Sprintf("tick: %d  sim time: %.1fs", a.tick, a.simTime), int32(panelX), int32(panelY), 16, rl.RayWhite)
	panelY += 20
	rl.DrawText(fmt.Sprintf("fps: %d", int(a.perf.Stats().FPS)), int32(panelX), int32(panelY), 16, rl.RayWhite)
	panelY += 30

	rl.DrawText("Heat intensity", int32(panelX), int32(panelY), 14, rl.Gray)
	panelY += 18
	a.heatIntensity = gui.SliderBar(
		rl.Rectangle{X: panelX, Y: panelY, Width: 160, Height: 20},
		"0", "5.0",
		a.heatIntensity, 0, 5,
	)
	rl.DrawText(fmt.Sprintf("%.1f", a.heatIntensity), int32(panelX+170), int32(panelY+2), 16, rl.RayWhite)
	panelY += 35

	if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 100, Height: 28}, toggleText(a.paused, "Resume", "Pause")) {
		a.paused = !a.paused
	}
	if gui.Button(rl.Rectangle{X: panelX + 110, Y: panelY, Width: 100, Height: 28}, toggleText(a.slowMotion, "Full Speed", "Slow Motion")) {
		a.slowMotion = !a.slowMotion
	}
	panelY += 40

	rl.DrawText("left click: drop pebble   right click: heat", int32(panelX), int32(panelY), 12, rl.Gray)
}

// worldToScreen maps a world xy position into screen space. The whole
// simulation domain fills the window, with y flipped so up is up.
func (a *app) worldToScreen(x, y float32) (float32, float32) {
	d := a.sim.DomainMax()
	sx := x / d * a.cfg.Derived.ScreenW32
	sy := a.cfg.Derived.ScreenH32 - y/d*a.cfg.Derived.ScreenH32
	return sx, sy
}

func (a *app) screenToWorld(sx, sy float32) (float32, float32) {
	d := a.sim.DomainMax()
	x := sx / a.cfg.Derived.ScreenW32 * d
	y := (a.cfg.Derived.ScreenH32 - sy) / a.cfg.Derived.ScreenH32 * d
	return x, y
}

// tempColor maps particle temperature onto a cool-to-hot ramp: blue at
// ambient, shifting red and losing blue as the particle heats.
func tempColor(t float32) rl.Color {
	r := 0.2 + min32((t-10)*0.05, 1)
	g := float32(0.4)
	b := 0.9 - min32((t-10)*0.02, 0.6)
	return rl.Color{
		R: uint8(clamp01(r) * 255),
		G: uint8(clamp01(g) * 255),
		B: uint8(clamp01(b) * 255),
		A: 255,
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func vec3(a [3]float64) fluid.Vec3 {
	return fluid.Vec3{X: float32(a[0]), Y: float32(a[1]), Z: float32(a[2])}
}
