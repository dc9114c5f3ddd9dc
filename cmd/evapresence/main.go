package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Matheo93/eva-presence/internal/audio"
	"github.com/Matheo93/eva-presence/internal/bus"
	"github.com/Matheo93/eva-presence/internal/capability"
	"github.com/Matheo93/eva-presence/internal/config"
	"github.com/Matheo93/eva-presence/internal/diag"
	"github.com/Matheo93/eva-presence/internal/dialogue"
	"github.com/Matheo93/eva-presence/internal/logging"
	"github.com/Matheo93/eva-presence/internal/pacing"
	"github.com/Matheo93/eva-presence/internal/render"
	"github.com/Matheo93/eva-presence/internal/touch"
	"github.com/Matheo93/eva-presence/internal/turn"
	"github.com/Matheo93/eva-presence/internal/viseme"
)

type flags struct {
	feedURL  string
	tier     string
	showDiag bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.feedURL, "feed", "", "Dialogue feed URL (overrides config)")
	flag.StringVar(&f.tier, "tier", "", "Initial render tier: low, medium, high (overrides config)")
	flag.BoolVar(&f.showDiag, "diag", false, "Show latency diagnostics")
	flag.Parse()
	return f
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "evapresence: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	f := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.feedURL != "" {
		cfg.Feed.URL = f.feedURL
	}
	if f.tier != "" {
		cfg.Render.InitialTier = f.tier
	}
	if f.showDiag {
		cfg.Render.ShowDiag = true
	}

	logDir := ""
	if cfg.Logging.File != "" {
		logDir = filepath.Dir(cfg.Logging.File)
	} else if dir, err := config.GetConfigDir(); err == nil {
		logDir = filepath.Join(dir, "logs")
	}
	logger, err := logging.New(logging.Config{
		LogDir:  logDir,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()

	log := logger.Component("main")
	instanceID := uuid.NewString()
	log.Info().Str("instance", instanceID).Str("feed", cfg.Feed.URL).Msg("eva presence starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := bus.NewEventBus()

	// Turn inference.
	engine := turn.NewEngine(turn.Config{
		SpeechThreshold: cfg.Audio.SpeechThreshold,
		TRPWindowStart:  cfg.Turn.TRPWindowStart,
		TRPWindowEnd:    cfg.Turn.TRPWindowEnd,
		YieldHold:       cfg.Turn.YieldHold,
		StaleAfter:      cfg.Turn.StaleAfter,
	}, logger.Component("turn"))

	// Render tier, assigned from outside the dispatcher. The capability
	// monitor owns the value; the frame loop reads it fresh every frame.
	var tier atomic.Value
	tier.Store(render.ParseTier(cfg.Render.InitialTier))

	monitor := capability.NewMonitor(capability.Config{
		Interval:      cfg.Capability.Interval,
		MediumCPU:     cfg.Capability.MediumCPU,
		LowCPU:        cfg.Capability.LowCPU,
		MemoryCeiling: cfg.Capability.MemoryCeiling,
		Stability:     cfg.Capability.Stability,
	}, tier.Load().(render.QualityTier), logger.Component("capability"))
	monitor.OnChange(func(t render.QualityTier) {
		tier.Store(t)
		events.Publish(bus.Event{
			Type: bus.EventTypeTierChanged,
			Data: map[string]any{"tier": string(t)},
		})
	})
	go monitor.Run(ctx)

	dispatcher := render.NewDispatcher(logger.Component("render"))
	monitorDiag := diag.NewMonitor(cfg.Render.ShowDiag, 120)

	// Touch passthrough, fed from the bus so any input surface can
	// publish touch events. The prediction engine lives in the hosting
	// application, which installs it via SetOptimizer once it is up;
	// until then Forward returns zero feedback.
	forwarder := touch.NewForwarder(nil, logger.Component("touch"))
	events.Subscribe(bus.EventTypeTouch, func(e bus.Event) {
		ev, ok := e.Data["event"].(touch.Event)
		if !ok {
			return
		}
		fb := forwarder.Forward(ev)
		monitorDiag.RecordTouchLatency(fb.Latency)
		events.Publish(bus.Event{
			Type: bus.EventTypeTouchFeedback,
			Data: map[string]any{"feedback": fb},
		})
	})

	// Dialogue feed drives the turn engine and the paced mailbox.
	gate := pacing.NewGate[render.FrameInput](float64(cfg.Pacing.TargetFPS))
	client := dialogue.NewClient(cfg.Feed.URL, logger.Component("dialogue"))
	client.SetOnUpdate(func(snap dialogue.Snapshot) {
		amp := audio.Sanitize(snap.Level)
		state := engine.Tick(turn.Inputs{
			Amplitude:            amp,
			CounterpartSpeaking:  snap.State.IsSpeaking,
			CounterpartListening: snap.State.IsListening,
			CounterpartThinking:  snap.State.IsThinking,
			HasPendingResponse:   snap.State.HasPendingResponse,
		})

		// Turn inference completes first; the mouth opens only while the
		// avatar actually holds the floor.
		mouth := viseme.Derive(viseme.Weights(snap.Weights), amp, state == turn.StateEvaSpeaking)

		gate.Offer(render.FrameInput{
			Mouth:     mouth,
			Amplitude: amp,
			Turn:      state,
			Emotion:   render.Emotion(snap.Emotion),
		})
	})
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}
	defer client.Disconnect()

	events.Subscribe(bus.EventTypeTierChanged, func(e bus.Event) {
		log.Info().Interface("tier", e.Data["tier"]).Msg("render tier reassigned")
	})

	// Turn state changes go on the bus for anything else that cares.
	lastState := engine.State()

	config.Watch(func(fresh *config.Config) {
		log.Info().Msg("config reloaded")
		// The monitor is told about the override so its settled
		// suggestion and the shared slot stay in agreement.
		t := render.ParseTier(fresh.Render.InitialTier)
		monitor.Override(t)
		tier.Store(t)
	})

	// Frame loop. The loop runs at the display refresh rate; the gate
	// decides when a new input actually propagates.
	var current render.FrameInput
	var lastFrame render.Frame
	statsTimer := time.Now()

	loop := pacing.NewLoop(float64(cfg.Pacing.RefreshFPS), logger.Component("pacing"))
	loop.Start(func(now time.Time, dt time.Duration) {
		frameStart := time.Now()

		if in, ok := gate.Observe(now); ok {
			current = in
		}
		current.DT = float32(dt.Seconds())
		current.Now = now

		activeTier := tier.Load().(render.QualityTier)
		lastFrame = dispatcher.Render(activeTier, current)

		if st := engine.State(); st != lastState {
			lastState = st
			events.Publish(bus.Event{
				Type: bus.EventTypeTurnStateChanged,
				Data: map[string]any{"state": string(st)},
			})
		}

		// dt carries the loop cadence for the rate figure; the callback
		// duration is the per-frame work cost.
		monitorDiag.RecordFrame(dt, time.Since(frameStart))
		if monitorDiag.Enabled() && time.Since(statsTimer) >= time.Second {
			statsTimer = time.Now()
			stats := monitorDiag.Stats()
			log.Debug().
				Float64("fps", stats.FPS).
				Dur("avg_frame", stats.AvgFrameTime).
				Dur("worst_frame", stats.WorstFrameTime).
				Str("tier", string(lastFrame.Tier)).
				Int("layers", lastFrame.LayerCount()).
				Msg("frame stats")
		}
	})
	defer loop.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutdown signal received")
	return nil
}
