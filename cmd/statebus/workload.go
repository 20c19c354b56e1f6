package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/statebus/internal/config"
	"github.com/dshills/statebus/internal/event"
)

// document identifies an open document. Only the path takes part in
// channel identity.
type document struct {
	Path  string `key:"path"`
	Title string
}

// edit is published on a document's keyed edit channel.
type edit struct {
	Line int
	Text string
}

var (
	messages = event.NewEvent[string]("demo.message")
	tick     = event.NewSignal("demo.tick")
	round    = event.NewState[int]("demo.round")
	phase    = event.NewState[string]("demo.phase")
)

// workload publishes a repeating mix of events and state changes.
type workload struct {
	bus    *event.Bus
	group  *event.Group
	logger zerolog.Logger
	docs   []document
}

func newWorkload(bus *event.Bus, executors *config.Executors, logger zerolog.Logger) *workload {
	w := &workload{
		bus:    bus,
		group:  event.NewGroup(),
		logger: logger,
		docs: []document{
			{Path: "/src/main.go", Title: "main"},
			{Path: "/src/bus.go", Title: "bus"},
		},
	}

	// Subscribers prefer the "ui" executor when the configuration declares one.
	var opts []event.DeliveryOption
	if ui, err := executors.Get("ui"); err == nil {
		opts = append(opts, event.WithExecutor(ui))
	}

	w.group.Add(
		messages.Subscribe(bus, func(msg string) {
			logger.Info().Str("message", msg).Msg("message received")
		}, opts...),
		messages.Subscribe(bus, event.Filtered(event.Equal("boom"), func(string) {
			panic("demo handler fault")
		})),
		tick.Subscribe(bus, func() {
			logger.Debug().Msg("tick")
		}, opts...),
		round.Subscribe(bus, func(n int) {
			logger.Info().Int("round", n).Msg("round changed")
		}, opts...),
		phase.Subscribe(bus, func(p string) {
			logger.Info().Str("phase", p).Msg("phase changed")
		}, opts...),
		round.Subscribe(bus, func(n int) {
			logger.Info().Int("round", n).Msg("first round observed")
		}, event.WithOnce()),
	)

	for _, doc := range w.docs {
		edits := event.NewKeyedEvent[edit]("document.edited", doc)
		w.group.Add(edits.Subscribe(bus, func(e edit) {
			logger.Debug().Str("path", doc.Path).Int("line", e.Line).Str("text", e.Text).Msg("document edited")
		}, opts...))
	}
	return w
}

// run publishes one round per interval until ctx is done.
func (w *workload) run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		w.round(ctx, n)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *workload) round(ctx context.Context, n int) {
	opt := event.WithContext(ctx)

	tick.Fire(w.bus, opt)
	messages.Publish(w.bus, fmt.Sprintf("round %d", n), opt)
	if n%10 == 0 {
		messages.Publish(w.bus, "boom", opt)
	}

	// Built from scratch each time: equal keys reach the subscribers above.
	doc := w.docs[n%len(w.docs)]
	edits := event.NewKeyedEvent[edit]("document.edited", document{Path: doc.Path})
	edits.Publish(w.bus, edit{Line: n, Text: "edit"}, opt)

	round.Set(w.bus, n, opt)

	// Changes once, after round five; every other set is suppressed.
	p := "warmup"
	if n > 5 {
		p = "steady"
	}
	phase.Set(w.bus, p, opt)
}

func (w *workload) close() {
	_ = w.group.Close()
}
