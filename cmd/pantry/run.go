package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gordian-engine/pantry"
	"github.com/gordian-engine/pantry/pitem"
	"github.com/gordian-engine/pantry/pmetrics"
	"github.com/gordian-engine/pantry/ppubsub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	Period    time.Duration
	Placement string
	Bound     float64
	Kinds     []string
	Cycle     bool
	Seed      uint64

	SwitchAfter time.Duration
	StopAfter   time.Duration
	Duration    time.Duration

	LogLevel string
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the factory and print what lands where",
		Long: `Run the factory and print every generated and landed item.

Use --switch-after and --stop-after to script the user actions.
The run ends after --duration, or on interrupt,
at which point everything is torn down and a summary is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	defaultKinds := make([]string, len(pitem.DefaultKinds))
	for i, k := range pitem.DefaultKinds {
		defaultKinds[i] = string(k)
	}

	f := cmd.Flags()
	f.DurationVar(&opts.Period, "period", time.Second, "Time between generated items")
	f.StringVar(&opts.Placement, "placement", "uniform", "Item placement: uniform or polar")
	f.Float64Var(&opts.Bound, "bound", 100, "Maximum offset (uniform) or radius (polar)")
	f.StringSliceVar(&opts.Kinds, "kinds", defaultKinds, "Kinds of item to generate")
	f.BoolVar(&opts.Cycle, "cycle", false, "Generate kinds in order instead of at random")
	f.Uint64Var(&opts.Seed, "seed", 0, "Random seed; zero picks one")
	f.DurationVar(&opts.SwitchAfter, "switch-after", 0, "Switch pantries after this long; zero never switches")
	f.DurationVar(&opts.StopAfter, "stop-after", 0, "Stop the factory after this long; zero never stops")
	f.DurationVar(&opts.Duration, "duration", 10*time.Second, "Tear down after this long; zero runs until interrupted")
	f.StringVar(&opts.LogLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	return cmd
}

func (o runOptions) config() (pantry.Config, error) {
	cfg := pantry.Config{
		Period: o.Period,
	}

	for _, k := range o.Kinds {
		cfg.Kinds = append(cfg.Kinds, pitem.Kind(strings.TrimSpace(k)))
	}

	switch o.Placement {
	case "uniform":
		cfg.Placement = pitem.Uniform{Max: o.Bound}
	case "polar":
		cfg.Placement = pitem.Polar{Radius: o.Bound}
	default:
		return cfg, fmt.Errorf("unknown placement %q (want uniform or polar)", o.Placement)
	}

	seed := o.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	cfg.Rand = rand.New(rand.NewPCG(seed, seed>>1))

	if o.Cycle {
		pick, err := pitem.CyclePicker(cfg.Kinds)
		if err != nil {
			return cfg, err
		}
		cfg.Pick = pick
	}

	return cfg, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})), nil
}

func run(ctx context.Context, out, errOut io.Writer, opts runOptions) error {
	log, err := newLogger(errOut, opts.LogLevel)
	if err != nil {
		return err
	}

	cfg, err := opts.config()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	cfg.Metrics = pmetrics.New(pmetrics.Config{Registry: reg})

	events := ppubsub.NewStream[pantry.Event]()
	cfg.Events = events

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	h, err := pantry.NewHost(ctx, log, cfg)
	if err != nil {
		return err
	}

	start := time.Now()

	var eg errgroup.Group

	eg.Go(func() error {
		// The host always publishes a torn-down event before exiting,
		// so this needs no context of its own.
		ppubsub.Collect(context.Background(), events, func(e pantry.Event) bool {
			printEvent(out, start, e)
			return e.Kind != pantry.EventTornDown
		})
		return nil
	})

	eg.Go(func() error {
		return script(ctx, h, opts)
	})

	h.Wait()
	if err := eg.Wait(); err != nil {
		return err
	}

	printSummary(out, h.Final(), reg)
	return nil
}

// script performs the scheduled user actions,
// returning early without error if the run ends first.
func script(ctx context.Context, h *pantry.Host, opts runOptions) error {
	type action struct {
		after time.Duration
		name  string
		do    func(context.Context) error
	}

	var actions []action
	if opts.SwitchAfter > 0 {
		actions = append(actions, action{after: opts.SwitchAfter, name: "switch", do: h.Switch})
	}
	if opts.StopAfter > 0 {
		actions = append(actions, action{after: opts.StopAfter, name: "stop", do: h.Stop})
	}
	if len(actions) == 2 && actions[1].after < actions[0].after {
		actions[0], actions[1] = actions[1], actions[0]
	}

	start := time.Now()
	for _, a := range actions {
		timer := time.NewTimer(time.Until(start.Add(a.after)))

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := a.do(ctx); err != nil {
			if errors.Is(err, pantry.ErrHostStopped) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s: %w", a.name, err)
		}
	}

	return nil
}

func printEvent(w io.Writer, start time.Time, e pantry.Event) {
	ts := e.At.Sub(start).Truncate(time.Millisecond)

	switch e.Kind {
	case pantry.EventGenerated:
		fmt.Fprintf(w, "%8s  factory  %s  #%d\n", ts, e.Item.Kind, e.Item.Seq)
	case pantry.EventLanded:
		fmt.Fprintf(w, "%8s  %-7s  %s  #%d at (%.1f, %.1f)\n",
			ts, e.Side, e.Item.Kind, e.Item.Seq, e.Item.X, e.Item.Y)
	default:
		fmt.Fprintf(w, "%8s  -- %s\n", ts, e.Kind)
	}
}

func printSummary(w io.Writer, s pantry.Snapshot, reg *prometheus.Registry) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Generated:      %d\n", s.Generated)
	fmt.Fprintf(w, "Left pantry:    %s\n", kindList(s.Left))
	fmt.Fprintf(w, "Right pantry:   %s\n", kindList(s.Right))
	fmt.Fprintf(w, "Source stopped: %t\n", s.SourceStopped)
	fmt.Fprintf(w, "Left completed: %t\n", s.LeftCompleted)
	fmt.Fprintf(w, "Right ignoring: %t\n", s.RightIgnoring)

	mfs, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(w, "(metrics unavailable: %v)\n", err)
		return
	}

	fmt.Fprintln(w)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}

			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(w, "%-60s %g\n", name, m.GetCounter().GetValue())
		}
	}
}

func kindList(items []pitem.Item) string {
	if len(items) == 0 {
		return "(empty)"
	}

	var b strings.Builder
	for _, it := range items {
		b.WriteString(string(it.Kind))
	}
	return fmt.Sprintf("%s (%d)", b.String(), len(items))
}
