package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/kkokki/kkokki/internal/deadline"
	"github.com/kkokki/kkokki/internal/location"
	"github.com/kkokki/kkokki/internal/monitor"
	"github.com/kkokki/kkokki/internal/routing"
)

var stderr io.Writer = os.Stderr

func newRootCmd(open backendFactory, now func() time.Time) *cobra.Command {
	root := &cobra.Command{
		Use:           "kkokki",
		Short:         "Digital rooster: commute wake-up monitor",
		Long:          `Operator tools for the Kkokki commute monitor. Lookups and sessions use the TMAP key from SK_API_KEY.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRouteCmd(open, now),
		newSearchCmd(open),
		newReverseCmd(open),
		newWakeCmd(now),
		newWatchCmd(open, now),
	)
	return root
}

func withBackend(cmd *cobra.Command, open backendFactory, fn func(ctx context.Context, b *backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := open(ctx)
	if err != nil {
		return err
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(ctx, b)
}

func newRouteCmd(open backendFactory, now func() time.Time) *cobra.Command {
	var from, to, mode string

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Compute one travel estimate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := routing.ParseMode(mode)
			if err != nil {
				return err
			}
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				origin, err := b.Locations.ResolveEndpoint(ctx, location.KeywordEndpoint(from))
				if err != nil {
					return fmt.Errorf("start: %w", err)
				}
				dest, err := b.Locations.ResolveEndpoint(ctx, location.KeywordEndpoint(to))
				if err != nil {
					return fmt.Errorf("end: %w", err)
				}
				est, err := b.Routes.Calculate(ctx, routing.Request{Origin: origin, Destination: dest, Mode: m, DepartAt: now()})
				if err != nil {
					return err
				}
				printEstimate(cmd.OutOrStdout(), origin, dest, est)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start place keyword")
	cmd.Flags().StringVar(&to, "to", "", "Destination place keyword")
	cmd.Flags().StringVar(&mode, "mode", "car", "Transport mode: car, walk or transit")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func printEstimate(w io.Writer, origin, dest location.Location, est *routing.Estimate) {
	fmt.Fprintf(w, "%s -> %s\n", origin.Name, dest.Name)
	fmt.Fprintf(w, "%s: %d min, %.1f km\n", est.Mode.Label(), est.Minutes, est.DistanceKM)
	if t := est.Transit; t != nil {
		fmt.Fprintf(w, "Path: %s, fare %d won, %d transfers, %d min walking\n", t.PathLabel, t.Fare, t.TransferCount, t.WalkMinutes)
		for _, a := range t.Alternatives {
			fmt.Fprintf(w, "  #%d %s %d min (%d transfers)\n", a.Index, a.Type, a.Minutes, a.Transfers)
		}
	}
}

func newSearchCmd(open backendFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "search KEYWORD",
		Short: "Search places by keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.Join(args, " ")
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				results := b.Locations.Search(ctx, keyword)
				out := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintln(out, "No results.")
					return nil
				}
				for i, c := range results {
					fmt.Fprintf(out, "%2d. %s (%.6f, %.6f) %s\n", i+1, c.Name, c.Lat, c.Lon, c.Address)
				}
				return nil
			})
		},
	}
}

func newReverseCmd(open backendFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse LAT LON",
		Short: "Name a coordinate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid latitude %q", args[0])
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid longitude %q", args[1])
			}
			if err := (location.Location{Lat: lat, Lon: lon}).Validate(); err != nil {
				return err
			}
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				addr := b.Locations.ReverseGeocode(ctx, lat, lon)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", addr.Name, addr.Address)
				return nil
			})
		},
	}
}

func newWakeCmd(now func() time.Time) *cobra.Command {
	var arrival string
	var travel, prep, buffer int

	cmd := &cobra.Command{
		Use:   "wake",
		Short: "Compute wake-up and departure times for a known travel time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tod, err := deadline.ParseTimeOfDay(arrival)
			if err != nil {
				return err
			}
			if travel < 0 || prep < 0 || buffer < 0 {
				return errors.New("minutes must not be negative")
			}

			res := deadline.Calculate(deadline.Input{
				Arrival:       tod,
				Now:           now(),
				TravelMinutes: travel,
				PrepMinutes:   prep,
				BufferMinutes: buffer,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wake up: %s\n", res.Wake.Format("15:04"))
			fmt.Fprintf(out, "Leave:   %s\n", res.Departure.Format("15:04"))
			fmt.Fprintf(out, "Arrive:  %s\n", res.Target.Format("15:04"))
			if res.IsLate {
				fmt.Fprintf(out, "LATE RISK! %dmin overdue\n", res.DelayMinutes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&arrival, "arrival", "", "Target arrival time (HH:MM)")
	cmd.Flags().IntVar(&travel, "travel", 0, "Travel time in minutes")
	cmd.Flags().IntVar(&prep, "prep", 30, "Preparation minutes")
	cmd.Flags().IntVar(&buffer, "buffer", 10, "Buffer minutes")
	_ = cmd.MarkFlagRequired("arrival")
	_ = cmd.MarkFlagRequired("travel")
	return cmd
}

// lockedWriter serializes session log lines written from the polling goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) println(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func newWatchCmd(open backendFactory, now func() time.Time) *cobra.Command {
	var from, to, arrival, mode string
	var duration time.Duration
	var earlyWarning bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a monitoring session in the foreground",
		Long:  `Runs one monitoring session and prints each session log line until interrupted or until --for elapses.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tod, err := deadline.ParseTimeOfDay(arrival)
			if err != nil {
				return err
			}
			m, err := routing.ParseMode(mode)
			if err != nil {
				return err
			}

			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				out := &lockedWriter{w: cmd.OutOrStdout()}
				sup, err := monitor.NewSupervisor(monitor.Config{
					Locations:    b.Locations,
					Routes:       b.Routes,
					Dispatcher:   b.Dispatcher,
					Weather:      b.Weather,
					Logger:       b.Logger,
					Now:          now,
					PollInterval: b.PollInterval,
					StopTimeout:  b.StopTimeout,
					OnLog:        out.println,
				})
				if err != nil {
					return err
				}

				settings := b.Defaults
				settings.EarlyWarningEnabled = earlyWarning
				if _, err := sup.Start(monitor.Request{
					Start:    location.KeywordEndpoint(from),
					End:      location.KeywordEndpoint(to),
					Arrival:  tod,
					Mode:     m,
					Settings: settings,
				}); err != nil {
					return err
				}
				defer sup.Stop()

				if duration > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, duration)
					defer cancel()
				}
				return waitSession(ctx, sup)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start place keyword")
	cmd.Flags().StringVar(&to, "to", "", "Destination place keyword")
	cmd.Flags().StringVar(&arrival, "arrival", "", "Target arrival time (HH:MM)")
	cmd.Flags().StringVar(&mode, "mode", "car", "Transport mode: car, walk or transit")
	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&earlyWarning, "early-warning", false, "Log a warning shortly before wake-up")
	for _, f := range []string{"from", "to", "arrival"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

// waitSession returns when ctx ends or the session reaches a terminal error.
func waitSession(ctx context.Context, sup *monitor.Supervisor) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			switch sup.Status().State {
			case monitor.StateLocationError:
				return errors.New("session ended: location error")
			case monitor.StateFatalError:
				return errors.New("session ended: fatal error")
			}
		}
	}
}
