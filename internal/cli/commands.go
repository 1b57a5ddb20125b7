// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// ServerEnvVar overrides the default server URL.
const ServerEnvVar = "COACHSYNC_SERVER"

const defaultServer = "http://localhost:8080"

type options struct {
	server  string
	timeout time.Duration
}

func (o *options) client() *Client {
	return NewClient(o.server, o.timeout)
}

// NewRootCommand builds the coachsyncctl command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "coachsyncctl",
		Short: "Control a running coachsync server",
		Long: `coachsyncctl talks to the coachsync REST API to trigger calendar syncs,
push pending sessions, inspect sync problems and manage the periodic schedule.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv(ServerEnvVar)
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", server, "coachsync server URL (env "+ServerEnvVar+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "request timeout")

	root.AddCommand(
		newStatusCmd(opts),
		newSyncCmd(opts),
		newPushCmd(opts),
		newProblemsCmd(opts),
		newPeriodicCmd(opts),
		newSessionsCmd(opts),
	)
	return root
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), RenderStatus(st))
			return nil
		},
	}
}

func newSyncCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the database with the calendar",
		Long: `Pull calendar changes into the database. With --force, past scheduled
sessions are then marked completed and any resulting changes are pushed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Sync(cmd.Context(), force)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), RenderTrigger(res))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "complete past sessions and push after reconciling")
	return cmd
}

func newPushCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push every pending session to the calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Push(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Created %d, updated %d", res.Created, res.Updated)))
			return nil
		},
	}
}

func newProblemsCmd(opts *options) *cobra.Command {
	var (
		clearAll bool
		seen     bool
		evict    int
	)
	cmd := &cobra.Command{
		Use:   "problems",
		Short: "Show events the last sync could not import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := 0
			for _, b := range []bool{clearAll, seen, cmd.Flags().Changed("evict")} {
				if b {
					set++
				}
			}
			if set > 1 {
				return errors.New("--clear, --seen and --evict are mutually exclusive")
			}

			c := opts.client()
			switch {
			case clearAll:
				if err := c.ClearProblems(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Problems cleared"))
			case seen:
				changed, err := c.MarkProblemsSeen(cmd.Context())
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Marked as seen"))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Nothing to mark"))
				}
			case cmd.Flags().Changed("evict"):
				if evict <= 0 {
					return errors.New("--evict must be a positive number of hours")
				}
				evicted, err := c.EvictProblems(cmd.Context(), evict)
				if err != nil {
					return err
				}
				if evicted {
					fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Stale problems evicted"))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Nothing older than " + (time.Duration(evict) * time.Hour).String()))
				}
			default:
				snap, err := c.Problems(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), RenderProblems(snap))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "discard the stored problems")
	cmd.Flags().BoolVar(&seen, "seen", false, "mark the stored problems as seen")
	cmd.Flags().IntVar(&evict, "evict", 24, "discard problems older than this many hours")
	return cmd
}

func newPeriodicCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periodic",
		Short: "Manage the periodic sync schedule",
	}

	var interval time.Duration
	start := &cobra.Command{
		Use:   "start",
		Short: "Start periodic sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes := int(interval / time.Minute)
			if minutes <= 0 {
				return fmt.Errorf("--interval must be at least one minute, got %s", interval)
			}
			res, err := opts.client().StartPeriodic(cmd.Context(), minutes)
			if err != nil {
				return err
			}
			if res.Changed {
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Periodic sync started, every " + res.Interval))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Periodic sync already running, every " + res.Interval))
			}
			return nil
		},
	}
	start.Flags().DurationVarP(&interval, "interval", "i", 15*time.Minute, "time between runs")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop periodic sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().StopPeriodic(cmd.Context())
			if err != nil {
				return err
			}
			if res.Changed {
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Periodic sync stopped"))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Periodic sync was not running"))
			}
			return nil
		},
	}

	cmd.AddCommand(start, stop)
	return cmd
}

func newSessionsCmd(opts *options) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List sessions",
		Long:    "List sessions between --from and --to (RFC3339 or YYYY-MM-DD in the server's timezone).",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := opts.client().Sessions(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), RenderSessions(sessions))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "earliest start")
	cmd.Flags().StringVar(&to, "to", "", "latest start")
	return cmd
}
