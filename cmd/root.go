// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/grazios/oshijiku/gateway"
	"github.com/grazios/oshijiku/models"
)

// clientOptions are the persistent flags shared by every chart command.
type clientOptions struct {
	storePath string
	apiURL    string
	origin    string
	timeout   time.Duration
}

func NewRootCmd() *cobra.Command {
	opts := &clientOptions{}

	cmd := &cobra.Command{
		Use:   "oshijiku",
		Short: "Place your oshis on a two-axis chart and share it by link",
		Long: `Oshijiku keeps a personal two-axis chart of "oshis" in a local store
and shares read-only snapshots of it through a small share server.

Chart commands edit the local autosave. Shares are created with "share"
and can only be deleted from the client that created them.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.storePath, "store", defaultStorePath(), "Local chart store (SQLite file)")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("OSHIJIKU_API", gateway.DefaultAPIURL), "Share server base URL")
	cmd.PersistentFlags().StringVar(&opts.origin, "origin", envOr("OSHIJIKU_ORIGIN", gateway.DefaultAPIURL), "Origin sent to the share server")

	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "Share server request timeout")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newOpenCmd(opts))
	cmd.AddCommand(newAddCmd(opts))
	cmd.AddCommand(newRmCmd(opts))
	cmd.AddCommand(newMoveCmd(opts))
	cmd.AddCommand(newAxisCmd(opts))
	cmd.AddCommand(newForkCmd(opts))
	cmd.AddCommand(newEmbedCmd(opts))
	cmd.AddCommand(newShareCmd(opts))
	cmd.AddCommand(newUnshareCmd(opts))
	cmd.AddCommand(newKeysCmd(opts))

	return cmd
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".oshijiku", "local.db")
	}
	return filepath.Join(home, ".oshijiku", "local.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openSession opens the local store and loads the session from entry.
// The returned func closes the store.
func openSession(ctx context.Context, opts *clientOptions, entry gateway.Entry) (*gateway.Session, func(), error) {
	store, err := gateway.OpenSQLiteStorage(ctx, opts.storePath, 0)
	if err != nil {
		return nil, nil, err
	}
	api := gateway.NewClient(opts.apiURL,
		gateway.WithOrigin(opts.origin),
		gateway.WithHTTPClient(&http.Client{Timeout: opts.timeout}),
	)

	s := gateway.NewSession(store, api)
	s.Load(ctx, entry)
	return s, func() { store.Close() }, nil
}

func printModel(w io.Writer, s *gateway.Session) {
	m := s.Model()
	title := m.Axis.Title
	if title == "" {
		title = "(untitled)"
	}

	fmt.Fprintf(w, "%s  [%s, %s]\n", title, s.Mode(), s.Source())
	if info := s.Shared(); info != nil {
		fmt.Fprintf(w, "shared %s  id %s\n", humanize.Time(info.CreatedAt), info.ShareID)
	}
	fmt.Fprintf(w, "x: %s ← → %s\n", m.Axis.XMin, m.Axis.XMax)
	fmt.Fprintf(w, "y: %s ↓ ↑ %s\n", m.Axis.YMin, m.Axis.YMax)
	fmt.Fprintf(w, "visibility: %s\n", m.Axis.Visibility)

	if len(m.Oshis) == 0 {
		fmt.Fprintln(w, "no oshis yet")
		return
	}
	for i, p := range m.Oshis {
		fmt.Fprintf(w, "%3d. %s  (%d, %d)", i+1, p.Name, p.X, p.Y)
		for _, tag := range p.Tags {
			fmt.Fprintf(w, " #%s", tag)
		}
		if p.ImageData != "" {
			fmt.Fprint(w, " [image]")
		}
		fmt.Fprintln(w)
	}
}

// printNotices writes the session's pending notices to stderr.
func printNotices(w io.Writer, s *gateway.Session) {
	for _, n := range s.Notices() {
		if n.Err != nil {
			fmt.Fprintf(w, "! %s: %s\n", n.Message, describeError(n.Err))
		} else {
			fmt.Fprintf(w, "! %s\n", n.Message)
		}
	}
}

func describeError(err error) string {
	var rl *models.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return "too many requests, try again " + humanize.Time(time.Now().Add(rl.RetryAfter))
	}
	if gateway.IsRecoverable(err) {
		return err.Error() + " (try again later)"
	}
	return err.Error()
}
