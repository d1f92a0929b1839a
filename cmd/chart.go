// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/grazios/oshijiku/gateway"
	"github.com/grazios/oshijiku/models"
	"github.com/grazios/oshijiku/sanitize"
)

func newOpenCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open [link|share-id]",
		Short: "Show a chart",
		Long: `Shows the chart named by a share link, share id or embedded link.
Without an argument it shows the local chart, seeding the sample on first run.

Shared charts open read-only; use "fork" to copy one into the local chart.`,
		Example: `  oshijiku open
  oshijiku open "https://oshijiku.com/?s=3f2a9c1b7d4e6f8a0b1c2d3e"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := entryFromArgs(args)
			if err != nil {
				return err
			}
			s, done, err := openSession(cmd.Context(), opts, entry)
			if err != nil {
				return err
			}
			defer done()

			printModel(cmd.OutOrStdout(), s)
			printNotices(cmd.ErrOrStderr(), s)
			return nil
		},
	}
}

func newAddCmd(opts *clientOptions) *cobra.Command {
	var (
		x, y      string
		tags      string
		imagePath string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an oshi to the local chart",
		Long: `Adds a point to the local chart. Coordinates run from -100 to 100;
values outside that range are clamped.`,
		Example: `  oshijiku add "配信の人" --x 30 --y -20 --tags 配信,歌
  oshijiku add "看板犬" --x 85 --y -60 --image dog.webp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := gateway.OshiDraft{Name: args[0], X: x, Y: y, Tags: tags}
			if imagePath != "" {
				uri, err := readImage(imagePath)
				if err != nil {
					return err
				}
				draft.ImageData = uri
			}

			s, done, err := openSession(cmd.Context(), opts, gateway.Entry{})
			if err != nil {
				return err
			}
			defer done()

			in, err := s.AddOshi(cmd.Context(), draft)
			if err != nil {
				return err
			}
			if in.Clamped {
				fmt.Fprintf(cmd.ErrOrStderr(), "coordinates clamped to (%d, %d)\n", in.X, in.Y)
			}
			printModel(cmd.OutOrStdout(), s)
			printNotices(cmd.ErrOrStderr(), s)
			return nil
		},
	}

	cmd.Flags().StringVar(&x, "x", "0", "Horizontal position (-100 to 100)")
	cmd.Flags().StringVar(&y, "y", "0", "Vertical position (-100 to 100)")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma separated tags")
	cmd.Flags().StringVar(&imagePath, "image", "", "jpg, png or webp file to embed (max 512KB)")

	return cmd
}

// readImage turns a local file into an allow-listed image data URI.
func readImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if err := sanitize.ValidateImageFile(mimeType, int64(len(data))); err != nil {
		return "", err
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func newRmCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name|number>",
		Short: "Remove an oshi from the local chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openSession(cmd.Context(), opts, gateway.Entry{})
			if err != nil {
				return err
			}
			defer done()

			i, err := resolveOshi(s, args[0])
			if err != nil {
				return err
			}
			if err := s.RemoveOshi(cmd.Context(), i); err != nil {
				return err
			}
			printModel(cmd.OutOrStdout(), s)
			printNotices(cmd.ErrOrStderr(), s)
			return nil
		},
	}
}

func newMoveCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <name|number> <x> <y>",
		Short: "Move an oshi on the local chart",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return models.NewValidationError("x", "must be a number")
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return models.NewValidationError("y", "must be a number")
			}

			s, done, err := openSession(cmd.Context(), opts, gateway.Entry{})
			if err != nil {
				return err
			}
			defer done()

			i, err := resolveOshi(s, args[0])
			if err != nil {
				return err
			}
			if err := s.MoveOshi(cmd.Context(), i, x, y); err != nil {
				return err
			}
			printModel(cmd.OutOrStdout(), s)
			printNotices(cmd.ErrOrStderr(), s)
			return nil
		},
	}
}

// resolveOshi accepts a name or a 1-based list number.
func resolveOshi(s *gateway.Session, arg string) (int, error) {
	if i := s.Find(arg); i >= 0 {
		return i, nil
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(s.Model().Oshis) {
		return n - 1, nil
	}
	return -1, fmt.Errorf("no oshi named %q", arg)
}

func newAxisCmd(opts *clientOptions) *cobra.Command {
	var preset bool

	cmd := &cobra.Command{
		Use:   "axis",
		Short: "Change the axis labels of the local chart",
		Long: `Changes the title, the four axis-end labels or the visibility of the
local chart. Only the given flags change; --preset starts from the built-in
trust axis. Empty labels fall back to 左, 右, 下 and 上.`,
		Example: `  oshijiku axis --preset
  oshijiku axis --title "推し軸" --x-min 見守る --x-max 並走する`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openSession(cmd.Context(), opts, gateway.Entry{})
			if err != nil {
				return err
			}
			defer done()

			next := s.Model().Axis
			if preset {
				next = sanitize.PresetAxis()
			}
			flags := cmd.Flags()
			for name, dst := range map[string]*string{
				"title":      &next.Title,
				"x-min":      &next.XMin,
				"x-max":      &next.XMax,
				"y-min":      &next.YMin,
				"y-max":      &next.YMax,
				"visibility": &next.Visibility,
			} {
				if flags.Changed(name) {
					*dst, _ = flags.GetString(name)
				}
			}

			if err := s.SetAxis(cmd.Context(), next); err != nil {
				return err
			}
			printModel(cmd.OutOrStdout(), s)
			printNotices(cmd.ErrOrStderr(), s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&preset, "preset", false, "Start from the built-in trust axis")
	cmd.Flags().String("title", "", "Chart title")
	cmd.Flags().String("x-min", "", "Left label")
	cmd.Flags().String("x-max", "", "Right label")
	cmd.Flags().String("y-min", "", "Bottom label")
	cmd.Flags().String("y-max", "", "Top label")
	cmd.Flags().String("visibility", models.VisibilityPublic, "public or url")

	return cmd
}

func newForkCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fork [link|share-id]",
		Short: "Copy a chart into the local chart",
		Long: `Copies the chart named by a share link, share id or embedded link into
the local chart, replacing it, and leaves it editable. The original share is
not changed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := entryFromArgs(args)
			if err != nil {
				return err
			}
			s, done, err := openSession(cmd.Context(), opts, entry)
			if err != nil {
				return err
			}
			defer done()

			if entry != (gateway.Entry{}) && s.Source() != gateway.SourceShare && s.Source() != gateway.SourceEmbedded {
				printNotices(cmd.ErrOrStderr(), s)
				return fmt.Errorf("nothing to fork: %s could not be opened", args[0])
			}
			if err := s.Fork(cmd.Context()); err != nil {
				return err
			}
			printModel(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newEmbedCmd(opts *clientOptions) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Print a link that carries the local chart itself",
		Long: `Prints a link with the local chart encoded in its query string. Nothing
is uploaded; images are left out to keep the link short.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openSession(cmd.Context(), opts, gateway.Entry{})
			if err != nil {
				return err
			}
			defer done()

			link, err := s.EmbedURL(base)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			printNotices(cmd.ErrOrStderr(), s)
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", gateway.DefaultAPIURL+"/", "Page URL the link points at")

	return cmd
}

func entryFromArgs(args []string) (gateway.Entry, error) {
	if len(args) == 0 {
		return gateway.Entry{}, nil
	}
	return gateway.ParseEntry(args[0])
}
