// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/grazios/oshijiku/gateway"
)

func newShareCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "share",
		Short: "Upload a read-only snapshot of the local chart",
		Long: `Uploads the local chart without its images and prints the share link.
The delete key is kept in the local store; only this client can unshare.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openSession(cmd.Context(), opts, gateway.Entry{})
			if err != nil {
				return err
			}
			defer done()

			res, err := s.Share(cmd.Context())
			if err != nil {
				return fmt.Errorf("share failed: %s", describeError(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			fmt.Fprintf(cmd.ErrOrStderr(), "share id %s (delete key saved locally)\n", res.ShareID)
			printNotices(cmd.ErrOrStderr(), s)
			return nil
		},
	}
}

func newUnshareCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unshare <link|share-id>",
		Short: "Delete a share created from this client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := gateway.ParseEntry(args[0])
			if err != nil {
				return err
			}
			if entry.ShareID == "" {
				return fmt.Errorf("%q does not name a share", args[0])
			}

			s, done, err := openSession(cmd.Context(), opts, gateway.Entry{})
			if err != nil {
				return err
			}
			defer done()

			if err := s.Unshare(cmd.Context(), entry.ShareID); err != nil {
				return fmt.Errorf("unshare failed: %s", describeError(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", entry.ShareID)
			return nil
		},
	}
}

func newKeysCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List shares this client can delete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openSession(cmd.Context(), opts, gateway.Entry{})
			if err != nil {
				return err
			}
			defer done()

			keys, err := s.ShareKeys(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(keys))
			for id := range keys {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
