package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ceros-embed/ceros-embed/internal/entryeditor"
	"github.com/spf13/cobra"
)

var entryJSON bool

var linkCmd = &cobra.Command{
	Use:   "link <entry-id> <experience-url>",
	Short: "Link an experience to an entry.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEntryCommand(cmd, args[0], func(ctx context.Context, ed *entryeditor.Editor) error {
			return ed.LinkExperience(ctx, args[1])
		})
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <entry-id>",
	Short: "Clear every field of an entry.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEntryCommand(cmd, args[0], func(ctx context.Context, ed *entryeditor.Editor) error {
			return ed.UnlinkExperience(ctx)
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <entry-id>",
	Short: "Fetch a fresh embed code for a linked entry.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEntryCommand(cmd, args[0], func(ctx context.Context, ed *entryeditor.Editor) error {
			return ed.RefreshEmbedCode(ctx)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{linkCmd, unlinkCmd, refreshCmd} {
		c.Flags().BoolVar(&entryJSON, "json", false, "Print the resulting entry view as JSON")
		c.Flags().BoolVar(&tokenStdin, "token-stdin", false, "Read the management token from stdin")
	}
}

func runEntryCommand(cmd *cobra.Command, entryID string, op func(context.Context, *entryeditor.Editor) error) error {
	a, err := interactiveApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	params, err := a.installation.LoadParameters(ctx)
	if err != nil {
		return fmt.Errorf("loading installation parameters: %w", err)
	}
	entry, err := a.entries.LoadEntry(ctx, entryID)
	if err != nil {
		return err
	}
	ed, err := entryeditor.Load(entry, params, a.fetcher, commandLogger(cmd))
	if err != nil {
		return fmt.Errorf("%s (%w)", entryeditor.UserMessage(err), err)
	}

	opErr := op(ctx, ed)
	if err := printView(cmd.OutOrStdout(), ed.View(), entryJSON); err != nil {
		return err
	}
	if opErr != nil {
		return &exitError{code: 1, err: fmt.Errorf("%s (%w)", entryeditor.UserMessage(opErr), opErr)}
	}
	return nil
}

func printView(out io.Writer, v entryeditor.View, asJSON bool) error {
	if asJSON {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}
	fmt.Fprintf(out, "state: %s\n", v.State)
	if v.State == entryeditor.Linked {
		fmt.Fprintf(out, "title: %s\nurl:   %s\n", v.Title, v.URL)
	}
	return nil
}
