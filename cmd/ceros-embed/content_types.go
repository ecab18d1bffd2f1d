package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ceros-embed/ceros-embed/internal/configscreen"
	"github.com/spf13/cobra"
)

var contentTypesJSON bool

var contentTypesCmd = &cobra.Command{
	Use:   "content-types",
	Short: "List content types and the current configuration.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := interactiveApp(cmd)
		if err != nil {
			return err
		}
		state, err := a.screen.Load(cmd.Context())
		if err != nil {
			return screenError(err)
		}
		return printScreenState(cmd.OutOrStdout(), state, contentTypesJSON)
	},
}

func init() {
	contentTypesCmd.Flags().BoolVar(&contentTypesJSON, "json", false, "Print the configuration state as JSON")
	contentTypesCmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "Read the management token from stdin")
}

func printScreenState(out io.Writer, state configscreen.State, asJSON bool) error {
	if asJSON {
		b, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	if state.Configured {
		p := state.Parameters
		fmt.Fprintf(out, "configured: %s (title=%s url=%s embed=%s)\n\n", p.ContentTypeID, p.TitleFieldID, p.URLFieldID, p.EmbedCodeFieldID)
	} else {
		fmt.Fprint(out, "not configured\n\n")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFIELDS")
	for _, opt := range state.Options {
		if opt.CreatesDefault {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", "(create)", opt.Name, "-")
			continue
		}
		var fields []string
		for _, d := range state.ContentTypes {
			if d.ID != opt.ID {
				continue
			}
			for _, f := range d.Fields {
				fields = append(fields, f.ID)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", opt.ID, opt.Name, strings.Join(fields, ","))
	}
	return tw.Flush()
}
