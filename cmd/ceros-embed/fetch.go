package main

import (
	"encoding/json"
	"fmt"

	"github.com/ceros-embed/ceros-embed/internal/config"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <experience-url>",
	Short: "Print the oEmbed metadata of an experience.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOptionalCMA()
		if err != nil {
			return usageError(err)
		}
		fetcher, err := newFetcher(cfg)
		if err != nil {
			return usageError(err)
		}
		md, err := fetcher.Fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(md, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}
