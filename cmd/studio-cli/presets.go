package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fpang/nano-studio/internal/boot"
	"github.com/fpang/nano-studio/internal/presets"
)

var (
	groupFlag string
	jsonFlag  bool
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the edit presets",
	Run:   runPresets,
}

func init() {
	presetsCmd.Flags().StringVarP(&groupFlag, "group", "g", "", "Only list this group (styles, camera, colors, gradients, scenes)")
	presetsCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the catalog as JSON")
}

func runPresets(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	catalog := boot.LoadCatalog(cfg)

	groups := catalog.Groups
	if groupFlag != "" {
		g, ok := catalog.Group(groupFlag)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown preset group %q\n", groupFlag)
			os.Exit(1)
		}
		groups = []presets.Group{g}
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(groups)
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\n", g.Label)
		for _, p := range g.Presets {
			fmt.Fprintf(tw, "  %s\t%s\n", presets.Ref(g.ID, p.ID), p.Label)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
