package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open [root]",
	Short: "Scan a workspace and report how it was indexed",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOpen,
}

func runOpen(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		config.Root = args[0]
	}

	wr, layout, err := openWorkspace(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer wr.Close()

	reg, warnings := buildFederation(cmd.Context(), wr, config.GlobalCacheDir)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	fmt.Printf("root: %s\n", layout.Root)
	fmt.Printf("members: %d\n", len(layout.Members))
	for _, member := range layout.Members {
		fmt.Printf("  - %s\n", member)
	}
	stats := reg.Stats()
	fmt.Printf("files=%d symbols=%d definitions=%d references=%d\n",
		stats.Files, stats.Symbols, stats.Definitions, stats.References)
	return nil
}
