package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/symindex/engine/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace [root]",
	Short: "Print the detected workspace layout without building an index",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWorkspace,
}

func runWorkspace(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		config.Root = args[0]
	}

	detector := workspace.NewDetector(workspace.DetectorConfig{ToolGlobs: config.Globs})
	layout, err := detector.Detect(config.Root)
	if err != nil {
		return err
	}

	fmt.Printf("root: %s\n", layout.Root)
	for _, member := range layout.Members {
		fmt.Println(member)
	}
	return nil
}
