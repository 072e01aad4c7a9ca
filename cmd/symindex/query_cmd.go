package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/symindex/engine/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query <query-string>",
	Short: `Run a pipeline query, e.g. "find Handler* | refs"`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	raw := strings.Join(args, " ")

	q, err := query.Parse(raw)
	if err != nil {
		return err
	}

	wr, _, err := openWorkspace(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer wr.Close()

	reg, warnings := buildFederation(cmd.Context(), wr, config.GlobalCacheDir)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	executor := query.NewExecutor(reg)
	res, err := executor.Run(q)
	if err != nil {
		return err
	}

	renderer := query.NewRenderer(query.RenderFormat(config.Format))
	return renderer.Render(os.Stdout, res)
}
