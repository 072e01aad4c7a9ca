package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/symindex/engine/internal/workspace"
)

var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Open a workspace and keep its index current as files change, until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		config.Root = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wr, layout, err := openWorkspace(ctx, config)
	if err != nil {
		return err
	}
	defer wr.Close()

	_, loader, warnings := buildFederationWithLoader(ctx, wr, config.GlobalCacheDir)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	wcfg := workspace.DefaultWatcherConfig()
	wcfg.DependencyLoader = loader
	rw, err := workspace.NewRootWatcher(config.Root, wr, wcfg)
	if err != nil {
		return err
	}
	defer rw.Stop()

	if err := rw.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("watching %s (%d members), press ctrl-c to stop\n", layout.Root, len(layout.Members))
	<-ctx.Done()
	fmt.Println("stopping")
	return nil
}
