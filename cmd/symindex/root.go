package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/symindex/engine/internal/registry"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Config holds every flag shared across symindex's subcommands. Like the
// teacher's own Config, it is bound wholesale to viper so every flag can
// also be set via SYMINDEX_* environment variables or a config file.
type Config struct {
	Root string `json:"root"`

	// CacheDir holds this workspace's own mirror cache: workspace.json plus
	// each member's mirrored artifact under local/<pkg> (spec §4.7, §6).
	CacheDir string `json:"cache_dir"`

	// GlobalCacheDir holds every dependency artifact shared across
	// workspaces: one subdirectory per tier (sdk/framework/hosted/git),
	// keyed by PACKAGE_CACHE_DIR/HOME when left empty (spec §6, §9).
	GlobalCacheDir string `json:"global_cache_dir"`

	Format string   `json:"format"`
	Globs  []string `json:"globs"`
}

var config Config

var rootCmd = &cobra.Command{
	Use:   "symindex",
	Short: "A semantic, incrementally-updated code index across workspace members",
	Long: `symindex builds and queries a live semantic index of a Go workspace:
symbols, references, type hierarchies and call graphs, kept current by a
filesystem watcher instead of a one-shot batch scan.

EXAMPLES:
    symindex open .
    symindex query "find Handler*"
    symindex query "def Server | callers"
    symindex watch .`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&config.Root, "root", ".", "Workspace root to index")
	rootCmd.PersistentFlags().StringVar(&config.CacheDir, "cache-dir", defaultCacheDir(), "Directory for this workspace's own mirrored index artifacts")
	rootCmd.PersistentFlags().StringVar(&config.GlobalCacheDir, "global-cache-dir", registry.DefaultCacheConfig().Dir, "Directory for shared sdk/framework/hosted/git dependency artifacts")
	rootCmd.PersistentFlags().StringVar(&config.Format, "format", "text", "Result rendering (text, json)")
	rootCmd.PersistentFlags().StringSliceVar(&config.Globs, "workspace-glob", nil, "Tool-driven workspace member glob (repeatable), e.g. packages/*")

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(workspaceCmd)

	viper.BindPFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	viper.SetConfigName(".symindex")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")

	viper.SetEnvPrefix("SYMINDEX")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/symindex"
	}
	return ".symindex-cache"
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
