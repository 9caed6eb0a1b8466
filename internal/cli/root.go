// Package cli implements the mazlo CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/config"
	"github.com/rcliao/mazlo-memory/internal/store"
)

var (
	dbPath     string
	configPath string
	ownerFlag  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mazlo",
	Short: "Scoped conversational memory for the Mazlo assistant",
	Long: "Mazlo keeps thread, room and global memories extracted from conversations, " +
		"ranks them for each reply and summarizes long threads. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MAZLO_DB or ~/.mazlo/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.mazlo/config.toml if present)")
	RootCmd.PersistentFlags().StringVarP(&ownerFlag, "owner", "o", "", "Owner id (default: $MAZLO_OWNER or \"default\")")
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if ownerFlag != "" {
		cfg.OwnerID = ownerFlag
	}
	return cfg
}

func openStore() (*store.SQLiteStore, *config.Config) {
	cfg := loadConfig()
	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		exitErr("open store", err)
	}
	return s, cfg
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
