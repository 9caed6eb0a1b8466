package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics for the owner",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, cfg := openStore()
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.DBPath, cfg.OwnerID)
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(stats)
}
