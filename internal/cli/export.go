package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON",
		Long:  "Export the owner's non-deleted memories as a JSON array. Filter by scope with -s.",
		Run:   runExport,
	}

	cmd.Flags().StringP("scope", "s", "", "Filter by scope")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")

	s, cfg := openStore()
	defer s.Close()

	memories, err := s.ExportAll(cmd.Context(), cfg.OwnerID, model.Scope(scope))
	if err != nil {
		exitErr("export", err)
	}
	if memories == nil {
		memories = []model.Memory{}
	}
	printJSON(memories)
}
