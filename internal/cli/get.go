package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [memory-id]",
		Short: "Show a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Bool("history", false, "Include the memory's events, newest first")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	history, _ := cmd.Flags().GetBool("history")

	s, _ := openStore()
	defer s.Close()

	m, err := s.GetMemory(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	if !history {
		printJSON(m)
		return
	}

	events, err := s.ListEvents(cmd.Context(), store.EventListParams{OwnerID: m.OwnerID, MemoryID: m.ID, Limit: 1000})
	if err != nil {
		exitErr("list events", err)
	}
	if events == nil {
		events = []model.MemoryEvent{}
	}
	printJSON(map[string]any{"memory": m, "events": events})
}
