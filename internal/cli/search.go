package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by keyword",
		Long:  "Search active memory content for matching text, most important first.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("scope", "s", "", "Filter by scope")
	cmd.Flags().StringP("kind", "k", "", "Filter by kind")
	cmd.Flags().StringP("room", "r", "", "Filter by room")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	kind, _ := cmd.Flags().GetString("kind")
	roomID, _ := cmd.Flags().GetString("room")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, cfg := openStore()
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		OwnerID: cfg.OwnerID,
		Query:   query,
		Scope:   model.Scope(scope),
		Kind:    model.Kind(kind),
		RoomID:  roomID,
		Limit:   limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(results)
}
