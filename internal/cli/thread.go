package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/model"
)

func init() {
	threadCmd := &cobra.Command{
		Use:   "thread",
		Short: "Thread management",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a thread in a room",
		Run:   runThreadCreate,
	}
	createCmd.Flags().StringP("room", "r", "", "Room id (required)")
	createCmd.Flags().String("title", "", "Thread title (required)")
	createCmd.MarkFlagRequired("room")
	createCmd.MarkFlagRequired("title")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a room's threads",
		Run:   runThreadList,
	}
	listCmd.Flags().StringP("room", "r", "", "Room id (required)")
	listCmd.Flags().IntP("limit", "l", 50, "Max results")
	listCmd.MarkFlagRequired("room")

	threadCmd.AddCommand(createCmd, listCmd)
	RootCmd.AddCommand(threadCmd)
}

func runThreadCreate(cmd *cobra.Command, args []string) {
	roomID, _ := cmd.Flags().GetString("room")
	title, _ := cmd.Flags().GetString("title")

	s, _ := openStore()
	defer s.Close()

	t, err := s.CreateThread(cmd.Context(), roomID, title)
	if err != nil {
		exitErr("create thread", err)
	}
	printJSON(t)
}

func runThreadList(cmd *cobra.Command, args []string) {
	roomID, _ := cmd.Flags().GetString("room")
	limit, _ := cmd.Flags().GetInt("limit")

	s, _ := openStore()
	defer s.Close()

	threads, err := s.ListThreadsByRoom(cmd.Context(), roomID, limit)
	if err != nil {
		exitErr("list threads", err)
	}
	if threads == nil {
		threads = []model.Thread{}
	}
	printJSON(threads)
}
