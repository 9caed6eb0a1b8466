package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/model"
)

func init() {
	candCmd := &cobra.Command{
		Use:   "candidate",
		Short: "Suggested memories that were not written automatically",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent suggestions for a room (and thread)",
		Run:   runCandidateList,
	}
	listCmd.Flags().StringP("room", "r", "", "Room id (required)")
	listCmd.Flags().StringP("thread", "t", "", "Thread id")
	listCmd.MarkFlagRequired("room")

	acceptCmd := &cobra.Command{
		Use:   "accept [event-id]",
		Short: "Pin a suggestion as a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runCandidateAccept,
	}

	discardCmd := &cobra.Command{
		Use:   "discard [event-id]",
		Short: "Drop a suggestion",
		Args:  cobra.ExactArgs(1),
		Run:   runCandidateDiscard,
	}

	candCmd.AddCommand(listCmd, acceptCmd, discardCmd)
	RootCmd.AddCommand(candCmd)
}

func runCandidateList(cmd *cobra.Command, args []string) {
	roomID, _ := cmd.Flags().GetString("room")
	threadID, _ := cmd.Flags().GetString("thread")

	a := newApp(false)
	defer a.close()

	events, err := a.service.ListSuggested(cmd.Context(), a.cfg.OwnerID, roomID, threadID)
	if err != nil {
		exitErr("list suggestions", err)
	}
	if events == nil {
		events = []model.MemoryEvent{}
	}
	printJSON(events)
}

func runCandidateAccept(cmd *cobra.Command, args []string) {
	a := newApp(false)
	defer a.close()

	m, err := a.service.AcceptCandidate(cmd.Context(), args[0])
	if err != nil {
		exitErr("accept", err)
	}
	printJSON(m)
}

func runCandidateDiscard(cmd *cobra.Command, args []string) {
	a := newApp(false)
	defer a.close()

	if err := a.service.DiscardCandidate(cmd.Context(), args[0]); err != nil {
		exitErr("discard", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"event_id":%q}`+"\n", args[0])
}
