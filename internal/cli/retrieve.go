package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/memory"
	"github.com/rcliao/mazlo-memory/internal/retriever"
)

func init() {
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Assemble the memory bundle for a conversation",
		Long:  "Score the memories visible from a room or thread against the latest messages, then greedily pack them into a token budget.",
		Run:   runRetrieve,
	}

	cmd.Flags().StringP("room", "r", "", "Room id (required)")
	cmd.Flags().StringP("thread", "t", "", "Thread id")
	cmd.Flags().String("mode", string(retriever.ModeRoom), "Retrieval mode: room or global")
	cmd.Flags().IntP("budget", "b", 0, "Max tokens of memory snippets (default from config)")
	cmd.Flags().Int("recent", 40, "Number of recent messages used as the query")
	cmd.Flags().Bool("prompt", false, "Print the rendered prompt sections instead of JSON")
	cmd.MarkFlagRequired("room")

	RootCmd.AddCommand(cmd)
}

func runRetrieve(cmd *cobra.Command, args []string) {
	roomID, _ := cmd.Flags().GetString("room")
	threadID, _ := cmd.Flags().GetString("thread")
	mode, _ := cmd.Flags().GetString("mode")
	recent, _ := cmd.Flags().GetInt("recent")
	asPrompt, _ := cmd.Flags().GetBool("prompt")

	a := newApp(false)
	defer a.close()

	budget := a.cfg.Retrieval.MaxTokens
	if cmd.Flags().Changed("budget") {
		budget, _ = cmd.Flags().GetInt("budget")
	}

	msgs, err := a.store.GetRecentMessages(cmd.Context(), roomID, threadID, recent)
	if err != nil {
		exitErr("load messages", err)
	}
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}

	bundle, err := a.service.RetrieveForReply(cmd.Context(), retriever.Params{
		Mode:             retriever.Mode(mode),
		OwnerID:          a.cfg.OwnerID,
		RoomID:           roomID,
		ThreadID:         threadID,
		RecentMessageIDs: ids,
		MaxTokens:        &budget,
	})
	if err != nil {
		exitErr("retrieve", err)
	}

	if asPrompt {
		fmt.Print(memory.BuildPrompt("", bundle, msgs))
		return
	}
	printJSON(bundle)
}
