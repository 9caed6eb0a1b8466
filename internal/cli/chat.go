package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/intake"
	"github.com/rcliao/mazlo-memory/internal/orchestrator"
	"github.com/rcliao/mazlo-memory/internal/retriever"
)

// How long chat waits for queued intake before exiting.
const intakeDrainTimeout = 2 * time.Minute

func init() {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message and get Mazlo's reply",
		Long: "Store the message, retrieve relevant memories, ask the model for a reply and " +
			"store it. Both messages are then analysed for memories in the background.",
		Run: runChat,
	}

	cmd.Flags().StringP("room", "r", "", "Room id (required)")
	cmd.Flags().StringP("thread", "t", "", "Thread id")
	cmd.Flags().String("mode", string(retriever.ModeRoom), "Retrieval mode: room or global")
	cmd.Flags().Int("max-tokens", 0, "Memory snippet budget (default from config)")
	cmd.MarkFlagRequired("room")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	roomID, _ := cmd.Flags().GetString("room")
	threadID, _ := cmd.Flags().GetString("thread")
	mode, _ := cmd.Flags().GetString("mode")
	content := readContent("chat", args)

	a := newApp(true)
	defer a.close()

	budget := a.cfg.Retrieval.MaxTokens
	if cmd.Flags().Changed("max-tokens") {
		budget, _ = cmd.Flags().GetInt("max-tokens")
	}

	q := intake.NewQueue(a.pipeline, a.cfg.Intake.Workers, a.cfg.Intake.QueueSize, a.log)
	orch := orchestrator.New(a.store, a.service, a.llm, q, a.log)

	reply, err := orch.Reply(cmd.Context(), orchestrator.ReplyParams{
		OwnerID:   a.cfg.OwnerID,
		RoomID:    roomID,
		ThreadID:  threadID,
		Content:   content,
		Mode:      retriever.Mode(mode),
		MaxTokens: &budget,
	})
	if err != nil {
		q.Close(context.Background())
		exitErr("chat", err)
	}
	printJSON(reply)

	ctx, cancel := context.WithTimeout(context.Background(), intakeDrainTimeout)
	defer cancel()
	if err := q.Close(ctx); err != nil {
		a.log.Warn("intake did not finish", "error", err)
	}
}
