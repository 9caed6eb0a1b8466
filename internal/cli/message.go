package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/store"
)

func init() {
	msgCmd := &cobra.Command{
		Use:   "message",
		Short: "Conversation messages",
	}

	addCmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Append a message to a room or thread",
		Long:  "Append a message. Content can be a positional arg or piped via stdin. With --intake the message is analysed for memories right away.",
		Run:   runMessageAdd,
	}
	addCmd.Flags().StringP("room", "r", "", "Room id (required)")
	addCmd.Flags().StringP("thread", "t", "", "Thread id")
	addCmd.Flags().String("role", string(model.RoleUser), "Role: user, assistant, system")
	addCmd.Flags().Bool("intake", false, "Run memory intake on the new message")
	addCmd.MarkFlagRequired("room")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the latest messages, oldest first",
		Run:   runMessageList,
	}
	listCmd.Flags().StringP("room", "r", "", "Room id (required)")
	listCmd.Flags().StringP("thread", "t", "", "Thread id")
	listCmd.Flags().IntP("limit", "l", 20, "Max results")
	listCmd.MarkFlagRequired("room")

	msgCmd.AddCommand(addCmd, listCmd)
	RootCmd.AddCommand(msgCmd)
}

func runMessageAdd(cmd *cobra.Command, args []string) {
	roomID, _ := cmd.Flags().GetString("room")
	threadID, _ := cmd.Flags().GetString("thread")
	role, _ := cmd.Flags().GetString("role")
	runIntake, _ := cmd.Flags().GetBool("intake")
	content := readContent("message add", args)

	a := newApp(runIntake)
	defer a.close()

	msg, err := a.store.AddMessage(cmd.Context(), store.AddMessageParams{
		RoomID:   roomID,
		ThreadID: threadID,
		Role:     model.Role(role),
		Content:  content,
	})
	if err != nil {
		exitErr("add message", err)
	}
	if !runIntake {
		printJSON(msg)
		return
	}

	res, err := a.service.IntakeForMessage(cmd.Context(), msg.ID)
	if err != nil {
		exitErr("intake", err)
	}
	printJSON(map[string]any{"message": msg, "intake": res})
}

func runMessageList(cmd *cobra.Command, args []string) {
	roomID, _ := cmd.Flags().GetString("room")
	threadID, _ := cmd.Flags().GetString("thread")
	limit, _ := cmd.Flags().GetInt("limit")

	s, _ := openStore()
	defer s.Close()

	msgs, err := s.GetRecentMessages(cmd.Context(), roomID, threadID, limit)
	if err != nil {
		exitErr("list messages", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	printJSON(msgs)
}

// readContent takes the positional args, or stdin when it is piped.
func readContent(op string, args []string) string {
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		exitErr(op, fmt.Errorf("content is required (positional arg or stdin)"))
	}
	return content
}
