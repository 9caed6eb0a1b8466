package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/memory"
	"github.com/rcliao/mazlo-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "pin [content]",
		Short: "Store a memory the user wants kept",
		Long:  "Pin a memory. Content can be a positional arg or piped via stdin. Room scope needs --room, thread scope needs --room and --thread.",
		Run:   runPin,
	}

	cmd.Flags().StringP("scope", "s", string(model.ScopeRoom), "Scope: thread, room, global")
	cmd.Flags().StringP("room", "r", "", "Room id")
	cmd.Flags().StringP("thread", "t", "", "Thread id")
	cmd.Flags().StringP("kind", "k", string(model.KindFact), "Kind: fact, preference, plan, identity, project")
	cmd.Flags().Float64P("importance", "i", 0.8, "Importance in [0,1]")

	RootCmd.AddCommand(cmd)
}

func runPin(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	roomID, _ := cmd.Flags().GetString("room")
	threadID, _ := cmd.Flags().GetString("thread")
	kind, _ := cmd.Flags().GetString("kind")
	importance, _ := cmd.Flags().GetFloat64("importance")
	content := readContent("pin", args)

	a := newApp(false)
	defer a.close()

	m, err := a.service.Pin(cmd.Context(), memory.PinParams{
		OwnerID:    a.cfg.OwnerID,
		Scope:      model.Scope(scope),
		RoomID:     roomID,
		ThreadID:   threadID,
		Kind:       model.Kind(kind),
		Content:    content,
		Importance: importance,
	})
	if err != nil {
		exitErr("pin", err)
	}
	printJSON(m)
}
