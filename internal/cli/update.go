package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/memory"
	"github.com/rcliao/mazlo-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update [memory-id]",
		Short: "Edit a memory",
		Long:  "Edit a memory's content, scope, kind or importance. Only the flags given are changed; the memory is marked user-edited.",
		Args:  cobra.ExactArgs(1),
		Run:   runUpdate,
	}

	cmd.Flags().String("content", "", "New content")
	cmd.Flags().StringP("scope", "s", "", "New scope: thread, room, global")
	cmd.Flags().StringP("room", "r", "", "Room id for a new room or thread scope")
	cmd.Flags().StringP("thread", "t", "", "Thread id for a new thread scope")
	cmd.Flags().StringP("kind", "k", "", "New kind")
	cmd.Flags().Float64P("importance", "i", 0, "New importance in [0,1]")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	p := memory.UpdateParams{ID: args[0]}
	p.RoomID, _ = cmd.Flags().GetString("room")
	p.ThreadID, _ = cmd.Flags().GetString("thread")

	if cmd.Flags().Changed("content") {
		v, _ := cmd.Flags().GetString("content")
		p.Content = &v
	}
	if cmd.Flags().Changed("scope") {
		v, _ := cmd.Flags().GetString("scope")
		scope := model.Scope(v)
		p.Scope = &scope
	}
	if cmd.Flags().Changed("kind") {
		v, _ := cmd.Flags().GetString("kind")
		kind := model.Kind(v)
		p.Kind = &kind
	}
	if cmd.Flags().Changed("importance") {
		v, _ := cmd.Flags().GetFloat64("importance")
		p.Importance = &v
	}

	a := newApp(false)
	defer a.close()

	m, err := a.service.Update(cmd.Context(), p)
	if err != nil {
		exitErr("update", err)
	}
	printJSON(m)
}
