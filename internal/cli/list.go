package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Long:  "List the active memories visible from a room or thread, the owner's global memories (--global) or every non-deleted memory (--all).",
		Run:   runList,
	}

	cmd.Flags().StringP("room", "r", "", "Room id")
	cmd.Flags().StringP("thread", "t", "", "Thread id")
	cmd.Flags().Bool("global", false, "Only global memories")
	cmd.Flags().Bool("all", false, "Every non-deleted memory of the owner")
	cmd.Flags().IntP("limit", "l", 100, "Max results for --all")
	cmd.Flags().Bool("snippets", false, "Only output the prompt snippets")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	roomID, _ := cmd.Flags().GetString("room")
	threadID, _ := cmd.Flags().GetString("thread")
	global, _ := cmd.Flags().GetBool("global")
	all, _ := cmd.Flags().GetBool("all")
	limit, _ := cmd.Flags().GetInt("limit")
	snippets, _ := cmd.Flags().GetBool("snippets")

	a := newApp(false)
	defer a.close()
	ctx := cmd.Context()

	var memories []model.Memory
	var err error
	switch {
	case all:
		memories, err = a.service.ListAll(ctx, a.cfg.OwnerID, limit)
	case global:
		memories, err = a.service.ListGlobal(ctx, a.cfg.OwnerID)
	case roomID != "":
		memories, err = a.service.ListForRoomAndThread(ctx, a.cfg.OwnerID, roomID, threadID)
	default:
		exitErr("list", fmt.Errorf("pass --room, --global or --all"))
	}
	if err != nil {
		exitErr("list", err)
	}

	if snippets {
		for _, m := range memories {
			fmt.Println(m.Snippet())
		}
		return
	}
	if memories == nil {
		memories = []model.Memory{}
	}
	printJSON(memories)
}
