package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/store"
)

func init() {
	roomCmd := &cobra.Command{
		Use:   "room",
		Short: "Room management",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room",
		Run:   runRoomCreate,
	}
	createCmd.Flags().String("title", "", "Room title (required)")
	createCmd.Flags().String("type", string(model.RoomProject), "Room type: dm, group, project, global")
	createCmd.Flags().String("description", "", "Room description")
	createCmd.MarkFlagRequired("title")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the owner's rooms",
		Run:   runRoomList,
	}

	roomCmd.AddCommand(createCmd, listCmd)
	RootCmd.AddCommand(roomCmd)
}

func runRoomCreate(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	typ, _ := cmd.Flags().GetString("type")
	desc, _ := cmd.Flags().GetString("description")

	s, cfg := openStore()
	defer s.Close()

	room, err := s.CreateRoom(cmd.Context(), store.CreateRoomParams{
		OwnerID:     cfg.OwnerID,
		Title:       title,
		Type:        model.RoomType(typ),
		Description: desc,
	})
	if err != nil {
		exitErr("create room", err)
	}
	printJSON(room)
}

func runRoomList(cmd *cobra.Command, args []string) {
	s, cfg := openStore()
	defer s.Close()

	rooms, err := s.ListRooms(cmd.Context(), cfg.OwnerID)
	if err != nil {
		exitErr("list rooms", err)
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	printJSON(rooms)
}
