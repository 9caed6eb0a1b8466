package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "purge [memory-id]",
		Short: "Permanently delete a memory and its events",
		Long:  "Hard-delete a memory and its audit events. This is irreversible; use forget for normal deletion.",
		Args:  cobra.ExactArgs(1),
		Run:   runPurge,
	}

	RootCmd.AddCommand(cmd)
}

func runPurge(cmd *cobra.Command, args []string) {
	s, _ := openStore()
	defer s.Close()

	if err := s.Purge(cmd.Context(), args[0]); err != nil {
		exitErr("purge", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q,"purged":true}`+"\n", args[0])
}
