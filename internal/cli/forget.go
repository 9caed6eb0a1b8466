package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget [memory-id]",
		Short: "Soft-delete a memory",
		Long:  "Mark a memory deleted. It is no longer listed or retrieved; forgetting it again is a no-op.",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}

	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	a := newApp(false)
	defer a.close()

	if err := a.service.Forget(cmd.Context(), args[0]); err != nil {
		exitErr("forget", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", args[0])
}
