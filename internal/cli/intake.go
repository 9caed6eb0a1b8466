package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "intake [message-id]",
		Short: "Extract memories from a stored message",
		Long:  "Ask the planner for memory candidates in a message, write the important ones and record the rest as suggestions.",
		Args:  cobra.ExactArgs(1),
		Run:   runIntake,
	}

	RootCmd.AddCommand(cmd)
}

func runIntake(cmd *cobra.Command, args []string) {
	a := newApp(true)
	defer a.close()

	res, err := a.service.IntakeForMessage(cmd.Context(), args[0])
	if err != nil {
		exitErr("intake", err)
	}
	printJSON(res)
}
