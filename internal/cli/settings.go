package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the owner's memory settings",
		Long:  "Without flags the current settings are printed. --memory-enabled=false stops intake; --show-suggested=false hides suggestions.",
		Run:   runSettings,
	}

	cmd.Flags().Bool("memory-enabled", true, "Extract memories from conversations")
	cmd.Flags().Bool("show-suggested", true, "Show suggested memories")

	RootCmd.AddCommand(cmd)
}

func runSettings(cmd *cobra.Command, args []string) {
	s, cfg := openStore()
	defer s.Close()

	st, err := s.GetSettings(cmd.Context(), cfg.OwnerID)
	if err != nil {
		exitErr("get settings", err)
	}

	changed := false
	if cmd.Flags().Changed("memory-enabled") {
		st.MemoryEnabled, _ = cmd.Flags().GetBool("memory-enabled")
		changed = true
	}
	if cmd.Flags().Changed("show-suggested") {
		st.ShowSuggestedMemories, _ = cmd.Flags().GetBool("show-suggested")
		changed = true
	}
	if changed {
		if err := s.SaveSettings(cmd.Context(), st); err != nil {
			exitErr("save settings", err)
		}
	}
	printJSON(st)
}
