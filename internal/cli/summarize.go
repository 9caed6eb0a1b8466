package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/summarizer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Regenerate a thread or room summary",
		Long:  "Summarize a thread (level 1) or a room's threads (level 2). Pass exactly one of --thread or --room; with --show the stored summaries are printed instead.",
		Run:   runSummarize,
	}

	cmd.Flags().StringP("thread", "t", "", "Thread id")
	cmd.Flags().StringP("room", "r", "", "Room id")
	cmd.Flags().Bool("show", false, "Show the stored summaries for --room (and --thread) without regenerating")

	RootCmd.AddCommand(cmd)
}

func runSummarize(cmd *cobra.Command, args []string) {
	threadID, _ := cmd.Flags().GetString("thread")
	roomID, _ := cmd.Flags().GetString("room")
	show, _ := cmd.Flags().GetBool("show")

	if show {
		if roomID == "" {
			exitErr("summarize", fmt.Errorf("--show requires --room"))
		}
		a := newApp(false)
		defer a.close()
		sums, err := a.service.Summaries(cmd.Context(), a.cfg.OwnerID, roomID, threadID)
		if err != nil {
			exitErr("summaries", err)
		}
		if sums == nil {
			sums = []model.MemorySummary{}
		}
		printJSON(sums)
		return
	}

	if (threadID == "") == (roomID == "") {
		exitErr("summarize", fmt.Errorf("pass exactly one of --thread or --room"))
	}

	a := newApp(true)
	defer a.close()

	var res *summarizer.Result
	var err error
	if threadID != "" {
		res, err = a.service.SummarizeThread(cmd.Context(), threadID, a.cfg.OwnerID)
	} else {
		res, err = a.service.SummarizeRoom(cmd.Context(), roomID, a.cfg.OwnerID)
	}
	if err != nil {
		exitErr("summarize", err)
	}
	printJSON(res)
}
