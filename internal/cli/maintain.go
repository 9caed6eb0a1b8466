package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/mazlo-memory/internal/jobs"
)

func init() {
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Decay recency, archive stale memories and summarize long threads",
		Long: "Run one maintenance pass, or with --schedule keep running passes on the configured cron " +
			"schedule until interrupted. Thread summarization needs a configured model; use --no-summarize to skip it.",
		Run: runMaintain,
	}

	cmd.Flags().Bool("schedule", false, "Run on the cron schedule until interrupted")
	cmd.Flags().String("cron", "", "Cron expression (default from config)")
	cmd.Flags().Bool("no-summarize", false, "Skip thread summarization")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Max duration of one scheduled pass")

	RootCmd.AddCommand(cmd)
}

func runMaintain(cmd *cobra.Command, args []string) {
	schedule, _ := cmd.Flags().GetBool("schedule")
	expr, _ := cmd.Flags().GetString("cron")
	noSummarize, _ := cmd.Flags().GetBool("no-summarize")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	a := newApp(!noSummarize)
	defer a.close()

	var sum jobs.Summarizer
	if a.summarizer != nil {
		sum = a.summarizer
	}
	m := jobs.NewMaintainer(a.store, sum, jobs.Options{
		DecayRate:            a.cfg.Maintenance.DecayRate,
		ArchiveAfter:         a.cfg.ArchiveAfter(),
		ArchiveBelow:         a.cfg.Maintenance.ArchiveBelow,
		SummarizeMinMessages: a.cfg.Maintenance.SummarizeMinMessages,
	}, a.log)

	if !schedule {
		report, err := m.RunOnce(cmd.Context())
		if err != nil {
			exitErr("maintain", err)
		}
		printJSON(report)
		return
	}

	if expr == "" {
		expr = a.cfg.Maintenance.Schedule
	}
	sch, err := jobs.NewScheduler(m, expr, timeout, a.log)
	if err != nil {
		exitErr("schedule", err)
	}
	sch.Start()
	<-cmd.Context().Done()
	if err := sch.Stop(); err != nil {
		exitErr("stop scheduler", err)
	}
}
