package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/audit"
	"vigil/internal/platform"
	"vigil/internal/resolve"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var ytOverride string
	var twOverride string
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "audit <index>",
		Short: "Reconcile one log entry against the registry and the archive",
		Long: "Audit parses the numbered entry, scans the archive for its files, " +
			"resolves each platform's video id, and offers an idempotent rewrite " +
			"of the entry block. Missing files can be downloaded in the same run.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil || index <= 0 {
				return fmt.Errorf("entry index must be a positive number, got %q", args[0])
			}

			opts := audit.Options{Overrides: map[platform.Platform]string{}}
			if ytOverride != "" {
				opts.Overrides[platform.YouTube] = ytOverride
			}
			if twOverride != "" {
				opts.Overrides[platform.Twitch] = twOverride
			}

			return ctx.withSession(func(s *session) error {
				confirmer := newConsoleConfirmer(cmd.OutOrStdout(), assumeYes)
				report, err := s.orchestrator(confirmer).Run(cmd.Context(), index, opts)
				if err != nil {
					return err
				}
				printReport(cmd, report)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ytOverride, "yt", "", "Pin the YouTube video id for this entry")
	cmd.Flags().StringVar(&twOverride, "tw", "", "Pin the Twitch VOD id for this entry")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Apply rewrites and downloads without asking")
	return cmd
}

func printReport(cmd *cobra.Command, report *audit.Report) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(platform.All()))
	for _, p := range platform.All() {
		res := report.Resolutions[p]
		id := res.VideoID
		if id == "" {
			id = "-"
		}
		note := res.Note
		if report.Entry != nil && report.Entry.Absent[p] {
			note = "marked as no stream"
		}
		rows = append(rows, []string{p.Label(), id, string(res.Source), note})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Platform", "Video ID", "Source", "Note"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))

	if report.Written {
		fmt.Fprintf(out, "Entry %d rewritten.\n", report.Index)
	} else {
		fmt.Fprintf(out, "Entry %d unchanged.\n", report.Index)
	}
	if len(report.StillMissing) > 0 {
		labels := make([]string, 0, len(report.StillMissing))
		for _, m := range report.StillMissing {
			labels = append(labels, m.Label())
		}
		fmt.Fprintf(out, "Missing files: %s\n", strings.Join(labels, ", "))
	}
	for _, p := range platform.All() {
		if report.Resolutions[p].Source == resolve.SourceRegistryFuzzy {
			fmt.Fprintf(out, "Warning: %s matched outside the exact window; verify the id.\n", p.Label())
		}
	}
}
