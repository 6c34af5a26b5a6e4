package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/platform"
	"vigil/internal/registry"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var quick bool

	cmd := &cobra.Command{
		Use:   "refresh [youtube|twitch]",
		Short: "Fetch full platform listings into the registry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platforms, err := selectPlatforms(args)
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				out := cmd.OutOrStdout()
				for _, p := range platforms {
					before, err := s.store.Count(cmd.Context(), p)
					if err != nil {
						return err
					}
					if !s.catalog.Refresh(cmd.Context(), p, !quick) {
						fmt.Fprintf(out, "%s: skipped (no listing source configured or fetch failed)\n", p.Label())
						continue
					}
					after, err := s.store.Count(cmd.Context(), p)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s: %d records (%+d)\n", p.Label(), after, after-before)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&quick, "quick", false, "Fetch only the recent window instead of the deep listing")
	return cmd
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the stream registry",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheInfoCommand(ctx))
	cacheCmd.AddCommand(newCacheInjectCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [youtube|twitch]",
		Short: "List registry records, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platforms, err := selectPlatforms(args)
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				rows := make([][]string, 0, 64)
				for _, p := range platforms {
					records, err := s.store.List(cmd.Context(), p)
					if err != nil {
						return err
					}
					for _, rec := range records {
						rows = append(rows, []string{
							rec.Platform.Tag(),
							rec.ID,
							rec.Title,
							rec.StartTime.UTC().Format("2006-01-02 15:04"),
							formatRecordDuration(rec.Duration),
							string(rec.Origin),
						})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Registry is empty; run `vigil refresh` first.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Platform", "ID", "Title", "Start (UTC)", "Duration", "Origin"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newCacheInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info [video-id]",
		Short: "Show registry location and per-platform counts, or one record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					return printRecord(cmd, s, strings.TrimSpace(args[0]))
				}
				fmt.Fprintf(out, "Registry: %s\n", s.store.Path())

				rows := make([][]string, 0, len(platform.All()))
				for _, p := range platform.All() {
					count, err := s.store.Count(cmd.Context(), p)
					if err != nil {
						return err
					}
					newest := "-"
					if ts, ok, err := s.store.NewestStart(cmd.Context(), p); err != nil {
						return err
					} else if ok {
						newest = ts.UTC().Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{p.Label(), fmt.Sprintf("%d", count), newest})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Platform", "Records", "Newest Start (UTC)"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func printRecord(cmd *cobra.Command, s *session, id string) error {
	rec, found, err := s.store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no registry record with id %q", id)
	}
	rows := [][]string{
		{"Platform", rec.Platform.Label()},
		{"ID", rec.ID},
		{"Title", rec.Title},
		{"Start (UTC)", rec.StartTime.UTC().Format("2006-01-02 15:04")},
		{"Duration", formatRecordDuration(rec.Duration)},
		{"Origin", string(rec.Origin)},
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Field", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignLeft},
	))
	return nil
}

func newCacheInjectCommand(ctx *commandContext) *cobra.Command {
	var platformFlag string
	var title string
	var start string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "inject <video-id-or-url>",
		Short: "Insert a manual registry record",
		Long: "Inject stores a record the platform listings cannot supply, such " +
			"as a deleted VOD. The argument may be a watch URL, which also names " +
			"the platform. Manual records survive refreshes.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			var p platform.Platform
			if owner, extracted, ok := platform.IDFromURL(id); ok {
				p, id = owner, extracted
			} else {
				var err error
				p, err = platform.Parse(platformFlag)
				if err != nil {
					return fmt.Errorf("--platform is required when the argument is not a watch URL: %w", err)
				}
			}
			startTime, err := time.Parse("2006-01-02 15:04", strings.TrimSpace(start))
			if err != nil {
				return fmt.Errorf("start must look like \"2026-02-08 10:15\" (UTC): %w", err)
			}

			return ctx.withSession(func(s *session) error {
				rec := registry.Record{
					Platform:  p,
					ID:        id,
					Title:     strings.TrimSpace(title),
					StartTime: startTime.UTC(),
					Duration:  duration,
					Origin:    registry.OriginManual,
				}
				if err := s.store.Upsert(cmd.Context(), rec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored manual record %s %s\n", p.Tag(), rec.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&platformFlag, "platform", "", "youtube or twitch (required unless the argument is a URL)")
	cmd.Flags().StringVar(&title, "title", "", "Stream title")
	cmd.Flags().StringVar(&start, "start", "", "Start time in UTC, e.g. \"2026-02-08 10:15\" (required)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stream duration, e.g. 2h13m")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func selectPlatforms(args []string) ([]platform.Platform, error) {
	if len(args) == 0 {
		return platform.All(), nil
	}
	p, err := platform.Parse(args[0])
	if err != nil {
		return nil, err
	}
	return []platform.Platform{p}, nil
}

func formatRecordDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
