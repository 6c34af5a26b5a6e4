package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display recent vigil log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.LogDir == "" {
				return fmt.Errorf("paths.log_dir is not configured; file logging is disabled")
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "vigil.log")

			out := cmd.OutOrStdout()
			offset, printed, err := printTail(out, logPath, lines)
			if err != nil {
				return err
			}
			if !follow {
				if !printed {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}

			ticker := time.NewTicker(250 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					offset, err = printFrom(out, logPath, offset)
					if err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

// printTail writes the last n lines of the log and returns the file offset
// the follow loop should continue from.
func printTail(out io.Writer, path string, n int) (int64, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read log: %w", err)
	}

	content := strings.TrimRight(string(data), "\n")
	printed := false
	if content != "" {
		all := strings.Split(content, "\n")
		if n > 0 && len(all) > n {
			all = all[len(all)-n:]
		}
		for _, line := range all {
			fmt.Fprintln(out, line)
			printed = true
		}
	}
	return int64(len(data)), printed, nil
}

// printFrom writes everything appended past offset and returns the new
// offset. A shrunken file means rotation; reading restarts from the top.
func printFrom(out io.Writer, path string, offset int64) (int64, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return offset, nil
	}
	if err != nil {
		return offset, fmt.Errorf("read log: %w", err)
	}
	if int64(len(data)) < offset {
		offset = 0
	}
	chunk := data[offset:]
	if len(chunk) > 0 {
		_, _ = out.Write(chunk)
	}
	return int64(len(data)), nil
}
