package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
	"github.com/marmos91/dittoauth/pkg/config"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
	logsUser   string
	logsFailed bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show authentication events",
	Long: `Display and optionally follow the authentication events in the log file.

Only the "authentication succeeded" and "authentication failed" records are
shown. The log file is taken from logging.output; logging to stdout or
stderr leaves nothing to read.

Examples:
  # Show the last 100 events (default)
  dittoauth logs

  # Failures for alice since this morning
  dittoauth logs --user alice --failed --since 2026-10-18T08:00:00Z

  # Follow new events
  dittoauth logs -f`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow new events")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of events to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show events since timestamp (RFC3339 format)")
	logsCmd.Flags().StringVarP(&logsUser, "user", "u", "", "Only events for this user")
	logsCmd.Flags().BoolVar(&logsFailed, "failed", false, "Only failed authentications")
}

// eventFilter selects audit records from log lines.
type eventFilter struct {
	user   string
	failed bool
	since  time.Time
}

func (f eventFilter) match(line string) bool {
	failed := strings.Contains(line, "authentication failed")
	if !failed && !strings.Contains(line, "authentication succeeded") {
		return false
	}
	if f.failed && !failed {
		return false
	}
	if f.user != "" && !strings.Contains(line, "user="+f.user+" ") &&
		!strings.HasSuffix(line, "user="+f.user) &&
		!strings.Contains(line, `"user":"`+f.user+`"`) {
		return false
	}
	if !f.since.IsZero() {
		if t := extractTimestamp(line); !t.IsZero() && t.Before(f.since) {
			return false
		}
	}
	return true
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmdutil.Flags.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logOutput := cfg.Logging.Output
	if logOutput == "stdout" || logOutput == "stderr" {
		return fmt.Errorf("logging goes to %s, not a file\nSet 'logging.output' to a file path to use this command", logOutput)
	}
	if _, err := os.Stat(logOutput); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logOutput)
	}

	filter := eventFilter{user: logsUser, failed: logsFailed}
	if logsSince != "" {
		filter.since, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use RFC3339): %w", err)
		}
	}

	if err := showEvents(cmd.OutOrStdout(), logOutput, logsLines, filter); err != nil {
		return err
	}
	if !logsFollow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.PrintErrf("Following %s (Ctrl+C to stop)...\n", logOutput)
	return followEvents(ctx, cmd.OutOrStdout(), logOutput, filter)
}

// showEvents prints the last n matching lines of logFile.
func showEvents(w io.Writer, logFile string, n int, filter eventFilter) error {
	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); filter.match(line) {
			lines = append(lines, line)
			if n > 0 && len(lines) > n {
				lines = lines[1:]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// followEvents prints matching lines appended to logFile until ctx ends.
func followEvents(ctx context.Context, w io.Writer, logFile string, filter eventFilter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(logFile); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of log file: %w", err)
	}
	reader := bufio.NewReader(file)

	// partial holds a line whose newline has not been written yet.
	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			for {
				chunk, err := reader.ReadString('\n')
				if err != nil {
					partial += chunk
					break
				}
				line := strings.TrimSuffix(partial+chunk, "\n")
				partial = ""
				if filter.match(line) {
					_, _ = fmt.Fprintln(w, line)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// extractTimestamp reads the time of a text ("[2006-01-02 15:04:05] ...")
// or JSON ({"time":"...",...}) log line. Zero when neither matches.
func extractTimestamp(line string) time.Time {
	const textLayout = "2006-01-02 15:04:05"
	if strings.HasPrefix(line, "[") && len(line) > len(textLayout)+1 {
		if t, err := time.ParseInLocation(textLayout, line[1:len(textLayout)+1], time.Local); err == nil {
			return t
		}
	}

	const timeKey = `"time":"`
	if idx := strings.Index(line, timeKey); idx >= 0 {
		rest := line[idx+len(timeKey):]
		if end := strings.IndexByte(rest, '"'); end > 0 {
			if t, err := time.Parse(time.RFC3339Nano, rest[:end]); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
