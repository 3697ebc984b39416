package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/device"
	"github.com/charlie0129/dispcal/pkg/events"
	"github.com/charlie0129/dispcal/pkg/version"
)

func getVersion() (clientVersion, daemonVersion string, err error) {
	daemonVersion, err = apiClient.GetVersion()
	if err != nil {
		return "", "", err
	}
	return version.Version, daemonVersion, nil
}

// readJSON decodes the JSON file at path into v. "-" reads stdin.
func readJSON(path string, v any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// parseTriple parses "a,b,c" into three numbers.
func parseTriple(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected three comma separated numbers, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("invalid number %q: %v", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseChannels accepts channel names (r, green, ...) or codes.
func parseChannels(args []string) ([]int, error) {
	var out []int
	for _, a := range args {
		switch strings.ToLower(strings.TrimSpace(a)) {
		case "r", "red":
			out = append(out, device.Red)
		case "g", "green":
			out = append(out, device.Green)
		case "b", "blue":
			out = append(out, device.Blue)
		default:
			v, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("invalid channel %q", a)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// startTask starts a task through start and, when watch is set, follows its
// events until it finishes. The subscription is opened first so no event is
// missed.
func startTask(cmd *cobra.Command, watch bool, start func() (*calibration.Status, error)) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	var ch <-chan events.Event
	if watch {
		var err error
		ch, err = apiClient.SubscribeEvents(ctx)
		if err != nil {
			return err
		}
	}

	st, err := start()
	if err != nil {
		return err
	}
	cmd.Printf("%s started (%s).\n", bold("%s", st.Task), st.State)
	if st.State == calibration.StateWaitingForStart {
		cmd.Println("Position the meter, then run 'dispcal resume'.")
	}
	if !watch {
		return nil
	}
	return watchTask(cmd, ch)
}

func watchTask(cmd *cobra.Command, ch <-chan events.Event) error {
	for ev := range ch {
		switch ev.Name {
		case events.TaskProgress:
			p, err := events.DecodeAs[events.TaskProgressEvent](ev)
			if err != nil {
				continue
			}
			cmd.Printf("  progress: %s\n", bold("%3d%%", p.Percent))
		case events.TaskState:
			p, err := events.DecodeAs[events.TaskStateEvent](ev)
			if err != nil {
				continue
			}
			if p.To == string(calibration.StateIdle) {
				return printOutcome(cmd)
			}
			cmd.Printf("  %s -> %s\n", p.From, stateText(calibration.State(p.To)))
		case events.ModelUpdate:
			cmd.Println("  display model published")
		}
	}
	cmd.Println("Stopped watching. The task keeps running in the daemon.")
	return nil
}

func printOutcome(cmd *cobra.Command) error {
	st, err := apiClient.GetStatus()
	if err != nil {
		return err
	}
	if st.Last == nil {
		return nil
	}
	cmd.Printf("%s %s after %s.\n", st.Last.Task, stateText(st.Last.State),
		st.Last.FinishedAt.Sub(st.Last.StartedAt).Round(time.Millisecond))
	if st.Last.Error != "" {
		return fmt.Errorf("%s", st.Last.Error)
	}
	return nil
}

func stateText(s calibration.State) string {
	switch s {
	case calibration.StateCompleted:
		return color.New(color.Bold, color.FgGreen).Sprint(s)
	case calibration.StateFailed:
		return color.New(color.Bold, color.FgRed).Sprint(s)
	case calibration.StateStopped, calibration.StateWaitingForStart:
		return color.New(color.Bold, color.FgYellow).Sprint(s)
	}
	return bold("%s", s)
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
