// Package tray shows the daemon's state in the system tray and offers the
// common task controls. The tray itself is built with the "tray" tag since it
// needs cgo and the platform's tray libraries.
package tray

import (
	"fmt"

	"github.com/charlie0129/dispcal/pkg/calibration"
)

// menuView is the text shown for a controller status.
type menuView struct {
	title    string
	state    string
	progress string
	last     string
	canStart bool
}

func viewOf(st *calibration.Status) menuView {
	v := menuView{
		title:    "dispcal",
		state:    fmt.Sprintf("State: %s", st.State),
		progress: progressText(-1),
		last:     "Last task: -",
		canStart: !st.State.Busy(),
	}
	if st.State.Busy() {
		v.title = fmt.Sprintf("dispcal: %s %d%%", st.Task, st.Progress)
		v.state = fmt.Sprintf("State: %s (%s)", st.State, st.Task)
		v.progress = progressText(st.Progress)
	}
	if st.Last != nil {
		v.last = fmt.Sprintf("Last task: %s %s", st.Last.Task, st.Last.State)
		if st.Last.State == calibration.StateFailed && !st.State.Busy() {
			v.title = "dispcal: failed"
		}
	}
	return v
}

func progressText(percent int) string {
	if percent < 0 {
		return "Progress: -"
	}
	return fmt.Sprintf("Progress: %d%%", percent)
}
