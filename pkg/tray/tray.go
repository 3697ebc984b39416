//go:build tray

package tray

import (
	"context"
	"time"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/client"
	"github.com/charlie0129/dispcal/pkg/events"
	"github.com/charlie0129/dispcal/pkg/version"
)

const pollInterval = 10 * time.Second

func NewCommand(unixSocketPath *string, groupID string) *cobra.Command {
	return &cobra.Command{
		Use:     "tray",
		Short:   "Show dispcal in the system tray",
		GroupID: groupID,
		Long: `Show the dispcal daemon state in the system tray.

The menu shows the running task and its progress, and can start a gamma
measurement, resume a waiting task or stop the running one.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			Run(*unixSocketPath)
		},
	}
}

// Run blocks until the tray icon is quit.
func Run(unixSocketPath string) {
	logrus.WithField("version", version.Version).WithField("gitCommit", version.GitCommit).Info("dispcal tray")
	ctrl := &menuController{api: client.NewClient(unixSocketPath)}
	systray.Run(ctrl.onReady, ctrl.onExit)
}

type menuController struct {
	api    *client.Client
	cancel context.CancelFunc

	mState    *systray.MenuItem
	mProgress *systray.MenuItem
	mLast     *systray.MenuItem
	mGamma    *systray.MenuItem
	mResume   *systray.MenuItem
	mStop     *systray.MenuItem
	mQuit     *systray.MenuItem
}

func (m *menuController) onReady() {
	systray.SetTitle("dispcal")
	systray.SetTooltip("dispcal - display calibration")

	m.mState = systray.AddMenuItem("State: connecting...", "Controller state")
	m.mState.Disable()
	m.mProgress = systray.AddMenuItem("Progress: -", "Progress of the running task")
	m.mProgress.Disable()
	m.mLast = systray.AddMenuItem("Last task: -", "Outcome of the last task")
	m.mLast.Disable()

	systray.AddSeparator()

	m.mGamma = systray.AddMenuItem("Measure gamma", "Measure all channels and publish a display model")
	m.mResume = systray.AddMenuItem("Resume", "Start the task waiting for a start signal")
	m.mStop = systray.AddMenuItem("Stop", "Stop the running task")

	systray.AddSeparator()
	m.mQuit = systray.AddMenuItem("Quit", "Quit the tray icon")

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go m.handleClicks(ctx)
	go m.eventBridge(ctx)

	m.refresh()
}

func (m *menuController) onExit() {
	if m.cancel != nil {
		m.cancel()
	}
	logrus.Info("dispcal tray exiting")
}

func (m *menuController) handleClicks(ctx context.Context) {
	for {
		var err error
		select {
		case <-m.mGamma.ClickedCh:
			_, err = m.api.StartGamma(calibration.GammaRequest{})
		case <-m.mResume.ClickedCh:
			_, err = m.api.Resume()
		case <-m.mStop.ClickedCh:
			_, err = m.api.Stop()
		case <-m.mQuit.ClickedCh:
			systray.Quit()
			return
		case <-ctx.Done():
			return
		}
		if err != nil {
			logrus.WithError(err).Error("tray action failed")
		}
		m.refresh()
	}
}

// eventBridge refreshes the menu on task events and reconnects while the
// daemon is unreachable.
func (m *menuController) eventBridge(ctx context.Context) {
	for ctx.Err() == nil {
		ch, err := m.api.SubscribeEvents(ctx)
		if err != nil {
			logrus.WithError(err).Debug("cannot subscribe to daemon events")
			m.refresh()
			select {
			case <-time.After(pollInterval):
			case <-ctx.Done():
			}
			continue
		}
		for ev := range ch {
			logrus.WithFields(logrus.Fields{
				"event": ev.Name,
				"data":  string(ev.Data),
			}).Debug("new event")
			switch ev.Name {
			case events.TaskProgress:
				if p, err := events.DecodeAs[events.TaskProgressEvent](ev); err == nil {
					m.mProgress.SetTitle(progressText(p.Percent))
				}
			case events.TaskState, events.ModelUpdate, events.DriftCheck:
				m.refresh()
			}
		}
	}
}

func (m *menuController) refresh() {
	st, err := m.api.GetStatus()
	if err != nil {
		systray.SetTitle("dispcal: offline")
		m.mState.SetTitle("State: disconnected")
		m.mProgress.SetTitle(progressText(-1))
		m.mGamma.Disable()
		m.mResume.Disable()
		m.mStop.Disable()
		logrus.WithError(err).Debug("cannot connect to daemon")
		return
	}

	v := viewOf(st)
	systray.SetTitle(v.title)
	m.mState.SetTitle(v.state)
	m.mProgress.SetTitle(v.progress)
	m.mLast.SetTitle(v.last)
	setEnabled(m.mGamma, v.canStart)
	setEnabled(m.mResume, st.CanResume)
	setEnabled(m.mStop, st.CanStop)
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}
