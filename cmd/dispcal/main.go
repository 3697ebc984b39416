package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/dispcal/pkg/client"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/dispcal.sock"
	configPath     = "/etc/dispcal.json"
)

var apiClient = client.NewClient(unixSocketPath)

var (
	gBasic        = "Measurement:"
	gAdvanced     = "Advanced:"
	gOffline      = "Offline tools:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
		gOffline,
		gInstallation,
	}
	// extraCommands are registered by files behind build tags.
	extraCommands []func() *cobra.Command
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: dispcal daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Have you installed it?")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or reinstall the daemon with the '--allow-non-root-access' flag to grant permissions to your user")
	case errors.Is(err, client.ErrConflict):
		fmt.Fprintln(os.Stderr, "\nHint: run 'dispcal status' to see what the daemon is doing, or 'dispcal stop' to abort it.")
	case errors.Is(err, client.ErrPreconditionFailed):
		fmt.Fprintln(os.Stderr, "\nHint: run 'dispcal gamma' first to publish a display model.")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispcal",
		Short: "dispcal measures and calibrates displays with a colorimeter",
		Long: `dispcal measures and calibrates displays with a colorimeter.

A daemon owns the display and the meter. It fits per-channel gamma curves,
searches the device values that reproduce target colors and evaluates the
resulting display model. This command talks to it over a unix socket.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			if cmd.GroupID != gBasic && cmd.GroupID != gAdvanced {
				return nil
			}

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. Reinstall the daemon with this binary so both are the same version.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("dispcal daemon is too old to report its version.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "dispcal daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewGammaCommand(),
		NewTableCommand(),
		NewEvaluateCommand(),
		NewResumeCommand(),
		NewStopCommand(),
		NewStatusCommand(),
		NewResultsCommand(),
		NewModelCommand(),
		NewScheduleCommand(),
		NewFitCommand(),
		NewSpectrumCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)
	for _, newCmd := range extraCommands {
		cmd.AddCommand(newCmd())
	}

	return cmd
}
