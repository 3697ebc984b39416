//go:build tray

package main

import (
	"github.com/spf13/cobra"

	"github.com/charlie0129/dispcal/pkg/tray"
)

func init() {
	extraCommands = append(extraCommands, func() *cobra.Command {
		return tray.NewCommand(&unixSocketPath, gAdvanced)
	})
}
