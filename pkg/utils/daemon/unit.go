package daemon

import (
	"fmt"
	"strings"
)

var (
	unitName = "dispcal.service"
	unitPath = "/etc/systemd/system/" + unitName
)

const unitTemplate = `[Unit]
Description=dispcal display calibration daemon
After=network.target

[Service]
Type=simple
ExecStart=/path/to/dispcal daemon --config=/path/to/config --daemon-socket=/path/to/socket
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure

[Install]
WantedBy=multi-user.target
`

// RenderUnit fills the unit template with the executable, config and socket
// paths the daemon should run with.
func RenderUnit(exePath, configPath, socketPath string) (string, error) {
	for _, p := range []string{exePath, configPath, socketPath} {
		if p == "" || strings.ContainsAny(p, " \n") {
			return "", fmt.Errorf("invalid path %q", p)
		}
	}
	r := strings.NewReplacer(
		"/path/to/dispcal", exePath,
		"/path/to/config", configPath,
		"/path/to/socket", socketPath,
	)
	return r.Replace(unitTemplate), nil
}
