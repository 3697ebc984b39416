package client

import (
	"encoding/json"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/config"
	"github.com/charlie0129/dispcal/pkg/display"
)

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// startTask posts req to path and decodes the returned status.
func (c *Client) startTask(path string, req any) (*calibration.Status, error) {
	payload, err := marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to marshal request")
	}
	ret, err := c.Post(path, payload)
	if err != nil {
		return nil, err
	}
	var st calibration.Status
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal status")
	}
	return &st, nil
}

func (c *Client) StartGamma(req calibration.GammaRequest) (*calibration.Status, error) {
	st, err := c.startTask("/tasks/gamma", req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to start gamma measurement")
	}
	return st, nil
}

func (c *Client) StartColorTable(req calibration.ColorTableRequest) (*calibration.Status, error) {
	st, err := c.startTask("/tasks/color-table", req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to start color table search")
	}
	return st, nil
}

func (c *Client) StartEvaluation(req calibration.EvaluationRequest) (*calibration.Status, error) {
	st, err := c.startTask("/tasks/evaluation", req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to start evaluation")
	}
	return st, nil
}

func (c *Client) Resume() (string, error) {
	return c.Post("/resume", "")
}

func (c *Client) Stop() (string, error) {
	return c.Post("/stop", "")
}

func (c *Client) GetStatus() (*calibration.Status, error) {
	ret, err := c.Get("/status")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get status")
	}

	var st calibration.Status
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal status")
	}
	return &st, nil
}

func (c *Client) GetArtifacts() (*calibration.Artifacts, error) {
	ret, err := c.Get("/artifacts")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get artifacts")
	}

	var a calibration.Artifacts
	if err := json.Unmarshal([]byte(ret), &a); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal artifacts")
	}
	return &a, nil
}

// GetExport returns the color table and evaluation results as flat rows.
func (c *Client) GetExport() (*calibration.Export, error) {
	ret, err := c.Get("/artifacts?export")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get export")
	}

	var ex calibration.Export
	if err := json.Unmarshal([]byte(ret), &ex); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal export")
	}
	return &ex, nil
}

func (c *Client) GetModel() (*display.Model, error) {
	ret, err := c.Get("/model")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get display model")
	}

	var m display.Model
	if err := json.Unmarshal([]byte(ret), &m); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal display model")
	}
	return &m, nil
}

func (c *Client) SetModel(m display.Model) (string, error) {
	payload, err := marshal(m)
	if err != nil {
		return "", err
	}
	return c.Put("/model", payload)
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}

// ===== Drift check schedule APIs =====

func parseRuns(ret string) ([]time.Time, error) {
	var runs []time.Time
	if err := json.Unmarshal([]byte(ret), &runs); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal next runs")
	}
	return runs, nil
}

// Schedule sets the drift check cron expression and returns the next run
// times. An empty expression disables drift checks.
func (c *Client) Schedule(cronExpr string) ([]time.Time, error) {
	payload, err := marshal(cronExpr)
	if err != nil {
		return nil, err
	}
	ret, err := c.Put("/schedule", payload)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set schedule")
	}
	return parseRuns(ret)
}

// GetSchedule returns the next drift check run times, empty when disabled.
func (c *Client) GetSchedule() ([]time.Time, error) {
	ret, err := c.Get("/schedule")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get schedule")
	}
	return parseRuns(ret)
}

func (c *Client) PostponeSchedule(d time.Duration) (string, error) {
	payload, err := marshal(d.String())
	if err != nil {
		return "", err
	}
	return c.Put("/schedule/postpone", payload)
}

func (c *Client) SkipSchedule() (string, error) {
	return c.Post("/schedule/skip", "")
}
