package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/config"
	"github.com/charlie0129/dispcal/pkg/display"
	"github.com/charlie0129/dispcal/pkg/gamma"
	"github.com/charlie0129/dispcal/pkg/version"
)

// bindOptional binds a JSON body and accepts an empty one.
func bindOptional(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *server) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(s.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func (s *server) getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (s *server) getStatus(c *gin.Context) {
	st := s.ctrl.Status()
	if next, running := s.scheduler.Status(); running {
		st.NextDriftCheck = next
	}
	c.IndentedJSON(http.StatusOK, st)
}

func (s *server) getArtifacts(c *gin.Context) {
	a := s.ctrl.Artifacts()
	if _, ok := c.GetQuery("export"); ok {
		c.IndentedJSON(http.StatusOK, a.Export())
		return
	}
	c.IndentedJSON(http.StatusOK, a)
}

func (s *server) getModel(c *gin.Context) {
	m := s.ctrl.Model()
	if m == nil {
		c.IndentedJSON(http.StatusNotFound, "no display model has been published")
		return
	}
	c.IndentedJSON(http.StatusOK, m)
}

func (s *server) setModel(c *gin.Context) {
	var m display.Model
	if err := c.BindJSON(&m); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if err := s.ctrl.SetModel(m, "api"); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, m)
}

// withConfigOptions ORs the configured defaults into the request options.
func (s *server) withConfigOptions(o calibration.Options) calibration.Options {
	o.ShowAlignmentPattern = o.ShowAlignmentPattern || s.conf.ShowAlignmentPattern()
	return o
}

func (s *server) startGamma(c *gin.Context) {
	var req calibration.GammaRequest
	if !bindOptional(c, &req) {
		return
	}
	if req.Variant != 0 && req.Variant != gamma.OneParameter && req.Variant != gamma.TwoParameter {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("unknown gamma variant %d", req.Variant))
		return
	}
	if req.Steps == 1 || req.Steps < 0 {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("steps must be at least 2, got %d", req.Steps))
		return
	}
	req.Options = s.withConfigOptions(req.Options)

	target, meter := s.hardware()
	if err := s.ctrl.StartGammaMeasurement(target, meter, req, nil); err != nil {
		abortWithError(c, statusForError(err), err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"channels": req.Channels,
		"steps":    req.Steps,
	}).Info("gamma measurement started")
	c.IndentedJSON(http.StatusAccepted, s.ctrl.Status())
}

func (s *server) startColorTable(c *gin.Context) {
	var req calibration.ColorTableRequest
	if !bindOptional(c, &req) {
		return
	}
	req.Options = s.withConfigOptions(req.Options)

	target, meter := s.hardware()
	if err := s.ctrl.StartColorTable(target, meter, req, nil); err != nil {
		abortWithError(c, statusForError(err), err)
		return
	}
	logrus.WithField("targets", len(req.Targets)).Info("color table search started")
	c.IndentedJSON(http.StatusAccepted, s.ctrl.Status())
}

func (s *server) startEvaluation(c *gin.Context) {
	var req calibration.EvaluationRequest
	if !bindOptional(c, &req) {
		return
	}
	req.Options = s.withConfigOptions(req.Options)

	target, meter := s.hardware()
	if err := s.ctrl.StartEvaluation(target, meter, req, nil); err != nil {
		abortWithError(c, statusForError(err), err)
		return
	}
	logrus.WithField("targets", len(req.Targets)).Info("evaluation started")
	c.IndentedJSON(http.StatusAccepted, s.ctrl.Status())
}

func (s *server) resume(c *gin.Context) {
	if err := s.ctrl.Resume(); err != nil {
		abortWithError(c, statusForError(err), err)
		return
	}
	c.IndentedJSON(http.StatusOK, s.ctrl.Status())
}

func (s *server) stop(c *gin.Context) {
	if err := s.ctrl.Stop(); err != nil {
		abortWithError(c, statusForError(err), err)
		return
	}
	c.IndentedJSON(http.StatusOK, s.ctrl.Status())
}

// streamEvents relays hub events as server-sent events until the client
// goes away.
func (s *server) streamEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *server) getSchedule(c *gin.Context) {
	runs, err := s.scheduledRuns()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, runs)
}

func (s *server) setSchedule(c *gin.Context) {
	var cronExpr string
	if err := c.BindJSON(&cronExpr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	runs, err := s.schedule(cronExpr)
	if err != nil {
		abortWithError(c, statusForError(err), err)
		return
	}
	c.IndentedJSON(http.StatusCreated, runs)
}

func (s *server) postponeSchedule(c *gin.Context) {
	var raw string
	if err := c.BindJSON(&raw); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.postpone(d); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	next, _ := s.scheduler.Status()
	c.IndentedJSON(http.StatusOK, next)
}

func (s *server) skipSchedule(c *gin.Context) {
	if err := s.skipNextSchedule(); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	next, _ := s.scheduler.Status()
	c.IndentedJSON(http.StatusOK, next)
}
