package daemon

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/controller"
	"github.com/charlie0129/dispcal/pkg/device"
	"github.com/charlie0129/dispcal/pkg/display"
)

// ginLogger logs each request through logrus.
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handler can change c.Path so:
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		stop := time.Since(start)
		latency := int(math.Ceil(float64(stop.Nanoseconds()) / 1000000.0))
		statusCode := c.Writer.Status()
		dataLength := c.Writer.Size()
		if dataLength < 0 {
			dataLength = 0
		}

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency, // time to process
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": dataLength,
		})

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		} else {
			msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, statusCode, latency)
			//nolint:gocritic
			if statusCode >= http.StatusInternalServerError {
				entry.Error(msg)
			} else if statusCode >= http.StatusBadRequest {
				entry.Warn(msg)
			} else {
				entry.Debug(msg)
			}
		}
	}
}

var errInvalidCron = errors.New("invalid cron expression")

// statusForError maps controller and device errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, controller.ErrTaskInProgress),
		errors.Is(err, controller.ErrNotWaiting),
		errors.Is(err, controller.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, controller.ErrNoDeviceModel):
		return http.StatusPreconditionFailed
	case errors.Is(err, device.ErrDeviceConnection):
		return http.StatusServiceUnavailable
	case errors.Is(err, controller.ErrNoTargets),
		errors.Is(err, controller.ErrUnknownChannel),
		errors.Is(err, display.ErrSingular),
		errors.Is(err, errInvalidCron):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, code int, err error) {
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}
