package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/events"
)

func newUnixServer(t *testing.T, h http.Handler) *Client {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "d.sock")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := httptest.NewUnstartedServer(h)
	_ = srv.Listener.Close()
	srv.Listener = l
	srv.Start()
	t.Cleanup(srv.Close)
	return NewClient(sock)
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	return gin.New()
}

func TestSendMapsStatusCodes(t *testing.T) {
	r := newRouter()
	r.GET("/code/:code", func(c *gin.Context) {
		switch c.Param("code") {
		case "404":
			c.IndentedJSON(http.StatusNotFound, "no display model has been published")
		case "409":
			c.IndentedJSON(http.StatusConflict, "a measurement task is already in progress")
		case "412":
			c.IndentedJSON(http.StatusPreconditionFailed, "no display model")
		default:
			c.IndentedJSON(http.StatusInternalServerError, "boom")
		}
	})
	cl := newUnixServer(t, r)

	tests := []struct {
		code string
		want error
	}{
		{"404", ErrNotFound},
		{"409", ErrConflict},
		{"412", ErrPreconditionFailed},
	}
	for _, tt := range tests {
		_, err := cl.Get("/code/" + tt.code)
		if !errors.Is(err, tt.want) {
			t.Errorf("GET /code/%s = %v, want %v", tt.code, err, tt.want)
		}
	}

	_, err := cl.Get("/code/500")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("GET /code/500 = %v, want the daemon message", err)
	}
	if strings.Contains(err.Error(), `"boom"`) {
		t.Fatalf("message should be unquoted: %v", err)
	}
}

func TestStartGammaSendsRequest(t *testing.T) {
	var got calibration.GammaRequest
	r := newRouter()
	r.POST("/tasks/gamma", func(c *gin.Context) {
		if err := c.ShouldBindJSON(&got); err != nil {
			c.IndentedJSON(http.StatusBadRequest, err.Error())
			return
		}
		c.IndentedJSON(http.StatusAccepted, calibration.Status{State: calibration.StateConnecting, Task: calibration.TaskGammaParameters})
	})
	cl := newUnixServer(t, r)

	st, err := cl.StartGamma(calibration.GammaRequest{Channels: []int{1}, Steps: 8})
	if err != nil {
		t.Fatalf("StartGamma: %v", err)
	}
	if st.Task != calibration.TaskGammaParameters || st.State != calibration.StateConnecting {
		t.Fatalf("status = %+v", st)
	}
	if len(got.Channels) != 1 || got.Channels[0] != 1 || got.Steps != 8 {
		t.Fatalf("daemon received %+v", got)
	}
}

func TestVersionAndSchedule(t *testing.T) {
	runs := []time.Time{time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)}
	var cron string
	r := newRouter()
	r.GET("/version", func(c *gin.Context) { c.IndentedJSON(http.StatusOK, "v1.2.3") })
	r.PUT("/schedule", func(c *gin.Context) {
		if err := c.BindJSON(&cron); err != nil {
			return
		}
		c.IndentedJSON(http.StatusCreated, runs)
	})
	cl := newUnixServer(t, r)

	v, err := cl.GetVersion()
	if err != nil || v != "v1.2.3" {
		t.Fatalf("GetVersion = %q, %v", v, err)
	}

	next, err := cl.Schedule("0 3 * * *")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if cron != "0 3 * * *" {
		t.Fatalf("daemon received %q", cron)
	}
	if len(next) != 1 || !next[0].Equal(runs[0]) {
		t.Fatalf("next runs = %v", next)
	}
}

func TestReadEvents(t *testing.T) {
	stream := "event:task.state\ndata:{\"task\":\"GammaParameters\"}\n\n" +
		": comment\n\n" +
		"event: task.progress\ndata: {\"percent\":50}\n\n"
	ch := make(chan events.Event, 4)
	readEvents(context.Background(), strings.NewReader(stream), ch)
	close(ch)

	var got []events.Event
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Name != events.TaskState || got[1].Name != events.TaskProgress {
		t.Fatalf("names = %q, %q", got[0].Name, got[1].Name)
	}
	p, err := events.DecodeAs[events.TaskProgressEvent](got[1])
	if err != nil || p.Percent != 50 {
		t.Fatalf("progress = %+v, %v", p, err)
	}
}

func TestSubscribeEvents(t *testing.T) {
	hub := events.NewHub()
	r := newRouter()
	r.GET("/events", func(c *gin.Context) {
		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)
		c.Header("Content-Type", "text/event-stream")
		c.Status(http.StatusOK)
		c.Writer.Flush()
		for {
			select {
			case ev := <-ch:
				c.SSEvent(ev.Name, string(ev.Data))
				c.Writer.Flush()
			case <-c.Request.Context().Done():
				return
			}
		}
	})
	cl := newUnixServer(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := cl.SubscribeEvents(ctx)
	if err != nil {
		t.Fatalf("SubscribeEvents: %v", err)
	}

	hub.Publish(events.ModelUpdate, events.ModelUpdateEvent{Source: "gamma", Ts: 1})

	select {
	case ev := <-ch:
		p, err := events.DecodeAs[events.ModelUpdateEvent](ev)
		if ev.Name != events.ModelUpdate || err != nil || p.Source != "gamma" {
			t.Fatalf("event = %+v (%v)", ev, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no event received")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// Drain a late event, the channel must still close.
			for range ch {
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}
