package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/config"
	"github.com/charlie0129/dispcal/pkg/controller"
	"github.com/charlie0129/dispcal/pkg/device/sim"
	"github.com/charlie0129/dispcal/pkg/events"
)

// server owns the controller and the hardware it drives.
type server struct {
	conf      config.Config
	ctrl      *controller.Controller
	hub       *events.Hub
	scheduler *Scheduler

	mu     sync.Mutex
	target *sim.Target
	meter  *sim.Meter
}

func newServer(conf config.Config) *server {
	hub := events.NewHub()
	s := &server{
		conf: conf,
		hub:  hub,
		ctrl: controller.New(settingsFromConfig(conf), hub),
	}
	s.target, s.meter = newSimulator(conf.Simulator())
	s.scheduler = NewScheduler(Hooks{
		Run:      s.runDriftCheck,
		Ready:    s.driftPreCheck,
		Upcoming: s.onDriftUpcoming,
		Failed:   s.onDriftError,
	})
	return s
}

func setupRoutes(s *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/config", s.getConfig)
	router.GET("/version", s.getVersion)
	router.GET("/status", s.getStatus)
	router.GET("/artifacts", s.getArtifacts)
	router.GET("/model", s.getModel)
	router.PUT("/model", s.setModel)
	router.POST("/tasks/gamma", s.startGamma)
	router.POST("/tasks/color-table", s.startColorTable)
	router.POST("/tasks/evaluation", s.startEvaluation)
	router.POST("/resume", s.resume)
	router.POST("/stop", s.stop)
	router.GET("/events", s.streamEvents)
	router.GET("/schedule", s.getSchedule)
	router.PUT("/schedule", s.setSchedule)
	router.PUT("/schedule/postpone", s.postponeSchedule)
	router.POST("/schedule/skip", s.skipSchedule)

	return router
}

// reload re-reads the config and applies it to the controller, the
// simulator and the drift check schedule.
func (s *server) reload() error {
	if err := s.conf.Load(); err != nil {
		return err
	}
	s.ctrl.SetSettings(settingsFromConfig(s.conf))
	s.reloadHardware()
	return s.applySchedule()
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	s := newServer(conf)
	router := setupRoutes(s)

	if err := s.applySchedule(); err != nil {
		logrus.WithError(err).Error("failed to schedule drift checks")
	}

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			if err := s.reload(); err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler: router,
	}

	// A stale socket from an unclean shutdown would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to remove stale socket %s: %v", unixSocketPath, err)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	s.scheduler.Stop()

	if err := s.ctrl.Stop(); err == nil {
		logrus.Info("waiting for the running task to stop")
		out := s.ctrl.Wait()
		logrus.WithField("state", out.State).Info("task stopped")
	}

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	return nil
}
