// Command ztedge-demo wires the controller client, service table, and
// posture engine together behind the scheduler's single goroutine, the
// composition-root shape of the teacher's example/main.go generalized from
// an introspection-client demo to an edge-client-core one.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"go.uber.org/zap"

	"github.com/edgecore/ztedge/controller"
	"github.com/edgecore/ztedge/posture"
	"github.com/edgecore/ztedge/scheduler"
	"github.com/edgecore/ztedge/servicetable"
	"github.com/edgecore/ztedge/transport"
)

// runConfig is populated from the environment via caarlos0/env, the
// teacher's config-loading library.
type runConfig struct {
	ControllerURL string `env:"ZTEDGE_CONTROLLER_URL,required"`
	CertPath      string `env:"ZTEDGE_CERT_PATH,required"`
	KeyPath       string `env:"ZTEDGE_KEY_PATH,required"`
	CAPath        string `env:"ZTEDGE_CA_PATH,required"`
	PageSize      int    `env:"ZTEDGE_PAGE_SIZE" envDefault:"25"`
	TickSeconds   int    `env:"ZTEDGE_TICK_SECONDS" envDefault:"30"`
	Development   bool   `env:"ZTEDGE_DEV_LOGGING" envDefault:"false"`
	SeedFile      string `env:"ZTEDGE_SEED_FILE"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg runConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := buildLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	httpClient, err := transport.Build(transport.Config{
		CertPath: cfg.CertPath,
		KeyPath:  cfg.KeyPath,
		CAPath:   cfg.CAPath,
	})
	if err != nil {
		return fmt.Errorf("building transport: %w", err)
	}

	ctrl, err := controller.New(controller.Config{
		BaseURL:    cfg.ControllerURL,
		HTTPClient: httpClient,
		PageSize:   cfg.PageSize,
		Logger:     logger,
		RedirectObserver: func(newURL string) {
			logger.Info("controller redirected", zap.String("url", newURL))
		},
	})
	if err != nil {
		return fmt.Errorf("building controller: %w", err)
	}
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, verr := ctrl.Version(ctx); verr != nil {
		return fmt.Errorf("fetching controller version: %w", verr)
	}

	services := servicetable.New()
	if cfg.SeedFile != "" {
		n, serr := servicetable.LoadSeed(services, cfg.SeedFile)
		if serr != nil {
			return fmt.Errorf("loading seed catalog: %w", serr)
		}
		logger.Info("loaded seed catalog", zap.Int("services", n))
	}
	sched := scheduler.New(scheduler.Config{
		TickInterval: time.Duration(cfg.TickSeconds) * time.Second,
		Logger:       logger,
	})

	adapter := scheduler.NewControllerAdapter(ctrl)
	engine := posture.New(adapter, adapter, services, posture.Overrides{}, sched.DispatchProcess, logger)
	sched.AttachEngine(engine)

	sched.Start()
	defer sched.Stop()

	loginCtx, loginCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer loginCancel()
	if _, lerr := ctrl.Login(loginCtx, controller.LoginRequest{
		SDKInfo: controller.SDKInfo{Type: "ztedge-demo", Version: "0.1.0"},
		EnvInfo: controller.EnvInfo{Arch: "amd64", OS: "linux"},
	}); lerr != nil {
		return fmt.Errorf("initial login: %w", lerr)
	}

	logger.Info("ztedge-demo running", zap.Duration("posture_tick_interval", time.Duration(cfg.TickSeconds)*time.Second))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	return nil
}

func buildLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
