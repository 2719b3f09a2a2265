package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/jwalitptl/leukemia-dashboard/internal/client"
	"github.com/jwalitptl/leukemia-dashboard/internal/config"
	"github.com/jwalitptl/leukemia-dashboard/internal/service/auth"
	"github.com/jwalitptl/leukemia-dashboard/internal/service/detection"
	"github.com/jwalitptl/leukemia-dashboard/internal/service/identity"
	"github.com/jwalitptl/leukemia-dashboard/internal/service/patient"
	"github.com/jwalitptl/leukemia-dashboard/internal/session"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
	"github.com/jwalitptl/leukemia-dashboard/pkg/metrics"
	"github.com/jwalitptl/leukemia-dashboard/pkg/validator"
)

const envKey = "leukctl.env"

// env is everything a command needs, built once per invocation.
type env struct {
	cfg      *config.Config
	log      *logger.Logger
	store    session.Store
	closer   io.Closer
	api      *client.Client
	registry *prometheus.Registry

	identity  *identity.Service
	auth      *auth.Service
	patients  *patient.Service
	detection *detection.Service
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "leukctl",
		Usage:     "operate the leukemia imaging dashboard backend",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "directory holding config.yaml"},
			&cli.StringFlag{Name: "base-url", Usage: "backend base URL"},
			&cli.BoolFlag{Name: "strict", Usage: "fail locally when no session token is stored"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "metrics-file", Usage: "write client metrics in text format to this file on exit"},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			registerCommand(),
			whoamiCommand(),
			patientsCommand(),
			reportsCommand(),
			resultsCommand(),
			detectCommand(),
		},
	}
}

func setup(c *cli.Context) error {
	var paths []string
	if dir := c.String("config"); dir != "" {
		paths = append(paths, dir)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return err
	}
	if c.IsSet("base-url") {
		cfg.API.BaseURL = c.String("base-url")
	}
	if c.Bool("strict") {
		cfg.API.StrictAuth = true
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})

	store, closer, err := session.Open(c.Context, cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(cfg.Metrics.Namespace)
	if err := m.Register(registry); err != nil {
		closer.Close()
		return err
	}

	opts := []client.Option{client.WithLogger(log), client.WithMetrics(m)}
	if cfg.API.StrictAuth {
		opts = append(opts, client.WithStrictAuth())
	}
	api := client.New(client.Config{BaseURL: cfg.API.BaseURL, UserAgent: "leukctl"}, store, opts...)

	v := validator.New()
	resolver := identity.NewService(api, store, log)
	patients := patient.NewService(api, v, cfg.Cache.TTL, log)

	c.App.Metadata = map[string]interface{}{envKey: &env{
		cfg:       cfg,
		log:       log,
		store:     store,
		closer:    closer,
		api:       api,
		registry:  registry,
		identity:  resolver,
		auth:      auth.NewService(api, store, resolver, v, log),
		patients:  patients,
		detection: detection.NewService(api, log, detection.WithMetrics(m), detection.WithInvalidator(patients)),
	}}
	return nil
}

func teardown(c *cli.Context) error {
	e, ok := c.App.Metadata[envKey].(*env)
	if !ok {
		return nil
	}
	if path := c.String("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
			e.log.Warn(err, "failed to write metrics file", "path", path)
		}
	}
	return e.closer.Close()
}

func envFrom(c *cli.Context) *env {
	return c.App.Metadata[envKey].(*env)
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func intArg(c *cli.Context, i int, name string) (int, error) {
	s := c.Args().Get(i)
	if s == "" {
		return 0, fmt.Errorf("missing %s argument", name)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}
