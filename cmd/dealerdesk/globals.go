package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dealerdesk/dealerdesk.go"
	"github.com/dealerdesk/dealerdesk.go/internal/rand"
	"github.com/dealerdesk/dealerdesk.go/pkg/config"
	"github.com/dealerdesk/dealerdesk.go/pkg/resources"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config     string        `help:"Config file, dealerdesk.yaml in the working or XDG config directory by default." type:"existingfile" short:"c"`
	Env        []string      `help:"Dotenv files loaded before the config." default:".env"`
	BaseURL    string        `help:"API base URL." name:"base-url"`
	APIPattern string        `help:"API path prefix." name:"api-pattern"`
	Store      string        `help:"Session store: memory, file or badger."`
	LogLevel   string        `help:"Log level."`
	Resources  string        `help:"Resource declarations." default:"resources.yaml" short:"r"`
	JSON       bool          `help:"Print JSON instead of tables."`
	Timeout    time.Duration `help:"Overall command timeout." default:"1m"`

	out io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

func (g *Globals) loadEnv() error {
	for _, file := range g.Env {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func (g *Globals) config() (*config.Config, error) {
	if err := g.loadEnv(); err != nil {
		return nil, err
	}
	overrides := map[string]any{}
	for key, val := range map[string]string{
		"base_url":      g.BaseURL,
		"api_pattern":   g.APIPattern,
		"session_store": g.Store,
		"log_level":     g.LogLevel,
	} {
		if val != "" {
			overrides[key] = val
		}
	}
	opts := []config.Option{config.WithOverrides(overrides)}
	if g.Config != "" {
		opts = append(opts, config.WithFile(g.Config))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.LogFormat == config.FormatJSON {
		cfg.LogFormat = config.FormatConsole
	}
	return cfg, nil
}

// client opens the API client. The returned context carries the command timeout.
func (g *Globals) client() (context.Context, *dealerdesk.Client, func(), error) {
	cfg, err := g.config()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	c, err := dealerdesk.New(ctx, cfg, dealerdesk.WithLogger(cfg.NewLogger(os.Stderr)))
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return ctx, c, func() {
		_ = c.Close()
		cancel()
	}, nil
}

func (g *Globals) registry() (*resources.Registry, error) {
	data, err := os.ReadFile(g.Resources)
	if err != nil {
		return nil, fmt.Errorf("read resources: %w", err)
	}
	return resources.LoadYAML(data)
}

// requestOptions tag every request of one command with the same correlation id.
func requestOptions() []transport.Option {
	return []transport.Option{transport.WithHeader("X-Correlation-ID", rand.NewULID(time.Now()).String())}
}
