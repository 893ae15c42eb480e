package main

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"streamer/internal/config"
	"streamer/internal/jobs"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// serverURL prefers --server and otherwise derives a loopback URL from
// server.bind.
func (c *commandContext) serverURL() string {
	if c.serverFlag != nil {
		if value := strings.TrimRight(strings.TrimSpace(*c.serverFlag), "/"); value != "" {
			if !strings.Contains(value, "://") {
				value = "http://" + value
			}
			return value
		}
	}
	bind := config.Default().Server.Bind
	if cfg, err := c.ensureConfig(); err == nil && cfg.Server.Bind != "" {
		bind = cfg.Server.Bind
	}
	return "http://" + dialableAddress(bind)
}

func (c *commandContext) newClient() *apiClient {
	return newAPIClient(c.serverURL())
}

// withStore opens the job store for direct reads.
func (c *commandContext) withStore(fn func(*jobs.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func dialableAddress(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return bind
	}
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
