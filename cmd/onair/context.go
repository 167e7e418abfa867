package main

import (
	"strings"
	"sync"

	"github.com/llehouerou/onair/internal/client"
	"github.com/llehouerou/onair/internal/config"
)

type commandContext struct {
	configFlag *string
	addrFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, addrFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		addrFlag:   addrFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path != "" {
			c.config, c.configErr = config.LoadFile(path)
			return
		}
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) addr() string {
	if c.addrFlag != nil {
		if a := strings.TrimSpace(*c.addrFlag); a != "" {
			return a
		}
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.Listen
	}
	return config.DefaultListen
}

func (c *commandContext) withClient(fn func(*client.Client) error) error {
	cl, err := client.New(c.addr())
	if err != nil {
		return err
	}
	return fn(cl)
}
