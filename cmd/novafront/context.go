package main

import (
	"strings"
	"sync"

	"novafront/config"
)

const defaultConfigPath = "cache/settings.json"

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	settings   config.Settings
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) manager() *config.Manager {
	path := defaultConfigPath
	if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
		path = strings.TrimSpace(*c.configFlag)
	}
	return config.NewManager(path)
}

func (c *commandContext) ensureSettings() (config.Settings, error) {
	c.configOnce.Do(func() {
		c.settings, c.configErr = c.manager().Load()
	})
	return c.settings, c.configErr
}
