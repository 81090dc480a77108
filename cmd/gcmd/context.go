package main

import (
	"strings"
	"sync"

	"gcm/internal/config"
	"gcm/internal/endpoint"
	"gcm/internal/identity"
)

type commandContext struct {
	flags *globalFlags

	resolve func() (identity.Identity, error)

	identityOnce sync.Once
	identity     identity.Identity
	identityErr  error

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags, resolve: identity.Resolve}
}

func (c *commandContext) ensureIdentity() (identity.Identity, error) {
	c.identityOnce.Do(func() {
		c.identity, c.identityErr = c.resolve()
	})
	return c.identity, c.identityErr
}

// appDir is the directory holding the socket, lock, pid, and log files.
func (c *commandContext) appDir() (string, error) {
	path, err := c.socketPath()
	if err != nil {
		return "", err
	}
	return path.Dir(), nil
}

func (c *commandContext) socketPath() (endpoint.Path, error) {
	if override := strings.TrimSpace(c.flags.socket); override != "" {
		if override == "~" || strings.HasPrefix(override, "~/") {
			expanded, err := config.ExpandPath(override)
			if err != nil {
				return "", err
			}
			override = expanded
		}
		return endpoint.Parse(override)
	}
	id, err := c.ensureIdentity()
	if err != nil {
		return "", err
	}
	return endpoint.Build(id)
}

// defaultConfigPath honours --config, then GCM_CONFIG, then <home>/.gcm.
func (c *commandContext) defaultConfigPath() (string, error) {
	if explicit := strings.TrimSpace(c.flags.config); explicit != "" {
		return explicit, nil
	}
	id, err := c.ensureIdentity()
	if err != nil {
		return "", err
	}
	return config.ResolvePath(endpoint.AppDir(id)), nil
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path, err := c.defaultConfigPath()
		if err != nil {
			c.configErr = err
			return
		}
		c.config, c.configPath, c.configSeen, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}
