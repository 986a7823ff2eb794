package main

import (
	"fmt"

	"parttracker/config"
	"parttracker/store"
	"parttracker/tracking"
)

type commandContext struct {
	configPath *string
	cfg        *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	return cfg, nil
}

// withService opens the database for the duration of fn. Changes made here
// bypass the server's event bus, so a running server's progress cache may lag
// until its TTL expires.
func (c *commandContext) withService(fn func(cfg *config.Config, svc *tracking.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	db, err := store.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	svc := tracking.NewService(db, nil)
	svc.SetUnknownOperator(cfg.Tracking.UnknownOperator)
	return fn(cfg, svc)
}
