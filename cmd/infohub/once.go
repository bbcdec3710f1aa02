package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kjstillabower/infohub/internal/config"
	"github.com/kjstillabower/infohub/internal/dashboard"
	"github.com/kjstillabower/infohub/internal/location"
)

// runOnce mounts every widget on a throwaway dashboard, waits for them to
// settle and writes the resulting view to w. Without a configured location
// the weather widget reports geolocation as unsupported.
func runOnce(ctx context.Context, gw dashboard.Gateway, cfg *config.Config, logger *zap.Logger, w io.Writer) error {
	loc := newLocator(cfg)
	if loc == nil {
		loc = location.Unavailable{}
	}
	d, err := dashboard.New(gw, dashboard.Options{
		Locator:   loc,
		Principal: cfg.DefaultPrincipal,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.MountAll(ctx); err != nil {
		return err
	}
	if err := d.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for widgets: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d.View())
}
