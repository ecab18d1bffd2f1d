package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ceros-embed/ceros-embed/internal/cma"
	"github.com/ceros-embed/ceros-embed/internal/config"
	"github.com/ceros-embed/ceros-embed/internal/configscreen"
	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
	"github.com/ceros-embed/ceros-embed/internal/host"
	"github.com/ceros-embed/ceros-embed/internal/oembed"
	"github.com/ceros-embed/ceros-embed/internal/provision"
	"github.com/ceros-embed/ceros-embed/internal/secrets"
)

// app holds the dependencies shared by every command that talks to the management API.
type app struct {
	cfg          config.Config
	cma          *cma.Client
	fetcher      *oembed.Client
	installation *host.Installation
	types        *host.ContentTypes
	screen       *configscreen.Screen
	entries      host.Entries
}

func newFetcher(cfg config.Config) (*oembed.Client, error) {
	fetcher, err := oembed.New(cfg.OEmbedEndpoint, cfg.OEmbedAllowedHosts)
	if err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout > 0 {
		fetcher.HTTP.Timeout = cfg.HTTPTimeout
	}
	return fetcher, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	token, err := secrets.ResolveCMAToken(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := cma.New(cma.Options{
		BaseURL:       cfg.CMABaseURL,
		Token:         token,
		SpaceID:       cfg.SpaceID,
		EnvironmentID: cfg.EnvironmentID,
		RateLimit:     cfg.CMARateLimit,
		Timeout:       cfg.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("management api client: %w", err)
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}

	def := fieldmap.NewDefaultContentType(cfg.DefaultContentTypeID)
	prov, err := provision.New(client, cfg.AppID, def, logger)
	if err != nil {
		return nil, err
	}
	installation, err := host.NewInstallation(client, cfg.AppID)
	if err != nil {
		return nil, err
	}
	types, err := host.NewContentTypes(client)
	if err != nil {
		return nil, err
	}
	screen, err := configscreen.New(installation, types, prov, def, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:          cfg,
		cma:          client,
		fetcher:      fetcher,
		installation: installation,
		types:        types,
		screen:       screen,
		entries:      host.Entries{API: client, Locale: cfg.Locale},
	}, nil
}
