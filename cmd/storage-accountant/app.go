package main

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/config"
	"github.com/bignyap/studio-storage/database"
	logfactory "github.com/bignyap/studio-storage/logger/factory"
	"github.com/bignyap/studio-storage/logger/api"
	otelapi "github.com/bignyap/studio-storage/otel/api"
	otelfactory "github.com/bignyap/studio-storage/otel/factory"
	storagefactory "github.com/bignyap/studio-storage/storage/factory"
	"github.com/bignyap/studio-storage/store/postgres"
	"github.com/bignyap/studio-storage/store/sqlstore"
	"github.com/bignyap/studio-storage/tenant"
	"go.uber.org/multierr"
)

// relationalStore is implemented by both store backends.
type relationalStore interface {
	accounting.TenantDirectory
	accounting.Catalog
	accounting.SnapshotStore
	Migrate(ctx context.Context) error
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg       config.Config
	log       api.Logger
	telemetry otelapi.Provider
	conn      *database.Connection
	store     relationalStore
	tenants   accounting.TenantDirectory
	acct      *accounting.Accountant
}

// newApp connects the logger, telemetry and database. withAccountant also
// builds the blob store and the Accountant.
func newApp(ctx context.Context, cfg config.Config, withAccountant bool) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close(context.Background()))
		}
	}()

	a.log, err = logfactory.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if cfg.Otel.EnableTraces || cfg.Otel.EnableMetrics {
		a.telemetry, err = otelfactory.NewProvider(cfg.Otel)
		if err != nil {
			return nil, fmt.Errorf("failed to create telemetry provider: %w", err)
		}
	}

	a.conn, err = database.NewConnectionFromConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := a.conn.Connect(ctx); err != nil {
		return nil, err
	}

	clk := clock.New()
	if a.conn.Driver == database.PostgresDriver {
		a.store = postgres.New(a.conn.GetPgxPool(), clk, cfg.Accounting.DefaultQuotaBytes)
	} else {
		a.store, err = sqlstore.New(a.conn.GetSQLDB(), a.conn.Driver, clk, cfg.Accounting.DefaultQuotaBytes)
		if err != nil {
			return nil, err
		}
	}

	a.tenants = a.store
	if cfg.Tenant.Enabled() {
		a.tenants, err = tenant.NewDirectory(cfg.Tenant)
		if err != nil {
			return nil, err
		}
	}

	if !withAccountant {
		return a, nil
	}

	blobs, err := storagefactory.NewBlobStore(ctx, cfg.Storage, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}
	policy, err := cfg.Accounting.Policy()
	if err != nil {
		return nil, err
	}
	a.acct, err = accounting.NewAccountant(cfg.Accounting, policy, accounting.Deps{
		Tenants:   a.tenants,
		Catalog:   a.store,
		Blobs:     blobs,
		Snapshots: a.store,
		Logger:    a.log,
		Telemetry: a.telemetry,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) Close(ctx context.Context) error {
	var err error
	if a.conn != nil {
		err = multierr.Append(err, a.conn.Close())
	}
	return multierr.Append(err, otelfactory.Shutdown(ctx, a.telemetry))
}
