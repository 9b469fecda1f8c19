package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hostnetbr/userstats/descriptor"
	"github.com/hostnetbr/userstats/exporter"
	"github.com/hostnetbr/userstats/exporter/influx"
	"github.com/hostnetbr/userstats/exporter/sqlscript"
	"github.com/hostnetbr/userstats/loader"
	"github.com/hostnetbr/userstats/userstats"
)

const connectTimeout = 5 * time.Second

type source struct {
	node    userstats.NodeKind
	dir     string
	history string
}

func sources(cfg Config) []source {
	return []source{
		{
			node:    userstats.Relay,
			dir:     filepath.Join(cfg.InDir, "relay-descriptors"),
			history: filepath.Join(cfg.StatusDir, "relay-descriptors"),
		},
		{
			node:    userstats.Bridge,
			dir:     filepath.Join(cfg.InDir, "bridge-descriptors"),
			history: filepath.Join(cfg.StatusDir, "bridge-descriptors"),
		},
	}
}

// importOnce runs a single pass over all descriptors not imported yet and
// returns the scripts written.
func importOnce(cfg Config) ([]string, error) {
	if cfg.Postgres != nil {
		pending, err := pendingScripts(cfg.OutDir)
		if err != nil {
			return nil, err
		}
		if len(pending) > 0 {
			slog.Warn("loading scripts left by an earlier pass", "files", len(pending))
			if err := loadScripts(cfg.Postgres.DSN, pending); err != nil {
				return nil, err
			}
		}
	}

	bulk, err := descriptor.IsBulkImport(cfg.InDir)
	if err != nil {
		return nil, err
	}
	slog.Info("starting import", "bulk", bulk)

	scripts := sqlscript.NewMultiplexer(cfg.OutDir, bulk)
	var ex exporter.Interface = scripts
	if cfg.InfluxDB != nil {
		ex = exporter.Multi{scripts, influx.NewExporter(*cfg.InfluxDB)}
	}

	histories, err := exportAll(cfg, ex)
	if err != nil {
		return nil, err
	}
	for _, h := range histories {
		if err := h.Save(); err != nil {
			return nil, fmt.Errorf("error saving import history: %w", err)
		}
	}
	for name, rows := range scripts.Rows() {
		slog.Info("wrote script", "file", name, "rows", rows)
	}

	files := scripts.Files()
	if cfg.Postgres != nil {
		if err := loadScripts(cfg.Postgres.DSN, files); err != nil {
			return files, err
		}
	}
	return files, nil
}

// exportAll exports the rows of every source and completes ex. On failure
// ex is aborted instead, so no partial output is finalized.
func exportAll(cfg Config, ex exporter.Interface) ([]*descriptor.History, error) {
	var histories []*descriptor.History
	for _, src := range sources(cfg) {
		h, err := importDir(src, ex)
		if err != nil {
			return nil, errors.Join(err, ex.Abort())
		}
		histories = append(histories, h)
	}
	if err := ex.Close(); err != nil {
		return nil, err
	}
	return histories, nil
}

func importDir(src source, ex exporter.Interface) (*descriptor.History, error) {
	h, err := descriptor.LoadHistory(src.history)
	if err != nil {
		return nil, err
	}

	r := descriptor.Reader{Exclude: h}
	err = r.Walk(src.dir, func(file string, d descriptor.Descriptor) error {
		rows, err := userstats.Extract(src.node, d)
		if err != nil {
			if !errors.Is(err, userstats.ErrMultipleDayBoundaries) {
				return err
			}
			slog.Warn("skipping statistics", "file", file, "error", err)
		}
		for _, o := range rows {
			if err := ex.Export(o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error importing %s: %w", src.dir, err)
	}
	return h, nil
}

// pendingScripts returns the scripts in dir that were never loaded.
func pendingScripts(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "userstats*.sql"))
	if err != nil {
		return nil, fmt.Errorf("error listing scripts: %w", err)
	}
	return files, nil
}

func loadScripts(dsn string, files []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	l, err := loader.Connect(ctx, dsn)
	cancel()
	if err != nil {
		return err
	}
	defer l.Close(context.Background())

	for _, file := range files {
		if err := l.LoadFile(context.Background(), file); err != nil {
			return err
		}
		slog.Info("loaded script", "file", file)
	}
	return nil
}
