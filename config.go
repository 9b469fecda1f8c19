package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hostnetbr/userstats/exporter/influx"
	yaml "gopkg.in/yaml.v2"
)

type Config struct {
	InDir     string          `yaml:"in_dir"`
	OutDir    string          `yaml:"out_dir"`
	StatusDir string          `yaml:"status_dir"`
	Debug     bool            `yaml:"debug"`
	Watch     bool            `yaml:"watch"`
	Postgres  *PostgresConfig `yaml:"postgres"`
	InfluxDB  *influx.Config  `yaml:"influxdb"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

func defaultConfig() Config {
	return Config{
		InDir:     "in",
		OutDir:    "out",
		StatusDir: "status",
	}
}

// parseConfig reads the config file at path on top of the defaults. A
// missing file leaves the defaults in place.
func parseConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.InDir == "" || cfg.OutDir == "" || cfg.StatusDir == "" {
		return Config{}, fmt.Errorf("in_dir, out_dir and status_dir must not be empty")
	}

	if cfg.Postgres != nil && cfg.Postgres.DSN == "" {
		return Config{}, fmt.Errorf("postgres dsn empty")
	}

	// Every pass rewrites the scripts in out_dir, so repeated passes need
	// each one loaded before the next starts.
	if cfg.Watch && cfg.Postgres == nil {
		return Config{}, fmt.Errorf("watch requires postgres")
	}

	if cfg.InfluxDB != nil {
		if cfg.InfluxDB.URL == "" {
			return Config{}, fmt.Errorf("influxdb url empty")
		}
		if cfg.InfluxDB.User == "" || cfg.InfluxDB.Pass == "" || cfg.InfluxDB.Database == "" {
			return Config{}, fmt.Errorf("not enough authentication credentials for influxdb")
		}
		if cfg.InfluxDB.Hostname == "" {
			if cfg.InfluxDB.Hostname, err = os.Hostname(); err != nil {
				return Config{}, fmt.Errorf("error parsing hostname: %w", err)
			}
		}
	}

	return cfg, nil
}
