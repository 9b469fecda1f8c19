package influx

import (
	"context"
	"fmt"
	"time"

	"github.com/hostnetbr/userstats/userstats"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	measurement      = "userstats"
	defaultBatchSize = 5000
)

type Config struct {
	URL             string `yaml:"url"`
	User            string `yaml:"user"`
	Pass            string `yaml:"password"`
	Database        string `yaml:"database"`
	RetentionPolicy string `yaml:"retention_policy"`
	LogLevel        uint   `yaml:"log_level"`
	Hostname        string `yaml:"hostname"`
	BatchSize       int    `yaml:"batch_size"`
}

// Exporter mirrors observation rows into InfluxDB, writing them in
// batches of Config.BatchSize points.
type Exporter struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	config Config
	batch  []*write.Point
}

func NewExporter(config Config) *Exporter {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}
	options := influxdb2.DefaultOptions()
	options.SetLogLevel(config.LogLevel)
	client := influxdb2.NewClientWithOptions(config.URL, fmt.Sprintf("%s:%s", config.User, config.Pass), options)
	writeAPI := client.WriteAPIBlocking("", fmt.Sprintf("%s/%s", config.Database, config.RetentionPolicy))
	return &Exporter{client: client, write: writeAPI, config: config}
}

func (e *Exporter) Export(o userstats.Observation) error {
	if !o.Valid() {
		return nil
	}
	e.batch = append(e.batch, observationToPoint(o, e.config.Hostname))
	if len(e.batch) >= e.config.BatchSize {
		return e.flush()
	}
	return nil
}

func (e *Exporter) flush() error {
	if len(e.batch) == 0 {
		return nil
	}
	err := e.write.WritePoint(context.Background(), e.batch...)
	e.batch = e.batch[:0]
	if err != nil {
		return fmt.Errorf("error writing to influxdb: %w", err)
	}
	return nil
}

func (e *Exporter) Close() error {
	err := e.flush()
	e.client.Close()
	return err
}

// Abort discards unwritten points.
func (e *Exporter) Abort() error {
	e.batch = nil
	e.client.Close()
	return nil
}

func observationToPoint(o userstats.Observation, host string) *write.Point {
	tags := map[string]string{
		"fingerprint": o.Fingerprint,
		"node":        o.Node.String(),
		"metric":      o.Metric,
	}
	// InfluxDB rejects empty tag values.
	for k, v := range map[string]string{
		"host":      host,
		"country":   o.Country,
		"transport": o.Transport,
		"version":   o.Version,
	} {
		if v != "" {
			tags[k] = v
		}
	}

	fields := map[string]interface{}{
		"val":       o.Value,
		"stats_end": o.To,
	}
	return influxdb2.NewPoint(measurement, tags, fields, time.UnixMilli(o.From).UTC())
}
