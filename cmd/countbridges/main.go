// Command countbridges counts running bridges by transport from
// sanitized bridge descriptors below in/extra-infos, in/server-descriptors
// and in/statuses, writing the result to pt-bridges.csv.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/hostnetbr/userstats/descriptor"
	"github.com/hostnetbr/userstats/internal/logging"
	"github.com/hostnetbr/userstats/transportcount"
)

const (
	extraInfoDir = "in/extra-infos"
	serverDir    = "in/server-descriptors"
	statusDir    = "in/statuses"
	outFile      = "pt-bridges.csv"
)

func main() {
	os.Exit(run())
}

func run() int {
	slog.SetDefault(logging.New(false))
	slog.Info("starting")

	var r descriptor.Reader
	c := transportcount.NewCounter()

	slog.Info("parsing extra-info descriptors")
	err := r.Walk(extraInfoDir, func(_ string, d descriptor.Descriptor) error {
		if ei, ok := d.(*descriptor.ExtraInfo); ok {
			c.AddExtraInfo(ei)
		}
		return nil
	})
	if err != nil {
		slog.Error(fmt.Sprintf("error reading extra-info descriptors: %v", err))
		return 1
	}

	slog.Info("parsing server descriptors")
	err = r.Walk(serverDir, func(_ string, d descriptor.Descriptor) error {
		if sd, ok := d.(*descriptor.ServerDescriptor); ok {
			c.AddServerDescriptor(sd)
		}
		return nil
	})
	if err != nil {
		slog.Error(fmt.Sprintf("error reading server descriptors: %v", err))
		return 1
	}

	slog.Info("parsing statuses")
	if err := writeCounts(&r, c); err != nil {
		slog.Error(err.Error())
		return 1
	}

	slog.Info("terminating")
	return 0
}

func writeCounts(r *descriptor.Reader, c *transportcount.Counter) error {
	f, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", outFile, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	w, err := transportcount.NewWriter(bw)
	if err != nil {
		return err
	}
	err = r.Walk(statusDir, func(_ string, d descriptor.Descriptor) error {
		if s, ok := d.(*descriptor.BridgeStatus); ok {
			return w.Write(c.Count(s))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error reading statuses: %w", err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("error flushing %s: %w", outFile, err)
	}
	return f.Close()
}
