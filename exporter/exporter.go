package exporter

import (
	"errors"

	"github.com/hostnetbr/userstats/userstats"
)

// Interface is a destination for observation rows. Exactly one of Close
// or Abort must be called. Close completes the output once all rows have
// been exported; Abort releases the exporter after a failed run and leaves
// whatever was written incomplete.
type Interface interface {
	Export(o userstats.Observation) error
	Close() error
	Abort() error
}

// Multi exports every row to all of its exporters in order.
type Multi []Interface

func (m Multi) Export(o userstats.Observation) error {
	for _, ex := range m {
		if err := ex.Export(o); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all exporters, even if some of them fail.
func (m Multi) Close() error {
	var errs []error
	for _, ex := range m {
		errs = append(errs, ex.Close())
	}
	return errors.Join(errs...)
}

// Abort aborts all exporters, even if some of them fail.
func (m Multi) Abort() error {
	var errs []error
	for _, ex := range m {
		errs = append(errs, ex.Abort())
	}
	return errors.Join(errs...)
}
