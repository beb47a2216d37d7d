package multi

import (
	"context"
	"errors"

	"github.com/hejijunhao/watchpath/internal/output"
	"github.com/hejijunhao/watchpath/internal/report"
)

// Multi fans each payload out to several outputs in turn. A failing output
// does not stop delivery to the rest; errors are joined.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

func (m *Multi) Write(ctx context.Context, p report.Payload) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every output, joining errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
