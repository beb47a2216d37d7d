package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hejijunhao/watchpath/internal/output"
	"github.com/hejijunhao/watchpath/internal/report"
)

// Output writes one JSON document per session to a stream, stdout by default.
type Output struct {
	enc       *json.Encoder
	verbosity output.Verbosity
}

// New creates an Output on os.Stdout. With pretty set, documents are indented;
// otherwise the stream is NDJSON.
func New(verbosity output.Verbosity, pretty bool) *Output {
	return NewWriter(os.Stdout, verbosity, pretty)
}

// NewWriter creates an Output on an arbitrary writer.
func NewWriter(w io.Writer, verbosity output.Verbosity, pretty bool) *Output {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, p report.Payload) error {
	if err := o.enc.Encode(output.FormatPayload(p, o.verbosity)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
