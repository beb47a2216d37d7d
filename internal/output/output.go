// Package output delivers session payloads to their destinations.
package output

import (
	"context"

	"github.com/hejijunhao/watchpath/internal/report"
)

// Output is a destination for session payloads. The pipeline serializes
// writes and issues them in session order.
type Output interface {
	Write(ctx context.Context, p report.Payload) error
	Close() error
}
