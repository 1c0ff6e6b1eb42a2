package output

import (
	"context"

	"github.com/neville-freeman/log-classifier/internal/model"
)

// Output is a destination for classification reports.
type Output interface {
	Write(ctx context.Context, r model.Report) error
	Close() error
}
