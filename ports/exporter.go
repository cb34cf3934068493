package ports

import (
	"context"

	"grainmeta/models"
)

// ResultExporter writes a run result to an external tabular format for
// downstream plotting and inspection.
type ResultExporter interface {
	Export(ctx context.Context, result models.RunResult, path string) error
}
