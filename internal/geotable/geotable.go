// Package geotable is the boundary to the geospatial-table conversion
// collaborator. Conversion itself is out of scope here; the pipeline hands
// the finished collection over when the caller asked for a table.
package geotable

import (
	"context"

	"github.com/scenefetch/scenefetch/internal/record"
)

// Converter turns the finished record collection into a geospatial table
// representation.
type Converter interface {
	Convert(ctx context.Context, col record.Collection) error
}
