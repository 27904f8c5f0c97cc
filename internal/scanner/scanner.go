package scanner

import (
	"context"

	"github.com/imyashkale/mcpcatalog/internal/models"
)

// Scanner scans exactly one external source and yields candidate server
// records in canonical shape. Adapters are independent of each other; a
// failing adapter contributes zero candidates but never stops its siblings.
type Scanner interface {
	// Name identifies the source in logs and audit details.
	Name() string

	// Scan discovers candidate records. Item-level problems (one file,
	// one package, one repository) are logged and skipped inside the
	// adapter; a returned error means the whole source was unusable.
	Scan(ctx context.Context) ([]*models.ServerRecord, error)
}
