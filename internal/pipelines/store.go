package pipelines

import (
	"context"
	"time"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/models"
)

// Store is the part of the central API client the pipelines read from and
// write to. *api.Client satisfies it.
type Store interface {
	Get(ctx context.Context, resource string, filters api.Filters) (*api.Table, error)
	Post(ctx context.Context, resource string, records any) (int, error)
}

func day(t time.Time, offset int) string {
	return t.AddDate(0, 0, offset).Format(models.DateLayout)
}
