package ports

import (
	"context"

	"anovadash/domain/dataset"
)

// TableSource loads the dataset the dashboard analyzes
type TableSource interface {
	Name() string
	Load(ctx context.Context) (*dataset.Table, error)
}
