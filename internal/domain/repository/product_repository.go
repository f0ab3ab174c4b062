package repository

import (
	"context"

	"rebazar/internal/domain/entity"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByIDAndVendor resolves a product only when it is owned by the
	// given vendor, guarding chat creation against mismatched pairs.
	GetByIDAndVendor(ctx context.Context, id, vendorID string) (*entity.Product, error)
}
