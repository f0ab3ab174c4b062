package repository

import (
	"context"

	"rebazar/internal/domain/entity"
)

type VendorRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Vendor, error)
}
