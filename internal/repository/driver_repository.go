package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/busbuddy-api/internal/models"
)

// DriverRepository reads drivers.
type DriverRepository struct {
	db *sqlx.DB
}

// NewDriverRepository creates a driver repository.
func NewDriverRepository(db *sqlx.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// List returns all drivers ordered by id.
func (r *DriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	const query = `SELECT id, name, status, license_expiry_date, phone_number, created_at, updated_at FROM drivers ORDER BY id ASC`
	var drivers []models.Driver
	if err := r.db.SelectContext(ctx, &drivers, query); err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	return drivers, nil
}
