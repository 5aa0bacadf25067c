package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/busbuddy-api/internal/models"
)

// VehicleRepository reads the fleet.
type VehicleRepository struct {
	db *sqlx.DB
}

// NewVehicleRepository creates a vehicle repository.
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// List returns all vehicles ordered by id.
func (r *VehicleRepository) List(ctx context.Context) ([]models.Vehicle, error) {
	const query = `SELECT id, vehicle_number, status, last_inspection_date, mileage, created_at, updated_at FROM vehicles ORDER BY id ASC`
	var vehicles []models.Vehicle
	if err := r.db.SelectContext(ctx, &vehicles, query); err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}
