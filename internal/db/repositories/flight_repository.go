package repositories

import (
	"context"
	"time"

	"infinite-experiment/dispatchboard/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// FlightRepo handles flights table operations
type FlightRepo struct {
	db *gormlib.DB
}

// NewFlightRepo creates a new flight repository
func NewFlightRepo(db *gormlib.DB) *FlightRepo {
	return &FlightRepo{db: db}
}

// FindInWindow returns flights whose target_time lies in [start, end],
// ordered by target_time.
func (r *FlightRepo) FindInWindow(ctx context.Context, start, end time.Time) ([]gorm.Flight, error) {
	var flights []gorm.Flight

	err := r.db.WithContext(ctx).
		Where("target_time >= ? AND target_time <= ?", start.UTC(), end.UTC()).
		Order("target_time ASC, flight_no ASC").
		Find(&flights).Error

	if err != nil {
		return nil, err
	}

	return flights, nil
}

// UpdateGate replaces the gate column and returns the stored row.
func (r *FlightRepo) UpdateGate(ctx context.Context, id, gate string) (*gorm.Flight, error) {
	return r.updateColumn(ctx, id, "gate", gate)
}

// UpdateCheckinData replaces the whole checkin_data column and returns the stored row.
func (r *FlightRepo) UpdateCheckinData(ctx context.Context, id string, data gorm.CheckinData) (*gorm.Flight, error) {
	return r.updateColumn(ctx, id, "checkin_data", data)
}

// updateColumn writes one column and reads the row back in the same
// transaction. Returns gorm.ErrRecordNotFound when nothing matched.
func (r *FlightRepo) updateColumn(ctx context.Context, id, column string, value any) (*gorm.Flight, error) {
	var flight gorm.Flight

	err := r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		res := tx.Model(&gorm.Flight{}).
			Where("id = ?", id).
			Update(column, value)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gormlib.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&flight).Error
	})

	if err != nil {
		return nil, err
	}
	return &flight, nil
}

// InsertBatch inserts flights in chunks of chunkSize inside one transaction.
func (r *FlightRepo) InsertBatch(ctx context.Context, flights []gorm.Flight, chunkSize int) error {
	if len(flights) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&flights, chunkSize).Error
}

// Delete removes a flight. Returns false when no row matched.
func (r *FlightRepo) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&gorm.Flight{})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountInWindow returns how many flights fall in [start, end].
func (r *FlightRepo) CountInWindow(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&gorm.Flight{}).
		Where("target_time >= ? AND target_time <= ?", start.UTC(), end.UTC()).
		Count(&count).Error

	return count, err
}
