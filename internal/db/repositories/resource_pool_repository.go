package repositories

import (
	"context"
	"fmt"

	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/scheduling"

	"github.com/jmoiron/sqlx"
)

// ResourcePoolRepo persists the declared gates and counters.
type ResourcePoolRepo struct {
	db *sqlx.DB
}

func NewResourcePoolRepo(db *sqlx.DB) *ResourcePoolRepo {
	return &ResourcePoolRepo{db}
}

func (r *ResourcePoolRepo) List(ctx context.Context, class scheduling.ResourceClass) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, r.db.Rebind(constants.ListPoolResources), string(class))
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Add inserts the resource unless it is already declared. Returns true when
// a row was written.
func (r *ResourcePoolRepo) Add(ctx context.Context, class scheduling.ResourceClass, id string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() // safe even after Commit

	added, err := insertIfMissing(ctx, tx, class, id)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return added, nil
}

// Remove deletes the resource. Returns false when it was not declared.
func (r *ResourcePoolRepo) Remove(ctx context.Context, class scheduling.ResourceClass, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(constants.DeletePoolResource), string(class), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Seed declares ids for class only when the class has no resources yet, so a
// restart never overwrites gates an operator added or removed.
func (r *ResourcePoolRepo) Seed(ctx context.Context, class scheduling.ResourceClass, ids []string) error {
	existing, err := r.List(ctx, class)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // safe even after Commit

	for _, id := range ids {
		if _, err := insertIfMissing(ctx, tx, class, id); err != nil {
			return fmt.Errorf("seed %s %s: %w", class, id, err)
		}
	}
	return tx.Commit()
}

func insertIfMissing(ctx context.Context, tx *sqlx.Tx, class scheduling.ResourceClass, id string) (bool, error) {
	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(constants.CountPoolResource), string(class), id); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(constants.InsertPoolResource), string(class), id); err != nil {
		return false, err
	}
	return true, nil
}
