package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tradescribe/ai-service/internal/model"
)

// CallStats aggregates the call log for the admin stats endpoint.
type CallStats struct {
	Total       int64            `json:"total"`
	Failed      int64            `json:"failed"`
	ByOperation map[string]int64 `json:"by_operation"`
}

// CallRepository persists provider-call telemetry.
type CallRepository interface {
	Record(ctx context.Context, call *model.ProviderCall) error
	Stats(ctx context.Context) (*CallStats, error)
}

type sqliteCallRepository struct {
	db *sqlx.DB
}

// NewCallRepository creates the SQLite-backed CallRepository.
func NewCallRepository(db *sqlx.DB) CallRepository {
	return &sqliteCallRepository{db: db}
}

func (r *sqliteCallRepository) Record(ctx context.Context, call *model.ProviderCall) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO provider_calls (operation, provider, model, success, duration_ms)
		VALUES (:operation, :provider, :model, :success, :duration_ms)
	`, call)
	if err != nil {
		return fmt.Errorf("recording provider call: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteCallRepository) Stats(ctx context.Context) (*CallStats, error) {
	stats := &CallStats{ByOperation: make(map[string]int64)}

	if err := r.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM provider_calls"); err != nil {
		return nil, fmt.Errorf("counting provider calls: %w", err)
	}
	if err := r.db.GetContext(ctx, &stats.Failed, "SELECT COUNT(*) FROM provider_calls WHERE success = 0"); err != nil {
		return nil, fmt.Errorf("counting failed provider calls: %w", err)
	}

	rows := []struct {
		Operation string `db:"operation"`
		Count     int64  `db:"count"`
	}{}
	err := r.db.SelectContext(ctx, &rows,
		"SELECT operation, COUNT(*) AS count FROM provider_calls GROUP BY operation")
	if err != nil {
		return nil, fmt.Errorf("grouping provider calls: %w", err)
	}
	for _, row := range rows {
		stats.ByOperation[row.Operation] = row.Count
	}
	return stats, nil
}
