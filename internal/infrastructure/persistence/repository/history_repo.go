package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.StatusHistory) error {
	query := `
		INSERT INTO status_history (
			entity_type, entity_id, provider_id, payer_id, action,
			previous_status, new_status, actor, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now().UTC()
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		history.EntityType,
		history.EntityID,
		history.ProviderID,
		history.PayerID,
		history.Action,
		history.PreviousStatus,
		history.NewStatus,
		history.Actor,
		history.Note,
		history.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.String("entity_type", history.EntityType),
			zap.Int64("entity_id", history.EntityID),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// ListByEntity retrieves the audit trail of one task or application, oldest first
func (r *HistoryRepository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.StatusHistory, error) {
	query := `
		SELECT id, entity_type, entity_id, provider_id, payer_id, action,
			previous_status, new_status, actor, note, created_at
		FROM status_history
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		r.logger.Error("Failed to list history",
			zap.String("entity_type", entityType),
			zap.Int64("entity_id", entityID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.StatusHistory
	for rows.Next() {
		var record entity.StatusHistory
		err := rows.Scan(
			&record.ID,
			&record.EntityType,
			&record.EntityID,
			&record.ProviderID,
			&record.PayerID,
			&record.Action,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.Actor,
			&record.Note,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// getExecutor returns the transaction carried by ctx or the database
func (r *HistoryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
