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

const templateColumns = `
	id, payer_id, payer_name, category,
	contact_name, contact_email, contact_phone,
	portal_url, document_bundle_template, instructions,
	typical_approval_days, version, created_at, updated_at`

// TemplateRepository implements port.TemplateRepository
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new workflow template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) port.TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores tmpl, replacing the task list of an existing template for the same
// payer and bumping its version. Callers run it inside a transaction.
func (r *TemplateRepository) Upsert(ctx context.Context, tmpl *entity.WorkflowTemplate) error {
	exec := r.getExecutor(ctx)
	now := time.Now().UTC()

	var id int64
	var version int
	var createdAt time.Time
	err := exec.QueryRowContext(ctx,
		`SELECT id, version, created_at FROM workflow_templates WHERE payer_id = ?`, tmpl.PayerID,
	).Scan(&id, &version, &createdAt)

	switch {
	case err == sql.ErrNoRows:
		result, err := exec.ExecContext(ctx, `
			INSERT INTO workflow_templates (
				payer_id, payer_name, category,
				contact_name, contact_email, contact_phone,
				portal_url, document_bundle_template, instructions,
				typical_approval_days, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`,
			tmpl.PayerID, tmpl.PayerName, tmpl.Category,
			tmpl.Contact.Name, tmpl.Contact.Email, tmpl.Contact.Phone,
			tmpl.PortalURL, tmpl.DocumentBundleTemplate, tmpl.Instructions,
			tmpl.TypicalApprovalDays, now, now,
		)
		if err != nil {
			r.logger.Error("Failed to insert template", zap.String("payer_id", tmpl.PayerID), zap.Error(err))
			return fmt.Errorf("failed to insert template: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		version = 1
		createdAt = now

	case err != nil:
		r.logger.Error("Failed to look up template", zap.String("payer_id", tmpl.PayerID), zap.Error(err))
		return fmt.Errorf("failed to look up template: %w", err)

	default:
		version++
		_, err := exec.ExecContext(ctx, `
			UPDATE workflow_templates SET
				payer_name = ?, category = ?,
				contact_name = ?, contact_email = ?, contact_phone = ?,
				portal_url = ?, document_bundle_template = ?, instructions = ?,
				typical_approval_days = ?, version = ?, updated_at = ?
			WHERE id = ?
		`,
			tmpl.PayerName, tmpl.Category,
			tmpl.Contact.Name, tmpl.Contact.Email, tmpl.Contact.Phone,
			tmpl.PortalURL, tmpl.DocumentBundleTemplate, tmpl.Instructions,
			tmpl.TypicalApprovalDays, version, now, id,
		)
		if err != nil {
			r.logger.Error("Failed to update template", zap.String("payer_id", tmpl.PayerID), zap.Error(err))
			return fmt.Errorf("failed to update template: %w", err)
		}
		if _, err := exec.ExecContext(ctx, `DELETE FROM task_templates WHERE template_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear task templates: %w", err)
		}
	}

	for i := range tmpl.Tasks {
		step := &tmpl.Tasks[i]
		result, err := exec.ExecContext(ctx, `
			INSERT INTO task_templates (template_id, title, description, task_order, estimated_days)
			VALUES (?, ?, ?, ?, ?)
		`, id, step.Title, step.Description, step.Order, step.EstimatedDays)
		if err != nil {
			r.logger.Error("Failed to insert task template",
				zap.String("payer_id", tmpl.PayerID),
				zap.Int("order", step.Order),
				zap.Error(err))
			return fmt.Errorf("failed to insert task template: %w", err)
		}
		if step.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		step.TemplateID = id
	}

	tmpl.ID = id
	tmpl.Version = version
	tmpl.CreatedAt = createdAt
	tmpl.UpdatedAt = now
	return nil
}

// GetByPayerID retrieves the template of a payer with its ordered tasks
func (r *TemplateRepository) GetByPayerID(ctx context.Context, payerID string) (*entity.WorkflowTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM workflow_templates WHERE payer_id = ?`

	tmpl, err := scanTemplate(r.getExecutor(ctx).QueryRowContext(ctx, query, payerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get template", zap.String("payer_id", payerID), zap.Error(err))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	if tmpl.Tasks, err = r.loadTasks(ctx, tmpl.ID); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// List retrieves all templates ordered by payer
func (r *TemplateRepository) List(ctx context.Context) ([]*entity.WorkflowTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM workflow_templates ORDER BY payer_id`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	var templates []*entity.WorkflowTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// A tx owns one connection; the cursor must be closed before the next query.
	for _, tmpl := range templates {
		if tmpl.Tasks, err = r.loadTasks(ctx, tmpl.ID); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (r *TemplateRepository) loadTasks(ctx context.Context, templateID int64) ([]entity.TaskTemplate, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, template_id, title, description, task_order, estimated_days
		FROM task_templates
		WHERE template_id = ?
		ORDER BY task_order
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task templates: %w", err)
	}
	defer rows.Close()

	var tasks []entity.TaskTemplate
	for rows.Next() {
		var t entity.TaskTemplate
		if err := rows.Scan(&t.ID, &t.TemplateID, &t.Title, &t.Description, &t.Order, &t.EstimatedDays); err != nil {
			return nil, fmt.Errorf("failed to scan task template: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTemplate(row rowScanner) (*entity.WorkflowTemplate, error) {
	var tmpl entity.WorkflowTemplate
	err := row.Scan(
		&tmpl.ID,
		&tmpl.PayerID,
		&tmpl.PayerName,
		&tmpl.Category,
		&tmpl.Contact.Name,
		&tmpl.Contact.Email,
		&tmpl.Contact.Phone,
		&tmpl.PortalURL,
		&tmpl.DocumentBundleTemplate,
		&tmpl.Instructions,
		&tmpl.TypicalApprovalDays,
		&tmpl.Version,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// getExecutor returns the transaction carried by ctx or the database
func (r *TemplateRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.TemplateRepository = (*TemplateRepository)(nil)
