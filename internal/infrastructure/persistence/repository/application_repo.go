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

const applicationColumns = `
	id, provider_id, payer_id, status,
	started_date, submitted_date, expected_decision_date, approval_date, denial_date, effective_date,
	external_application_id, payer_provider_id, denial_reason,
	reapplication_eligible, reapplication_date,
	contact_name, contact_email, contact_phone, portal_url,
	submission_method, typical_approval_days, template_version, notes,
	contract_requested_at, contract_trigger_error,
	created_by, updated_by, created_at, updated_at`

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new payer application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new application. A second application for the same
// (provider, payer) pair yields entity.ErrDuplicateApplication.
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.PayerApplication) error {
	query := `
		INSERT INTO payer_applications (
			provider_id, payer_id, status,
			started_date, submitted_date, expected_decision_date, approval_date, denial_date, effective_date,
			external_application_id, payer_provider_id, denial_reason,
			reapplication_eligible, reapplication_date,
			contact_name, contact_email, contact_phone, portal_url,
			submission_method, typical_approval_days, template_version, notes,
			created_by, updated_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		app.ProviderID,
		app.PayerID,
		app.Status,
		dateValue(app.StartedDate),
		dateValue(app.SubmittedDate),
		dateValue(app.ExpectedDecisionDate),
		dateValue(app.ApprovalDate),
		dateValue(app.DenialDate),
		dateValue(app.EffectiveDate),
		app.ExternalApplicationID,
		app.PayerProviderID,
		app.DenialReason,
		boolValue(app.ReapplicationEligible),
		dateValue(app.ReapplicationDate),
		app.Contact.Name,
		app.Contact.Email,
		app.Contact.Phone,
		app.PortalURL,
		app.SubmissionMethod,
		app.TypicalApprovalDays,
		app.TemplateVersion,
		app.Notes,
		app.CreatedBy,
		app.UpdatedBy,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Info("Application already exists",
				zap.String("provider_id", app.ProviderID),
				zap.String("payer_id", app.PayerID))
			return fmt.Errorf("provider %s payer %s: %w", app.ProviderID, app.PayerID, entity.ErrDuplicateApplication)
		}
		r.logger.Error("Failed to create application", zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	app.ID = id
	app.CreatedAt = now
	app.UpdatedAt = now
	return nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*entity.PayerApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM payer_applications WHERE id = ?`

	app, err := scanApplication(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get application by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// GetByProviderAndPayer retrieves the application for a (provider, payer) pair
func (r *ApplicationRepository) GetByProviderAndPayer(ctx context.Context, providerID, payerID string) (*entity.PayerApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM payer_applications WHERE provider_id = ? AND payer_id = ?`

	app, err := scanApplication(r.getExecutor(ctx).QueryRowContext(ctx, query, providerID, payerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get application",
			zap.String("provider_id", providerID),
			zap.String("payer_id", payerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// ListByProvider retrieves every application of a provider ordered by payer
func (r *ApplicationRepository) ListByProvider(ctx context.Context, providerID string) ([]*entity.PayerApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM payer_applications WHERE provider_id = ? ORDER BY payer_id`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, providerID)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.String("provider_id", providerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*entity.PayerApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}

// Update writes every mutable field of the application
func (r *ApplicationRepository) Update(ctx context.Context, app *entity.PayerApplication) error {
	query := `
		UPDATE payer_applications SET
			status = ?,
			started_date = ?, submitted_date = ?, expected_decision_date = ?,
			approval_date = ?, denial_date = ?, effective_date = ?,
			external_application_id = ?, payer_provider_id = ?, denial_reason = ?,
			reapplication_eligible = ?, reapplication_date = ?,
			contact_name = ?, contact_email = ?, contact_phone = ?, portal_url = ?,
			notes = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now().UTC()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		app.Status,
		dateValue(app.StartedDate),
		dateValue(app.SubmittedDate),
		dateValue(app.ExpectedDecisionDate),
		dateValue(app.ApprovalDate),
		dateValue(app.DenialDate),
		dateValue(app.EffectiveDate),
		app.ExternalApplicationID,
		app.PayerProviderID,
		app.DenialReason,
		boolValue(app.ReapplicationEligible),
		dateValue(app.ReapplicationDate),
		app.Contact.Name,
		app.Contact.Email,
		app.Contact.Phone,
		app.PortalURL,
		app.Notes,
		app.UpdatedBy,
		now,
		app.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update application", zap.Int64("id", app.ID), zap.Error(err))
		return fmt.Errorf("failed to update application: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("application %d: %w", app.ID, entity.ErrNotFound)
	}

	app.UpdatedAt = now
	return nil
}

// SetContractResult records the outcome of the contract trigger
func (r *ApplicationRepository) SetContractResult(ctx context.Context, id int64, requestedAt *time.Time, triggerErr string) error {
	query := `
		UPDATE payer_applications
		SET contract_requested_at = ?, contract_trigger_error = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, timeValue(requestedAt), triggerErr, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to record contract result", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to record contract result: %w", err)
	}
	return nil
}

func scanApplication(row rowScanner) (*entity.PayerApplication, error) {
	var app entity.PayerApplication
	var started, submitted, expected, approved, denied, effective, reapply sql.NullString
	var reapplyEligible int
	var contractAt sql.NullTime

	err := row.Scan(
		&app.ID,
		&app.ProviderID,
		&app.PayerID,
		&app.Status,
		&started,
		&submitted,
		&expected,
		&approved,
		&denied,
		&effective,
		&app.ExternalApplicationID,
		&app.PayerProviderID,
		&app.DenialReason,
		&reapplyEligible,
		&reapply,
		&app.Contact.Name,
		&app.Contact.Email,
		&app.Contact.Phone,
		&app.PortalURL,
		&app.SubmissionMethod,
		&app.TypicalApprovalDays,
		&app.TemplateVersion,
		&app.Notes,
		&contractAt,
		&app.ContractTriggerError,
		&app.CreatedBy,
		&app.UpdatedBy,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	dates := []struct {
		src sql.NullString
		dst **time.Time
	}{
		{started, &app.StartedDate},
		{submitted, &app.SubmittedDate},
		{expected, &app.ExpectedDecisionDate},
		{approved, &app.ApprovalDate},
		{denied, &app.DenialDate},
		{effective, &app.EffectiveDate},
		{reapply, &app.ReapplicationDate},
	}
	for _, d := range dates {
		if *d.dst, err = scanDate(d.src); err != nil {
			return nil, err
		}
	}

	app.ReapplicationEligible = reapplyEligible != 0
	if contractAt.Valid {
		t := contractAt.Time
		app.ContractRequestedAt = &t
	}

	return &app, nil
}

// getExecutor returns the transaction carried by ctx or the database
func (r *ApplicationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
