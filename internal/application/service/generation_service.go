package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/domain/event"
)

// Generation outcomes per payer
const (
	OutcomeCreated              = "created"
	OutcomeAlreadyCredentialing = "already_credentialing"
	OutcomeNoTemplate           = "no_template"
	OutcomeFailed               = "failed"
)

// GenerateRequest asks for credentialing workflows of one provider across payers
type GenerateRequest struct {
	ProviderID string     `json:"provider_id"`
	PayerIDs   []string   `json:"payer_ids"`
	Actor      string     `json:"actor"`
	StartDate  *time.Time `json:"start_date,omitempty"`
}

// PayerOutcome is the result of generation for a single payer
type PayerOutcome struct {
	PayerID       string `json:"payer_id"`
	Outcome       string `json:"outcome"`
	ApplicationID int64  `json:"application_id,omitempty"`
	TasksCreated  int    `json:"tasks_created"`
	Message       string `json:"message,omitempty"`
}

// GenerationResult summarizes a generation batch
type GenerationResult struct {
	ProviderID          string          `json:"provider_id"`
	ApplicationsCreated int             `json:"applications_created"`
	TasksCreated        int             `json:"tasks_created"`
	Outcomes            []*PayerOutcome `json:"outcomes"`
	Warnings            []string        `json:"warnings"`
}

// GenerationService expands payer workflow templates into applications and tasks
type GenerationService interface {
	// Generate creates one application and its task set per payer. Payers that
	// are already being credentialed or have no template are skipped and reported.
	Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error)
}

type generationServiceImpl struct {
	templateRepo    port.TemplateRepository
	applicationRepo port.ApplicationRepository
	taskRepo        port.TaskRepository
	historyRepo     port.HistoryRepository
	txManager       port.TransactionManager
	logger          Logger
	opts            options
}

// NewGenerationService creates a new GenerationService
func NewGenerationService(
	templateRepo port.TemplateRepository,
	applicationRepo port.ApplicationRepository,
	taskRepo port.TaskRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...Option,
) GenerationService {
	return &generationServiceImpl{
		templateRepo:    templateRepo,
		applicationRepo: applicationRepo,
		taskRepo:        taskRepo,
		historyRepo:     historyRepo,
		txManager:       txManager,
		logger:          logger,
		opts:            buildOptions(opts),
	}
}

// Generate runs one transaction per payer so a failing payer never blocks the rest
func (s *generationServiceImpl) Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error) {
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.ProviderID == "" {
		return nil, validationError("provider_id is required")
	}
	if err := requireActor(req.Actor); err != nil {
		return nil, err
	}
	payerIDs := uniquePayers(req.PayerIDs)
	if len(payerIDs) == 0 {
		return nil, validationError("at least one payer_id is required")
	}

	start := s.opts.today()
	if req.StartDate != nil {
		start = entity.Day(*req.StartDate)
	}

	result := &GenerationResult{
		ProviderID: req.ProviderID,
		Outcomes:   make([]*PayerOutcome, 0, len(payerIDs)),
		Warnings:   []string{},
	}

	var created []*PayerOutcome
	apps := make(map[string]*entity.PayerApplication)
	for _, payerID := range payerIDs {
		outcome, app := s.generateForPayer(ctx, req.ProviderID, payerID, req.Actor, start)
		result.Outcomes = append(result.Outcomes, outcome)
		s.opts.metrics.GenerationOutcome(outcome.Outcome)

		switch outcome.Outcome {
		case OutcomeCreated:
			result.ApplicationsCreated++
			result.TasksCreated += outcome.TasksCreated
			created = append(created, outcome)
			apps[payerID] = app
		case OutcomeNoTemplate, OutcomeFailed:
			result.Warnings = append(result.Warnings, fmt.Sprintf("payer %s: %s", payerID, outcome.Message))
		}
	}

	s.logger.Info("Generation completed",
		"provider_id", req.ProviderID,
		"applications_created", result.ApplicationsCreated,
		"tasks_created", result.TasksCreated,
		"warnings", len(result.Warnings))

	for _, outcome := range created {
		app := apps[outcome.PayerID]
		evt := event.NewEvent(event.TypeApplicationCreated, app.ProviderID, app.PayerID, app.ID, map[string]interface{}{
			event.KeyNewStatus:  string(app.Status),
			"tasks_created":     outcome.TasksCreated,
			"template_version":  app.TemplateVersion,
			"submission_method": string(app.SubmissionMethod),
		}).WithActor(req.Actor)
		_ = s.opts.dispatch(ctx, s.logger, evt)
	}

	summary := event.NewEvent(event.TypeGenerationCompleted, req.ProviderID, "", 0, map[string]interface{}{
		"applications_created": result.ApplicationsCreated,
		"tasks_created":        result.TasksCreated,
		"payers":               len(payerIDs),
	}).WithActor(req.Actor)
	_ = s.opts.dispatch(ctx, s.logger, summary)

	return result, nil
}

func (s *generationServiceImpl) generateForPayer(ctx context.Context, providerID, payerID, actor string, start time.Time) (*PayerOutcome, *entity.PayerApplication) {
	outcome := &PayerOutcome{PayerID: payerID}

	tmpl, err := s.templateRepo.GetByPayerID(ctx, payerID)
	if err != nil {
		s.logger.Error("Failed to load workflow template", "error", err, "payer_id", payerID)
		outcome.Outcome = OutcomeFailed
		outcome.Message = err.Error()
		return outcome, nil
	}
	if tmpl == nil {
		s.logger.Info("No workflow template configured", "payer_id", payerID, "provider_id", providerID)
		outcome.Outcome = OutcomeNoTemplate
		outcome.Message = entity.ErrConfigurationMissing.Error()
		return outcome, nil
	}

	app, tasks, err := entity.ExpandTemplate(tmpl, providerID, start)
	if err != nil {
		outcome.Outcome = OutcomeFailed
		outcome.Message = err.Error()
		return outcome, nil
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.applicationRepo.GetByProviderAndPayer(txCtx, providerID, payerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return entity.ErrDuplicateApplication
		}

		app.CreatedBy = actor
		app.UpdatedBy = actor
		if err := s.applicationRepo.Create(txCtx, app); err != nil {
			return err
		}
		if err := s.historyRepo.Create(txCtx, &entity.StatusHistory{
			EntityType: entity.EntityTypeApplication,
			EntityID:   app.ID,
			ProviderID: providerID,
			PayerID:    payerID,
			Action:     entity.ActionCreate,
			NewStatus:  string(app.Status),
			Actor:      actor,
			Note:       fmt.Sprintf("generated from template version %d", tmpl.Version),
		}); err != nil {
			return err
		}

		for _, task := range tasks {
			task.CreatedBy = actor
			task.UpdatedBy = actor
			if err := s.taskRepo.Create(txCtx, task); err != nil {
				return err
			}
			if err := s.historyRepo.Create(txCtx, &entity.StatusHistory{
				EntityType: entity.EntityTypeTask,
				EntityID:   task.ID,
				ProviderID: providerID,
				PayerID:    payerID,
				Action:     entity.ActionCreate,
				NewStatus:  string(task.Status),
				Actor:      actor,
			}); err != nil {
				return err
			}
		}
		return nil
	})

	switch {
	case err == nil:
		s.logger.Info("Credentialing workflow generated",
			"provider_id", providerID,
			"payer_id", payerID,
			"application_id", app.ID,
			"tasks", len(tasks))
		outcome.Outcome = OutcomeCreated
		outcome.ApplicationID = app.ID
		outcome.TasksCreated = len(tasks)
		return outcome, app

	case errors.Is(err, entity.ErrDuplicateApplication):
		outcome.Outcome = OutcomeAlreadyCredentialing
		outcome.Message = "provider is already being credentialed with this payer"
		if existing, lookupErr := s.applicationRepo.GetByProviderAndPayer(ctx, providerID, payerID); lookupErr == nil && existing != nil {
			outcome.ApplicationID = existing.ID
		}
		s.logger.Info("Skipping payer already credentialing",
			"provider_id", providerID,
			"payer_id", payerID,
			"application_id", outcome.ApplicationID)
		return outcome, nil

	default:
		s.logger.Error("Failed to generate credentialing workflow",
			"error", err,
			"provider_id", providerID,
			"payer_id", payerID)
		outcome.Outcome = OutcomeFailed
		outcome.Message = err.Error()
		return outcome, nil
	}
}

func uniquePayers(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
