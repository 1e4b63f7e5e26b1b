package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
)

// TemplateService manages payer workflow templates
type TemplateService interface {
	Get(ctx context.Context, payerID string) (*entity.WorkflowTemplate, error)
	List(ctx context.Context) ([]*entity.WorkflowTemplate, error)

	// Import validates and stores a template, replacing the payer's previous one.
	// Tasks generated from the previous version are not touched.
	Import(ctx context.Context, tmpl *entity.WorkflowTemplate) (*entity.WorkflowTemplate, error)

	// ImportFile loads, validates and stores a single template file
	ImportFile(ctx context.Context, path string) (*entity.WorkflowTemplate, error)

	// ImportDir stores every template in dir in one transaction; nothing is stored if any fails
	ImportDir(ctx context.Context, dir string) ([]*entity.WorkflowTemplate, error)

	// ValidateFile checks a template file without storing it
	ValidateFile(path string) (*entity.WorkflowTemplate, error)
}

type templateServiceImpl struct {
	templateRepo port.TemplateRepository
	source       port.TemplateSource
	txManager    port.TransactionManager
	logger       Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(
	templateRepo port.TemplateRepository,
	source port.TemplateSource,
	txManager port.TransactionManager,
	logger Logger,
) TemplateService {
	return &templateServiceImpl{
		templateRepo: templateRepo,
		source:       source,
		txManager:    txManager,
		logger:       logger,
	}
}

func (s *templateServiceImpl) Get(ctx context.Context, payerID string) (*entity.WorkflowTemplate, error) {
	tmpl, err := s.templateRepo.GetByPayerID(ctx, payerID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if tmpl == nil {
		return nil, fmt.Errorf("template for payer %s: %w", payerID, entity.ErrNotFound)
	}
	return tmpl, nil
}

func (s *templateServiceImpl) List(ctx context.Context) ([]*entity.WorkflowTemplate, error) {
	templates, err := s.templateRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

func (s *templateServiceImpl) Import(ctx context.Context, tmpl *entity.WorkflowTemplate) (*entity.WorkflowTemplate, error) {
	if err := s.importAll(ctx, []*entity.WorkflowTemplate{tmpl}); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (s *templateServiceImpl) ImportFile(ctx context.Context, path string) (*entity.WorkflowTemplate, error) {
	tmpl, err := s.ValidateFile(path)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, tmpl)
}

func (s *templateServiceImpl) ImportDir(ctx context.Context, dir string) ([]*entity.WorkflowTemplate, error) {
	if s.source == nil {
		return nil, fmt.Errorf("template source not configured")
	}
	templates, err := s.source.LoadDir(dir)
	if err != nil {
		return nil, wrapTemplateError(err)
	}
	if err := s.importAll(ctx, templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *templateServiceImpl) ValidateFile(path string) (*entity.WorkflowTemplate, error) {
	if s.source == nil {
		return nil, fmt.Errorf("template source not configured")
	}
	tmpl, err := s.source.LoadFile(path)
	if err != nil {
		return nil, wrapTemplateError(err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, wrapTemplateError(err))
	}
	return tmpl, nil
}

func (s *templateServiceImpl) importAll(ctx context.Context, templates []*entity.WorkflowTemplate) error {
	seen := make(map[string]bool, len(templates))
	for _, tmpl := range templates {
		if tmpl == nil {
			return validationError("template is required")
		}
		if err := tmpl.Validate(); err != nil {
			return wrapTemplateError(err)
		}
		if seen[tmpl.PayerID] {
			return validationError("payer %s defined more than once", tmpl.PayerID)
		}
		seen[tmpl.PayerID] = true
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, tmpl := range templates {
			if err := s.templateRepo.Upsert(txCtx, tmpl); err != nil {
				return fmt.Errorf("payer %s: %w", tmpl.PayerID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to import templates", "error", err, "count", len(templates))
		return fmt.Errorf("import templates: %w", err)
	}

	for _, tmpl := range templates {
		s.logger.Info("Workflow template imported",
			"payer_id", tmpl.PayerID,
			"version", tmpl.Version,
			"tasks", len(tmpl.Tasks))
	}
	return nil
}

// wrapTemplateError classifies template problems as validation failures
func wrapTemplateError(err error) error {
	if errors.Is(err, entity.ErrTemplateInvalid) && !errors.Is(err, ErrValidation) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}
