package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// WorkflowCategory is the submission style a payer's workflow follows.
type WorkflowCategory string

// Workflow categories
const (
	CategoryInstantNetwork   WorkflowCategory = "instant_network"
	CategoryDocumentBundle   WorkflowCategory = "document_bundle"
	CategoryPortalSubmission WorkflowCategory = "portal_submission"
)

// IsValid reports whether c is a known category.
func (c WorkflowCategory) IsValid() bool {
	switch c {
	case CategoryInstantNetwork, CategoryDocumentBundle, CategoryPortalSubmission:
		return true
	}
	return false
}

// SubmissionContact is the payer-side contact used for submissions.
type SubmissionContact struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// WorkflowTemplate is the reusable per-payer credentialing checklist.
// At most one template exists per payer.
type WorkflowTemplate struct {
	ID                     int64             `json:"id" yaml:"-"`
	PayerID                string            `json:"payer_id" yaml:"payer_id"`
	PayerName              string            `json:"payer_name,omitempty" yaml:"payer_name,omitempty"`
	Category               WorkflowCategory  `json:"category" yaml:"category"`
	Contact                SubmissionContact `json:"contact" yaml:"contact,omitempty"`
	PortalURL              string            `json:"portal_url,omitempty" yaml:"portal_url,omitempty"`
	DocumentBundleTemplate string            `json:"document_bundle_template,omitempty" yaml:"document_bundle_template,omitempty"`
	Instructions           string            `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	TypicalApprovalDays    int               `json:"typical_approval_days" yaml:"typical_approval_days"`
	Version                int               `json:"version" yaml:"-"`
	Tasks                  []TaskTemplate    `json:"tasks" yaml:"tasks"`
	CreatedAt              time.Time         `json:"created_at" yaml:"-"`
	UpdatedAt              time.Time         `json:"updated_at" yaml:"-"`
}

// TaskTemplate is one step of a workflow template.
type TaskTemplate struct {
	ID            int64  `json:"id,omitempty" yaml:"-"`
	TemplateID    int64  `json:"template_id,omitempty" yaml:"-"`
	Title         string `json:"title" yaml:"title"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	Order         int    `json:"order" yaml:"order"`
	EstimatedDays int    `json:"estimated_days" yaml:"estimated_days"`
}

// Validate checks the semantic rules a template must satisfy before it is stored.
// All problems are reported together.
func (t *WorkflowTemplate) Validate() error {
	var problems []string

	if strings.TrimSpace(t.PayerID) == "" {
		problems = append(problems, "payer_id is required")
	}
	if !t.Category.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", t.Category))
	}
	if t.TypicalApprovalDays < 0 {
		problems = append(problems, "typical_approval_days must be >= 0")
	}
	switch t.Category {
	case CategoryPortalSubmission:
		if strings.TrimSpace(t.PortalURL) == "" {
			problems = append(problems, "portal_submission requires portal_url")
		}
	case CategoryDocumentBundle:
		if strings.TrimSpace(t.DocumentBundleTemplate) == "" {
			problems = append(problems, "document_bundle requires document_bundle_template")
		}
	}

	if len(t.Tasks) == 0 {
		problems = append(problems, "at least one task is required")
	}
	prev := 0
	for i, task := range t.Tasks {
		if strings.TrimSpace(task.Title) == "" {
			problems = append(problems, fmt.Sprintf("tasks[%d]: title is required", i))
		}
		if task.Order <= 0 {
			problems = append(problems, fmt.Sprintf("tasks[%d]: order must be positive", i))
		} else if task.Order <= prev {
			problems = append(problems, fmt.Sprintf("tasks[%d]: order %d must be greater than %d", i, task.Order, prev))
		}
		if task.Order > prev {
			prev = task.Order
		}
		if task.EstimatedDays < 0 {
			problems = append(problems, fmt.Sprintf("tasks[%d]: estimated_days must be >= 0", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrTemplateInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// ExpandTemplate turns a template into the application and ordered tasks for one
// provider. It does not touch storage and does not assign IDs. Tasks are due one
// after another starting from start.
func ExpandTemplate(tmpl *WorkflowTemplate, providerID string, start time.Time) (*PayerApplication, []*CredentialingTask, error) {
	if tmpl == nil {
		return nil, nil, ErrConfigurationMissing
	}
	if strings.TrimSpace(providerID) == "" {
		return nil, nil, errors.New("provider_id is required")
	}

	startDay := Day(start)
	app := &PayerApplication{
		ProviderID:          providerID,
		PayerID:             tmpl.PayerID,
		Status:              ApplicationStatusNotStarted,
		Contact:             tmpl.Contact,
		PortalURL:           tmpl.PortalURL,
		SubmissionMethod:    tmpl.Category,
		TypicalApprovalDays: tmpl.TypicalApprovalDays,
		TemplateVersion:     tmpl.Version,
	}

	tasks := make([]*CredentialingTask, 0, len(tmpl.Tasks))
	elapsed := 0
	for _, step := range tmpl.Tasks {
		elapsed += step.EstimatedDays
		tasks = append(tasks, &CredentialingTask{
			ProviderID:    providerID,
			PayerID:       tmpl.PayerID,
			TaskType:      string(tmpl.Category),
			Title:         step.Title,
			Description:   step.Description,
			Status:        TaskStatusPending,
			DueDate:       DatePtr(AddDays(startDay, elapsed)),
			EstimatedDays: step.EstimatedDays,
			Order:         step.Order,
		})
	}

	return app, tasks, nil
}
