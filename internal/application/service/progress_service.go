package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
)

// ProgressService projects task and application state into progress statistics
type ProgressService interface {
	// Progress reads the current persisted state; nothing is cached between calls
	Progress(ctx context.Context, providerID string) (*entity.ProgressReport, error)
}

type progressServiceImpl struct {
	taskRepo        port.TaskRepository
	applicationRepo port.ApplicationRepository
	templateRepo    port.TemplateRepository
	logger          Logger
	opts            options
}

// NewProgressService creates a new ProgressService
func NewProgressService(
	taskRepo port.TaskRepository,
	applicationRepo port.ApplicationRepository,
	templateRepo port.TemplateRepository,
	logger Logger,
	opts ...Option,
) ProgressService {
	return &progressServiceImpl{
		taskRepo:        taskRepo,
		applicationRepo: applicationRepo,
		templateRepo:    templateRepo,
		logger:          logger,
		opts:            buildOptions(opts),
	}
}

// Progress builds the per-payer and overall report for a provider
func (s *progressServiceImpl) Progress(ctx context.Context, providerID string) (*entity.ProgressReport, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, validationError("provider_id is required")
	}

	tasks, err := s.taskRepo.List(ctx, port.TaskFilter{ProviderID: providerID})
	if err != nil {
		s.logger.Error("Failed to load tasks for progress", "error", err, "provider_id", providerID)
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	apps, err := s.applicationRepo.ListByProvider(ctx, providerID)
	if err != nil {
		s.logger.Error("Failed to load applications for progress", "error", err, "provider_id", providerID)
		return nil, fmt.Errorf("load applications: %w", err)
	}

	names := map[string]string{}
	if s.templateRepo != nil {
		templates, err := s.templateRepo.List(ctx)
		if err != nil {
			// Payer names are display only.
			s.logger.Error("Failed to load payer names", "error", err)
		}
		for _, t := range templates {
			names[t.PayerID] = t.PayerName
		}
	}

	report := aggregateProgress(providerID, tasks, apps, names, s.opts.today())
	report.GeneratedAt = s.opts.clock.Now()
	return report, nil
}

// aggregateProgress groups tasks by payer and joins each group with its application.
// General tasks form a group with an empty payer id that counts toward task totals
// but not toward payer totals.
func aggregateProgress(
	providerID string,
	tasks []*entity.CredentialingTask,
	apps []*entity.PayerApplication,
	payerNames map[string]string,
	today time.Time,
) *entity.ProgressReport {
	groups := make(map[string]*entity.PayerProgress)
	group := func(payerID string) *entity.PayerProgress {
		g, ok := groups[payerID]
		if !ok {
			g = &entity.PayerProgress{
				PayerID:      payerID,
				PayerName:    payerNames[payerID],
				StatusCounts: make(map[entity.TaskStatus]int, len(entity.TaskStatuses)),
			}
			for _, st := range entity.TaskStatuses {
				g.StatusCounts[st] = 0
			}
			groups[payerID] = g
		}
		return g
	}

	for _, task := range tasks {
		g := group(task.PayerID)
		g.TotalTasks++
		g.StatusCounts[task.Status]++
		if task.Status == entity.TaskStatusCompleted {
			g.CompletedTasks++
		}
		if task.IsOverdue(today) {
			g.OverdueTasks++
		}
	}

	for _, app := range apps {
		g := group(app.PayerID)
		g.ApplicationStatus = app.Status
		g.ApplicationDates = &entity.ApplicationDateStamp{
			Started:          app.StartedDate,
			Submitted:        app.SubmittedDate,
			ExpectedDecision: app.ExpectedDecisionDate,
			Approved:         app.ApprovalDate,
			Denied:           app.DenialDate,
			Effective:        app.EffectiveDate,
		}
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := &entity.ProgressReport{
		ProviderID: providerID,
		PerPayer:   make([]entity.PayerProgress, 0, len(ids)),
	}
	overall := &report.Overall
	for _, id := range ids {
		g := groups[id]
		g.CompletionPercentage = entity.CompletionPercentage(g.CompletedTasks, g.TotalTasks)
		report.PerPayer = append(report.PerPayer, *g)

		overall.TotalTasks += g.TotalTasks
		overall.CompletedTasks += g.CompletedTasks
		overall.OverdueTasks += g.OverdueTasks
		if id == "" {
			continue
		}
		overall.TotalPayers++
		switch {
		case g.ApplicationStatus == entity.ApplicationStatusApproved:
			overall.ApprovedPayers++
		case g.ApplicationStatus.IsPendingApproval():
			overall.PendingApprovalPayers++
		}
	}
	overall.CompletionPercentage = entity.CompletionPercentage(overall.CompletedTasks, overall.TotalTasks)

	return report
}
