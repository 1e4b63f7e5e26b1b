package metrics

import (
	"strconv"

	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exports credentialing counters to Prometheus
type Recorder struct {
	generationOutcomes     *prometheus.CounterVec
	taskTransitions        *prometheus.CounterVec
	applicationTransitions *prometheus.CounterVec
	contractTriggers       *prometheus.CounterVec
}

// NewRecorder registers the credentialing counters on reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		generationOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credentialing_generation_outcomes_total",
				Help: "Per-payer outcomes of workflow generation",
			},
			[]string{"outcome"},
		),
		taskTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credentialing_task_transitions_total",
				Help: "Task status transitions",
			},
			[]string{"from", "to"},
		),
		applicationTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credentialing_application_transitions_total",
				Help: "Payer application status transitions",
			},
			[]string{"from", "to"},
		),
		contractTriggers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credentialing_contract_triggers_total",
				Help: "Contract creation requests sent after approval",
			},
			[]string{"success"},
		),
	}
}

func (r *Recorder) GenerationOutcome(outcome string) {
	r.generationOutcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) TaskTransition(from, to entity.TaskStatus) {
	r.taskTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (r *Recorder) ApplicationTransition(from, to entity.ApplicationStatus) {
	r.applicationTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (r *Recorder) ContractTrigger(success bool) {
	r.contractTriggers.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// Verify interface compliance
var _ port.Metrics = (*Recorder)(nil)
