package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/ai"
	"github.com/spec-kit/supportpilot/internal/domain"
	apperrors "github.com/spec-kit/supportpilot/pkg/util/errorutil"
)

// ErrGenerationInFlight rejects a second generation for a ticket that is
// already being analyzed.
var ErrGenerationInFlight = apperrors.NewConflict("analysis already in progress for this ticket", nil)

// GenerationStatus is the per-ticket generation lifecycle.
type GenerationStatus string

const (
	GenerationIdle    GenerationStatus = "idle"
	GenerationLoading GenerationStatus = "loading"
	GenerationSuccess GenerationStatus = "success"
	GenerationError   GenerationStatus = "error"
)

// GenerationState is what a poller sees for one ticket.
type GenerationState struct {
	Status    GenerationStatus `json:"status"`
	Kind      ai.FailureKind   `json:"kind,omitempty"`
	Error     string           `json:"error,omitempty"`
	RetryHint string           `json:"retryHint,omitempty"`
	Version   int              `json:"version,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// GenerationRecorder observes finished generations.
type GenerationRecorder interface {
	ObserveGeneration(outcome string, elapsed time.Duration)
}

// AnalysisService drives AI generation for tickets.
type AnalysisService struct {
	tickets  *TicketService
	analyzer ai.Analyzer
	model    string
	recorder GenerationRecorder
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	states map[string]GenerationState
}

// AnalysisDependencies bundles collaborators for the analysis service.
type AnalysisDependencies struct {
	Tickets  *TicketService
	Analyzer ai.Analyzer
	Model    string
	Recorder GenerationRecorder
	Logger   *zap.Logger
	Clock    func() time.Time
}

// NewAnalysisService constructs the service.
func NewAnalysisService(deps AnalysisDependencies) *AnalysisService {
	svc := &AnalysisService{
		tickets:  deps.Tickets,
		analyzer: deps.Analyzer,
		model:    deps.Model,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		now:      deps.Clock,
		states:   make(map[string]GenerationState),
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Generate analyzes the ticket and saves the result as its next AI output
// version. On failure the ticket is left untouched and the classified error
// is kept in the ticket's generation state.
func (s *AnalysisService) Generate(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.begin(id) {
		return nil, ErrGenerationInFlight
	}

	started := s.now()
	result, err := s.analyzer.Analyze(ctx, *ticket)
	if err != nil {
		aiErr := classify(err)
		s.fail(id, aiErr)
		s.observe(string(aiErr.Kind), started)
		s.logger.Warn("ticket analysis failed",
			zap.String("ticket_id", id),
			zap.String("kind", string(aiErr.Kind)),
			zap.Int("status", aiErr.Status),
			zap.Error(err))
		return nil, aiErr
	}

	saved, err := s.tickets.SaveAIOutput(ctx, id, result, s.model)
	if err != nil {
		s.fail(id, &ai.Error{Kind: ai.FailureUpstream, Message: "Ticket no longer exists.", Err: err})
		s.observe("discarded", started)
		return nil, err
	}

	s.set(id, GenerationState{Status: GenerationSuccess, Version: saved.AIOutput.Version})
	s.observe("success", started)
	return saved, nil
}

// State returns the generation state for id; unknown tickets are idle.
func (s *AnalysisService) State(id string) GenerationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[id]
	if !ok {
		return GenerationState{Status: GenerationIdle}
	}
	return state
}

// Forget drops the state kept for id.
func (s *AnalysisService) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
}

func (s *AnalysisService) begin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[id].Status == GenerationLoading {
		return false
	}
	s.states[id] = GenerationState{Status: GenerationLoading, UpdatedAt: s.now()}
	return true
}

func (s *AnalysisService) fail(id string, aiErr *ai.Error) {
	s.set(id, GenerationState{
		Status:    GenerationError,
		Kind:      aiErr.Kind,
		Error:     aiErr.Message,
		RetryHint: aiErr.RetryHint(),
	})
}

func (s *AnalysisService) set(id string, state GenerationState) {
	state.UpdatedAt = s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
}

func (s *AnalysisService) observe(outcome string, started time.Time) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveGeneration(outcome, s.now().Sub(started))
}

func classify(err error) *ai.Error {
	var aiErr *ai.Error
	if errors.As(err, &aiErr) {
		return aiErr
	}
	kind := ai.FailureUpstream
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = ai.FailureNetwork
	}
	return &ai.Error{Kind: kind, Status: http.StatusInternalServerError, Message: "Unexpected server error.", Err: err}
}
