package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/domain"
	"github.com/spec-kit/supportpilot/internal/environment"
	"github.com/spec-kit/supportpilot/internal/events"
	"github.com/spec-kit/supportpilot/internal/query"
	"github.com/spec-kit/supportpilot/internal/repository"
	"github.com/spec-kit/supportpilot/internal/seed"
	apperrors "github.com/spec-kit/supportpilot/pkg/util/errorutil"
)

// TicketService owns the ticket collection for the process. Every mutation
// works on a copy, persists it and only then replaces the in-memory state.
type TicketService struct {
	repo       repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string

	mu       sync.Mutex
	tickets  []domain.Ticket
	hydrated bool
	pending  []events.Event

	// publishMu keeps events in mutation order once mu is released.
	publishMu sync.Mutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
	IDFunc     func() string
}

// BulkStatusResult reports the outcome of a bulk status change.
type BulkStatusResult struct {
	Updated  int      `json:"updated"`
	NotFound []string `json:"notFound"`
}

// BulkDeleteResult reports the outcome of a bulk delete.
type BulkDeleteResult struct {
	Deleted              int      `json:"deleted"`
	NotFound             []string `json:"notFound"`
	ConfirmationRequired bool     `json:"confirmationRequired"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	svc := &TicketService{
		repo:       deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
		newID:      deps.IDFunc,
		tickets:    []domain.Ticket{},
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	return svc
}

// Hydrate loads the collection once per process. An empty store is seeded
// with the demo ticket and legacy AI history is normalized.
func (s *TicketService) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked(ctx)
}

func (s *TicketService) hydrateLocked(ctx context.Context) {
	if s.hydrated {
		return
	}

	loaded := s.repo.Load(ctx)
	changed := false

	if len(loaded) == 0 {
		seeded := s.buildTicket(seed.TicketInput(), domain.Environment{})
		loaded = []domain.Ticket{seeded}
		changed = true
		s.logger.Info("seeded empty ticket store", zap.String("ticket_id", seeded.ID))
	}

	normalized := 0
	for i := range loaded {
		if loaded[i].NormalizeAIHistory() {
			normalized++
		}
	}
	if normalized > 0 {
		changed = true
		s.logger.Info("normalized AI output history", zap.Int("tickets", normalized))
	}

	if changed {
		s.repo.Save(ctx, loaded)
	}
	s.tickets = loaded
	s.hydrated = true
}

// Create files a new Open ticket. The explicit environment in input wins
// over the detected one field by field.
func (s *TicketService) Create(ctx context.Context, input domain.CreateTicketInput, detected domain.Environment) *domain.Ticket {
	s.mu.Lock()
	defer s.unlockAndPublish(ctx)
	s.hydrateLocked(ctx)

	ticket := s.buildTicket(input, detected)

	next := make([]domain.Ticket, 0, len(s.tickets)+1)
	next = append(next, ticket)
	next = append(next, s.tickets...)
	s.commit(ctx, next)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
			Channel:  ticket.Channel,
		},
	})

	out := ticket.Clone()
	return &out
}

// Get returns a copy of the ticket.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked(ctx)

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ticketNotFound(id)
	}
	out := s.tickets[idx].Clone()
	return &out, nil
}

// List derives one page of the collection for the filter state.
func (s *TicketService) List(ctx context.Context, state query.FilterState) query.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked(ctx)

	return query.Apply(s.tickets, state)
}

// UpdateStatus moves a ticket to status.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, invalidStatus(status)
	}

	s.mu.Lock()
	defer s.unlockAndPublish(ctx)
	s.hydrateLocked(ctx)

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ticketNotFound(id)
	}

	next := s.copyTickets()
	previous := s.setStatus(next, idx, status)
	s.commit(ctx, next)
	s.publishStatusChange(ctx, next[idx], previous)

	out := next[idx].Clone()
	return &out, nil
}

// SaveAIOutput attaches result as the next AI output version and resolves
// the ticket.
func (s *TicketService) SaveAIOutput(ctx context.Context, id string, result domain.AnalysisResult, model string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.unlockAndPublish(ctx)
	s.hydrateLocked(ctx)

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ticketNotFound(id)
	}

	next := s.copyTickets()
	ticket := next[idx].Clone()
	statusBefore := ticket.Status
	ticket.ApplyAIOutput(result, model, s.now())
	next[idx] = ticket
	s.commit(ctx, next)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAIOutputSaved,
		TicketID: ticket.ID,
		Payload: events.TicketAIOutputSavedPayload{
			Version:      ticket.AIOutput.Version,
			Model:        model,
			HistorySize:  len(ticket.AIOutputHistory),
			StatusBefore: statusBefore,
		},
	})

	out := ticket.Clone()
	return &out, nil
}

// RestoreVersion promotes the history entry at index to the current output.
func (s *TicketService) RestoreVersion(ctx context.Context, id string, index int) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.unlockAndPublish(ctx)
	s.hydrateLocked(ctx)

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ticketNotFound(id)
	}

	next := s.copyTickets()
	ticket := next[idx].Clone()
	replaced := 0
	if ticket.AIOutput != nil {
		replaced = ticket.AIOutput.Version
	}
	if !ticket.RestoreAIOutput(index, s.now()) {
		return nil, apperrors.NewValidationError("history index out of range", map[string]any{
			"index":       index,
			"historySize": len(ticket.AIOutputHistory),
		})
	}
	next[idx] = ticket
	s.commit(ctx, next)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAIOutputRestored,
		TicketID: ticket.ID,
		Payload: events.TicketAIOutputRestoredPayload{
			RestoredVersion: ticket.AIOutput.Version,
			ReplacedVersion: replaced,
		},
	})

	out := ticket.Clone()
	return &out, nil
}

// Delete removes one ticket and reports whether it existed.
func (s *TicketService) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.unlockAndPublish(ctx)
	s.hydrateLocked(ctx)

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}

	removed := s.tickets[idx]
	next := make([]domain.Ticket, 0, len(s.tickets)-1)
	next = append(next, s.tickets[:idx]...)
	next = append(next, s.tickets[idx+1:]...)
	s.commit(ctx, next)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: removed.ID,
		Payload:  events.TicketDeletedPayload{Title: removed.Title},
	})
	return true
}

// Clear removes every ticket and returns how many were dropped. The seed is
// not re-injected afterwards.
func (s *TicketService) Clear(ctx context.Context) int {
	s.mu.Lock()
	defer s.unlockAndPublish(ctx)
	s.hydrateLocked(ctx)

	count := len(s.tickets)
	s.repo.Clear(ctx)
	s.tickets = []domain.Ticket{}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketsCleared,
		Payload: events.TicketsClearedPayload{Count: count},
	})
	return count
}

// BulkUpdateStatus applies status to every known id in one write.
func (s *TicketService) BulkUpdateStatus(ctx context.Context, ids []string, status domain.TicketStatus) (BulkStatusResult, error) {
	if !status.Valid() {
		return BulkStatusResult{}, invalidStatus(status)
	}

	s.mu.Lock()
	defer s.unlockAndPublish(ctx)
	s.hydrateLocked(ctx)

	result := BulkStatusResult{NotFound: []string{}}
	next := s.copyTickets()
	type change struct {
		idx      int
		previous domain.TicketStatus
	}
	var changes []change
	for _, id := range uniqueIDs(ids) {
		idx := indexIn(next, id)
		if idx < 0 {
			result.NotFound = append(result.NotFound, id)
			continue
		}
		changes = append(changes, change{idx: idx, previous: s.setStatus(next, idx, status)})
	}
	if len(changes) == 0 {
		return result, nil
	}

	s.commit(ctx, next)
	for _, c := range changes {
		s.publishStatusChange(ctx, next[c.idx], c.previous)
	}
	result.Updated = len(changes)
	return result, nil
}

// BulkDelete removes every known id in one write. Nothing happens until the
// caller confirms.
func (s *TicketService) BulkDelete(ctx context.Context, ids []string, confirmed bool) BulkDeleteResult {
	if !confirmed {
		return BulkDeleteResult{NotFound: []string{}, ConfirmationRequired: true}
	}

	s.mu.Lock()
	defer s.unlockAndPublish(ctx)
	s.hydrateLocked(ctx)

	result := BulkDeleteResult{NotFound: []string{}}
	drop := make(map[string]struct{})
	for _, id := range uniqueIDs(ids) {
		if s.indexOf(id) < 0 {
			result.NotFound = append(result.NotFound, id)
			continue
		}
		drop[id] = struct{}{}
	}
	if len(drop) == 0 {
		return result
	}

	next := make([]domain.Ticket, 0, len(s.tickets)-len(drop))
	var removed []domain.Ticket
	for _, ticket := range s.tickets {
		if _, ok := drop[ticket.ID]; ok {
			removed = append(removed, ticket)
			continue
		}
		next = append(next, ticket)
	}
	s.commit(ctx, next)

	for _, ticket := range removed {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketDeleted,
			TicketID: ticket.ID,
			Payload:  events.TicketDeletedPayload{Title: ticket.Title},
		})
	}
	result.Deleted = len(removed)
	return result
}

// Ping reports whether the backing store is reachable.
func (s *TicketService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *TicketService) buildTicket(input domain.CreateTicketInput, detected domain.Environment) domain.Ticket {
	now := domain.NewTimestamp(s.now())
	return domain.Ticket{
		ID:               s.newID(),
		Title:            input.Title,
		Category:         input.Category,
		Priority:         input.Priority,
		Status:           domain.TicketStatusOpen,
		Channel:          input.Channel,
		Description:      input.Description,
		StepsToReproduce: input.StepsToReproduce,
		ExpectedResult:   input.ExpectedResult,
		ActualResult:     input.ActualResult,
		Environment:      environment.Merge(detected, input.Environment),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// setStatus updates next[idx] in place and returns the previous status.
func (s *TicketService) setStatus(next []domain.Ticket, idx int, status domain.TicketStatus) domain.TicketStatus {
	ticket := next[idx].Clone()
	previous := ticket.Status
	ticket.Status = status
	ticket.Touch(s.now())
	next[idx] = ticket
	return previous
}

func (s *TicketService) publishStatusChange(ctx context.Context, ticket domain.Ticket, previous domain.TicketStatus) {
	if previous == ticket.Status {
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: ticket.Status,
		},
	})
}

func (s *TicketService) commit(ctx context.Context, next []domain.Ticket) {
	s.repo.Save(ctx, next)
	s.tickets = next
}

func (s *TicketService) copyTickets() []domain.Ticket {
	return append([]domain.Ticket(nil), s.tickets...)
}

func (s *TicketService) indexOf(id string) int {
	return indexIn(s.tickets, id)
}

func indexIn(tickets []domain.Ticket, id string) int {
	for i := range tickets {
		if tickets[i].ID == id {
			return i
		}
	}
	return -1
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func ticketNotFound(id string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"id": id})
}

func invalidStatus(status domain.TicketStatus) error {
	return apperrors.NewValidationError("invalid status", map[string]any{
		"status":  string(status),
		"allowed": domain.TicketStatuses(),
	})
}

// publishEvent queues event for delivery once the collection lock is
// released.
func (s *TicketService) publishEvent(_ context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.pending = append(s.pending, event)
}

// unlockAndPublish releases mu and then delivers the queued events in
// mutation order.
func (s *TicketService) unlockAndPublish(ctx context.Context) {
	queued := s.pending
	s.pending = nil
	if len(queued) == 0 {
		s.mu.Unlock()
		return
	}

	s.publishMu.Lock()
	s.mu.Unlock()
	defer s.publishMu.Unlock()
	for _, event := range queued {
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
}
