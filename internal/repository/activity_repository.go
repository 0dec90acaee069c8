package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/supportpilot/internal/domain"
)

// DefaultActivityLimit bounds ListByTicket when no limit is given.
const DefaultActivityLimit = 50

// ActivityRepository stores the per-ticket activity log.
type ActivityRepository interface {
	Append(ctx context.Context, entry *domain.ActivityEntry) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.ActivityEntry, error)
}

// ActivityPruner is implemented by activity logs that discard the entries of
// removed tickets.
type ActivityPruner interface {
	Forget(ctx context.Context, ticketID string) error
	ForgetTickets(ctx context.Context) error
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds the postgres-backed log.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Append(ctx context.Context, entry *domain.ActivityEntry) error {
	const query = `
        INSERT INTO ticket_activity (event_id, ticket_id, event_type, payload, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		entry.EventID,
		entry.TicketID,
		entry.Type,
		[]byte(entry.Payload),
		entry.CreatedAt,
	).Scan(&entry.ID)
}

// ListByTicket returns the newest entries first.
func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.ActivityEntry, error) {
	const query = `
        SELECT id, event_id, ticket_id, event_type, payload, created_at
        FROM ticket_activity WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ActivityEntry{}
	for rows.Next() {
		var (
			entry   domain.ActivityEntry
			payload []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.TicketID,
			&entry.Type,
			&payload,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Payload = payload
		result = append(result, entry)
	}
	return result, rows.Err()
}

// MemoryActivityRepository keeps the newest entries of each ticket in
// process memory.
type MemoryActivityRepository struct {
	mu        sync.Mutex
	perTicket int
	nextID    int64
	entries   map[string][]domain.ActivityEntry
}

// NewMemoryActivityRepository keeps at most perTicket entries per ticket.
func NewMemoryActivityRepository(perTicket int) *MemoryActivityRepository {
	if perTicket <= 0 {
		perTicket = DefaultActivityLimit
	}
	return &MemoryActivityRepository{
		perTicket: perTicket,
		entries:   make(map[string][]domain.ActivityEntry),
	}
}

func (r *MemoryActivityRepository) Append(_ context.Context, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	stored := *entry
	stored.Payload = append([]byte(nil), entry.Payload...)

	list := append(r.entries[entry.TicketID], stored)
	if len(list) > r.perTicket {
		list = append([]domain.ActivityEntry(nil), list[len(list)-r.perTicket:]...)
	}
	r.entries[entry.TicketID] = list
	return nil
}

// ListByTicket returns the newest entries first.
func (r *MemoryActivityRepository) ListByTicket(_ context.Context, ticketID string, limit int) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[ticketID]
	limit = normalizeLimit(limit)
	result := make([]domain.ActivityEntry, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, list[i])
	}
	return result, nil
}

// Forget drops every entry kept for ticketID.
func (r *MemoryActivityRepository) Forget(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, ticketID)
	return nil
}

// ForgetTickets drops the entries of every ticket, keeping store-wide events.
func (r *MemoryActivityRepository) ForgetTickets(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ticketID := range r.entries {
		if ticketID != "" {
			delete(r.entries, ticketID)
		}
	}
	return nil
}

// Tracked is the number of tickets with kept entries.
func (r *MemoryActivityRepository) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultActivityLimit
	}
	return limit
}
