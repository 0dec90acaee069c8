package repository

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/domain"
	"github.com/spec-kit/supportpilot/internal/persistence"
)

// DefaultTicketKey namespaces the ticket collection inside the blob store.
const DefaultTicketKey = "supportpilot:tickets:v1"

// TicketRepository persists the whole ticket collection as one document.
//
// Storage failures never propagate: reads degrade to an empty collection and
// writes to no-ops, so callers keep working in memory.
type TicketRepository interface {
	Load(ctx context.Context) []domain.Ticket
	Save(ctx context.Context, tickets []domain.Ticket)
	Clear(ctx context.Context)
	Ping(ctx context.Context) error
}

type ticketRepository struct {
	blobs  persistence.BlobStore
	key    string
	logger *zap.Logger
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(blobs persistence.BlobStore, key string, logger *zap.Logger) TicketRepository {
	if key == "" {
		key = DefaultTicketKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ticketRepository{blobs: blobs, key: key, logger: logger}
}

func (r *ticketRepository) Load(ctx context.Context) []domain.Ticket {
	raw, err := r.blobs.Read(ctx, r.key)
	if err != nil {
		if !errors.Is(err, persistence.ErrBlobNotFound) {
			r.logger.Warn("ticket store unavailable; starting empty", zap.String("key", r.key), zap.Error(err))
		}
		return []domain.Ticket{}
	}
	if len(raw) == 0 {
		return []domain.Ticket{}
	}

	var tickets []domain.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		r.logger.Warn("ticket store holds invalid JSON; ignoring", zap.String("key", r.key), zap.Error(err))
		return []domain.Ticket{}
	}
	if tickets == nil {
		return []domain.Ticket{}
	}
	return tickets
}

func (r *ticketRepository) Save(ctx context.Context, tickets []domain.Ticket) {
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	raw, err := json.Marshal(tickets)
	if err != nil {
		r.logger.Error("encode tickets", zap.Error(err))
		return
	}
	if err := r.blobs.Write(ctx, r.key, raw); err != nil {
		r.logger.Warn("ticket store write failed; changes kept in memory only", zap.String("key", r.key), zap.Error(err))
	}
}

func (r *ticketRepository) Clear(ctx context.Context) {
	if err := r.blobs.Remove(ctx, r.key); err != nil {
		r.logger.Warn("ticket store clear failed", zap.String("key", r.key), zap.Error(err))
	}
}

func (r *ticketRepository) Ping(ctx context.Context) error {
	return r.blobs.Ping(ctx)
}
