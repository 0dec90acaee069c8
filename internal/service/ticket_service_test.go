package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/supportpilot/internal/domain"
	"github.com/spec-kit/supportpilot/internal/events"
	"github.com/spec-kit/supportpilot/internal/persistence"
	"github.com/spec-kit/supportpilot/internal/query"
	"github.com/spec-kit/supportpilot/internal/repository"
	apperrors "github.com/spec-kit/supportpilot/pkg/util/errorutil"
)

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

// stepClock advances one second per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	svc       *TicketService
	repo      repository.TicketRepository
	published []events.Event
	mu        sync.Mutex
}

func (f *fixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, len(f.published))
	for i, e := range f.published {
		out[i] = e.Type
	}
	return out
}

func newFixture(t *testing.T, existing ...domain.Ticket) *fixture {
	t.Helper()
	repo := repository.NewTicketRepository(persistence.NewMemory(), "", nil)
	if len(existing) > 0 {
		repo.Save(context.Background(), existing)
	}
	return newFixtureOn(repo)
}

func newFixtureOn(repo repository.TicketRepository) *fixture {
	f := &fixture{repo: repo}
	dispatcher := events.NewInMemoryDispatcher()
	record := func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.published = append(f.published, e)
		return nil
	}
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAIOutputSaved,
		events.EventTicketAIOutputRestored,
		events.EventTicketDeleted,
		events.EventTicketsCleared,
	} {
		dispatcher.Subscribe(et, record)
	}

	clock := &stepClock{now: t0}
	seq := 0
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Dispatcher: dispatcher,
		Clock:      clock.Now,
		IDFunc: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	return f
}

func existingTicket(id string, created time.Time) domain.Ticket {
	return domain.Ticket{
		ID:          id,
		Title:       "Existing " + id,
		Description: "already filed",
		Category:    domain.TicketCategoryBug,
		Priority:    domain.TicketPriorityMedium,
		Status:      domain.TicketStatusOpen,
		Channel:     domain.TicketChannelWeb,
		CreatedAt:   domain.NewTimestamp(created),
		UpdatedAt:   domain.NewTimestamp(created),
	}
}

func analysis(n int) domain.AnalysisResult {
	return domain.AnalysisResult{
		CustomerReply:     fmt.Sprintf("reply %d", n),
		QASummary:         fmt.Sprintf("summary %d", n),
		FollowUpQuestions: []string{"q"},
	}
}

func TestHydrateSeedsEmptyStoreOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.svc.Hydrate(ctx)
	f.svc.Hydrate(ctx)

	res := f.svc.List(ctx, query.Default())
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "Mobile checkout button not responding", res.Items[0].Title)
	assert.Equal(t, domain.TicketStatusOpen, res.Items[0].Status)
	assert.Equal(t, "iOS 17.2", res.Items[0].Environment.OS)

	stored := f.repo.Load(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, res.Items[0].ID, stored[0].ID)
}

func TestHydrateKeepsExistingAndNormalizes(t *testing.T) {
	ctx := context.Background()
	legacy := existingTicket("legacy", t0.Add(-time.Hour))
	legacy.AIOutputHistory = []domain.AIOutput{
		{CustomerReply: "b", GeneratedAt: domain.NewTimestamp(t0.Add(-20 * time.Minute))},
		{CustomerReply: "a", GeneratedAt: domain.NewTimestamp(t0.Add(-30 * time.Minute))},
	}
	legacy.AIOutput = &domain.AIOutput{CustomerReply: "c", GeneratedAt: domain.NewTimestamp(t0.Add(-10 * time.Minute))}
	f := newFixture(t, legacy)

	ticket, err := f.svc.Get(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, 3, ticket.AIOutput.Version)
	assert.Equal(t, 3, ticket.AIOutputVersionCounter)
	assert.Equal(t, "a", ticket.AIOutputHistory[0].CustomerReply)
	assert.Equal(t, 1, ticket.AIOutputHistory[0].Version)
	assert.Equal(t, 1, f.svc.List(ctx, query.Default()).Total, "no seed when store has tickets")

	stored := f.repo.Load(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, 3, stored[0].AIOutputVersionCounter, "normalized collection is persisted")
}

func TestHydrateNormalizesMixedLegacyHistory(t *testing.T) {
	ctx := context.Background()
	legacy := existingTicket("mixed", t0.Add(-time.Hour))
	legacy.AIOutput = &domain.AIOutput{Version: 2, CustomerReply: "cur", GeneratedAt: domain.NewTimestamp(t0.Add(-10 * time.Minute))}
	legacy.AIOutputHistory = []domain.AIOutput{
		{Version: 5, CustomerReply: "a", GeneratedAt: domain.NewTimestamp(t0.Add(-30 * time.Minute))},
		{CustomerReply: "b", GeneratedAt: domain.NewTimestamp(t0.Add(-20 * time.Minute))},
	}
	f := newFixture(t, legacy)

	ticket, err := f.svc.Get(ctx, "mixed")
	require.NoError(t, err)
	require.Len(t, ticket.AIOutputHistory, 2)
	assert.Equal(t, 5, ticket.AIOutputHistory[0].Version)
	assert.Equal(t, 6, ticket.AIOutputHistory[1].Version)
	assert.Equal(t, "b", ticket.AIOutputHistory[1].CustomerReply)
	assert.Equal(t, 2, ticket.AIOutput.Version)
	assert.Equal(t, 6, ticket.AIOutputVersionCounter)

	stored := f.repo.Load(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, 6, stored[0].AIOutputVersionCounter)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, existingTicket("old", t0.Add(-time.Hour)))

	created := f.svc.Create(ctx, domain.CreateTicketInput{
		Title:       "Login fails",
		Description: "Password reset loop",
		Category:    domain.TicketCategoryLogin,
		Priority:    domain.TicketPriorityUrgent,
		Channel:     domain.TicketChannelWeb,
		Environment: &domain.Environment{OS: "Windows 11"},
	}, domain.Environment{Browser: "Chrome", OS: "Windows", DeviceType: domain.DeviceTypeDesktop})

	require.NotNil(t, created)
	assert.Equal(t, "id-1", created.ID)
	assert.Equal(t, domain.TicketStatusOpen, created.Status)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Nil(t, created.AIOutput)
	assert.Equal(t, "Chrome", created.Environment.Browser)
	assert.Equal(t, "Windows 11", created.Environment.OS)

	res := f.svc.List(ctx, query.Default())
	assert.Equal(t, []string{"id-1", "old"}, res.IDs())

	stored := f.repo.Load(ctx)
	require.Len(t, stored, 2)
	assert.Equal(t, "id-1", stored[0].ID, "new tickets are prepended")
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.eventTypes())

	reloaded := newFixtureOn(f.repo)
	got, err := reloaded.svc.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "Login fails", got.Title)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, existingTicket("a", t0))

	got, err := f.svc.Get(ctx, "a")
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := f.svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Existing a", again.Title)

	_, err = f.svc.Get(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, existingTicket("a", t0))

	updated, err := f.svc.UpdateStatus(ctx, "a", domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt.Time))
	assert.Equal(t, domain.TicketStatusInProgress, f.repo.Load(ctx)[0].Status)

	_, err = f.svc.UpdateStatus(ctx, "missing", domain.TicketStatusResolved)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.UpdateStatus(ctx, "a", domain.TicketStatus("Closed"))
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidationFailed, de.Code)

	assert.Equal(t, []events.EventType{events.EventTicketStatusChanged}, f.eventTypes())
}

func TestSaveAIOutputVersioning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, existingTicket("a", t0))

	first, err := f.svc.SaveAIOutput(ctx, "a", analysis(1), "gpt-5-nano")
	require.NoError(t, err)
	assert.Equal(t, 1, first.AIOutput.Version)
	assert.Equal(t, domain.TicketStatusResolved, first.Status)
	assert.Empty(t, first.AIOutputHistory)

	second, err := f.svc.SaveAIOutput(ctx, "a", analysis(2), "gpt-5-nano")
	require.NoError(t, err)
	assert.Equal(t, 2, second.AIOutput.Version)
	assert.Equal(t, "reply 2", second.AIOutput.CustomerReply)
	require.Len(t, second.AIOutputHistory, 1)
	assert.Equal(t, 1, second.AIOutputHistory[0].Version)
	assert.Equal(t, 2, second.AIOutputVersionCounter)
	assert.Equal(t, "gpt-5-nano", second.AIOutput.Model)

	for i := 3; i <= 9; i++ {
		_, err := f.svc.SaveAIOutput(ctx, "a", analysis(i), "m")
		require.NoError(t, err)
	}
	got, err := f.svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 9, got.AIOutput.Version)
	versions := make([]int, 0, len(got.AIOutputHistory))
	for _, entry := range got.AIOutputHistory {
		versions = append(versions, entry.Version)
	}
	assert.Equal(t, []int{1, 5, 6, 7, 8}, versions)

	_, err = f.svc.SaveAIOutput(ctx, "missing", analysis(1), "m")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRestoreVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, existingTicket("a", t0))
	for i := 1; i <= 3; i++ {
		_, err := f.svc.SaveAIOutput(ctx, "a", analysis(i), "m")
		require.NoError(t, err)
	}
	_, err := f.svc.UpdateStatus(ctx, "a", domain.TicketStatusInProgress)
	require.NoError(t, err)

	restored, err := f.svc.RestoreVersion(ctx, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.AIOutput.Version)
	assert.Equal(t, 3, restored.AIOutputVersionCounter)
	assert.Equal(t, domain.TicketStatusInProgress, restored.Status, "restore leaves status alone")
	require.Len(t, restored.AIOutputHistory, 2)
	assert.Equal(t, 2, restored.AIOutputHistory[0].Version)
	assert.Equal(t, 3, restored.AIOutputHistory[1].Version)

	_, err = f.svc.RestoreVersion(ctx, "a", 5)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.ToDomainError(err).Code)
	_, err = f.svc.RestoreVersion(ctx, "missing", 0)
	assert.True(t, apperrors.IsNotFound(err))

	next, err := f.svc.SaveAIOutput(ctx, "a", analysis(4), "m")
	require.NoError(t, err)
	assert.Equal(t, 4, next.AIOutput.Version)
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, existingTicket("a", t0), existingTicket("b", t0))

	assert.False(t, f.svc.Delete(ctx, "missing"))
	assert.True(t, f.svc.Delete(ctx, "a"))
	assert.False(t, f.svc.Delete(ctx, "a"))
	assert.Equal(t, []string{"b"}, f.svc.List(ctx, query.Default()).IDs())
	require.Len(t, f.repo.Load(ctx), 1)

	assert.Equal(t, 1, f.svc.Clear(ctx))
	f.svc.Hydrate(ctx)
	assert.Equal(t, 0, f.svc.List(ctx, query.Default()).Total, "clearing does not re-seed")
	assert.Empty(t, f.repo.Load(ctx))

	assert.Equal(t, []events.EventType{events.EventTicketDeleted, events.EventTicketsCleared}, f.eventTypes())
}

func TestBulkOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, existingTicket("a", t0), existingTicket("b", t0), existingTicket("c", t0))

	res, err := f.svc.BulkUpdateStatus(ctx, []string{"a", "b", "zz", "a", " "}, domain.TicketStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, []string{"zz"}, res.NotFound)

	s := query.Default()
	s.Status = "Resolved"
	assert.Equal(t, 2, f.svc.List(ctx, s).Total)

	_, err = f.svc.BulkUpdateStatus(ctx, []string{"a"}, "Done")
	assert.Error(t, err)

	unconfirmed := f.svc.BulkDelete(ctx, []string{"a", "b"}, false)
	assert.True(t, unconfirmed.ConfirmationRequired)
	assert.Equal(t, 0, unconfirmed.Deleted)
	assert.Equal(t, 3, f.svc.List(ctx, query.Default()).Total)

	deleted := f.svc.BulkDelete(ctx, []string{"a", "b", "nope"}, true)
	assert.False(t, deleted.ConfirmationRequired)
	assert.Equal(t, 2, deleted.Deleted)
	assert.Equal(t, []string{"nope"}, deleted.NotFound)
	assert.Equal(t, []string{"c"}, f.svc.List(ctx, query.Default()).IDs())
	assert.Len(t, f.repo.Load(ctx), 1)
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, existingTicket("a", t0))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = f.svc.SaveAIOutput(ctx, "a", analysis(n), "m")
		}(i)
	}
	wg.Wait()

	got, err := f.svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 20, got.AIOutput.Version)
	assert.Equal(t, 20, got.AIOutputVersionCounter)
	assert.LessOrEqual(t, len(got.AIOutputHistory), domain.AIOutputHistoryCap)
}

func TestEventsAreDeliveredAfterUnlock(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewTicketService(TicketDependencies{
		TicketRepo: repository.NewTicketRepository(persistence.NewMemory(), "", nil),
		Dispatcher: dispatcher,
		Clock:      func() time.Time { return t0 },
	})
	svc.Hydrate(ctx)

	var seen []int
	dispatcher.Subscribe(events.EventTicketCreated, func(ctx context.Context, _ events.Event) error {
		seen = append(seen, svc.List(ctx, query.Default()).Total)
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Create(ctx, domain.CreateTicketInput{
			Title:       "Export hangs",
			Description: "CSV export never finishes",
			Category:    domain.TicketCategoryBug,
			Priority:    domain.TicketPriorityHigh,
			Channel:     domain.TicketChannelWeb,
		}, domain.Environment{})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber could not read the collection while the event was delivered")
	}
	require.Len(t, seen, 1)
	assert.Equal(t, 2, seen[0], "seed and the new ticket are visible to the subscriber")
}
