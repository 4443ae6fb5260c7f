package ticketing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/codegen"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository/memory"
)

var (
	testEvent = model.Event{ID: "evt-1", Title: "Go Meetup", Date: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)}
	testTier  = model.TicketTier{ID: "ga", EventID: "evt-1", Name: "General", Price: decimal.RequireFromString("12.50"), Capacity: 10}
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	e := testEvent
	e.Tiers = []model.TicketTier{testTier}
	require.NoError(t, store.SeedEvent(context.Background(), e))
	return store
}

func request(qty int) Request {
	return Request{
		Event:       testEvent,
		Tier:        testTier,
		Purchaser:   model.Purchaser{UserID: "user-1", DisplayName: "Ada"},
		Email:       "ada@example.com",
		Quantity:    qty,
		TotalAmount: testTier.Price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

type MockEncoder struct {
	mock.Mock
}

func (m *MockEncoder) Encode(payload string) ([]byte, error) {
	args := m.Called(payload)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestIssue_PersistsTicketWithQR(t *testing.T) {
	store := seededStore(t)
	log, _ := logtest.NewNullLogger()
	issuer := NewIssuer(store, store, codegen.NewPNGEncoder(), log)

	issued, err := issuer.Issue(context.Background(), request(2))

	require.NoError(t, err)
	assert.Empty(t, issued.Warnings)

	ticket := issued.Details.Ticket
	assert.NotEmpty(t, ticket.Code)
	assert.Equal(t, 2, ticket.Quantity)
	assert.True(t, decimal.RequireFromString("25").Equal(ticket.TotalAmount))
	assert.True(t, ticket.HasQR())
	assert.False(t, ticket.CreatedAt.IsZero())

	stored, err := store.GetTicketDetails(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Code, stored.Ticket.Code)
	assert.Equal(t, ticket.QRImage, stored.Ticket.QRImage)

	rsvps := store.RSVPs("evt-1")
	require.Len(t, rsvps, 1)
	assert.Equal(t, model.RSVPGoing, rsvps[0].Status)
}

func TestIssue_UniqueCodesUnderConcurrency(t *testing.T) {
	store := seededStore(t)
	log, _ := logtest.NewNullLogger()
	issuer := NewIssuer(store, store, codegen.NewPNGEncoder(), log)

	var (
		mu    sync.Mutex
		codes = map[string]struct{}{}
		wg    sync.WaitGroup
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issued, err := issuer.Issue(context.Background(), request(1))
			assert.NoError(t, err)
			mu.Lock()
			codes[issued.Details.Ticket.Code] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, codes, 40)
	assert.Equal(t, 40, store.TicketCount())
}

func TestIssue_RepeatedIssuanceKeepsOneRSVP(t *testing.T) {
	store := seededStore(t)
	log, _ := logtest.NewNullLogger()
	issuer := NewIssuer(store, store, codegen.NewPNGEncoder(), log)

	for i := 0; i < 3; i++ {
		_, err := issuer.Issue(context.Background(), request(1))
		require.NoError(t, err)
	}

	assert.Len(t, store.RSVPs("evt-1"), 1)
}

func TestIssue_AnonymousPurchaserSkipsRSVP(t *testing.T) {
	store := seededStore(t)
	log, _ := logtest.NewNullLogger()
	issuer := NewIssuer(store, store, codegen.NewPNGEncoder(), log)

	req := request(1)
	req.Purchaser = model.Purchaser{}
	issued, err := issuer.Issue(context.Background(), req)

	require.NoError(t, err)
	assert.Empty(t, issued.Warnings)
	assert.Empty(t, store.RSVPs("evt-1"))
}

func TestIssue_QRFailureKeepsTicket(t *testing.T) {
	store := seededStore(t)
	log, hook := logtest.NewNullLogger()
	enc := &MockEncoder{}
	enc.On("Encode", mock.Anything).Return(nil, errors.New("encoder down"))
	issuer := NewIssuer(store, store, enc, log)

	issued, err := issuer.Issue(context.Background(), request(1))

	require.NoError(t, err)
	require.Len(t, issued.Warnings, 1)
	assert.ErrorIs(t, issued.Warnings[0], model.ErrArtifactGeneration)
	assert.False(t, issued.Details.Ticket.HasQR())
	assert.NotEmpty(t, hook.AllEntries())

	stored, err := store.GetTicketDetails(context.Background(), issued.Details.Ticket.ID)
	require.NoError(t, err)
	assert.False(t, stored.Ticket.HasQR())
	enc.AssertExpectations(t)
}

type collidingStore struct {
	*memory.Store
	collisions int
}

func (c *collidingStore) CreateTicket(ctx context.Context, ticket *model.Ticket) error {
	if c.collisions > 0 {
		c.collisions--
		return model.ErrDuplicateCode
	}
	return c.Store.CreateTicket(ctx, ticket)
}

func TestIssue_RetriesCodeCollision(t *testing.T) {
	store := &collidingStore{Store: seededStore(t), collisions: 2}
	log, _ := logtest.NewNullLogger()
	issuer := NewIssuer(store, store, codegen.NewPNGEncoder(), log)

	_, err := issuer.Issue(context.Background(), request(1))

	require.NoError(t, err)
	assert.Equal(t, 1, store.TicketCount())
}

func TestIssue_PersistFailureIsHard(t *testing.T) {
	store := &collidingStore{Store: seededStore(t), collisions: codeAttempts}
	log, _ := logtest.NewNullLogger()
	issuer := NewIssuer(store, store, codegen.NewPNGEncoder(), log)

	_, err := issuer.Issue(context.Background(), request(1))

	assert.ErrorIs(t, err, model.ErrDuplicateCode)
	assert.Equal(t, 0, store.TicketCount())
}
