// Package repository implements the PostgreSQL persistence for events,
// tiers, tickets, certificates and RSVPs.
// It uses pgx directly (no ORM).
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// Store bundles every repository over one pool.
type Store struct {
	*EventRepository
	*TierRepository
	*TicketRepository
	*CertificateRepository
	*RSVPRepository
}

// New constructs a Store.
func New(db *pgxpool.Pool) *Store {
	return &Store{
		EventRepository:       NewEventRepository(db),
		TierRepository:        NewTierRepository(db),
		TicketRepository:      NewTicketRepository(db),
		CertificateRepository: NewCertificateRepository(db),
		RSVPRepository:        NewRSVPRepository(db),
	}
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, date, start_time, location, created_at`

// SeedEvent inserts the event and its tiers. Rows whose id already exists
// are left untouched, so seeding is repeatable.
func (r *EventRepository) SeedEvent(ctx context.Context, event model.Event) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		event.ID, event.Title, event.Description, event.Date, toPGTime(event.StartTime), event.Location, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	for _, t := range event.Tiers {
		_, err = tx.Exec(ctx,
			`INSERT INTO ticket_tiers (id, event_id, name, price, capacity, sold)
			 VALUES ($1, $2, $3, $4::numeric, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			t.ID, event.ID, t.Name, t.Price.String(), t.Capacity, t.Sold,
		)
		if err != nil {
			return fmt.Errorf("insert tier %s: %w", t.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetEvent returns a single event with its tiers, or model.ErrNotFound.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, model.ErrNotFound
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}

	tiers, err := r.tiers(ctx, []string{id})
	if err != nil {
		return model.Event{}, err
	}
	e.Tiers = tiers[id]
	return e, nil
}

// ListEvents returns all events ordered by date, soonest first.
func (r *EventRepository) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	var ids []string
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(ids) == 0 {
		return events, nil
	}

	tiers, err := r.tiers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Tiers = tiers[events[i].ID]
	}
	return events, nil
}

func (r *EventRepository) tiers(ctx context.Context, eventIDs []string) (map[string][]model.TicketTier, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tierColumns+` FROM ticket_tiers
		 WHERE event_id = ANY($1)
		 ORDER BY price ASC, name ASC`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.TicketTier, len(eventIDs))
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		out[t.EventID] = append(out[t.EventID], t)
	}
	return out, rows.Err()
}

// TierRepository handles persistence for ticket tiers.
type TierRepository struct {
	db *pgxpool.Pool
}

// NewTierRepository constructs a TierRepository.
func NewTierRepository(db *pgxpool.Pool) *TierRepository {
	return &TierRepository{db: db}
}

const tierColumns = `id, event_id, name, price::text, capacity, sold`

// GetTier returns an unlocked snapshot of a tier, or model.ErrNotFound.
func (r *TierRepository) GetTier(ctx context.Context, tierID string) (model.TicketTier, error) {
	t, err := scanTier(r.db.QueryRow(ctx,
		`SELECT `+tierColumns+` FROM ticket_tiers WHERE id = $1`, tierID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TicketTier{}, model.ErrNotFound
		}
		return model.TicketTier{}, fmt.Errorf("get tier: %w", err)
	}
	return t, nil
}

// UpdateTier is the check-and-increment primitive behind reservations.
//
// SELECT … FOR UPDATE takes a row-level exclusive lock on the tier. A
// concurrent UpdateTier on the same tier blocks at that SELECT until this
// transaction commits or rolls back, so fn always sees the latest sold count
// and two buyers can never both claim the last seats. Tiers are locked
// independently.
//
// fn may modify Sold. A non-nil error from fn rolls back without writing.
func (r *TierRepository) UpdateTier(ctx context.Context, eventID, tierID string, fn func(*model.TicketTier) error) (model.TicketTier, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.TicketTier{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tier, err := scanTier(tx.QueryRow(ctx,
		`SELECT `+tierColumns+`
		 FROM ticket_tiers
		 WHERE id = $1 AND event_id = $2
		 FOR UPDATE`,
		tierID, eventID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = model.ErrNotFound
			return model.TicketTier{}, err
		}
		return model.TicketTier{}, fmt.Errorf("lock tier row: %w", err)
	}

	if err = fn(&tier); err != nil {
		return model.TicketTier{}, err
	}

	// The CHECK (sold <= capacity) constraint backs up fn.
	_, err = tx.Exec(ctx,
		`UPDATE ticket_tiers SET sold = $1 WHERE id = $2`,
		tier.Sold, tierID,
	)
	if err != nil {
		return model.TicketTier{}, fmt.Errorf("update sold: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return model.TicketTier{}, fmt.Errorf("commit transaction: %w", err)
	}
	return tier, nil
}

func scanEvent(row pgx.Row) (model.Event, error) {
	var e model.Event
	var start pgtype.Time
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &start, &e.Location, &e.CreatedAt); err != nil {
		return model.Event{}, err
	}
	e.StartTime = fromPGTime(start)
	return e, nil
}

func scanTier(row pgx.Row) (model.TicketTier, error) {
	var t model.TicketTier
	var price string
	if err := row.Scan(&t.ID, &t.EventID, &t.Name, &price, &t.Capacity, &t.Sold); err != nil {
		return model.TicketTier{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return model.TicketTier{}, fmt.Errorf("tier %s price %q: %w", t.ID, price, err)
	}
	t.Price = p
	return t, nil
}

func toPGTime(t *time.Time) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	since := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	return pgtype.Time{Microseconds: since.Microseconds(), Valid: true}
}

func fromPGTime(t pgtype.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	st := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(t.Microseconds) * time.Microsecond)
	return &st
}
