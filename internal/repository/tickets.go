package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// TicketRepository handles persistence for issued tickets.
type TicketRepository struct {
	db *pgxpool.Pool
}

// NewTicketRepository constructs a TicketRepository.
func NewTicketRepository(db *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: db}
}

// CreateTicket inserts a ticket without its QR image. A reused code yields
// model.ErrDuplicateCode.
func (r *TicketRepository) CreateTicket(ctx context.Context, t *model.Ticket) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tickets (id, code, event_id, user_id, email, holder_name, tier_id, quantity, total_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10)`,
		t.ID, t.Code, t.EventID, nullable(t.UserID), t.Email, t.HolderName, nullable(t.TierID),
		t.Quantity, t.TotalAmount.String(), t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "tickets_code_key" {
			return model.ErrDuplicateCode
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// AttachQR stores the ticket's QR image.
func (r *TicketRepository) AttachQR(ctx context.Context, ticketID string, png []byte) error {
	tag, err := r.db.Exec(ctx, `UPDATE tickets SET qr_image = $1 WHERE id = $2`, png, ticketID)
	if err != nil {
		return fmt.Errorf("attach qr: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

const detailsQuery = `
SELECT t.id, t.code, t.event_id, t.user_id, t.email, t.holder_name, t.tier_id,
       t.quantity, t.total_amount::text, t.qr_image, t.created_at,
       e.id, e.title, e.description, e.date, e.start_time, e.location, e.created_at,
       tt.name, tt.price::text, tt.capacity, tt.sold
FROM tickets t
JOIN events e ON e.id = t.event_id
LEFT JOIN ticket_tiers tt ON tt.id = t.tier_id`

// GetTicketDetails loads a ticket with its event and tier.
func (r *TicketRepository) GetTicketDetails(ctx context.Context, ticketID string) (model.TicketDetails, error) {
	return r.getDetails(ctx, `WHERE t.id = $1`, ticketID)
}

// GetTicketDetailsByCode is GetTicketDetails keyed by the public code.
func (r *TicketRepository) GetTicketDetailsByCode(ctx context.Context, code string) (model.TicketDetails, error) {
	return r.getDetails(ctx, `WHERE t.code = $1`, code)
}

func (r *TicketRepository) getDetails(ctx context.Context, where string, arg string) (model.TicketDetails, error) {
	d, err := scanDetails(r.db.QueryRow(ctx, detailsQuery+"\n"+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TicketDetails{}, model.ErrNotFound
		}
		return model.TicketDetails{}, fmt.Errorf("get ticket: %w", err)
	}
	return d, nil
}

// ListTicketsWithoutCertificate returns tickets for events whose date is
// earlier than the calendar day of `before` and that have no certificate
// yet, oldest first.
func (r *TicketRepository) ListTicketsWithoutCertificate(ctx context.Context, before time.Time) ([]model.TicketDetails, error) {
	rows, err := r.db.Query(ctx, detailsQuery+`
		WHERE e.date < $1::date
		  AND NOT EXISTS (SELECT 1 FROM certificates c WHERE c.ticket_id = t.id)
		ORDER BY t.created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("list tickets without certificate: %w", err)
	}
	defer rows.Close()

	var out []model.TicketDetails
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDetails(row pgx.Row) (model.TicketDetails, error) {
	var (
		d                      model.TicketDetails
		userID, tierID         *string
		total                  string
		start                  pgtype.Time
		tierName, tierPrice    *string
		tierCapacity, tierSold *int
	)
	err := row.Scan(
		&d.Ticket.ID, &d.Ticket.Code, &d.Ticket.EventID, &userID, &d.Ticket.Email, &d.Ticket.HolderName, &tierID,
		&d.Ticket.Quantity, &total, &d.Ticket.QRImage, &d.Ticket.CreatedAt,
		&d.Event.ID, &d.Event.Title, &d.Event.Description, &d.Event.Date, &start, &d.Event.Location, &d.Event.CreatedAt,
		&tierName, &tierPrice, &tierCapacity, &tierSold,
	)
	if err != nil {
		return model.TicketDetails{}, err
	}

	if d.Ticket.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return model.TicketDetails{}, fmt.Errorf("ticket %s total %q: %w", d.Ticket.ID, total, err)
	}
	d.Ticket.UserID = deref(userID)
	d.Ticket.TierID = deref(tierID)
	d.Event.StartTime = fromPGTime(start)

	if tierName != nil {
		d.Tier = model.TicketTier{
			ID:       d.Ticket.TierID,
			EventID:  d.Event.ID,
			Name:     *tierName,
			Capacity: *tierCapacity,
			Sold:     *tierSold,
		}
		if d.Tier.Price, err = decimal.NewFromString(*tierPrice); err != nil {
			return model.TicketDetails{}, fmt.Errorf("tier %s price %q: %w", d.Tier.ID, *tierPrice, err)
		}
	}
	return d, nil
}

// RSVPRepository handles persistence for RSVPs.
type RSVPRepository struct {
	db *pgxpool.Pool
}

// NewRSVPRepository constructs an RSVPRepository.
func NewRSVPRepository(db *pgxpool.Pool) *RSVPRepository {
	return &RSVPRepository{db: db}
}

// UpsertRSVP overwrites the (user, event) RSVP.
func (r *RSVPRepository) UpsertRSVP(ctx context.Context, rsvp model.RSVP) error {
	if rsvp.UserID == "" {
		return fmt.Errorf("rsvp requires a user")
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO rsvps (user_id, event_id, status, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, event_id)
		 DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		rsvp.UserID, rsvp.EventID, rsvp.Status, rsvp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert rsvp: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
