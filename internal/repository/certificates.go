package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// CertificateRepository handles persistence for certificates.
type CertificateRepository struct {
	db *pgxpool.Pool
}

// NewCertificateRepository constructs a CertificateRepository.
func NewCertificateRepository(db *pgxpool.Pool) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// GetCertificate returns the ticket's certificate or model.ErrNotFound.
func (r *CertificateRepository) GetCertificate(ctx context.Context, ticketID string) (model.Certificate, error) {
	var c model.Certificate
	err := r.db.QueryRow(ctx,
		`SELECT ticket_id, filename, content, created_at FROM certificates WHERE ticket_id = $1`,
		ticketID,
	).Scan(&c.TicketID, &c.Filename, &c.Content, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Certificate{}, model.ErrNotFound
		}
		return model.Certificate{}, fmt.Errorf("get certificate: %w", err)
	}
	return c, nil
}

// CreateCertificateIfAbsent inserts cert unless the ticket already has one.
// The primary key on ticket_id makes the insert the arbiter between
// concurrent writers: the loser reads back the winner's row.
func (r *CertificateRepository) CreateCertificateIfAbsent(ctx context.Context, cert model.Certificate) (model.Certificate, bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO certificates (ticket_id, filename, content, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (ticket_id) DO NOTHING`,
		cert.TicketID, cert.Filename, cert.Content, cert.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return model.Certificate{}, false, model.ErrNotFound
		}
		return model.Certificate{}, false, fmt.Errorf("insert certificate: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return cert, true, nil
	}

	existing, err := r.GetCertificate(ctx, cert.TicketID)
	if err != nil {
		return model.Certificate{}, false, err
	}
	return existing, false, nil
}
