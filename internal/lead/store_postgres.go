package lead

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lead-enrichment/pkg/platform/sentinel"
)

// PostgresStore implements Store on the CRM leads table via pgx. Updates read
// the row FOR UPDATE inside a transaction and apply the shared Patch logic, so
// patch semantics stay identical to the memory store.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

const leadColumns = `
	id, first_name, last_name, email, phone, location,
	enrichment_consent, consent_granted_at, consent_expires_at, consent_withdrawn_at,
	credit_data_consent, permissible_purpose, ccpa_consent,
	enrichment_data, updated_at
`

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (*Lead, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin lead update: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
	l, err := scanLead(row)
	if err != nil {
		return nil, err
	}

	patch.Apply(l, s.now())

	_, err = tx.Exec(ctx, `
		UPDATE leads SET
			first_name = $2, last_name = $3, email = $4, phone = $5, location = $6,
			enrichment_consent = $7, consent_granted_at = $8, consent_expires_at = $9,
			consent_withdrawn_at = $10, credit_data_consent = $11,
			permissible_purpose = $12, ccpa_consent = $13,
			enrichment_data = $14, updated_at = $15
		WHERE id = $1`,
		l.ID, l.FirstName, l.LastName, l.Email, l.Phone, l.Location,
		l.EnrichmentConsent, l.ConsentGrantedAt, l.ConsentExpiresAt,
		l.ConsentWithdrawnAt, l.CreditDataConsent,
		nullableString(l.PermissiblePurpose), l.CCPAConsent,
		l.EnrichmentData, l.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update lead %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit lead update: %w", err)
	}
	return l, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	var purpose *string
	err := row.Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.Location,
		&l.EnrichmentConsent, &l.ConsentGrantedAt, &l.ConsentExpiresAt, &l.ConsentWithdrawnAt,
		&l.CreditDataConsent, &purpose, &l.CCPAConsent,
		&l.EnrichmentData, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	if purpose != nil {
		l.PermissiblePurpose = *purpose
	}
	return &l, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
