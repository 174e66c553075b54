package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intent-engine/internal/db"
	"github.com/sells-group/intent-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	first_name    TEXT,
	last_name     TEXT,
	email         TEXT UNIQUE,
	phone         TEXT,
	company       TEXT,
	industry      TEXT,
	location      TEXT,
	city          TEXT,
	state         TEXT,
	country       TEXT,
	source        TEXT,
	raw_data      JSONB,
	enriched_data JSONB,
	enriched_at   TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
CREATE INDEX IF NOT EXISTS idx_contacts_industry ON contacts(industry);
CREATE INDEX IF NOT EXISTS idx_contacts_created_at ON contacts(created_at);

CREATE TABLE IF NOT EXISTS intent_scores (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	contact_id    BIGINT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	score         TEXT NOT NULL,
	score_value   DOUBLE PRECISION NOT NULL,
	signals       JSONB,
	calculated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_intent_scores_contact_id ON intent_scores(contact_id);
CREATE INDEX IF NOT EXISTS idx_intent_scores_score ON intent_scores(score);

CREATE TABLE IF NOT EXISTS audiences (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT,
	filters       JSONB,
	contact_count INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audience_contacts (
	audience_id BIGINT NOT NULL REFERENCES audiences(id) ON DELETE CASCADE,
	contact_id  BIGINT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	added_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (audience_id, contact_id)
);

CREATE INDEX IF NOT EXISTS idx_audience_contacts_contact_id ON audience_contacts(contact_id);

CREATE TABLE IF NOT EXISTS serpapi_searches (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	query         TEXT NOT NULL,
	results_count INTEGER NOT NULL DEFAULT 0,
	raw_response  JSONB,
	searched_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// contactCols is the canonical select list for contact rows.
const contactCols = `id, COALESCE(first_name,''), COALESCE(last_name,''), COALESCE(email,''),
	COALESCE(phone,''), COALESCE(company,''), COALESCE(industry,''), COALESCE(location,''),
	COALESCE(city,''), COALESCE(state,''), COALESCE(country,''), COALESCE(source,''),
	raw_data, enriched_data, enriched_at, created_at, updated_at`

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalDoc(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation. The constraint is the authoritative duplicate-email guard.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateContact(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	rawJSON, err := marshalDoc(c.RawData)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal raw_data")
	}
	enrichedJSON, err := marshalDoc(c.EnrichedData)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enriched_data")
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO contacts
		 (first_name, last_name, email, phone, company, industry, location, city, state, country,
		  source, raw_data, enriched_data, enriched_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id`,
		nullIfEmpty(c.FirstName), nullIfEmpty(c.LastName), nullIfEmpty(c.Email),
		nullIfEmpty(c.Phone), nullIfEmpty(c.Company), nullIfEmpty(c.Industry),
		nullIfEmpty(c.Location), nullIfEmpty(c.City), nullIfEmpty(c.State),
		nullIfEmpty(c.Country), nullIfEmpty(string(c.Source)), rawJSON, enrichedJSON,
		c.EnrichedAt, now, now,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrap(model.ErrDuplicateEmail, "postgres: insert contact")
		}
		return eris.Wrap(err, "postgres: insert contact")
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func scanContact(row pgx.Row, c *model.Contact) error {
	var rawJSON, enrichedJSON []byte
	var source string
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Company, &c.Industry,
		&c.Location, &c.City, &c.State, &c.Country, &source,
		&rawJSON, &enrichedJSON, &c.EnrichedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	c.Source = model.Source(source)
	if len(rawJSON) > 0 {
		if err := json.Unmarshal(rawJSON, &c.RawData); err != nil {
			return eris.Wrap(err, "postgres: unmarshal raw_data")
		}
	}
	if len(enrichedJSON) > 0 {
		if err := json.Unmarshal(enrichedJSON, &c.EnrichedData); err != nil {
			return eris.Wrap(err, "postgres: unmarshal enriched_data")
		}
	}
	return nil
}

func (s *PostgresStore) GetContact(ctx context.Context, id int64) (*model.Contact, error) {
	var c model.Contact
	row := s.pool.QueryRow(ctx, `SELECT `+contactCols+` FROM contacts WHERE id = $1`, id)
	if err := scanContact(row, &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: contact %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: get contact %d", id)
	}
	if err := s.attachScores(ctx, []*model.Contact{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContactByEmail looks up a contact by exact (case-sensitive) email match.
// Returns (nil, nil) when no contact carries the email.
func (s *PostgresStore) GetContactByEmail(ctx context.Context, email string) (*model.Contact, error) {
	var c model.Contact
	row := s.pool.QueryRow(ctx, `SELECT `+contactCols+` FROM contacts WHERE email = $1`, email)
	if err := scanContact(row, &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get contact by email")
	}
	return &c, nil
}

func (s *PostgresStore) UpdateContact(ctx context.Context, id int64, patch model.ContactPatch) (*model.Contact, error) {
	c, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(c)

	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE contacts SET first_name = $1, last_name = $2, email = $3, phone = $4,
		 company = $5, industry = $6, location = $7, city = $8, state = $9, country = $10,
		 updated_at = $11
		 WHERE id = $12`,
		nullIfEmpty(c.FirstName), nullIfEmpty(c.LastName), nullIfEmpty(c.Email),
		nullIfEmpty(c.Phone), nullIfEmpty(c.Company), nullIfEmpty(c.Industry),
		nullIfEmpty(c.Location), nullIfEmpty(c.City), nullIfEmpty(c.State),
		nullIfEmpty(c.Country), now, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(model.ErrDuplicateEmail, "postgres: update contact %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: update contact %d", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: contact %d", id)
	}
	c.UpdatedAt = now
	return c, nil
}

func (s *PostgresStore) DeleteContact(ctx context.Context, id int64) error {
	// Scores and memberships cascade via foreign keys.
	tag, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete contact %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: contact %d", id)
	}
	return nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, filters model.AudienceFilters, page, pageSize int) (int, []model.Contact, error) {
	ph := dollarPlaceholders()
	clause, args := filterClause(filters, ph)

	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts WHERE true`+clause, args...).Scan(&total)
	if err != nil {
		return 0, nil, eris.Wrap(err, "postgres: count contacts")
	}

	query := `SELECT ` + contactCols + ` FROM contacts WHERE true` + clause +
		` ORDER BY id LIMIT ` + ph() + ` OFFSET ` + ph()
	args = append(args, pageSize, (page-1)*pageSize)

	contacts, err := s.queryContacts(ctx, query, args...)
	if err != nil {
		return 0, nil, err
	}
	return total, contacts, nil
}

func (s *PostgresStore) ContactsByIDs(ctx context.Context, ids []int64) ([]model.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryContacts(ctx,
		`SELECT `+contactCols+` FROM contacts WHERE id = ANY($1) ORDER BY id`, ids)
}

func (s *PostgresStore) FilterContacts(ctx context.Context, filters model.AudienceFilters) ([]model.Contact, error) {
	clause, args := filterClause(filters, dollarPlaceholders())
	return s.queryContacts(ctx,
		`SELECT `+contactCols+` FROM contacts WHERE true`+clause+` ORDER BY id`, args...)
}

func (s *PostgresStore) queryContacts(ctx context.Context, query string, args ...any) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := scanContact(rows, &c); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate contacts")
	}

	ptrs := make([]*model.Contact, len(contacts))
	for i := range contacts {
		ptrs[i] = &contacts[i]
	}
	if err := s.attachScores(ctx, ptrs); err != nil {
		return nil, err
	}
	return contacts, nil
}

// attachScores loads intent scores for the given contacts, latest first.
func (s *PostgresStore) attachScores(ctx context.Context, contacts []*model.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(contacts))
	byID := make(map[int64]*model.Contact, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, contact_id, score, score_value, signals, calculated_at
		 FROM intent_scores WHERE contact_id = ANY($1)
		 ORDER BY contact_id, calculated_at DESC, id DESC`, ids)
	if err != nil {
		return eris.Wrap(err, "postgres: query scores")
	}
	defer rows.Close()

	for rows.Next() {
		var sc model.IntentScore
		var tier string
		var signalsJSON []byte
		if err := rows.Scan(&sc.ID, &sc.ContactID, &tier, &sc.ScoreValue, &signalsJSON, &sc.CalculatedAt); err != nil {
			return eris.Wrap(err, "postgres: scan score")
		}
		sc.Score = model.Tier(tier)
		if len(signalsJSON) > 0 {
			if err := json.Unmarshal(signalsJSON, &sc.Signals); err != nil {
				return eris.Wrap(err, "postgres: unmarshal signals")
			}
		}
		if c, ok := byID[sc.ContactID]; ok {
			c.Scores = append(c.Scores, sc)
		}
	}
	return eris.Wrap(rows.Err(), "postgres: iterate scores")
}

// SetEnrichment stores the opaque enrichment payload and back-fills core
// fields only where they are currently empty (NULL).
func (s *PostgresStore) SetEnrichment(ctx context.Context, id int64, data map[string]any, backfill model.ContactPatch, at time.Time) error {
	dataJSON, err := marshalDoc(data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enriched_data")
	}

	deref := func(p *string) any {
		if p == nil {
			return nil
		}
		return nullIfEmpty(*p)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE contacts SET enriched_data = $1, enriched_at = $2,
		 phone = COALESCE(phone, $3), email = COALESCE(email, $4),
		 city = COALESCE(city, $5), state = COALESCE(state, $6),
		 updated_at = $7
		 WHERE id = $8`,
		dataJSON, at, deref(backfill.Phone), deref(backfill.Email),
		deref(backfill.City), deref(backfill.State), time.Now().UTC(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(model.ErrDuplicateEmail, "postgres: enrich contact %d", id)
		}
		return eris.Wrapf(err, "postgres: enrich contact %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: contact %d", id)
	}
	return nil
}

func (s *PostgresStore) UnscoredContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contactCols+` FROM contacts
		 WHERE NOT EXISTS (SELECT 1 FROM intent_scores s WHERE s.contact_id = contacts.id)
		 ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query unscored contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := scanContact(rows, &c); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: iterate unscored contacts")
}

// InsertScores persists a batch of scores in a single transaction.
func (s *PostgresStore) InsertScores(ctx context.Context, scores []model.IntentScore) error {
	if len(scores) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin insert scores")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, sc := range scores {
		signalsJSON, err := json.Marshal(sc.Signals)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal signals for contact %d", sc.ContactID)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO intent_scores (contact_id, score, score_value, signals, calculated_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			sc.ContactID, string(sc.Score), sc.ScoreValue, signalsJSON, sc.CalculatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert score for contact %d", sc.ContactID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit insert scores")
}

// ReplaceScore deletes all prior scores for a contact and inserts a fresh one
// within a single transaction, so exactly one score row remains.
func (s *PostgresStore) ReplaceScore(ctx context.Context, contactID int64, score model.IntentScore) (*model.IntentScore, error) {
	signalsJSON, err := json.Marshal(score.Signals)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal signals")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin replace score")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM intent_scores WHERE contact_id = $1`, contactID); err != nil {
		return nil, eris.Wrapf(err, "postgres: delete scores for contact %d", contactID)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO intent_scores (contact_id, score, score_value, signals, calculated_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		contactID, string(score.Score), score.ScoreValue, signalsJSON, score.CalculatedAt,
	).Scan(&score.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert score for contact %d", contactID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit replace score")
	}
	score.ContactID = contactID
	return &score, nil
}

func (s *PostgresStore) CreateAudience(ctx context.Context, a *model.Audience) error {
	filtersJSON, err := json.Marshal(a.Filters)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal filters")
	}

	now := time.Now().UTC()
	err = s.pool.QueryRow(ctx,
		`INSERT INTO audiences (name, description, filters, contact_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.Name, nullIfEmpty(a.Description), filtersJSON, a.ContactCount, now, now,
	).Scan(&a.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert audience")
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func scanAudience(row pgx.Row, a *model.Audience) error {
	var filtersJSON []byte
	err := row.Scan(&a.ID, &a.Name, &a.Description, &filtersJSON, &a.ContactCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}
	if len(filtersJSON) > 0 {
		if err := json.Unmarshal(filtersJSON, &a.Filters); err != nil {
			return eris.Wrap(err, "postgres: unmarshal filters")
		}
	}
	return nil
}

const audienceCols = `id, name, COALESCE(description,''), filters, contact_count, created_at, updated_at`

func (s *PostgresStore) GetAudience(ctx context.Context, id int64) (*model.Audience, error) {
	var a model.Audience
	row := s.pool.QueryRow(ctx, `SELECT `+audienceCols+` FROM audiences WHERE id = $1`, id)
	if err := scanAudience(row, &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: audience %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: get audience %d", id)
	}
	return &a, nil
}

func (s *PostgresStore) UpdateAudience(ctx context.Context, id int64, patch model.AudiencePatch) (*model.Audience, error) {
	a, err := s.GetAudience(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.Filters != nil {
		a.Filters = *patch.Filters
	}

	filtersJSON, err := json.Marshal(a.Filters)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal filters")
	}

	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE audiences SET name = $1, description = $2, filters = $3, updated_at = $4 WHERE id = $5`,
		a.Name, nullIfEmpty(a.Description), filtersJSON, now, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update audience %d", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: audience %d", id)
	}
	a.UpdatedAt = now
	return a, nil
}

func (s *PostgresStore) DeleteAudience(ctx context.Context, id int64) error {
	// Memberships cascade; contacts are untouched.
	tag, err := s.pool.Exec(ctx, `DELETE FROM audiences WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete audience %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: audience %d", id)
	}
	return nil
}

func (s *PostgresStore) ListAudiences(ctx context.Context) ([]model.Audience, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+audienceCols+` FROM audiences ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audiences")
	}
	defer rows.Close()

	var audiences []model.Audience
	for rows.Next() {
		var a model.Audience
		if err := scanAudience(rows, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audience")
		}
		audiences = append(audiences, a)
	}
	return audiences, eris.Wrap(rows.Err(), "postgres: iterate audiences")
}

// ReplaceMemberships atomically swaps an audience's membership set and
// updates the cached contact count. A concurrent reader never observes the
// new count with the old memberships or vice versa.
func (s *PostgresStore) ReplaceMemberships(ctx context.Context, audienceID int64, contactIDs []int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace memberships")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM audience_contacts WHERE audience_id = $1`, audienceID); err != nil {
		return eris.Wrapf(err, "postgres: delete memberships for audience %d", audienceID)
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(contactIDs))
	for _, cid := range contactIDs {
		rows = append(rows, []any{audienceID, cid, now})
	}
	if _, err := db.CopyFrom(ctx, tx, "audience_contacts", []string{"audience_id", "contact_id", "added_at"}, rows); err != nil {
		return eris.Wrapf(err, "postgres: insert memberships for audience %d", audienceID)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE audiences SET contact_count = $1, updated_at = $2 WHERE id = $3`,
		len(contactIDs), now, audienceID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update contact count for audience %d", audienceID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: audience %d", audienceID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace memberships")
}

func (s *PostgresStore) AudienceContactIDs(ctx context.Context, audienceID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT contact_id FROM audience_contacts WHERE audience_id = $1 ORDER BY contact_id`, audienceID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: membership ids for audience %d", audienceID)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan membership id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate membership ids")
}

func (s *PostgresStore) InsertSearchRecord(ctx context.Context, rec *model.SearchRecord) error {
	rawJSON, err := marshalDoc(rec.RawResponse)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal raw_response")
	}

	now := time.Now().UTC()
	err = s.pool.QueryRow(ctx,
		`INSERT INTO serpapi_searches (query, results_count, raw_response, searched_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		rec.Query, rec.ResultsCount, rawJSON, now,
	).Scan(&rec.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert search record")
	}
	rec.SearchedAt = now
	return nil
}
