package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/sells-group/intent-engine/internal/model"
)

// SQLiteStore implements Store on a local SQLite database. It serves
// single-node deployments and hermetic tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent handlers.
	handle.SetMaxOpenConns(1)
	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: handle}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
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
	raw_data      TEXT,
	enriched_data TEXT,
	enriched_at   TIMESTAMP,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
CREATE INDEX IF NOT EXISTS idx_contacts_industry ON contacts(industry);
CREATE INDEX IF NOT EXISTS idx_contacts_created_at ON contacts(created_at);

CREATE TABLE IF NOT EXISTS intent_scores (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	contact_id    INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	score         TEXT NOT NULL,
	score_value   REAL NOT NULL,
	signals       TEXT,
	calculated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_intent_scores_contact_id ON intent_scores(contact_id);
CREATE INDEX IF NOT EXISTS idx_intent_scores_score ON intent_scores(score);

CREATE TABLE IF NOT EXISTS audiences (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	description   TEXT,
	filters       TEXT,
	contact_count INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS audience_contacts (
	audience_id INTEGER NOT NULL REFERENCES audiences(id) ON DELETE CASCADE,
	contact_id  INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	added_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (audience_id, contact_id)
);

CREATE INDEX IF NOT EXISTS idx_audience_contacts_contact_id ON audience_contacts(contact_id);

CREATE TABLE IF NOT EXISTS serpapi_searches (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	query         TEXT NOT NULL,
	results_count INTEGER NOT NULL DEFAULT 0,
	raw_response  TEXT,
	searched_at   TIMESTAMP NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return eris.Wrap(s.db.Close(), "sqlite: close")
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) CreateContact(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	rawJSON, err := marshalDoc(c.RawData)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal raw_data")
	}
	enrichedJSON, err := marshalDoc(c.EnrichedData)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enriched_data")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts
		 (first_name, last_name, email, phone, company, industry, location, city, state, country,
		  source, raw_data, enriched_data, enriched_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(c.FirstName), nullIfEmpty(c.LastName), nullIfEmpty(c.Email),
		nullIfEmpty(c.Phone), nullIfEmpty(c.Company), nullIfEmpty(c.Industry),
		nullIfEmpty(c.Location), nullIfEmpty(c.City), nullIfEmpty(c.State),
		nullIfEmpty(c.Country), nullIfEmpty(string(c.Source)), rawJSON, enrichedJSON,
		c.EnrichedAt, now, now,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return eris.Wrap(model.ErrDuplicateEmail, "sqlite: insert contact")
		}
		return eris.Wrap(err, "sqlite: insert contact")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: insert contact id")
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// sqlRow is satisfied by *sql.Row and *sql.Rows.
type sqlRow interface {
	Scan(dest ...any) error
}

func scanContactSQL(row sqlRow, c *model.Contact) error {
	var rawJSON, enrichedJSON sql.NullString
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
	if rawJSON.Valid && rawJSON.String != "" {
		if err := json.Unmarshal([]byte(rawJSON.String), &c.RawData); err != nil {
			return eris.Wrap(err, "sqlite: unmarshal raw_data")
		}
	}
	if enrichedJSON.Valid && enrichedJSON.String != "" {
		if err := json.Unmarshal([]byte(enrichedJSON.String), &c.EnrichedData); err != nil {
			return eris.Wrap(err, "sqlite: unmarshal enriched_data")
		}
	}
	return nil
}

func (s *SQLiteStore) GetContact(ctx context.Context, id int64) (*model.Contact, error) {
	var c model.Contact
	row := s.db.QueryRowContext(ctx, `SELECT `+contactCols+` FROM contacts WHERE id = ?`, id)
	if err := scanContactSQL(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "sqlite: contact %d", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get contact %d", id)
	}
	if err := s.attachScores(ctx, []*model.Contact{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) GetContactByEmail(ctx context.Context, email string) (*model.Contact, error) {
	var c model.Contact
	row := s.db.QueryRowContext(ctx, `SELECT `+contactCols+` FROM contacts WHERE email = ?`, email)
	if err := scanContactSQL(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get contact by email")
	}
	return &c, nil
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, id int64, patch model.ContactPatch) (*model.Contact, error) {
	c, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(c)

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE contacts SET first_name = ?, last_name = ?, email = ?, phone = ?,
		 company = ?, industry = ?, location = ?, city = ?, state = ?, country = ?,
		 updated_at = ?
		 WHERE id = ?`,
		nullIfEmpty(c.FirstName), nullIfEmpty(c.LastName), nullIfEmpty(c.Email),
		nullIfEmpty(c.Phone), nullIfEmpty(c.Company), nullIfEmpty(c.Industry),
		nullIfEmpty(c.Location), nullIfEmpty(c.City), nullIfEmpty(c.State),
		nullIfEmpty(c.Country), now, id,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, eris.Wrapf(model.ErrDuplicateEmail, "sqlite: update contact %d", id)
		}
		return nil, eris.Wrapf(err, "sqlite: update contact %d", id)
	}
	c.UpdatedAt = now
	return c, nil
}

func (s *SQLiteStore) DeleteContact(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete contact %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: delete contact rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "sqlite: contact %d", id)
	}
	return nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, filters model.AudienceFilters, page, pageSize int) (int, []model.Contact, error) {
	clause, args := filterClause(filters, questionPlaceholders())

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE true`+clause, args...).Scan(&total)
	if err != nil {
		return 0, nil, eris.Wrap(err, "sqlite: count contacts")
	}

	query := `SELECT ` + contactCols + ` FROM contacts WHERE true` + clause + ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	contacts, err := s.queryContacts(ctx, query, args...)
	if err != nil {
		return 0, nil, err
	}
	return total, contacts, nil
}

func int64Placeholders(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

func (s *SQLiteStore) ContactsByIDs(ctx context.Context, ids []int64) ([]model.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := int64Placeholders(ids)
	return s.queryContacts(ctx,
		`SELECT `+contactCols+` FROM contacts WHERE id IN (`+marks+`) ORDER BY id`, args...)
}

func (s *SQLiteStore) FilterContacts(ctx context.Context, filters model.AudienceFilters) ([]model.Contact, error) {
	clause, args := filterClause(filters, questionPlaceholders())
	return s.queryContacts(ctx,
		`SELECT `+contactCols+` FROM contacts WHERE true`+clause+` ORDER BY id`, args...)
}

func (s *SQLiteStore) queryContacts(ctx context.Context, query string, args ...any) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := scanContactSQL(rows, &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate contacts")
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

func (s *SQLiteStore) attachScores(ctx context.Context, contacts []*model.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(contacts))
	byID := make(map[int64]*model.Contact, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	marks, args := int64Placeholders(ids)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, contact_id, score, score_value, signals, calculated_at
		 FROM intent_scores WHERE contact_id IN (`+marks+`)
		 ORDER BY contact_id, calculated_at DESC, id DESC`, args...)
	if err != nil {
		return eris.Wrap(err, "sqlite: query scores")
	}
	defer rows.Close()

	for rows.Next() {
		var sc model.IntentScore
		var tier string
		var signalsJSON sql.NullString
		if err := rows.Scan(&sc.ID, &sc.ContactID, &tier, &sc.ScoreValue, &signalsJSON, &sc.CalculatedAt); err != nil {
			return eris.Wrap(err, "sqlite: scan score")
		}
		sc.Score = model.Tier(tier)
		if signalsJSON.Valid && signalsJSON.String != "" {
			if err := json.Unmarshal([]byte(signalsJSON.String), &sc.Signals); err != nil {
				return eris.Wrap(err, "sqlite: unmarshal signals")
			}
		}
		if c, ok := byID[sc.ContactID]; ok {
			c.Scores = append(c.Scores, sc)
		}
	}
	return eris.Wrap(rows.Err(), "sqlite: iterate scores")
}

func (s *SQLiteStore) SetEnrichment(ctx context.Context, id int64, data map[string]any, backfill model.ContactPatch, at time.Time) error {
	dataJSON, err := marshalDoc(data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enriched_data")
	}

	deref := func(p *string) any {
		if p == nil {
			return nil
		}
		return nullIfEmpty(*p)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET enriched_data = ?, enriched_at = ?,
		 phone = COALESCE(phone, ?), email = COALESCE(email, ?),
		 city = COALESCE(city, ?), state = COALESCE(state, ?),
		 updated_at = ?
		 WHERE id = ?`,
		dataJSON, at, deref(backfill.Phone), deref(backfill.Email),
		deref(backfill.City), deref(backfill.State), time.Now().UTC(), id,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return eris.Wrapf(model.ErrDuplicateEmail, "sqlite: enrich contact %d", id)
		}
		return eris.Wrapf(err, "sqlite: enrich contact %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: enrich rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "sqlite: contact %d", id)
	}
	return nil
}

func (s *SQLiteStore) UnscoredContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactCols+` FROM contacts
		 WHERE NOT EXISTS (SELECT 1 FROM intent_scores s WHERE s.contact_id = contacts.id)
		 ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query unscored contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := scanContactSQL(rows, &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: iterate unscored contacts")
}

func (s *SQLiteStore) InsertScores(ctx context.Context, scores []model.IntentScore) error {
	if len(scores) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert scores")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, sc := range scores {
		signalsJSON, err := json.Marshal(sc.Signals)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal signals for contact %d", sc.ContactID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO intent_scores (contact_id, score, score_value, signals, calculated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			sc.ContactID, string(sc.Score), sc.ScoreValue, string(signalsJSON), sc.CalculatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert score for contact %d", sc.ContactID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert scores")
}

func (s *SQLiteStore) ReplaceScore(ctx context.Context, contactID int64, score model.IntentScore) (*model.IntentScore, error) {
	signalsJSON, err := json.Marshal(score.Signals)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal signals")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin replace score")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM intent_scores WHERE contact_id = ?`, contactID); err != nil {
		return nil, eris.Wrapf(err, "sqlite: delete scores for contact %d", contactID)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO intent_scores (contact_id, score, score_value, signals, calculated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		contactID, string(score.Score), score.ScoreValue, string(signalsJSON), score.CalculatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert score for contact %d", contactID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert score id")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit replace score")
	}
	score.ID = id
	score.ContactID = contactID
	return &score, nil
}

func (s *SQLiteStore) CreateAudience(ctx context.Context, a *model.Audience) error {
	filtersJSON, err := json.Marshal(a.Filters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal filters")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO audiences (name, description, filters, contact_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Name, nullIfEmpty(a.Description), string(filtersJSON), a.ContactCount, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert audience")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: insert audience id")
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func scanAudienceSQL(row sqlRow, a *model.Audience) error {
	var filtersJSON sql.NullString
	err := row.Scan(&a.ID, &a.Name, &a.Description, &filtersJSON, &a.ContactCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}
	if filtersJSON.Valid && filtersJSON.String != "" {
		if err := json.Unmarshal([]byte(filtersJSON.String), &a.Filters); err != nil {
			return eris.Wrap(err, "sqlite: unmarshal filters")
		}
	}
	return nil
}

func (s *SQLiteStore) GetAudience(ctx context.Context, id int64) (*model.Audience, error) {
	var a model.Audience
	row := s.db.QueryRowContext(ctx, `SELECT `+audienceCols+` FROM audiences WHERE id = ?`, id)
	if err := scanAudienceSQL(row, &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "sqlite: audience %d", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get audience %d", id)
	}
	return &a, nil
}

func (s *SQLiteStore) UpdateAudience(ctx context.Context, id int64, patch model.AudiencePatch) (*model.Audience, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal filters")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE audiences SET name = ?, description = ?, filters = ?, updated_at = ? WHERE id = ?`,
		a.Name, nullIfEmpty(a.Description), string(filtersJSON), now, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update audience %d", id)
	}
	a.UpdatedAt = now
	return a, nil
}

func (s *SQLiteStore) DeleteAudience(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audiences WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete audience %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: delete audience rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "sqlite: audience %d", id)
	}
	return nil
}

func (s *SQLiteStore) ListAudiences(ctx context.Context) ([]model.Audience, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+audienceCols+` FROM audiences ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audiences")
	}
	defer rows.Close()

	var audiences []model.Audience
	for rows.Next() {
		var a model.Audience
		if err := scanAudienceSQL(rows, &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audience")
		}
		audiences = append(audiences, a)
	}
	return audiences, eris.Wrap(rows.Err(), "sqlite: iterate audiences")
}

func (s *SQLiteStore) ReplaceMemberships(ctx context.Context, audienceID int64, contactIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace memberships")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM audience_contacts WHERE audience_id = ?`, audienceID); err != nil {
		return eris.Wrapf(err, "sqlite: delete memberships for audience %d", audienceID)
	}

	now := time.Now().UTC()
	for _, cid := range contactIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO audience_contacts (audience_id, contact_id, added_at) VALUES (?, ?, ?)`,
			audienceID, cid, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert membership for audience %d", audienceID)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE audiences SET contact_count = ?, updated_at = ? WHERE id = ?`,
		len(contactIDs), now, audienceID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update contact count for audience %d", audienceID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: contact count rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "sqlite: audience %d", audienceID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace memberships")
}

func (s *SQLiteStore) AudienceContactIDs(ctx context.Context, audienceID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact_id FROM audience_contacts WHERE audience_id = ? ORDER BY contact_id`, audienceID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: membership ids for audience %d", audienceID)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan membership id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate membership ids")
}

func (s *SQLiteStore) InsertSearchRecord(ctx context.Context, rec *model.SearchRecord) error {
	rawJSON, err := marshalDoc(rec.RawResponse)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal raw_response")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO serpapi_searches (query, results_count, raw_response, searched_at)
		 VALUES (?, ?, ?, ?)`,
		rec.Query, rec.ResultsCount, rawJSON, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert search record")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: insert search record id")
	}
	rec.ID = id
	rec.SearchedAt = now
	return nil
}
