/*
Package sqlite provides SQLite-backed persistence for screens and snapshots.

PURPOSE:
  Persists household screens and the eligibility snapshots computed from
  them. Snapshots are the audit trail: once a screen has a snapshot it is
  frozen, so a stored determination can always be traced back to the exact
  household data it was computed from. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  screens:               one row per household submission
  members:               people on a screen
  income_streams:        declared income per member
  expenses:              declared expenses per screen
  eligibility_snapshots: one row per evaluation run
  program_snapshots:     per-program results within a run

FREEZE ENFORCEMENT:
  SaveScreen refuses to overwrite a frozen screen; SaveSnapshot freezes
  the screen in the same database transaction that records the run.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL so
  readers never block on the single writer.

USAGE:
  store, err := sqlite.New("./data/benefits.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - screener: the Screen aggregate persisted here
  - engine: the Result values captured in snapshots
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/screener"
)

// ErrScreenFrozen is returned when writing to a screen that already has a
// recorded snapshot.
var ErrScreenFrozen = errors.New("screen is frozen")

// Store persists screens and eligibility snapshots in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows a single writer, and pooled connections
	// to :memory: would each see their own empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Screens (household submissions)
	CREATE TABLE IF NOT EXISTS screens (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		county TEXT,
		zip_code TEXT,
		household_assets TEXT NOT NULL DEFAULT '0',
		benefits_json TEXT,
		frozen BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Members (people on a screen)
	CREATE TABLE IF NOT EXISTS members (
		id TEXT NOT NULL,
		screen_id TEXT NOT NULL REFERENCES screens(id) ON DELETE CASCADE,
		relationship TEXT NOT NULL,
		birth_year INTEGER NOT NULL DEFAULT 0,
		birth_month INTEGER NOT NULL DEFAULT 0,
		stored_age INTEGER NOT NULL DEFAULT 0,
		pregnant BOOLEAN NOT NULL DEFAULT FALSE,
		student BOOLEAN NOT NULL DEFAULT FALSE,
		veteran BOOLEAN NOT NULL DEFAULT FALSE,
		disabled BOOLEAN NOT NULL DEFAULT FALSE,
		visually_impaired BOOLEAN NOT NULL DEFAULT FALSE,
		long_term_disability BOOLEAN NOT NULL DEFAULT FALSE,
		legal_status TEXT,
		insurance_json TEXT,
		position INTEGER NOT NULL,
		PRIMARY KEY (screen_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_members_screen
		ON members(screen_id, position);

	-- Income streams (declared income per member)
	CREATE TABLE IF NOT EXISTS income_streams (
		screen_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		income_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		frequency TEXT NOT NULL,
		hours_worked TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (screen_id, member_id, position)
	);

	-- Expenses (declared expenses per screen, monthly amounts)
	CREATE TABLE IF NOT EXISTS expenses (
		screen_id TEXT NOT NULL REFERENCES screens(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		expense_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		PRIMARY KEY (screen_id, position)
	);

	-- Eligibility snapshots (one per evaluation run)
	CREATE TABLE IF NOT EXISTS eligibility_snapshots (
		id TEXT PRIMARY KEY,
		screen_id TEXT NOT NULL REFERENCES screens(id),
		evaluated_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_screen
		ON eligibility_snapshots(screen_id, created_at DESC);

	-- Program snapshots (per-program results within a run)
	CREATE TABLE IF NOT EXISTS program_snapshots (
		snapshot_id TEXT NOT NULL REFERENCES eligibility_snapshots(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		program_id TEXT NOT NULL,
		eligible BOOLEAN NOT NULL,
		value TEXT NOT NULL,
		reason TEXT,
		failed_conditions_json TEXT,
		eligible_members_json TEXT,
		PRIMARY KEY (snapshot_id, position)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SCREEN STORE
// =============================================================================

// SaveScreen inserts or replaces a screen with all its members, income
// streams, and expenses. Returns ErrScreenFrozen when the stored screen
// already has a snapshot.
func (s *Store) SaveScreen(ctx context.Context, screen *screener.Screen) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frozen, exists, err := s.screenFrozen(ctx, screen.ID)
	if err != nil {
		return err
	}
	if frozen {
		return ErrScreenFrozen
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	benefitsJSON, _ := json.Marshal(screen.Benefits)
	now := time.Now().UTC().Format(time.RFC3339)

	if exists {
		// Children are replaced wholesale; screens are small.
		for _, table := range []string{"members", "income_streams", "expenses"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE screen_id = ?", screen.ID); err != nil {
				return err
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO screens (id, state, county, zip_code, household_assets, benefits_json, frozen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, FALSE, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			county = excluded.county,
			zip_code = excluded.zip_code,
			household_assets = excluded.household_assets,
			benefits_json = excluded.benefits_json,
			updated_at = excluded.updated_at
	`, screen.ID, screen.State, screen.County, screen.ZipCode,
		screen.HouseholdAssets.String(), string(benefitsJSON), now, now)
	if err != nil {
		return fmt.Errorf("failed to save screen: %w", err)
	}

	for pos, m := range screen.Members {
		insuranceJSON, _ := json.Marshal(m.Insurance)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO members (id, screen_id, relationship, birth_year, birth_month, stored_age,
				pregnant, student, veteran, disabled, visually_impaired, long_term_disability,
				legal_status, insurance_json, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, screen.ID, m.Relationship, m.BirthYear, int(m.BirthMonth), m.StoredAge,
			m.Pregnant, m.Student, m.Veteran, m.Disabled, m.VisuallyImpaired, m.LongTermDisability,
			m.LegalStatus, string(insuranceJSON), pos)
		if err != nil {
			return fmt.Errorf("failed to save member: %w", err)
		}

		for spos, stream := range m.IncomeStreams {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO income_streams (screen_id, member_id, position, income_type, amount, frequency, hours_worked)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, screen.ID, m.ID, spos, stream.Type, stream.Amount.String(), stream.Frequency, stream.HoursWorked.String())
			if err != nil {
				return fmt.Errorf("failed to save income stream: %w", err)
			}
		}
	}

	for pos, e := range screen.Expenses {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO expenses (screen_id, position, expense_type, amount)
			VALUES (?, ?, ?, ?)
		`, screen.ID, pos, e.Type, e.Amount.String())
		if err != nil {
			return fmt.Errorf("failed to save expense: %w", err)
		}
	}

	return tx.Commit()
}

// GetScreen retrieves a screen with all children, or nil when not found.
func (s *Store) GetScreen(ctx context.Context, id screener.ScreenID) (*screener.Screen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	screen := &screener.Screen{ID: id}
	var assets, benefitsJSON string

	err := s.db.QueryRowContext(ctx,
		"SELECT state, county, zip_code, household_assets, benefits_json, frozen FROM screens WHERE id = ?",
		id,
	).Scan(&screen.State, &screen.County, &screen.ZipCode, &assets, &benefitsJSON, &screen.Frozen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	screen.HouseholdAssets = mustDecimal(assets)
	if benefitsJSON != "" {
		json.Unmarshal([]byte(benefitsJSON), &screen.Benefits)
	}
	if screen.Benefits == nil {
		screen.Benefits = map[string]bool{}
	}

	if screen.Members, err = s.loadMembers(ctx, id); err != nil {
		return nil, err
	}
	if screen.Expenses, err = s.loadExpenses(ctx, id); err != nil {
		return nil, err
	}
	return screen, nil
}

func (s *Store) loadMembers(ctx context.Context, id screener.ScreenID) ([]*screener.HouseholdMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, relationship, birth_year, birth_month, stored_age,
		       pregnant, student, veteran, disabled, visually_impaired, long_term_disability,
		       legal_status, insurance_json
		FROM members WHERE screen_id = ? ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*screener.HouseholdMember
	for rows.Next() {
		m := &screener.HouseholdMember{}
		var birthMonth int
		var legalStatus, insuranceJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.Relationship, &m.BirthYear, &birthMonth, &m.StoredAge,
			&m.Pregnant, &m.Student, &m.Veteran, &m.Disabled, &m.VisuallyImpaired, &m.LongTermDisability,
			&legalStatus, &insuranceJSON); err != nil {
			return nil, err
		}
		m.BirthMonth = time.Month(birthMonth)
		m.LegalStatus = legalStatus.String
		if insuranceJSON.Valid && insuranceJSON.String != "" {
			json.Unmarshal([]byte(insuranceJSON.String), &m.Insurance)
		}
		if m.IncomeStreams, err = s.loadIncomeStreams(ctx, id, m.ID); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) loadIncomeStreams(ctx context.Context, screenID screener.ScreenID, memberID screener.MemberID) ([]screener.IncomeStream, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT income_type, amount, frequency, hours_worked
		FROM income_streams WHERE screen_id = ? AND member_id = ? ORDER BY position ASC
	`, screenID, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var streams []screener.IncomeStream
	for rows.Next() {
		var st screener.IncomeStream
		var amount, hours string
		if err := rows.Scan(&st.Type, &amount, &st.Frequency, &hours); err != nil {
			return nil, err
		}
		st.Amount = mustDecimal(amount)
		st.HoursWorked = mustDecimal(hours)
		streams = append(streams, st)
	}
	return streams, rows.Err()
}

func (s *Store) loadExpenses(ctx context.Context, id screener.ScreenID) ([]screener.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_type, amount FROM expenses WHERE screen_id = ? ORDER BY position ASC", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []screener.Expense
	for rows.Next() {
		var e screener.Expense
		var amount string
		if err := rows.Scan(&e.Type, &amount); err != nil {
			return nil, err
		}
		e.Amount = mustDecimal(amount)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ScreenSummary is one row of the screen listing.
type ScreenSummary struct {
	ID        screener.ScreenID
	State     string
	Members   int
	Frozen    bool
	CreatedAt time.Time
}

// ListScreens returns summaries of all screens, newest first.
func (s *Store) ListScreens(ctx context.Context) ([]ScreenSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.state, s.frozen, s.created_at,
		       (SELECT COUNT(*) FROM members m WHERE m.screen_id = s.id)
		FROM screens s ORDER BY s.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ScreenSummary
	for rows.Next() {
		var sum ScreenSummary
		var createdAt string
		if err := rows.Scan(&sum.ID, &sum.State, &sum.Frozen, &createdAt, &sum.Members); err != nil {
			return nil, err
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *Store) screenFrozen(ctx context.Context, id screener.ScreenID) (frozen, exists bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT frozen FROM screens WHERE id = ?", id).Scan(&frozen)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return frozen, true, nil
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// EligibilitySnapshot is one recorded evaluation run.
type EligibilitySnapshot struct {
	ID          string
	ScreenID    screener.ScreenID
	EvaluatedAt time.Time
	Results     []engine.Result
	CreatedAt   time.Time
}

// SaveSnapshot records an evaluation run and freezes the screen, both in
// one database transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap EligibilitySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO eligibility_snapshots (id, screen_id, evaluated_at, created_at)
		VALUES (?, ?, ?, ?)
	`, snap.ID, snap.ScreenID,
		snap.EvaluatedAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	for pos, r := range snap.Results {
		failedJSON, _ := json.Marshal(r.FailedConditions)
		membersJSON, _ := json.Marshal(r.EligibleMembers)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO program_snapshots
			(snapshot_id, position, program_id, eligible, value, reason, failed_conditions_json, eligible_members_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, snap.ID, pos, r.Program, r.Eligible, r.Value.String(), string(r.Reason),
			string(failedJSON), string(membersJSON))
		if err != nil {
			return fmt.Errorf("failed to save program snapshot: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, "UPDATE screens SET frozen = TRUE WHERE id = ?", snap.ScreenID); err != nil {
		return fmt.Errorf("failed to freeze screen: %w", err)
	}

	return tx.Commit()
}

// GetSnapshots returns a screen's evaluation runs, newest first.
func (s *Store) GetSnapshots(ctx context.Context, screenID screener.ScreenID) ([]EligibilitySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, evaluated_at, created_at
		FROM eligibility_snapshots WHERE screen_id = ? ORDER BY created_at DESC
	`, screenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []EligibilitySnapshot
	for rows.Next() {
		snap := EligibilitySnapshot{ScreenID: screenID}
		var evaluatedAt, createdAt string
		if err := rows.Scan(&snap.ID, &evaluatedAt, &createdAt); err != nil {
			return nil, err
		}
		snap.EvaluatedAt, _ = time.Parse(time.RFC3339, evaluatedAt)
		snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range snaps {
		if snaps[i].Results, err = s.loadResults(ctx, snaps[i].ID); err != nil {
			return nil, err
		}
	}
	return snaps, nil
}

func (s *Store) loadResults(ctx context.Context, snapshotID string) ([]engine.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT program_id, eligible, value, reason, failed_conditions_json, eligible_members_json
		FROM program_snapshots WHERE snapshot_id = ? ORDER BY position ASC
	`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []engine.Result
	for rows.Next() {
		var r engine.Result
		var value string
		var reason, failedJSON, membersJSON sql.NullString
		if err := rows.Scan(&r.Program, &r.Eligible, &value, &reason, &failedJSON, &membersJSON); err != nil {
			return nil, err
		}
		r.Value = mustDecimal(value)
		r.Reason = engine.Reason(reason.String)
		if failedJSON.Valid && failedJSON.String != "" {
			json.Unmarshal([]byte(failedJSON.String), &r.FailedConditions)
		}
		if membersJSON.Valid && membersJSON.String != "" {
			json.Unmarshal([]byte(membersJSON.String), &r.EligibleMembers)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"program_snapshots", "eligibility_snapshots", "income_streams", "expenses", "members", "screens"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
