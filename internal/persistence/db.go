// Package persistence stores storyteller sessions in SQLite.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/storyteller/internal/chronicle"
	"github.com/talgya/storyteller/internal/engine"
	"github.com/talgya/storyteller/internal/journal"
	"github.com/talgya/storyteller/internal/llm"
	"github.com/talgya/storyteller/internal/nemesis"
)

// Meta keys.
const (
	metaDay        = "day"
	metaTick       = "tick"
	metaLastChoice = "last_choice"
	metaBudget     = "budget"
)

// DB wraps a SQLite connection for session persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		summary TEXT NOT NULL,
		type TEXT NOT NULL,
		day INTEGER NOT NULL,
		significance REAL NOT NULL DEFAULT 0,
		keywords_json TEXT NOT NULL DEFAULT '[]',
		participants_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS nemeses (
		seq INTEGER PRIMARY KEY,
		entity_id TEXT NOT NULL UNIQUE,
		faction_id TEXT NOT NULL,
		name TEXT NOT NULL,
		grudge_reason TEXT NOT NULL,
		grudge_target_id TEXT NOT NULL DEFAULT '',
		encounter_count INTEGER NOT NULL DEFAULT 1,
		created_day INTEGER NOT NULL,
		last_seen_day INTEGER,
		retired INTEGER NOT NULL DEFAULT 0,
		retired_reason TEXT NOT NULL DEFAULT '',
		appearance_json TEXT NOT NULL DEFAULT '{}',
		skills_json TEXT NOT NULL DEFAULT '[]',
		traits_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS journal (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		tick INTEGER NOT NULL,
		day INTEGER NOT NULL,
		text TEXT NOT NULL,
		prior_choice TEXT NOT NULL DEFAULT '',
		fallback INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
	CREATE INDEX IF NOT EXISTS idx_journal_day ON journal(day);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type eventRow struct {
	Seq          int     `db:"seq"`
	ID           string  `db:"id"`
	Summary      string  `db:"summary"`
	Type         string  `db:"type"`
	Day          int     `db:"day"`
	Significance float64 `db:"significance"`
	Keywords     string  `db:"keywords_json"`
	Participants string  `db:"participants_json"`
}

type nemesisRow struct {
	Seq            int           `db:"seq"`
	EntityID       string        `db:"entity_id"`
	FactionID      string        `db:"faction_id"`
	Name           string        `db:"name"`
	GrudgeReason   string        `db:"grudge_reason"`
	GrudgeTargetID string        `db:"grudge_target_id"`
	EncounterCount int           `db:"encounter_count"`
	CreatedDay     int           `db:"created_day"`
	LastSeenDay    sql.NullInt64 `db:"last_seen_day"`
	Retired        bool          `db:"retired"`
	RetiredReason  string        `db:"retired_reason"`
	Appearance     string        `db:"appearance_json"`
	Skills         string        `db:"skills_json"`
	Traits         string        `db:"traits_json"`
}

type journalRow struct {
	Seq int `db:"seq"`
	journal.Entry
}

// SaveState replaces everything stored with st in one transaction.
func (db *DB) SaveState(st engine.State) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"events", "nemeses", "journal"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, e := range st.Events {
		row := eventRow{
			Seq:          i,
			ID:           e.ID,
			Summary:      e.Summary,
			Type:         string(e.Type),
			Day:          e.Day,
			Significance: e.Significance,
			Keywords:     mustJSON(orEmpty(e.Keywords)),
			Participants: mustJSON(orEmpty(e.ParticipantIDs)),
		}
		_, err := tx.NamedExec(`INSERT INTO events
			(seq, id, summary, type, day, significance, keywords_json, participants_json)
			VALUES (:seq, :id, :summary, :type, :day, :significance, :keywords_json, :participants_json)`, row)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	for i, p := range st.Nemeses {
		row := nemesisRow{
			Seq:            i,
			EntityID:       p.EntityID,
			FactionID:      p.FactionID,
			Name:           p.Name,
			GrudgeReason:   p.GrudgeReason,
			GrudgeTargetID: p.GrudgeTargetID,
			EncounterCount: p.EncounterCount,
			CreatedDay:     p.CreatedDay,
			LastSeenDay:    sql.NullInt64{Int64: int64(p.LastSeenDay), Valid: true},
			Retired:        p.Retired,
			RetiredReason:  p.RetiredReason,
			Appearance:     mustJSON(p.Appearance),
			Skills:         mustJSON(orEmpty(p.TopSkills)),
			Traits:         mustJSON(orEmpty(p.NotableTraits)),
		}
		if p.Appearance == nil {
			row.Appearance = "{}"
		}
		_, err := tx.NamedExec(`INSERT INTO nemeses
			(seq, entity_id, faction_id, name, grudge_reason, grudge_target_id, encounter_count,
			 created_day, last_seen_day, retired, retired_reason, appearance_json, skills_json, traits_json)
			VALUES (:seq, :entity_id, :faction_id, :name, :grudge_reason, :grudge_target_id, :encounter_count,
			 :created_day, :last_seen_day, :retired, :retired_reason, :appearance_json, :skills_json, :traits_json)`, row)
		if err != nil {
			return fmt.Errorf("insert nemesis %s: %w", p.EntityID, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO journal
		(seq, id, type, tick, day, text, prior_choice, fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare journal: %w", err)
	}
	defer stmt.Close()
	for i, e := range st.Journal {
		if _, err := stmt.Exec(i, e.ID, e.Type, int64(e.Tick), e.Day, e.Text, e.PriorChoice, e.Fallback); err != nil {
			return fmt.Errorf("insert journal entry %s: %w", e.ID, err)
		}
	}

	meta := map[string]string{
		metaDay:        strconv.Itoa(st.Day),
		metaTick:       strconv.FormatUint(st.Tick, 10),
		metaLastChoice: st.LastChoice,
		metaBudget:     mustJSON(st.Budget),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("session saved", "day", st.Day, "events", len(st.Events),
		"nemeses", len(st.Nemeses), "journal", len(st.Journal))
	return nil
}

// LoadState reads the saved session. An empty database yields a zero State.
func (db *DB) LoadState() (engine.State, error) {
	var st engine.State

	events, err := db.Events(0)
	if err != nil {
		return st, err
	}
	st.Events = events

	if st.Nemeses, err = db.Nemeses(); err != nil {
		return st, err
	}
	if st.Journal, err = db.Journal(0); err != nil {
		return st, err
	}

	if v, err := db.GetMeta(metaDay); err != nil {
		return st, err
	} else if v != "" {
		if st.Day, err = strconv.Atoi(v); err != nil {
			return st, fmt.Errorf("parse day %q: %w", v, err)
		}
	}
	if v, err := db.GetMeta(metaTick); err != nil {
		return st, err
	} else if v != "" {
		if st.Tick, err = strconv.ParseUint(v, 10, 64); err != nil {
			return st, fmt.Errorf("parse tick %q: %w", v, err)
		}
	}
	if st.LastChoice, err = db.GetMeta(metaLastChoice); err != nil {
		return st, err
	}
	if v, err := db.GetMeta(metaBudget); err != nil {
		return st, err
	} else if v != "" {
		var b llm.Budget
		if err := json.Unmarshal([]byte(v), &b); err != nil {
			slog.Warn("discarding unreadable budget", "value", v, "error", err)
		} else {
			st.Budget = b
		}
	}
	return st, nil
}

// Events returns saved events oldest first. A limit > 0 keeps only the newest.
func (db *DB) Events(limit int) ([]chronicle.Event, error) {
	var rows []eventRow
	q := "SELECT * FROM events ORDER BY seq"
	if limit > 0 {
		q = fmt.Sprintf("SELECT * FROM (SELECT * FROM events ORDER BY seq DESC LIMIT %d) ORDER BY seq", limit)
	}
	if err := db.conn.Select(&rows, q); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	events := make([]chronicle.Event, 0, len(rows))
	for _, r := range rows {
		e := chronicle.Event{
			ID:           r.ID,
			Summary:      r.Summary,
			Type:         chronicle.EventType(r.Type),
			Day:          r.Day,
			Significance: r.Significance,
		}
		if e.Significance < 0 {
			e.Significance = 0
		}
		e.Keywords = stringList(r.Keywords)
		e.ParticipantIDs = stringList(r.Participants)
		events = append(events, e)
	}
	return events, nil
}

// Nemeses returns every saved profile.
func (db *DB) Nemeses() ([]nemesis.Profile, error) {
	var rows []nemesisRow
	if err := db.conn.Select(&rows, "SELECT * FROM nemeses ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("select nemeses: %w", err)
	}
	profiles := make([]nemesis.Profile, 0, len(rows))
	for _, r := range rows {
		p := nemesis.Profile{
			EntityID:       r.EntityID,
			FactionID:      r.FactionID,
			Name:           r.Name,
			GrudgeReason:   r.GrudgeReason,
			GrudgeTargetID: r.GrudgeTargetID,
			EncounterCount: max(r.EncounterCount, 1),
			CreatedDay:     r.CreatedDay,
			LastSeenDay:    r.CreatedDay,
			Retired:        r.Retired,
			RetiredReason:  r.RetiredReason,
			TopSkills:      stringList(r.Skills),
			NotableTraits:  stringList(r.Traits),
		}
		if r.LastSeenDay.Valid {
			p.LastSeenDay = int(r.LastSeenDay.Int64)
		}
		if err := json.Unmarshal([]byte(r.Appearance), &p.Appearance); err != nil {
			slog.Warn("discarding unreadable appearance", "nemesis", r.EntityID, "error", err)
			p.Appearance = nil
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Journal returns saved journal entries oldest first. A limit > 0 keeps only
// the newest.
func (db *DB) Journal(limit int) ([]journal.Entry, error) {
	var rows []journalRow
	q := "SELECT * FROM journal ORDER BY seq"
	if limit > 0 {
		q = fmt.Sprintf("SELECT * FROM (SELECT * FROM journal ORDER BY seq DESC LIMIT %d) ORDER BY seq", limit)
	}
	if err := db.conn.Select(&rows, q); err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}
	entries := make([]journal.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.Entry)
	}
	return entries, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. A missing key is the empty string.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func stringList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
