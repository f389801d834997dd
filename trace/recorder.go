package trace

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/odbcstream/odbc"
)

// Call represents one recorded driver call in the database
type Call struct {
	ID         string `db:"id"`
	Statement  string `db:"statement"`
	Seq        int    `db:"seq"`
	Function   string `db:"function"`
	ReturnCode int    `db:"return_code"`
	Detail     string `db:"detail"`
	Timestamp  int64  `db:"timestamp"`
}

// Return returns the call's return code.
func (c Call) Return() odbc.ReturnCode {
	return odbc.ReturnCode(c.ReturnCode)
}

// Recorder persists driver calls made through wrapped handles
type Recorder struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewRecorder creates a new recorder, creating the driver_calls table if
// needed.
func NewRecorder(db *sqlx.DB) (*Recorder, error) {
	if err := DBInit(db); err != nil {
		return nil, err
	}
	return &Recorder{
		db:     db,
		logger: slog.Default(),
	}, nil
}

// DBInit initializes the driver calls database table
func DBInit(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS driver_calls (
		id TEXT PRIMARY KEY,
		statement TEXT NOT NULL,
		seq INTEGER NOT NULL,
		function TEXT NOT NULL,
		return_code INTEGER NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL
	)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_driver_calls_statement ON driver_calls(statement, seq)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_driver_calls_function ON driver_calls(function)`)
	return err
}

// Record stores a single driver call.
func (r *Recorder) Record(statement string, seq int, function string, rc odbc.ReturnCode, detail string) error {
	_, err := r.db.Exec(`
		INSERT INTO driver_calls (
			id, statement, seq, function, return_code, detail, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(),
		statement,
		seq,
		function,
		int(rc),
		detail,
		time.Now().UTC().UnixMicro(),
	)
	return err
}

// Calls retrieves the calls made on one statement, in call order
func (r *Recorder) Calls(statement string) ([]Call, error) {
	var calls []Call
	err := r.db.Select(&calls,
		"SELECT * FROM driver_calls WHERE statement = $1 ORDER BY seq",
		statement)
	return calls, err
}

// CallsByFunction retrieves the most recent calls of one driver function
func (r *Recorder) CallsByFunction(function string, limit int) ([]Call, error) {
	var calls []Call
	err := r.db.Select(&calls,
		"SELECT * FROM driver_calls WHERE function = $1 ORDER BY timestamp DESC, seq DESC LIMIT $2",
		function, limit)
	return calls, err
}

// DeleteOldCalls deletes calls older than the specified duration
func (r *Recorder) DeleteOldCalls(olderThan time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-olderThan).UnixMicro()
	result, err := r.db.Exec("DELETE FROM driver_calls WHERE timestamp < $1", threshold)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
