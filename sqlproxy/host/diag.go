package host

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/odbcstream/sqlproxy/types"
)

// diagnose maps an execution failure to a diagnostic record. SQLite errors
// keep their extended result code as the native error.
func diagnose(err error) *types.Diagnostic {
	var stateErr *sqlStateError
	if errors.As(err, &stateErr) {
		return &types.Diagnostic{State: stateErr.state, Message: stateErr.message}
	}

	d := &types.Diagnostic{State: "HY000", Message: err.Error()}
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return d
	}

	d.NativeError = int32(sqliteErr.ExtendedCode)
	switch sqliteErr.Code {
	case sqlite3.ErrConstraint:
		d.State = "23000"
	case sqlite3.ErrTooBig:
		d.State = "22001"
	case sqlite3.ErrMismatch:
		d.State = "22018"
	case sqlite3.ErrRange:
		d.State = "07009"
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		d.State = "HYT00"
	case sqlite3.ErrError:
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "no such table"):
			d.State = "42S02"
		case strings.Contains(msg, "no such column"):
			d.State = "42S22"
		case strings.Contains(msg, "already exists"):
			d.State = "42S01"
		case strings.Contains(msg, "syntax error"), strings.Contains(msg, "incomplete input"):
			d.State = "42000"
		}
	}
	return d
}
