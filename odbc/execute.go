package odbc

import (
	"errors"
	"io"
)

// ExecuteWithParameters binds params to the statement returned by acquire and
// executes it, streaming any delayed parameters. A nil query executes the
// statement's prepared text, otherwise query is executed directly.
//
// The returned cursor is nil when the execution produced no result set, or
// when params has a cardinality of zero; acquire is not called then.
// Statements created with NewTransientStatement are freed when an error is
// returned or no cursor is produced.
func ExecuteWithParameters(acquire func() (*Statement, error), query *string, params ParameterCollection) (*Cursor, error) {
	n := params.ParameterSetSize()
	if n == 0 {
		return nil, nil
	}

	stmt, err := acquire()
	if err != nil {
		return nil, err
	}
	if stmt.State() == HasResultSet {
		// The result set belongs to a live cursor, so the statement is not
		// released here even if transient.
		return nil, programmingError("execute", "statement still has an open result set")
	}

	cursor, err := execute(stmt, query, params, n)
	if err != nil {
		stmt.state = Idle
		if stmt.transient {
			stmt.Free()
		}
		return nil, err
	}
	if cursor == nil && stmt.transient {
		if err := stmt.Free(); err != nil {
			return nil, err
		}
	}
	return cursor, nil
}

func execute(stmt *Statement, query *string, params ParameterCollection, n int) (*Cursor, error) {
	if _, err := stmt.ResetParameters().Into("SQLFreeStmt"); err != nil {
		return nil, err
	}
	if _, err := stmt.SetParamsetSize(n).Into("SQLSetStmtAttr"); err != nil {
		return nil, err
	}
	if err := params.BindTo(stmt); err != nil {
		return nil, err
	}

	function := "SQLExecute"
	var o Outcome[struct{}]
	if query != nil {
		function = "SQLExecDirect"
		o = stmt.ExecDirect(*query)
	} else {
		o = stmt.Execute()
	}

	switch o.Kind {
	case KindError:
		return nil, o.Err
	case KindNeedData:
		if err := streamDelayed(stmt, params); err != nil {
			return nil, err
		}
	case KindSuccess, KindNoData:
		// A searched update or delete that affected no rows is not an
		// error.
	default:
		return nil, programmingError(function, "unexpected outcome %s", o.Kind)
	}

	return materialize(stmt)
}

// streamDelayed answers every SQLParamData request with the batches of the
// blob bound at the reported slot. The next token is only requested once the
// current blob is exhausted.
func streamDelayed(stmt *Statement, params ParameterCollection) error {
	for {
		o := stmt.ParamData()
		switch o.Kind {
		case KindError:
			return o.Err
		case KindSuccess:
			return nil
		case KindNeedData:
		default:
			return programmingError("SQLParamData", "unexpected outcome %s", o.Kind)
		}

		blob, err := params.ResolveDelayed(o.Value)
		if err != nil {
			return err
		}
		if err := putBlob(stmt, uint16(o.Value), blob); err != nil {
			return err
		}
	}
}

func putBlob(stmt *Statement, slot uint16, blob Blob) error {
	for {
		batch, err := blob.NextBatch()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &InputReadFailure{Slot: slot, Cause: err}
		}
		o := stmt.PutBatch(batch)
		if o.Kind == KindError {
			return o.Err
		}
		if o.Kind == KindNoData {
			return programmingError("SQLPutData", "unexpected outcome %s", o.Kind)
		}
	}
}
