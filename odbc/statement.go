package odbc

// State tags what a statement handle can currently be used for.
type State uint8

const (
	// Idle statements accept bindings and execution.
	Idle State = iota
	// Executing statements are between an execution call and the
	// determination of its result, including delayed-parameter streaming.
	Executing
	// HasResultSet statements hold an open, fetchable result set. Only the
	// cursor materializer moves a statement into this state.
	HasResultSet
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Executing:
		return "executing"
	case HasResultSet:
		return "has result set"
	}
	return "unknown"
}

// Statement wraps a driver Handle, translating raw return codes into outcomes
// and tracking the handle's state.
type Statement struct {
	handle    Handle
	state     State
	transient bool
	freed     bool
}

// NewStatement wraps h. The caller owns the statement and frees it.
func NewStatement(h Handle) *Statement {
	return &Statement{handle: h}
}

// NewTransientStatement wraps h for a single execution. The statement is
// freed when execution fails, when it produces no result set, or when the
// resulting cursor is closed.
func NewTransientStatement(h Handle) *Statement {
	return &Statement{handle: h, transient: true}
}

// Handle returns the wrapped driver handle.
func (s *Statement) Handle() Handle { return s.handle }

// State returns the current state tag.
func (s *Statement) State() State { return s.state }

// Transient reports whether the statement is released with its result.
func (s *Statement) Transient() bool { return s.transient }

// Free releases the driver handle. Freeing twice is a no-op.
func (s *Statement) Free() error {
	if s.freed {
		return nil
	}
	s.freed = true
	return s.handle.Free()
}

func (s *Statement) classify(function string, rc ReturnCode) Outcome[struct{}] {
	return Classify(function, rc, s.handle.Diagnostic)
}

// ResetParameters releases all parameter buffers bound to the statement.
// Success or error.
func (s *Statement) ResetParameters() Outcome[struct{}] {
	return s.classify("SQLFreeStmt", s.handle.FreeStmt(FreeResetParams))
}

// SetParamsetSize sets the number of parameter rows bound and executed
// together. Success or error.
func (s *Statement) SetParamsetSize(n int) Outcome[struct{}] {
	if n <= 0 {
		return Failed[struct{}](programmingError("SQLSetStmtAttr", "paramset size must be positive, got %d", n))
	}
	return s.classify("SQLSetStmtAttr", s.handle.SetStmtAttr(AttrParamsetSize, n))
}

// SetMetadataID controls whether catalog arguments are identifiers (true) or
// search patterns. Success or error.
func (s *Statement) SetMetadataID(on bool) Outcome[struct{}] {
	v := 0
	if on {
		v = 1
	}
	return s.classify("SQLSetStmtAttr", s.handle.SetStmtAttr(AttrMetadataID, v))
}

// BindParameter binds b. Success or error.
func (s *Statement) BindParameter(b *ParameterBinding) Outcome[struct{}] {
	if s.state == HasResultSet {
		return Failed[struct{}](programmingError("SQLBindParameter", "statement has an open result set"))
	}
	if b.Number == 0 {
		return Failed[struct{}](programmingError("SQLBindParameter", "parameter numbers start at 1"))
	}
	return s.classify("SQLBindParameter", s.handle.BindParameter(b))
}

// Prepare sends text to the driver for preparation. Success or error.
func (s *Statement) Prepare(text string) Outcome[struct{}] {
	return s.classify("SQLPrepare", s.handle.Prepare(text))
}

// ExecDirect executes text using the currently bound parameters. Success,
// need-data (delayed parameters must be streamed), no-data (a searched update
// or delete affected no rows) or error.
func (s *Statement) ExecDirect(text string) Outcome[struct{}] {
	s.state = Executing
	return s.classify("SQLExecDirect", s.handle.ExecDirect(text))
}

// Execute runs the prepared statement. Same outcomes as ExecDirect.
func (s *Statement) Execute() Outcome[struct{}] {
	s.state = Executing
	return s.classify("SQLExecute", s.handle.Execute())
}

// ParamData asks for the next delayed parameter. Need-data carries the token
// of the parameter that needs data; success means none is left. A driver
// reporting no-data has finished as well: execution affected no rows.
func (s *Statement) ParamData() Outcome[Token] {
	token, rc := s.handle.ParamData()
	o := s.classify("SQLParamData", rc)
	switch o.Kind {
	case KindNeedData:
		return NeedDataOutcome(token)
	case KindNoData:
		return Succeeded(Token(0))
	}
	return withValue(o, Token(0))
}

// PutBatch sends one batch of a delayed parameter. Success, need-data or
// error. Empty batches are rejected before the driver is called.
func (s *Statement) PutBatch(batch []byte) Outcome[struct{}] {
	if len(batch) == 0 {
		return Failed[struct{}](programmingError("SQLPutData", "attempt to put an empty batch into the data source"))
	}
	return s.classify("SQLPutData", s.handle.PutData(batch))
}

// NumResultCols reports the number of columns in the result set, 0 if the
// last execution created none. Success or error.
func (s *Statement) NumResultCols() Outcome[int16] {
	n, rc := s.handle.NumResultCols()
	return withValue(s.classify("SQLNumResultCols", rc), n)
}

// CloseCursor closes an open result set. Success or error.
func (s *Statement) CloseCursor() Outcome[struct{}] {
	o := s.classify("SQLCloseCursor", s.handle.CloseCursor())
	if o.Kind != KindError {
		s.state = Idle
	}
	return o
}
