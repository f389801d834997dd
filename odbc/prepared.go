package odbc

// Prepared is a statement whose text has been sent to the driver once and can
// be executed repeatedly with different parameters.
type Prepared struct {
	stmt *Statement
}

// Prepare prepares text on stmt.
func Prepare(stmt *Statement, text string) (*Prepared, error) {
	if stmt.State() == HasResultSet {
		return nil, programmingError("SQLPrepare", "statement still has an open result set")
	}
	if _, err := stmt.Prepare(text).Into("SQLPrepare"); err != nil {
		return nil, err
	}
	return &Prepared{stmt: stmt}, nil
}

// Execute runs the prepared text with params. The cursor, if any, must be
// closed before the next execution.
func (p *Prepared) Execute(params ParameterCollection) (*Cursor, error) {
	return ExecuteWithParameters(func() (*Statement, error) { return p.stmt, nil }, nil, params)
}

// DescribeParam describes parameter marker number of the prepared text.
func (p *Prepared) DescribeParam(number uint16) (ParameterDescription, error) {
	return p.stmt.DescribeParam(number)
}

// Statement returns the prepared statement.
func (p *Prepared) Statement() *Statement { return p.stmt }

// Free releases the statement.
func (p *Prepared) Free() error { return p.stmt.Free() }
