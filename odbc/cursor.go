package odbc

import "fmt"

// Cursor is an open result set on a statement. Cursors are only created by
// execution when the driver reports at least one result column.
type Cursor struct {
	stmt   *Statement
	closed bool
}

// materialize inspects the result of a finished execution.
func materialize(stmt *Statement) (*Cursor, error) {
	n, err := stmt.NumResultCols().Into("SQLNumResultCols")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		stmt.state = Idle
		return nil, invalidColumnCount(n)
	}
	if n == 0 {
		stmt.state = Idle
		return nil, nil
	}
	stmt.state = HasResultSet
	return &Cursor{stmt: stmt}, nil
}

func invalidColumnCount(n int16) *DriverError {
	return &DriverError{
		Function: "SQLNumResultCols",
		Return:   Success,
		Diagnostic: &Diagnostic{
			State:   "HY000",
			Message: fmt.Sprintf("driver reported %d result columns", n),
		},
	}
}

// Statement returns the statement the result set lives on. It must not be
// rebound or executed while the cursor is open.
func (c *Cursor) Statement() *Statement { return c.stmt }

// NumResultCols returns the number of columns in the result set.
func (c *Cursor) NumResultCols() (int16, error) {
	return c.stmt.NumResultCols().Into("SQLNumResultCols")
}

func (c *Cursor) DescribeCol(column uint16, desc *ColumnDescription) error {
	return c.stmt.DescribeCol(column, desc)
}

func (c *Cursor) ColName(column uint16, buf []byte) ([]byte, error) {
	return c.stmt.ColName(column, buf)
}

func (c *Cursor) ColTypeName(column uint16, buf []byte) ([]byte, error) {
	return c.stmt.ColTypeName(column, buf)
}

func (c *Cursor) ColumnNames() ([]string, error) {
	return c.stmt.ColumnNames()
}

func (c *Cursor) IsUnsignedColumn(column uint16) (bool, error) {
	return c.stmt.IsUnsignedColumn(column)
}

func (c *Cursor) ColDisplaySize(column uint16) (int64, error) {
	return c.stmt.ColDisplaySize(column)
}

func (c *Cursor) ColOctetLength(column uint16) (int64, error) {
	return c.stmt.ColOctetLength(column)
}

func (c *Cursor) ColPrecision(column uint16) (int64, error) {
	return c.stmt.ColPrecision(column)
}

func (c *Cursor) ColScale(column uint16) (int64, error) {
	return c.stmt.ColScale(column)
}

func (c *Cursor) ColType(column uint16) (SQLType, error) {
	return c.stmt.ColType(column)
}

func (c *Cursor) ColConciseType(column uint16) (SQLType, error) {
	return c.stmt.ColConciseType(column)
}

// Close closes the result set and returns the statement to Idle. Transient
// statements are freed. Closing twice is a no-op.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	_, err := c.stmt.CloseCursor().Into("SQLCloseCursor")
	if c.stmt.transient {
		if ferr := c.stmt.Free(); err == nil {
			err = ferr
		}
	}
	return err
}
