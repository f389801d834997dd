package driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"

	"github.com/tomyedwab/odbcstream/odbc"
)

// CallHost is the function used to send requests to the host when a
// connection was not given its own.
var CallHost func(requestPayload []byte) (responsePayload []byte, err error)

// SetHostHandler sets the function used to proxy calls to the host. This
// must be called before opening connections with sql.Open.
func SetHostHandler(handler func(requestPayload []byte) (responsePayload []byte, err error)) {
	CallHost = handler
}

const driverName = "odbcproxy"

func init() {
	sql.Register(driverName, &Driver{})
}

// --- Driver implementation ---

// Driver is the SQL driver for the proxy.
type Driver struct{}

// Open returns a new connection using the package level CallHost. The name
// is ignored.
func (d *Driver) Open(name string) (driver.Conn, error) {
	if CallHost == nil {
		return nil, fmt.Errorf("sqlproxy: CallHost function is not set")
	}
	return &Conn{conn: NewConnection(nil)}, nil
}

// Connector opens connections through a given CallHost function, for use
// with sql.OpenDB.
type Connector struct {
	callHost func(requestPayload []byte) (responsePayload []byte, err error)
}

// NewConnector returns a connector sending requests through callHost.
func NewConnector(callHost func(requestPayload []byte) (responsePayload []byte, err error)) *Connector {
	return &Connector{callHost: callHost}
}

func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Conn{conn: NewConnection(c.callHost)}, nil
}

func (c *Connector) Driver() driver.Driver { return &Driver{} }

// --- Connection implementation ---

// Conn implements the driver.Conn interface on top of a Connection.
type Conn struct {
	conn *Connection
}

var (
	_ driver.ExecerContext      = (*Conn)(nil)
	_ driver.QueryerContext     = (*Conn)(nil)
	_ driver.NamedValueChecker  = (*Conn)(nil)
	_ driver.ConnPrepareContext = (*Conn)(nil)
)

// Prepare returns a prepared statement, suitable for query or execution.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := c.conn.AllocHandle()
	if err != nil {
		return nil, err
	}
	prepared, err := odbc.Prepare(odbc.NewStatement(c.conn.wrap(h)), query)
	if err != nil {
		h.Free()
		return nil, err
	}
	return &Stmt{handle: h, prepared: prepared}, nil
}

// Close releases every statement of the connection on the host.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Begin is not supported: transactions are managed by the host.
func (c *Conn) Begin() (driver.Tx, error) {
	return nil, errors.New("sqlproxy: transactions are not supported")
}

// CheckNamedValue lets readers and blobs through to be streamed as delayed
// parameters. Everything else is converted by database/sql.
func (c *Conn) CheckNamedValue(nv *driver.NamedValue) error {
	switch nv.Value.(type) {
	case io.Reader, odbc.Blob:
		return nil
	}
	return driver.ErrSkip
}

func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := namedParams(args)
	if err != nil {
		return nil, err
	}
	var h *Handle
	acquire := func() (*odbc.Statement, error) {
		var err error
		h, err = c.conn.AllocHandle()
		if err != nil {
			return nil, err
		}
		return odbc.NewTransientStatement(c.conn.wrap(h)), nil
	}
	cursor, err := odbc.ExecuteWithParameters(acquire, &query, params)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		if err := cursor.Close(); err != nil {
			return nil, err
		}
	}
	return &result{rowsAffected: h.RowsAffected()}, nil
}

func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := namedParams(args)
	if err != nil {
		return nil, err
	}
	cursor, err := c.conn.Execute(query, params)
	if err != nil {
		return nil, err
	}
	return openRows(cursor)
}

func namedParams(args []driver.NamedValue) (*odbc.Params, error) {
	values := make([]odbc.Parameter, len(args))
	for i, arg := range args {
		if arg.Name != "" {
			return nil, fmt.Errorf("sqlproxy: named parameters are not supported: %s", arg.Name)
		}
		p, err := odbc.IntoParameter(arg.Value)
		if err != nil {
			return nil, err
		}
		values[i] = p
	}
	return odbc.NewParams(values...), nil
}

func plainParams(args []driver.Value) (*odbc.Params, error) {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return namedParams(named)
}

// --- Statement implementation ---

// Stmt implements the driver.Stmt interface with a prepared statement.
type Stmt struct {
	handle   *Handle
	prepared *odbc.Prepared
}

// Close releases the statement on the host.
func (s *Stmt) Close() error {
	return s.prepared.Free()
}

// NumInput returns -1: the host does not report the number of placeholders.
func (s *Stmt) NumInput() int {
	return -1
}

// Exec executes the prepared statement with the given arguments and returns a Result.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	params, err := plainParams(args)
	if err != nil {
		return nil, err
	}
	cursor, err := s.prepared.Execute(params)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		if err := cursor.Close(); err != nil {
			return nil, err
		}
	}
	return &result{rowsAffected: s.handle.RowsAffected()}, nil
}

// Query executes the prepared statement with the given arguments and returns Rows.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	params, err := plainParams(args)
	if err != nil {
		return nil, err
	}
	cursor, err := s.prepared.Execute(params)
	if err != nil {
		return nil, err
	}
	return openRows(cursor)
}

// --- Result implementation ---

// result implements the driver.Result interface.
type result struct {
	rowsAffected int64
}

// LastInsertId is not reported by the host.
func (r *result) LastInsertId() (int64, error) {
	return 0, errors.New("sqlproxy: LastInsertId is not supported")
}

// RowsAffected returns the number of rows the statement affected.
func (r *result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}

// --- Rows implementation ---

// rows implements the driver.Rows interface. A statement without a result
// set yields no columns and no rows.
type rows struct {
	rs *ResultSet
}

func openRows(cursor *odbc.Cursor) (*rows, error) {
	if cursor == nil {
		return &rows{}, nil
	}
	rs, err := OpenResultSet(cursor, DefaultFetchSize)
	if err != nil {
		cursor.Close()
		return nil, err
	}
	return &rows{rs: rs}, nil
}

func (r *rows) Columns() []string {
	if r.rs == nil {
		return nil
	}
	return r.rs.Columns()
}

func (r *rows) Close() error {
	if r.rs == nil {
		return nil
	}
	rs := r.rs
	r.rs = nil
	return rs.Close()
}

// Next populates dest with the next row and returns io.EOF after the last one.
func (r *rows) Next(dest []driver.Value) error {
	if r.rs == nil {
		return io.EOF
	}
	row, err := r.rs.Next()
	if err != nil {
		return err
	}
	for i, v := range row {
		dest[i] = v
	}
	return nil
}
