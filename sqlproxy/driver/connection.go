package driver

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tomyedwab/odbcstream/odbc"
	"github.com/tomyedwab/odbcstream/sqlproxy/types"
)

// Connection is a session with a host. It allocates statement handles and
// runs statements through the odbc execution coordinator.
type Connection struct {
	callHost func(requestPayload []byte) (responsePayload []byte, err error)

	// Wrap, if set, decorates every statement handle before it is used, for
	// example to trace driver calls.
	Wrap func(h *Handle) odbc.Handle
}

// NewConnection returns a connection that sends requests through callHost.
// A nil callHost uses the package level CallHost at the time of each call.
func NewConnection(callHost func(requestPayload []byte) (responsePayload []byte, err error)) *Connection {
	return &Connection{callHost: callHost}
}

func (c *Connection) roundTrip(req *types.StmtRequest) (types.StmtResponse, error) {
	callHost := c.callHost
	if callHost == nil {
		callHost = CallHost
	}
	if callHost == nil {
		return types.StmtResponse{}, fmt.Errorf("sqlproxy: CallHost function is not set")
	}

	reqPayload, err := json.Marshal(req)
	if err != nil {
		return types.StmtResponse{}, fmt.Errorf("sqlproxy: failed to marshal %s request: %w", req.Command, err)
	}

	respPayload, err := callHost(reqPayload)
	if err != nil {
		return types.StmtResponse{}, fmt.Errorf("sqlproxy: CallHost for %s failed: %w", req.Command, err)
	}

	var resp types.StmtResponse
	dec := json.NewDecoder(bytes.NewReader(respPayload))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return types.StmtResponse{}, fmt.Errorf("sqlproxy: failed to unmarshal %s response: %w", req.Command, err)
	}
	return resp, nil
}

// AllocHandle allocates a statement handle on the host.
func (c *Connection) AllocHandle() (*Handle, error) {
	resp, err := c.roundTrip(&types.StmtRequest{Command: types.CmdAllocStmt})
	if err != nil {
		return nil, err
	}
	if rc := odbc.ReturnCode(resp.Return); rc != odbc.Success {
		return nil, &odbc.DriverError{Function: "SQLAllocHandle", Return: rc, Diagnostic: convertDiagnostic(resp.Diagnostic)}
	}
	if resp.StmtID == "" {
		return nil, fmt.Errorf("sqlproxy: host did not return a StmtID for alloc_stmt")
	}
	return &Handle{conn: c, id: resp.StmtID, bindings: make(map[uint16]*odbc.ParameterBinding)}, nil
}

func (c *Connection) wrap(h *Handle) odbc.Handle {
	if c.Wrap == nil {
		return h
	}
	return c.Wrap(h)
}

// AllocStatement allocates a statement owned by the caller.
func (c *Connection) AllocStatement() (*odbc.Statement, error) {
	h, err := c.AllocHandle()
	if err != nil {
		return nil, err
	}
	return odbc.NewStatement(c.wrap(h)), nil
}

func (c *Connection) allocTransient() (*odbc.Statement, error) {
	h, err := c.AllocHandle()
	if err != nil {
		return nil, err
	}
	return odbc.NewTransientStatement(c.wrap(h)), nil
}

// Execute executes query once per parameter row of params on a new
// statement. The statement is released with the cursor, or right away when
// no result set is produced. Nothing is sent to the host when params has no
// rows.
func (c *Connection) Execute(query string, params odbc.ParameterCollection) (*odbc.Cursor, error) {
	return odbc.ExecuteWithParameters(c.allocTransient, &query, params)
}

// Prepare prepares query on a new statement owned by the caller.
func (c *Connection) Prepare(query string) (*odbc.Prepared, error) {
	stmt, err := c.AllocStatement()
	if err != nil {
		return nil, err
	}
	prepared, err := odbc.Prepare(stmt, query)
	if err != nil {
		stmt.Free()
		return nil, err
	}
	return prepared, nil
}

// Tables lists tables on a new statement released with the cursor.
func (c *Connection) Tables(filter odbc.TableFilter) (*odbc.Cursor, error) {
	stmt, err := c.allocTransient()
	if err != nil {
		return nil, err
	}
	cursor, err := odbc.ExecuteTables(stmt, filter)
	if err != nil {
		stmt.Free()
		return nil, err
	}
	return cursor, nil
}

// Columns lists columns on a new statement released with the cursor.
func (c *Connection) Columns(catalog, schema, table, column string) (*odbc.Cursor, error) {
	stmt, err := c.allocTransient()
	if err != nil {
		return nil, err
	}
	cursor, err := odbc.ExecuteColumns(stmt, catalog, schema, table, column)
	if err != nil {
		stmt.Free()
		return nil, err
	}
	return cursor, nil
}

// Close releases every statement the host holds for this connection.
func (c *Connection) Close() error {
	resp, err := c.roundTrip(&types.StmtRequest{Command: types.CmdCloseConn})
	if err != nil {
		return err
	}
	if rc := odbc.ReturnCode(resp.Return); rc != odbc.Success {
		return &odbc.DriverError{Function: "SQLDisconnect", Return: rc, Diagnostic: convertDiagnostic(resp.Diagnostic)}
	}
	return nil
}
