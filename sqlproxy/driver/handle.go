package driver

import (
	"fmt"
	"io"
	"slices"

	"github.com/tomyedwab/odbcstream/odbc"
	"github.com/tomyedwab/odbcstream/sqlproxy/types"
)

// Handle is a statement handle owned by the host. Every method is one round
// trip through the connection's CallHost function.
//
// Parameter buffers passed to BindParameter stay on the client; their values
// are read and sent when the statement is executed.
type Handle struct {
	conn         *Connection
	id           string
	bindings     map[uint16]*odbc.ParameterBinding
	diag         *odbc.Diagnostic
	rowsAffected int64
	freed        bool
}

var _ odbc.Handle = (*Handle)(nil)

// ID returns the host's identifier of the statement.
func (h *Handle) ID() string { return h.id }

// RowsAffected returns the number of rows the last execution affected, or
// the number of rows of its result set.
func (h *Handle) RowsAffected() int64 { return h.rowsAffected }

func (h *Handle) call(req types.StmtRequest) (types.StmtResponse, odbc.ReturnCode) {
	if h.freed {
		h.diag = nil
		return types.StmtResponse{}, odbc.InvalidHandle
	}
	req.StmtID = h.id
	resp, err := h.conn.roundTrip(&req)
	if err != nil {
		h.diag = &odbc.Diagnostic{State: "08S01", Message: err.Error()}
		return types.StmtResponse{}, odbc.Error
	}
	h.diag = convertDiagnostic(resp.Diagnostic)
	return resp, odbc.ReturnCode(resp.Return)
}

func convertDiagnostic(d *types.Diagnostic) *odbc.Diagnostic {
	if d == nil {
		return nil
	}
	return &odbc.Diagnostic{State: d.State, NativeError: d.NativeError, Message: d.Message}
}

func (h *Handle) FreeStmt(option odbc.FreeStmtOption) odbc.ReturnCode {
	_, rc := h.call(types.StmtRequest{Command: types.CmdFreeStmt, Option: uint16(option)})
	if option == odbc.FreeResetParams && rc != odbc.Error {
		clear(h.bindings)
	}
	return rc
}

func (h *Handle) SetStmtAttr(attr odbc.StatementAttribute, value int) odbc.ReturnCode {
	_, rc := h.call(types.StmtRequest{Command: types.CmdSetStmtAttr, Attribute: int32(attr), Value: value})
	return rc
}

func bindingMetadata(b *odbc.ParameterBinding) types.Binding {
	return types.Binding{
		Number:        b.Number,
		Direction:     int16(b.Direction),
		CType:         int16(b.CType),
		SQLType:       int16(b.DataType.SQLType),
		ColumnSize:    b.DataType.ColumnSize,
		DecimalDigits: b.DataType.DecimalDigits,
		Indicators:    b.Indicators,
		Token:         uint64(b.Token),
	}
}

func (h *Handle) BindParameter(b *odbc.ParameterBinding) odbc.ReturnCode {
	meta := bindingMetadata(b)
	_, rc := h.call(types.StmtRequest{Command: types.CmdBindParameter, Binding: &meta})
	if rc != odbc.Error && rc != odbc.InvalidHandle {
		h.bindings[b.Number] = b
	}
	return rc
}

// snapshot reads the bound buffers as they are now.
func (h *Handle) snapshot() []types.Binding {
	numbers := make([]uint16, 0, len(h.bindings))
	for n := range h.bindings {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	out := make([]types.Binding, 0, len(numbers))
	for _, n := range numbers {
		b := h.bindings[n]
		meta := bindingMetadata(b)
		meta.Values = make([][]byte, len(b.Indicators))
		for row, ind := range b.Indicators {
			if _, _, delayed := odbc.DataAtExecLength(ind); delayed || ind == odbc.NullData {
				continue
			}
			elem := b.Value
			if b.ElementLen > 0 {
				start := row * b.ElementLen
				if start >= len(b.Value) {
					continue
				}
				elem = b.Value[start:min(start+b.ElementLen, len(b.Value))]
			}
			if ind >= 0 && int(ind) < len(elem) {
				elem = elem[:ind]
			}
			meta.Values[row] = elem
		}
		out = append(out, meta)
	}
	return out
}

func (h *Handle) Prepare(text string) odbc.ReturnCode {
	_, rc := h.call(types.StmtRequest{Command: types.CmdPrepare, SQL: text})
	return rc
}

func (h *Handle) executed(resp types.StmtResponse, rc odbc.ReturnCode) odbc.ReturnCode {
	switch rc {
	case odbc.Success, odbc.SuccessWithInfo:
		h.rowsAffected = resp.Count
	case odbc.NoData:
		h.rowsAffected = 0
	}
	return rc
}

func (h *Handle) ExecDirect(text string) odbc.ReturnCode {
	return h.executed(h.call(types.StmtRequest{Command: types.CmdExecDirect, SQL: text, Bindings: h.snapshot()}))
}

func (h *Handle) Execute() odbc.ReturnCode {
	return h.executed(h.call(types.StmtRequest{Command: types.CmdExecute, Bindings: h.snapshot()}))
}

func (h *Handle) ParamData() (odbc.Token, odbc.ReturnCode) {
	resp, rc := h.call(types.StmtRequest{Command: types.CmdParamData})
	if rc == odbc.NeedData {
		return odbc.Token(resp.Token), rc
	}
	return 0, h.executed(resp, rc)
}

func (h *Handle) PutData(batch []byte) odbc.ReturnCode {
	_, rc := h.call(types.StmtRequest{Command: types.CmdPutData, Data: batch})
	return rc
}

func (h *Handle) DescribeParam(number uint16) (odbc.ParameterDescription, odbc.ReturnCode) {
	resp, rc := h.call(types.StmtRequest{Command: types.CmdDescribeParam, Parameter: number})
	return odbc.ParameterDescription{
		DataType: odbc.DataType{
			SQLType:       odbc.SQLType(resp.SQLType),
			ColumnSize:    resp.ColumnSize,
			DecimalDigits: resp.DecimalDigits,
		},
		Nullability: odbc.Nullability(resp.Nullable),
	}, rc
}

func (h *Handle) NumResultCols() (int16, odbc.ReturnCode) {
	resp, rc := h.call(types.StmtRequest{Command: types.CmdNumResultCols})
	return int16(resp.Count), rc
}

// fillString copies text into buf, terminating it when there is room.
func fillString(buf []byte, text string) {
	n := copy(buf, text)
	if n < len(buf) {
		buf[n] = 0
	}
}

func (h *Handle) DescribeCol(column uint16, name []byte) (odbc.ColumnInfo, odbc.ReturnCode) {
	resp, rc := h.call(types.StmtRequest{Command: types.CmdDescribeCol, Column: column, BufferLen: len(name)})
	fillString(name, resp.Text)
	return odbc.ColumnInfo{
		NameLength: resp.Length,
		DataType: odbc.DataType{
			SQLType:       odbc.SQLType(resp.SQLType),
			ColumnSize:    resp.ColumnSize,
			DecimalDigits: resp.DecimalDigits,
		},
		Nullability: odbc.Nullability(resp.Nullable),
	}, rc
}

func (h *Handle) ColAttributeString(column uint16, field odbc.Desc, buf []byte) (int, odbc.ReturnCode) {
	resp, rc := h.call(types.StmtRequest{Command: types.CmdColAttribute, Column: column, Field: uint16(field), BufferLen: len(buf)})
	fillString(buf, resp.Text)
	return resp.Length, rc
}

func (h *Handle) ColAttributeNumeric(column uint16, field odbc.Desc) (int64, odbc.ReturnCode) {
	resp, rc := h.call(types.StmtRequest{Command: types.CmdColAttribute, Column: column, Field: uint16(field)})
	return resp.Numeric, rc
}

func (h *Handle) Columns(catalog, schema, table, column string) odbc.ReturnCode {
	_, rc := h.call(types.StmtRequest{
		Command:    types.CmdColumns,
		Catalog:    &catalog,
		Schema:     &schema,
		Table:      &table,
		ColumnName: &column,
	})
	return rc
}

func (h *Handle) Tables(catalog, schema, table, tableType *string) odbc.ReturnCode {
	_, rc := h.call(types.StmtRequest{
		Command:   types.CmdTables,
		Catalog:   catalog,
		Schema:    schema,
		Table:     table,
		TableType: tableType,
	})
	return rc
}

func (h *Handle) CloseCursor() odbc.ReturnCode {
	_, rc := h.call(types.StmtRequest{Command: types.CmdCloseCursor})
	return rc
}

func (h *Handle) Diagnostic() *odbc.Diagnostic { return h.diag }

// Fetch returns up to maxRows rows of the open result set, decoded as JSON
// values with numbers as json.Number. io.EOF is returned once all rows have
// been fetched.
func (h *Handle) Fetch(maxRows int) ([][]interface{}, error) {
	resp, rc := h.call(types.StmtRequest{Command: types.CmdFetch, MaxRows: maxRows})
	switch rc {
	case odbc.Success, odbc.SuccessWithInfo:
		return resp.Rows, nil
	case odbc.NoData:
		return nil, io.EOF
	}
	return nil, &odbc.DriverError{Function: "SQLFetch", Return: rc, Diagnostic: h.diag}
}

// Free releases the statement on the host. Freeing twice is a no-op.
func (h *Handle) Free() error {
	if h.freed {
		return nil
	}
	_, rc := h.call(types.StmtRequest{Command: types.CmdFreeStmt, Option: uint16(odbc.FreeDrop)})
	h.freed = true
	if rc != odbc.Success {
		return fmt.Errorf("sqlproxy: free statement %s: %w", h.id,
			&odbc.DriverError{Function: "SQLFreeHandle", Return: rc, Diagnostic: h.diag})
	}
	return nil
}
