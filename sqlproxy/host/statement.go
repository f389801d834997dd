package host

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/odbcstream/odbc"
	"github.com/tomyedwab/odbcstream/sqlproxy/types"
)

// statement is a host-side statement handle.
type statement struct {
	id           string
	prepared     string
	hasPrepared  bool
	paramsetSize int
	metadataID   bool
	bound        map[uint16]types.Binding
	pending      *pendingExec
	result       *resultSet
}

func newStatement(id string) *statement {
	return &statement{id: id, paramsetSize: 1, bound: make(map[uint16]types.Binding)}
}

// delayedSlot is one delayed parameter of one parameter row.
type delayedSlot struct {
	row     int
	binding int
}

// pendingExec is an execution waiting for delayed parameter data.
type pendingExec struct {
	query    string
	bindings []types.Binding
	rows     int
	queue    []delayedSlot
	next     int
	current  *delayedSlot
	data     map[delayedSlot]*bytes.Buffer
}

// sqlStateError is a failure with a known SQLSTATE.
type sqlStateError struct {
	state   string
	message string
}

func (e *sqlStateError) Error() string { return e.message }

func stateErrorf(state, format string, args ...any) error {
	return &sqlStateError{state: state, message: fmt.Sprintf(format, args...)}
}

func (s *statement) setAttr(attr odbc.StatementAttribute, value int) types.StmtResponse {
	switch attr {
	case odbc.AttrParamsetSize:
		if value <= 0 {
			return failure("HY024", "invalid attribute value: paramset size %d", value)
		}
		s.paramsetSize = value
	case odbc.AttrRowArraySize:
		if value <= 0 {
			return failure("HY024", "invalid attribute value: row array size %d", value)
		}
	case odbc.AttrMetadataID:
		s.metadataID = value != 0
	default:
		return failure("HY092", "invalid attribute/option identifier: %d", attr)
	}
	return success()
}

func (s *statement) bindParameter(b *types.Binding) types.StmtResponse {
	if b == nil {
		return failure("HY009", "invalid use of null pointer: missing binding")
	}
	if b.Number == 0 {
		return failure("07009", "invalid descriptor index: parameter numbers start at 1")
	}
	if !supportedCType(odbc.CDataType(b.CType)) {
		return failure("HY003", "invalid application buffer type: %d", b.CType)
	}
	s.bound[b.Number] = *b
	return success()
}

// describeParam answers from the binding last made for number. SQLite keeps
// no declared types for parameter markers, so an unbound marker is unknown.
func (s *statement) describeParam(number uint16) types.StmtResponse {
	if !s.hasPrepared {
		return failure("HY010", "function sequence error: no statement prepared")
	}
	if number == 0 {
		return failure("07009", "invalid descriptor index: parameter numbers start at 1")
	}
	resp := success()
	resp.SQLType = int16(odbc.TypeUnknown)
	resp.Nullable = int16(odbc.NullableUnknown)
	if b, ok := s.bound[number]; ok {
		resp.SQLType = b.SQLType
		resp.ColumnSize = b.ColumnSize
		resp.DecimalDigits = b.DecimalDigits
	}
	return resp
}

func supportedCType(c odbc.CDataType) bool {
	switch c {
	case odbc.CChar, odbc.CBinary, odbc.CSBigInt, odbc.CDouble, odbc.CBit:
		return true
	}
	return false
}

// execute starts an execution. When delayed parameters are bound the
// statement waits for their data and NeedData is returned.
func (h *SQLHost) execute(s *statement, query string, bindings []types.Binding) types.StmtResponse {
	if s.pending != nil {
		return failure("HY010", "function sequence error: delayed parameters are pending")
	}
	if s.result != nil {
		return failure("24000", "invalid cursor state")
	}

	bindings = slices.Clone(bindings)
	slices.SortFunc(bindings, func(a, b types.Binding) int { return int(a.Number) - int(b.Number) })
	for _, b := range bindings {
		if _, ok := s.bound[b.Number]; !ok {
			return failure("07002", "parameter %d was not bound", b.Number)
		}
		if len(b.Indicators) < s.paramsetSize {
			return failure("HY090", "parameter %d has %d indicators for %d rows", b.Number, len(b.Indicators), s.paramsetSize)
		}
	}

	p := &pendingExec{
		query:    query,
		bindings: bindings,
		rows:     s.paramsetSize,
		data:     make(map[delayedSlot]*bytes.Buffer),
	}
	for row := 0; row < p.rows; row++ {
		for i, b := range bindings {
			if _, _, delayed := odbc.DataAtExecLength(b.Indicators[row]); delayed {
				p.queue = append(p.queue, delayedSlot{row: row, binding: i})
			}
		}
	}
	if len(p.queue) > 0 {
		s.pending = p
		return types.StmtResponse{Return: int16(odbc.NeedData)}
	}
	return h.run(s, p)
}

func (h *SQLHost) paramData(s *statement) types.StmtResponse {
	p := s.pending
	if p == nil {
		return failure("HY010", "function sequence error: no delayed parameters pending")
	}
	if p.next < len(p.queue) {
		slot := p.queue[p.next]
		p.next++
		p.current = &slot
		p.data[slot] = &bytes.Buffer{}
		return types.StmtResponse{Return: int16(odbc.NeedData), Token: p.bindings[slot.binding].Token}
	}
	s.pending = nil
	return h.run(s, p)
}

func (s *statement) putData(data []byte) types.StmtResponse {
	if s.pending == nil || s.pending.current == nil {
		return failure("HY010", "function sequence error: no delayed parameter requested")
	}
	s.pending.data[*s.pending.current].Write(data)
	return success()
}

// run executes the statement once per parameter row. Result sets of all rows
// are concatenated, affected rows are summed.
func (h *SQLHost) run(s *statement, p *pendingExec) types.StmtResponse {
	var total int64
	var result *resultSet
	queries := returnsRows(p.query)

	for row := 0; row < p.rows; row++ {
		args, err := p.args(row)
		if err != nil {
			return failureFromErr(err)
		}
		if queries {
			rows, err := h.db.Queryx(p.query, args...)
			if err != nil {
				return failureFromErr(err)
			}
			result, err = readResultSet(rows, result)
			if err != nil {
				return failureFromErr(err)
			}
			continue
		}
		res, err := h.db.Exec(p.query, args...)
		if err != nil {
			return failureFromErr(err)
		}
		n, err := res.RowsAffected()
		if err == nil {
			total += n
		}
	}

	if queries {
		resp := success()
		if result != nil && len(result.columns) > 0 {
			result.settle()
			s.result = result
			resp.Count = int64(len(result.rows))
		}
		return resp
	}
	if total == 0 && searched(p.query) {
		return types.StmtResponse{Return: int16(odbc.NoData)}
	}
	resp := success()
	resp.Count = total
	return resp
}

func readResultSet(rows *sqlx.Rows, into *resultSet) (*resultSet, error) {
	defer rows.Close()

	if into == nil {
		columnTypes, err := rows.ColumnTypes()
		if err != nil {
			return nil, fmt.Errorf("failed to get column types: %w", err)
		}
		into = &resultSet{columns: make([]column, len(columnTypes))}
		for i, ct := range columnTypes {
			into.columns[i] = columnFromType(ct)
		}
	}

	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		into.rows = append(into.rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return into, nil
}

// args converts the bound values of one parameter row.
func (p *pendingExec) args(row int) ([]interface{}, error) {
	args := make([]interface{}, len(p.bindings))
	for i, b := range p.bindings {
		ind := b.Indicators[row]
		var value []byte
		switch _, _, delayed := odbc.DataAtExecLength(ind); {
		case ind == odbc.NullData:
			args[i] = nil
			continue
		case delayed:
			if buf := p.data[delayedSlot{row: row, binding: i}]; buf != nil {
				value = buf.Bytes()
			}
		default:
			if row < len(b.Values) {
				value = b.Values[row]
			}
			if ind == odbc.NTS {
				if n := bytes.IndexByte(value, 0); n >= 0 {
					value = value[:n]
				}
			} else if ind >= 0 && int(ind) < len(value) {
				value = value[:ind]
			}
		}
		v, err := convertValue(b, value)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func convertValue(b types.Binding, value []byte) (interface{}, error) {
	switch odbc.CDataType(b.CType) {
	case odbc.CChar:
		return string(value), nil
	case odbc.CBinary:
		if value == nil {
			return []byte{}, nil
		}
		return value, nil
	case odbc.CSBigInt:
		if len(value) != 8 {
			return nil, stateErrorf("22003", "parameter %d: expected 8 bytes for BIGINT, got %d", b.Number, len(value))
		}
		return int64(binary.LittleEndian.Uint64(value)), nil
	case odbc.CDouble:
		if len(value) != 8 {
			return nil, stateErrorf("22003", "parameter %d: expected 8 bytes for DOUBLE, got %d", b.Number, len(value))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(value)), nil
	case odbc.CBit:
		if len(value) != 1 {
			return nil, stateErrorf("22003", "parameter %d: expected 1 byte for BIT, got %d", b.Number, len(value))
		}
		return value[0] != 0, nil
	}
	return nil, stateErrorf("HY003", "invalid application buffer type: %d", b.CType)
}

func firstKeyword(query string) string {
	fields := strings.Fields(strings.TrimLeft(query, " \t\r\n("))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// returnsRows reports whether executing query produces a result set.
func returnsRows(query string) bool {
	switch firstKeyword(query) {
	case "SELECT", "WITH", "PRAGMA", "VALUES", "EXPLAIN":
		return true
	case "INSERT", "UPDATE", "DELETE", "REPLACE":
		return strings.Contains(strings.ToUpper(query), " RETURNING ")
	}
	return false
}

// searched reports whether query is a searched update or delete, which
// reports no data when it affects no rows.
func searched(query string) bool {
	switch firstKeyword(query) {
	case "UPDATE", "DELETE":
		return true
	}
	return false
}
