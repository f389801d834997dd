package odbc

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

// fakeHandle is a scripted driver handle recording every call it receives.
type fakeHandle struct {
	calls []string

	execRC     ReturnCode
	tokens     []Token
	paramEnd   ReturnCode
	putRC      ReturnCode
	numCols    int16
	params     map[uint16]ParameterDescription
	names      map[uint16]string
	nameLens   []int // overrides the reported name length per DescribeCol call
	numeric    map[Desc]int64
	failing    map[string]ReturnCode
	diagnostic *Diagnostic

	bindings []ParameterBinding
	puts     [][]byte
	freed    int
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		names:   map[uint16]string{},
		params:  map[uint16]ParameterDescription{},
		numeric: map[Desc]int64{},
		failing: map[string]ReturnCode{},
	}
}

func (f *fakeHandle) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeHandle) rc(function string) ReturnCode {
	if rc, ok := f.failing[function]; ok {
		return rc
	}
	return Success
}

func (f *fakeHandle) FreeStmt(option FreeStmtOption) ReturnCode {
	f.record("reset(%d)", option)
	return f.rc("FreeStmt")
}

func (f *fakeHandle) SetStmtAttr(attr StatementAttribute, value int) ReturnCode {
	if attr == AttrParamsetSize {
		f.record("paramset(%d)", value)
	} else {
		f.record("attr(%d,%d)", attr, value)
	}
	return f.rc("SetStmtAttr")
}

func (f *fakeHandle) BindParameter(b *ParameterBinding) ReturnCode {
	f.record("bind(%d)", b.Number)
	f.bindings = append(f.bindings, *b)
	return f.rc("BindParameter")
}

func (f *fakeHandle) Prepare(text string) ReturnCode {
	f.record("prepare")
	return f.rc("Prepare")
}

func (f *fakeHandle) ExecDirect(text string) ReturnCode {
	f.record("exec_direct")
	if rc, ok := f.failing["ExecDirect"]; ok {
		return rc
	}
	return f.execRC
}

func (f *fakeHandle) Execute() ReturnCode {
	f.record("execute")
	return f.execRC
}

func (f *fakeHandle) ParamData() (Token, ReturnCode) {
	if len(f.tokens) == 0 {
		f.record("param_data->none")
		if f.paramEnd != 0 {
			return 0, f.paramEnd
		}
		return 0, Success
	}
	token := f.tokens[0]
	f.tokens = f.tokens[1:]
	f.record("param_data->%d", token)
	return token, NeedData
}

func (f *fakeHandle) PutData(batch []byte) ReturnCode {
	f.record("put(%s)", batch)
	f.puts = append(f.puts, append([]byte(nil), batch...))
	return f.putRC
}

func (f *fakeHandle) DescribeParam(number uint16) (ParameterDescription, ReturnCode) {
	f.record("describe_param(%d)", number)
	desc, ok := f.params[number]
	if !ok {
		return ParameterDescription{}, Error
	}
	return desc, Success
}

func (f *fakeHandle) NumResultCols() (int16, ReturnCode) {
	f.record("num_result_cols->%d", f.numCols)
	return f.numCols, f.rc("NumResultCols")
}

func (f *fakeHandle) DescribeCol(column uint16, name []byte) (ColumnInfo, ReturnCode) {
	f.record("describe(%d,%d)", column, len(name))
	if rc, ok := f.failing["DescribeCol"]; ok {
		return ColumnInfo{}, rc
	}
	full := f.names[column]
	n := copy(name, full)
	if n < len(name) {
		name[n] = 0
	}
	length := len(full)
	if len(f.nameLens) > 0 {
		length = f.nameLens[0]
		f.nameLens = f.nameLens[1:]
	}
	rc := Success
	if length+1 > len(name) {
		rc = SuccessWithInfo
	}
	return ColumnInfo{
		NameLength:  length,
		DataType:    DataType{SQLType: TypeVarchar, ColumnSize: 255},
		Nullability: Nullable,
	}, rc
}

func (f *fakeHandle) ColAttributeString(column uint16, field Desc, buf []byte) (int, ReturnCode) {
	f.record("col_attr_str(%d,%d)", column, field)
	full := f.names[column]
	copy(buf, full)
	return len(full), Success
}

func (f *fakeHandle) ColAttributeNumeric(column uint16, field Desc) (int64, ReturnCode) {
	f.record("col_attr_num(%d,%d)", column, field)
	return f.numeric[field], f.rc("ColAttributeNumeric")
}

func (f *fakeHandle) Columns(catalog, schema, table, column string) ReturnCode {
	f.record("columns(%s,%s,%s,%s)", catalog, schema, table, column)
	return f.rc("Columns")
}

func (f *fakeHandle) Tables(catalog, schema, table, tableType *string) ReturnCode {
	show := func(s *string) string {
		if s == nil {
			return "nil"
		}
		return *s
	}
	f.record("tables(%s,%s,%s,%s)", show(catalog), show(schema), show(table), show(tableType))
	return f.rc("Tables")
}

func (f *fakeHandle) CloseCursor() ReturnCode {
	f.record("close_cursor")
	return f.rc("CloseCursor")
}

func (f *fakeHandle) Diagnostic() *Diagnostic {
	return f.diagnostic
}

func (f *fakeHandle) Free() error {
	f.freed++
	return nil
}

func (f *fakeHandle) countCalls(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func assertCalls(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("call sequence mismatch\n got: %v\nwant: %v", got, want)
	}
}

// scriptedBlob returns its batches in order and then err (io.EOF when nil).
type scriptedBlob struct {
	batches [][]byte
	err     error
	pulls   int
}

func (b *scriptedBlob) CType() CDataType        { return CBinary }
func (b *scriptedBlob) DataType() DataType      { return DataType{SQLType: TypeLongVarbinary} }
func (b *scriptedBlob) SizeHint() (int64, bool) { return 0, false }

func (b *scriptedBlob) NextBatch() ([]byte, error) {
	b.pulls++
	if len(b.batches) == 0 {
		if b.err != nil {
			return nil, b.err
		}
		return nil, io.EOF
	}
	batch := b.batches[0]
	b.batches = b.batches[1:]
	return batch, nil
}

func acquireOf(stmt *Statement) func() (*Statement, error) {
	return func() (*Statement, error) { return stmt, nil }
}

var errBoom = errors.New("boom")
