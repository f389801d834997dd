package host

import (
	"database/sql"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tomyedwab/odbcstream/odbc"
	"github.com/tomyedwab/odbcstream/sqlproxy/types"
)

// resultSet is a materialized result set with a fetch position.
type resultSet struct {
	columns []column
	rows    [][]interface{}
	next    int
}

// column describes one result column in ODBC terms.
type column struct {
	name     string
	typeName string
	table    string
	sqlType  odbc.SQLType
	size     uint64
	scale    int16
	nullable odbc.Nullability
	// untyped columns have no declared type, e.g. expressions.
	untyped bool
}

func (c column) isCharacter() bool {
	switch c.sqlType {
	case odbc.TypeChar, odbc.TypeVarchar, odbc.TypeLongVarchar,
		odbc.TypeWChar, odbc.TypeWVarchar, odbc.TypeWLongVarchar:
		return true
	}
	return false
}

func columnFromType(ct *sql.ColumnType) column {
	c := describeDecl(ct.DatabaseTypeName())
	c.name = ct.Name()
	c.nullable = odbc.NullableUnknown
	if nullable, ok := ct.Nullable(); ok {
		c.nullable = odbc.NoNulls
		if nullable {
			c.nullable = odbc.Nullable
		}
	}
	return c
}

// describeDecl maps a declared SQLite column type to an SQL type following
// SQLite's type affinity rules.
func describeDecl(decl string) column {
	base, args := splitDecl(decl)
	arg := func(i int, def uint64) uint64 {
		if i < len(args) {
			return args[i]
		}
		return def
	}

	c := column{typeName: decl}
	if decl == "" {
		c.typeName = "VARCHAR"
		c.untyped = true
	}
	switch {
	case base == "":
		c.sqlType, c.size = odbc.TypeVarchar, 255
	case strings.Contains(base, "BOOL"):
		c.sqlType, c.size = odbc.TypeBit, 1
	case strings.Contains(base, "INT"):
		c.sqlType, c.size = odbc.TypeBigInt, 19
	case base == "CHAR" || base == "CHARACTER" || base == "NCHAR":
		c.sqlType, c.size = odbc.TypeChar, arg(0, 1)
	case strings.Contains(base, "CHAR"):
		c.sqlType, c.size = odbc.TypeVarchar, arg(0, 255)
	case strings.Contains(base, "CLOB") || strings.Contains(base, "TEXT"):
		c.sqlType, c.size = odbc.TypeLongVarchar, arg(0, 65535)
	case strings.Contains(base, "BLOB"):
		c.sqlType, c.size = odbc.TypeLongVarbinary, arg(0, 65535)
	case strings.Contains(base, "BINARY"):
		c.sqlType, c.size = odbc.TypeVarbinary, arg(0, 255)
	case strings.Contains(base, "REAL") || strings.Contains(base, "FLOA") || strings.Contains(base, "DOUB"):
		c.sqlType, c.size = odbc.TypeDouble, 15
	case base == "DATE":
		c.sqlType, c.size = odbc.TypeDate, 10
	case base == "TIME":
		c.sqlType, c.size = odbc.TypeTime, 8
	case strings.Contains(base, "DATETIME") || strings.Contains(base, "TIMESTAMP"):
		c.sqlType, c.size = odbc.TypeTimestamp, 23
	default:
		c.sqlType, c.size = odbc.TypeNumeric, arg(0, 15)
		c.scale = int16(arg(1, 0))
	}
	return c
}

// settle types the untyped columns holding binary values as BLOB and turns
// the values of character columns into strings.
func (rs *resultSet) settle() {
	for i := range rs.columns {
		c := &rs.columns[i]
		if c.untyped && rs.hasBinary(i) {
			name, nullable := c.name, c.nullable
			*c = describeDecl("BLOB")
			c.name, c.nullable = name, nullable
		}
		if !c.isCharacter() {
			continue
		}
		for _, row := range rs.rows {
			if b, ok := row[i].([]byte); ok {
				row[i] = string(b)
			}
		}
	}
}

func (rs *resultSet) hasBinary(col int) bool {
	for _, row := range rs.rows {
		if b, ok := row[col].([]byte); ok && !utf8.Valid(b) {
			return true
		}
	}
	return false
}

func splitDecl(decl string) (string, []uint64) {
	decl = strings.ToUpper(strings.TrimSpace(decl))
	open := strings.IndexByte(decl, '(')
	if open < 0 {
		return decl, nil
	}
	base := strings.TrimSpace(decl[:open])
	var args []uint64
	for _, field := range strings.Split(strings.TrimSuffix(decl[open+1:], ")"), ",") {
		if n, err := strconv.ParseUint(strings.TrimSpace(field), 10, 32); err == nil {
			args = append(args, n)
		}
	}
	return base, args
}

func (c column) displaySize() int64 {
	switch c.sqlType {
	case odbc.TypeBigInt:
		return 20
	case odbc.TypeDouble:
		return 24
	case odbc.TypeNumeric, odbc.TypeDecimal:
		return int64(c.size) + 2
	case odbc.TypeBinary, odbc.TypeVarbinary, odbc.TypeLongVarbinary:
		return 2 * int64(c.size)
	}
	return int64(c.size)
}

func (c column) octetLength() int64 {
	switch c.sqlType {
	case odbc.TypeBigInt, odbc.TypeDouble:
		return 8
	case odbc.TypeNumeric, odbc.TypeDecimal:
		return int64(c.size) + 2
	case odbc.TypeDate, odbc.TypeTime:
		return 6
	case odbc.TypeTimestamp:
		return 16
	}
	return int64(c.size)
}

// verboseType is the non-concise type: datetime types share one code.
func (c column) verboseType() odbc.SQLType {
	switch c.sqlType {
	case odbc.TypeDate, odbc.TypeTime, odbc.TypeTimestamp:
		const datetime = 9
		return datetime
	}
	return c.sqlType
}

func (c column) numericAttribute(field odbc.Desc) (int64, bool) {
	switch field {
	case odbc.DescDisplaySize:
		return c.displaySize(), true
	case odbc.DescOctetLength:
		return c.octetLength(), true
	case odbc.DescPrecision:
		return int64(c.size), true
	case odbc.DescScale:
		return int64(c.scale), true
	case odbc.DescType:
		return int64(c.verboseType()), true
	case odbc.DescConciseType:
		return int64(c.sqlType), true
	case odbc.DescNullable:
		return int64(c.nullable), true
	case odbc.DescUnsigned:
		if c.sqlType.IsNumeric() {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}

func (c column) stringAttribute(field odbc.Desc) (string, bool) {
	switch field {
	case odbc.DescName:
		return c.name, true
	case odbc.DescTypeName:
		return c.typeName, true
	case odbc.DescTableName:
		return c.table, true
	}
	return "", false
}

// truncated fills the string fields of resp with s as it fits into a buffer
// of bufferLen bytes including the terminator.
func truncated(resp types.StmtResponse, s string, bufferLen int) types.StmtResponse {
	resp.Length = len(s)
	if len(s)+1 > bufferLen {
		resp.Text = s[:max(bufferLen-1, 0)]
		resp.Return = int16(odbc.SuccessWithInfo)
		resp.Diagnostic = &types.Diagnostic{State: "01004", Message: "string data, right truncated"}
		return resp
	}
	resp.Text = s
	return resp
}

func (s *statement) column(number uint16) (column, *types.StmtResponse) {
	if s.result == nil {
		resp := failure("07005", "prepared statement not a cursor-specification")
		return column{}, &resp
	}
	if number == 0 || int(number) > len(s.result.columns) {
		resp := failure("07009", "invalid descriptor index: %d", number)
		return column{}, &resp
	}
	return s.result.columns[number-1], nil
}

func (s *statement) numResultCols() types.StmtResponse {
	resp := success()
	if s.result != nil {
		resp.Count = int64(len(s.result.columns))
	}
	return resp
}

func (s *statement) describeCol(number uint16, bufferLen int) types.StmtResponse {
	c, fail := s.column(number)
	if fail != nil {
		return *fail
	}
	resp := success()
	resp.SQLType = int16(c.sqlType)
	resp.ColumnSize = c.size
	resp.DecimalDigits = c.scale
	resp.Nullable = int16(c.nullable)
	return truncated(resp, c.name, bufferLen)
}

func (s *statement) colAttribute(number uint16, field odbc.Desc, bufferLen int) types.StmtResponse {
	c, fail := s.column(number)
	if fail != nil {
		return *fail
	}
	if text, ok := c.stringAttribute(field); ok {
		return truncated(success(), text, bufferLen)
	}
	if v, ok := c.numericAttribute(field); ok {
		resp := success()
		resp.Numeric = v
		return resp
	}
	return failure("HY091", "invalid descriptor field identifier: %d", field)
}

func (s *statement) fetch(maxRows int) types.StmtResponse {
	if s.result == nil {
		return failure("24000", "invalid cursor state")
	}
	rs := s.result
	if rs.next >= len(rs.rows) {
		return types.StmtResponse{Return: int16(odbc.NoData)}
	}
	end := min(rs.next+max(maxRows, 1), len(rs.rows))
	resp := success()
	resp.Rows = make([][]interface{}, 0, end-rs.next)
	for _, row := range rs.rows[rs.next:end] {
		resp.Rows = append(resp.Rows, processRowValues(row))
	}
	rs.next = end
	return resp
}

func (s *statement) closeCursor() types.StmtResponse {
	if s.result == nil {
		return failure("24000", "invalid cursor state")
	}
	s.result = nil
	return success()
}
