package host

import (
	"database/sql"
	"regexp"
	"strings"

	"github.com/tomyedwab/odbcstream/odbc"
	"github.com/tomyedwab/odbcstream/sqlproxy/types"
)

// SQLite exposes a single schema per connection.
const mainSchema = "main"

var tablesColumns = []column{
	{name: "TABLE_CAT", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 128, nullable: odbc.Nullable},
	{name: "TABLE_SCHEM", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 128, nullable: odbc.Nullable},
	{name: "TABLE_NAME", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 128, nullable: odbc.Nullable},
	{name: "TABLE_TYPE", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 128, nullable: odbc.Nullable},
	{name: "REMARKS", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 254, nullable: odbc.Nullable},
}

var columnsColumns = []column{
	{name: "TABLE_CAT", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 128, nullable: odbc.Nullable},
	{name: "TABLE_SCHEM", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 128, nullable: odbc.Nullable},
	{name: "TABLE_NAME", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 128, nullable: odbc.NoNulls},
	{name: "COLUMN_NAME", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 128, nullable: odbc.NoNulls},
	{name: "DATA_TYPE", typeName: "SMALLINT", sqlType: odbc.TypeSmallInt, size: 5, nullable: odbc.NoNulls},
	{name: "TYPE_NAME", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 128, nullable: odbc.NoNulls},
	{name: "COLUMN_SIZE", typeName: "INTEGER", sqlType: odbc.TypeInteger, size: 10, nullable: odbc.Nullable},
	{name: "BUFFER_LENGTH", typeName: "INTEGER", sqlType: odbc.TypeInteger, size: 10, nullable: odbc.Nullable},
	{name: "DECIMAL_DIGITS", typeName: "SMALLINT", sqlType: odbc.TypeSmallInt, size: 5, nullable: odbc.Nullable},
	{name: "NUM_PREC_RADIX", typeName: "SMALLINT", sqlType: odbc.TypeSmallInt, size: 5, nullable: odbc.Nullable},
	{name: "NULLABLE", typeName: "SMALLINT", sqlType: odbc.TypeSmallInt, size: 5, nullable: odbc.NoNulls},
	{name: "REMARKS", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 254, nullable: odbc.Nullable},
	{name: "COLUMN_DEF", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 254, nullable: odbc.Nullable},
	{name: "SQL_DATA_TYPE", typeName: "SMALLINT", sqlType: odbc.TypeSmallInt, size: 5, nullable: odbc.NoNulls},
	{name: "SQL_DATETIME_SUB", typeName: "SMALLINT", sqlType: odbc.TypeSmallInt, size: 5, nullable: odbc.Nullable},
	{name: "CHAR_OCTET_LENGTH", typeName: "INTEGER", sqlType: odbc.TypeInteger, size: 10, nullable: odbc.Nullable},
	{name: "ORDINAL_POSITION", typeName: "INTEGER", sqlType: odbc.TypeInteger, size: 10, nullable: odbc.NoNulls},
	{name: "IS_NULLABLE", typeName: "VARCHAR", sqlType: odbc.TypeVarchar, size: 3, nullable: odbc.Nullable},
}

type tableEntry struct {
	Name string `db:"name"`
	Type string `db:"type"`
}

type columnEntry struct {
	Cid     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull int            `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
}

// matcher filters catalog names. With the metadata id attribute set the
// arguments are identifiers, otherwise LIKE patterns ('%' and '_').
type matcher func(name string) bool

func (s *statement) matcher(arg *string) matcher {
	if arg == nil || (*arg == "" && !s.metadataID) {
		return func(string) bool { return true }
	}
	if s.metadataID {
		want := *arg
		return func(name string) bool { return strings.EqualFold(name, want) }
	}
	re := likePattern(*arg)
	return re.MatchString
}

func likePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func (h *SQLHost) listTables(s *statement, req *types.StmtRequest) ([]tableEntry, error) {
	var entries []tableEntry
	err := h.db.Select(&entries,
		`SELECT name, type FROM sqlite_master
		 WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		 ORDER BY name`)
	if err != nil {
		return nil, err
	}

	schemaOK := s.matcher(req.Schema)(mainSchema)
	tableOK := s.matcher(req.Table)
	var matched []tableEntry
	for _, e := range entries {
		if schemaOK && tableOK(e.Name) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// tableTypeFilter parses a comma separated list of table types, optionally
// quoted. An empty list matches every type.
func tableTypeFilter(arg *string) func(string) bool {
	if arg == nil || strings.TrimSpace(*arg) == "" || *arg == "%" {
		return func(string) bool { return true }
	}
	wanted := map[string]bool{}
	for _, t := range strings.Split(*arg, ",") {
		wanted[strings.ToUpper(strings.Trim(strings.TrimSpace(t), "'"))] = true
	}
	return func(t string) bool { return wanted[t] }
}

func (h *SQLHost) handleTables(s *statement, req *types.StmtRequest) types.StmtResponse {
	if s.result != nil {
		return failure("24000", "invalid cursor state")
	}
	entries, err := h.listTables(s, req)
	if err != nil {
		return failureFromErr(err)
	}

	typeOK := tableTypeFilter(req.TableType)
	rs := &resultSet{columns: tablesColumns}
	for _, e := range entries {
		tableType := strings.ToUpper(e.Type)
		if !typeOK(tableType) {
			continue
		}
		rs.rows = append(rs.rows, []interface{}{nil, mainSchema, e.Name, tableType, nil})
	}
	s.result = rs
	return success()
}

func (h *SQLHost) handleColumns(s *statement, req *types.StmtRequest) types.StmtResponse {
	if s.result != nil {
		return failure("24000", "invalid cursor state")
	}
	entries, err := h.listTables(s, req)
	if err != nil {
		return failureFromErr(err)
	}

	columnOK := s.matcher(req.ColumnName)
	rs := &resultSet{columns: columnsColumns}
	for _, e := range entries {
		var cols []columnEntry
		err := h.db.Select(&cols,
			`SELECT cid, name, type, "notnull", dflt_value FROM pragma_table_info(?) ORDER BY cid`, e.Name)
		if err != nil {
			return failureFromErr(err)
		}
		for _, col := range cols {
			if !columnOK(col.Name) {
				continue
			}
			rs.rows = append(rs.rows, columnRow(e.Name, col))
		}
	}
	s.result = rs
	return success()
}

func columnRow(table string, col columnEntry) []interface{} {
	c := describeDecl(col.Type)
	nullable, isNullable := int64(odbc.Nullable), "YES"
	if col.NotNull != 0 {
		nullable, isNullable = int64(odbc.NoNulls), "NO"
	}

	var radix, octets, def interface{}
	if c.sqlType.IsNumeric() {
		radix = int64(10)
	}
	if c.isCharacter() || c.sqlType == odbc.TypeVarbinary || c.sqlType == odbc.TypeLongVarbinary {
		octets = c.octetLength()
	}
	if col.Default.Valid {
		def = col.Default.String
	}

	return []interface{}{
		nil,
		mainSchema,
		table,
		col.Name,
		int64(c.sqlType),
		c.typeName,
		int64(c.size),
		c.octetLength(),
		int64(c.scale),
		radix,
		nullable,
		nil,
		def,
		int64(c.verboseType()),
		nil,
		octets,
		int64(col.Cid + 1),
		isNullable,
	}
}
