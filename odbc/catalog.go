package odbc

// TableFilter restricts a table listing. Empty fields do not filter.
type TableFilter struct {
	Catalog string
	Schema  string
	Table   string
	Type    string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ExecuteColumns lists the columns matching the given catalog, schema, table
// and column name. The returned cursor's columns follow SQLColumns.
func ExecuteColumns(stmt *Statement, catalog, schema, table, column string) (*Cursor, error) {
	return catalogQuery(stmt, "SQLColumns", func() ReturnCode {
		return stmt.handle.Columns(catalog, schema, table, column)
	})
}

// ExecuteTables lists the tables matching filter.
func ExecuteTables(stmt *Statement, filter TableFilter) (*Cursor, error) {
	return catalogQuery(stmt, "SQLTables", func() ReturnCode {
		return stmt.handle.Tables(optional(filter.Catalog), optional(filter.Schema),
			optional(filter.Table), optional(filter.Type))
	})
}

func catalogQuery(stmt *Statement, function string, call func() ReturnCode) (*Cursor, error) {
	if stmt.State() == HasResultSet {
		return nil, programmingError(function, "statement still has an open result set")
	}
	stmt.state = Executing
	if _, err := stmt.classify(function, call()).Into(function); err != nil {
		stmt.state = Idle
		return nil, err
	}
	cursor, err := materialize(stmt)
	if err != nil {
		stmt.state = Idle
		return nil, err
	}
	if cursor == nil {
		return nil, &DriverError{
			Function:   function,
			Return:     Success,
			Diagnostic: &Diagnostic{State: "HY000", Message: "no result set"},
		}
	}
	return cursor, nil
}
