package driver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tomyedwab/odbcstream/odbc"
)

// DefaultFetchSize is the number of rows requested per fetch.
const DefaultFetchSize = 100

// Fetcher is implemented by handles that can fetch rows of an open result
// set in blocks.
type Fetcher interface {
	Fetch(maxRows int) ([][]interface{}, error)
}

// ResultSet reads the rows of a cursor block by block.
type ResultSet struct {
	cursor    *odbc.Cursor
	fetcher   Fetcher
	columns   []odbc.ColumnDescription
	names     []string
	fetchSize int
	block     [][]interface{}
	pos       int
	done      bool
}

// OpenResultSet describes the columns of cursor and prepares to fetch
// fetchSize rows at a time.
func OpenResultSet(cursor *odbc.Cursor, fetchSize int) (*ResultSet, error) {
	fetcher, ok := cursor.Statement().Handle().(Fetcher)
	if !ok {
		return nil, fmt.Errorf("sqlproxy: statement handle %T cannot fetch rows", cursor.Statement().Handle())
	}
	if fetchSize <= 0 {
		fetchSize = DefaultFetchSize
	}

	n, err := cursor.NumResultCols()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("sqlproxy: driver reported %d result columns", n)
	}
	rs := &ResultSet{
		cursor:    cursor,
		fetcher:   fetcher,
		columns:   make([]odbc.ColumnDescription, n),
		names:     make([]string, n),
		fetchSize: fetchSize,
	}
	for i := range rs.columns {
		if err := cursor.DescribeCol(uint16(i+1), &rs.columns[i]); err != nil {
			return nil, err
		}
		rs.names[i] = rs.columns[i].NameString()
	}
	return rs, nil
}

// Columns returns the column names.
func (rs *ResultSet) Columns() []string { return rs.names }

// Describe returns the description of column i (starting at 0).
func (rs *ResultSet) Describe(i int) odbc.ColumnDescription { return rs.columns[i] }

// Next returns the next row, or io.EOF after the last one.
func (rs *ResultSet) Next() ([]interface{}, error) {
	for rs.pos >= len(rs.block) {
		if rs.done {
			return nil, io.EOF
		}
		block, err := rs.fetcher.Fetch(rs.fetchSize)
		if errors.Is(err, io.EOF) {
			rs.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		rs.block, rs.pos = block, 0
	}

	raw := rs.block[rs.pos]
	rs.pos++
	if len(raw) != len(rs.columns) {
		return nil, fmt.Errorf("sqlproxy: column count mismatch. Expected %d, got %d", len(rs.columns), len(raw))
	}
	row := make([]interface{}, len(raw))
	for i, v := range raw {
		value, err := decodeValue(rs.columns[i].DataType.SQLType, v)
		if err != nil {
			return nil, fmt.Errorf("sqlproxy: column %s: %w", rs.names[i], err)
		}
		row[i] = value
	}
	return row, nil
}

// Close closes the cursor.
func (rs *ResultSet) Close() error {
	return rs.cursor.Close()
}

// decodeValue turns a JSON row value back into a Go value. Numbers become
// int64 where they are integral, binary columns are base64 decoded.
func decodeValue(sqlType odbc.SQLType, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		return val.Float64()
	case string:
		switch sqlType {
		case odbc.TypeBinary, odbc.TypeVarbinary, odbc.TypeLongVarbinary:
			return base64.StdEncoding.DecodeString(val)
		}
		return val, nil
	}
	return v, nil
}
