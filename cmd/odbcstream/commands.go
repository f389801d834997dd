package main

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tomyedwab/odbcstream/config"
	"github.com/tomyedwab/odbcstream/odbc"
	"github.com/tomyedwab/odbcstream/sqlproxy/driver"
)

type app struct {
	conn   *driver.Connection
	cfg    *config.Config
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// exec runs a single statement. Arguments of the form @path are streamed
// from the named file, @- from standard input.
func (a *app) exec(args []string) error {
	fs := a.flagSet("exec")
	query := fs.String("q", "", "SQL statement to execute")
	queryFile := fs.String("f", "", "File containing the SQL statement")
	output := fs.String("o", "", "CSV output file (default standard output)")
	maxStrLen := fs.Int("m", a.cfg.MaxStrLen, "Maximum length of a text value written")
	batchSize := fs.Int("batch-size", a.cfg.BlobBatchSize, "Bytes sent per blob batch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := a.queryText(*query, *queryFile)
	if err != nil {
		return err
	}
	if *maxStrLen <= 0 {
		return fmt.Errorf("max string length must be positive, got %d", *maxStrLen)
	}

	var files []*odbc.BlobFile
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	values := make([]odbc.Parameter, 0, fs.NArg())
	for _, arg := range fs.Args() {
		switch {
		case arg == "@-":
			values = append(values, &odbc.BlobParam{Blob: odbc.NewBlobReader(a.stdin, *batchSize, odbc.TypeLongVarbinary)})
		case strings.HasPrefix(arg, "@"):
			f, err := odbc.OpenBlobFile(arg[1:], *batchSize, odbc.TypeLongVarbinary)
			if err != nil {
				return err
			}
			files = append(files, f)
			values = append(values, &odbc.BlobParam{Blob: f})
		default:
			values = append(values, odbc.Text(arg))
		}
	}

	a.logger.Debug("Executing statement", "query", text, "parameters", len(values))
	cursor, err := a.conn.Execute(text, odbc.NewParams(values...))
	if err != nil {
		return err
	}
	if cursor == nil || *output == "" {
		return a.writeCursor(a.stdout, cursor, *maxStrLen)
	}

	out, err := os.Create(*output)
	if err != nil {
		cursor.Close()
		return fmt.Errorf("failed to create output file %s: %w", *output, err)
	}
	if err := a.writeCursor(out, cursor, *maxStrLen); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (a *app) queryText(query, queryFile string) (string, error) {
	switch {
	case query != "" && queryFile != "":
		return "", errors.New("only one of -q and -f may be given")
	case query != "":
		return query, nil
	case queryFile != "":
		data, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("failed to read query file %s: %w", queryFile, err)
		}
		return string(data), nil
	}
	return "", errors.New("a query is required (-q or -f)")
}

func (a *app) tables(args []string) error {
	fs := a.flagSet("tables")
	var filter odbc.TableFilter
	fs.StringVar(&filter.Catalog, "catalog", "", "Catalog name pattern")
	fs.StringVar(&filter.Schema, "schema", "", "Schema name pattern")
	fs.StringVar(&filter.Table, "name", "", "Table name pattern")
	fs.StringVar(&filter.Type, "type", "", "Comma separated table types")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cursor, err := a.conn.Tables(filter)
	if err != nil {
		return err
	}
	return a.writeCursor(a.stdout, cursor, 0)
}

func (a *app) columns(args []string) error {
	fs := a.flagSet("columns")
	catalog := fs.String("catalog", "", "Catalog name pattern")
	schema := fs.String("schema", "", "Schema name pattern")
	table := fs.String("table", "", "Table name pattern")
	column := fs.String("column", "", "Column name pattern")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cursor, err := a.conn.Columns(*catalog, *schema, *table, *column)
	if err != nil {
		return err
	}
	return a.writeCursor(a.stdout, cursor, 0)
}

// describe prints one CSV line per result column of the query.
func (a *app) describe(args []string) error {
	fs := a.flagSet("describe")
	query := fs.String("q", "", "SQL query to describe")
	queryFile := fs.String("f", "", "File containing the SQL query")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := a.queryText(*query, *queryFile)
	if err != nil {
		return err
	}

	cursor, err := a.conn.Execute(text, odbc.NoParams())
	if err != nil {
		return err
	}
	if cursor == nil {
		fmt.Fprintln(a.stderr, "no result set")
		return nil
	}
	defer cursor.Close()

	n, err := cursor.NumResultCols()
	if err != nil {
		return err
	}
	w := csv.NewWriter(a.stdout)
	w.Write([]string{"name", "type", "type_name", "size", "scale", "nullable", "display_size", "unsigned"})
	var desc odbc.ColumnDescription
	var typeName []byte
	for col := uint16(1); col <= uint16(n); col++ {
		if err := cursor.DescribeCol(col, &desc); err != nil {
			return err
		}
		typeName, err = cursor.ColTypeName(col, typeName)
		if err != nil {
			return err
		}
		displaySize, err := cursor.ColDisplaySize(col)
		if err != nil {
			return err
		}
		unsigned, err := cursor.IsUnsignedColumn(col)
		if err != nil {
			return err
		}
		w.Write([]string{
			desc.NameString(),
			strconv.Itoa(int(desc.DataType.SQLType)),
			string(typeName),
			strconv.FormatUint(desc.DataType.ColumnSize, 10),
			strconv.Itoa(int(desc.DataType.DecimalDigits)),
			desc.Nullability.String(),
			strconv.FormatInt(displaySize, 10),
			strconv.FormatBool(unsigned),
		})
	}
	w.Flush()
	return w.Error()
}

// insert reads CSV with a header line and inserts the rows into a table, a
// batch of rows per execution.
func (a *app) insert(ctx context.Context, args []string) error {
	fs := a.flagSet("insert")
	table := fs.String("table", "", "Table to insert into")
	input := fs.String("i", "", "CSV input file (default standard input)")
	batchSize := fs.Int("batch-size", a.cfg.BatchSize, "Rows inserted per execution")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *table == "" {
		return errors.New("a table is required (-table)")
	}
	if *batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", *batchSize)
	}

	in := a.stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	r := csv.NewReader(in)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(header)), ",")
	prepared, err := a.conn.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", *table, strings.Join(header, ","), placeholders))
	if err != nil {
		return err
	}
	defer prepared.Free()

	maxStrLens := make([]int, len(header))
	for i := range maxStrLens {
		maxStrLens[i] = a.cfg.MaxStrLen
	}
	rowSet := odbc.NewTextRowSet(*batchSize, maxStrLens)

	flush := func() error {
		if _, err := prepared.Execute(rowSet); err != nil {
			return err
		}
		a.logger.Debug("Inserted batch", "table", *table, "rows", rowSet.NumRows())
		rowSet.Clear()
		return nil
	}

	total := 0
	fields := make([][]byte, len(header))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV line %d: %w", total+2, err)
		}
		for i, v := range record {
			if v == "" {
				fields[i] = nil
			} else {
				fields[i] = []byte(v)
			}
		}
		if err := rowSet.Append(fields[:len(record)]); err != nil {
			return fmt.Errorf("CSV line %d: %w", total+2, err)
		}
		total++
		if rowSet.NumRows() == rowSet.Capacity() {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	// An empty remainder is skipped by the execution itself.
	if err := flush(); err != nil {
		return err
	}
	a.logger.Info("Insert complete", "table", *table, "rows", total)
	return nil
}

// writeCursor writes the cursor's rows to out as CSV with a header line,
// cutting text values to maxStrLen bytes when it is positive. A statement
// without a result set prints a notice instead.
func (a *app) writeCursor(out io.Writer, cursor *odbc.Cursor, maxStrLen int) error {
	if cursor == nil {
		fmt.Fprintln(a.stderr, "no result set")
		return nil
	}
	rs, err := driver.OpenResultSet(cursor, a.cfg.BatchSize)
	if err != nil {
		cursor.Close()
		return err
	}
	defer rs.Close()

	w := csv.NewWriter(out)
	if err := w.Write(rs.Columns()); err != nil {
		return err
	}
	record := make([]string, len(rs.Columns()))
	for {
		row, err := rs.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		for i, v := range row {
			if str, ok := v.(string); ok && maxStrLen > 0 {
				v = truncate(str, maxStrLen)
			}
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// truncate cuts s to at most n bytes without splitting a character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return fmt.Sprint(v)
}
