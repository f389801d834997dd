package host

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/tomyedwab/odbcstream/odbc"
	"github.com/tomyedwab/odbcstream/sqlproxy/types"
)

// SQLHost handles statement handle calls for an SQLite database.
// It owns the statement handles and any pending data-at-execution sequences.
type SQLHost struct {
	db     *sqlx.DB
	stmts  map[string]*statement
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLHost creates a new SQLHost instance.
// The provided db must be an active connection to an SQLite database.
// logger is optional and defaults to slog.Default().
func NewSQLHost(db *sqlx.DB, logger *slog.Logger) *SQLHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLHost{
		db:     db,
		stmts:  make(map[string]*statement),
		logger: logger,
	}
}

// HandleRequest processes a raw request payload and returns a raw response payload.
// Failures of the call itself are reported in the response; the returned
// error is only set when the response cannot be encoded.
func (h *SQLHost) HandleRequest(requestPayload []byte) ([]byte, error) {
	var req types.StmtRequest
	if err := json.Unmarshal(requestPayload, &req); err != nil {
		return json.Marshal(failure("HY000", "failed to unmarshal request: %v", err))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Debug("handling statement command", "command", req.Command, "stmt_id", req.StmtID)
	resp := h.dispatch(&req)
	if odbc.ReturnCode(resp.Return) == odbc.Error && resp.Diagnostic != nil {
		h.logger.Warn("statement command failed",
			"command", req.Command,
			"stmt_id", req.StmtID,
			"state", resp.Diagnostic.State,
			"message", resp.Diagnostic.Message)
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return []byte(fmt.Sprintf(`{"return":-1,"diagnostic":{"state":"HY000","message":"failed to marshal response for %s"}}`, req.Command)),
			fmt.Errorf("failed to marshal %s response: %w", req.Command, err)
	}
	return payload, nil
}

func (h *SQLHost) dispatch(req *types.StmtRequest) types.StmtResponse {
	switch req.Command {
	case types.CmdAllocStmt:
		return h.handleAllocStmt()
	case types.CmdCloseConn:
		return h.handleCloseConn()
	}

	stmt, ok := h.stmts[req.StmtID]
	if !ok {
		return types.StmtResponse{Return: int16(odbc.InvalidHandle)}
	}

	switch req.Command {
	case types.CmdFreeStmt:
		return h.handleFreeStmt(stmt, odbc.FreeStmtOption(req.Option))
	case types.CmdSetStmtAttr:
		return stmt.setAttr(odbc.StatementAttribute(req.Attribute), req.Value)
	case types.CmdPrepare:
		return h.handlePrepare(stmt, req.SQL)
	case types.CmdBindParameter:
		return stmt.bindParameter(req.Binding)
	case types.CmdExecDirect:
		return h.execute(stmt, req.SQL, req.Bindings)
	case types.CmdExecute:
		if !stmt.hasPrepared {
			return failure("HY010", "function sequence error: no statement prepared")
		}
		return h.execute(stmt, stmt.prepared, req.Bindings)
	case types.CmdParamData:
		return h.paramData(stmt)
	case types.CmdPutData:
		return stmt.putData(req.Data)
	case types.CmdDescribeParam:
		return stmt.describeParam(req.Parameter)
	case types.CmdNumResultCols:
		return stmt.numResultCols()
	case types.CmdDescribeCol:
		return stmt.describeCol(req.Column, req.BufferLen)
	case types.CmdColAttribute:
		return stmt.colAttribute(req.Column, odbc.Desc(req.Field), req.BufferLen)
	case types.CmdColumns:
		return h.handleColumns(stmt, req)
	case types.CmdTables:
		return h.handleTables(stmt, req)
	case types.CmdCloseCursor:
		return stmt.closeCursor()
	case types.CmdFetch:
		return stmt.fetch(req.MaxRows)
	}
	return failure("HY000", "unknown command: %s", req.Command)
}

func success() types.StmtResponse {
	return types.StmtResponse{Return: int16(odbc.Success)}
}

func failure(state, format string, args ...any) types.StmtResponse {
	return types.StmtResponse{
		Return:     int16(odbc.Error),
		Diagnostic: &types.Diagnostic{State: state, Message: fmt.Sprintf(format, args...)},
	}
}

func failureFromErr(err error) types.StmtResponse {
	return types.StmtResponse{Return: int16(odbc.Error), Diagnostic: diagnose(err)}
}

func (h *SQLHost) handleAllocStmt() types.StmtResponse {
	stmtID := uuid.NewString()
	h.stmts[stmtID] = newStatement(stmtID)
	resp := success()
	resp.StmtID = stmtID
	return resp
}

func (h *SQLHost) handleFreeStmt(stmt *statement, option odbc.FreeStmtOption) types.StmtResponse {
	switch option {
	case odbc.FreeDrop:
		delete(h.stmts, stmt.id)
	case odbc.FreeClose:
		stmt.result = nil
		stmt.pending = nil
	case odbc.FreeUnbind:
		// Columns are never bound on the host.
	case odbc.FreeResetParams:
		clear(stmt.bound)
	default:
		return failure("HY092", "invalid attribute/option identifier: %d", option)
	}
	return success()
}

func (h *SQLHost) handlePrepare(stmt *statement, query string) types.StmtResponse {
	if stmt.result != nil {
		return failure("24000", "invalid cursor state")
	}
	prepared, err := h.db.Preparex(query)
	if err != nil {
		return failureFromErr(err)
	}
	prepared.Close()

	stmt.prepared = query
	stmt.hasPrepared = true
	return success()
}

func (h *SQLHost) handleCloseConn() types.StmtResponse {
	// The underlying h.db is managed externally, so we don't close it here.
	// This command resets the host's handle registry.
	clear(h.stmts)
	return success()
}

// Statements returns the number of allocated statement handles.
func (h *SQLHost) Statements() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stmts)
}

func processRowValues(rawRow []interface{}) []interface{} {
	processedRow := make([]interface{}, len(rawRow))
	for i, val := range rawRow {
		switch v := val.(type) {
		case nil:
			processedRow[i] = nil
		case []byte:
			processedRow[i] = base64.StdEncoding.EncodeToString(v)
		case time.Time:
			processedRow[i] = v.Format(time.RFC3339Nano)
		default:
			processedRow[i] = v
		}
	}
	return processedRow
}
