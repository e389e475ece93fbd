package store

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu    sync.Mutex
	attrs []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := make(map[string]slog.Value)
	m["msg"] = slog.StringValue(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.attrs = append(h.attrs, m)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(name string) slog.Handler { return h }

func (h *captureHandler) statements() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.attrs {
		if m["msg"].String() == "sql" {
			if q, ok := m["sql"]; ok {
				out = append(out, q.String())
			}
		}
	}
	return out
}

func TestNewLoggingConnectorRequiresDriver(t *testing.T) {
	_, err := NewLoggingConnector(nil, ":memory:", nil)
	assert.Error(t, err)
}

func TestLoggingConnectorLogsStatements(t *testing.T) {
	h := &captureHandler{}
	dsn := "file:" + filepath.Join(t.TempDir(), "log.db")
	conn, err := NewLoggingConnector(&sqlite3.SQLiteDriver{}, dsn, slog.New(h))
	require.NoError(t, err)

	db := sql.OpenDB(conn)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE t (id INTEGER, name TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO t (id, name) VALUES (?, ?)", 1, nil)
	require.NoError(t, err)

	var id int
	require.NoError(t, db.QueryRow("SELECT id FROM t WHERE id = ?", 1).Scan(&id))
	assert.Equal(t, 1, id)

	stmts := h.statements()
	assert.Contains(t, stmts, "CREATE TABLE t (id INTEGER, name TEXT)")
	assert.Contains(t, stmts, "INSERT INTO t (id, name) VALUES (?, ?)")
	assert.Contains(t, stmts, "SELECT id FROM t WHERE id = ?")
}

func TestFormatArg(t *testing.T) {
	assert.Equal(t, "NULL", formatArg(nil))
	assert.Equal(t, "abc", formatArg([]byte("abc")))
	assert.Equal(t, "1.5", formatArg(1.5))
}
