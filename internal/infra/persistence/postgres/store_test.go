package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"remotefactory/internal/persistence/core"
)

// stubConn implements just enough of database/sql/driver to back the
// document queries the store issues.
type stubConn struct {
	docs     map[string]map[string][]byte
	failPing bool
	execs    []string
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, fmt.Errorf("not implemented") }

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "INSERT INTO"):
		kind, id := args[0].Value.(string), args[1].Value.(string)
		body := args[2].Value.([]byte)
		if c.docs[kind] == nil {
			c.docs[kind] = make(map[string][]byte)
		}
		c.docs[kind][id] = append([]byte(nil), body...)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(upper, "DELETE FROM"):
		kind, id := args[0].Value.(string), args[1].Value.(string)
		if _, ok := c.docs[kind][id]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(c.docs[kind], id)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("unexpected exec: %s", query)
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	switch {
	case strings.HasPrefix(query, "SELECT body"):
		kind, id := args[0].Value.(string), args[1].Value.(string)
		rows := &stubRows{cols: []string{"body"}}
		if body, ok := c.docs[kind][id]; ok {
			rows.rows = [][]driver.Value{{body}}
		}
		return rows, nil
	case strings.HasPrefix(query, "SELECT id, body"):
		kind := args[0].Value.(string)
		ids := make([]string, 0, len(c.docs[kind]))
		for id := range c.docs[kind] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		rows := &stubRows{cols: []string{"id", "body"}}
		for _, id := range ids {
			rows.rows = append(rows.rows, []driver.Value{id, c.docs[kind][id]})
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	i    int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}

func newStubStore(t *testing.T, conn *stubConn) (*Store, error) {
	t.Helper()
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	restore := OverrideSQLOpen(func(_, dsn string) (*sql.DB, error) {
		return sql.Open(name, dsn)
	})
	t.Cleanup(restore)
	return NewStore(context.Background(), "")
}

func TestNewStoreEnsuresTable(t *testing.T) {
	conn := &stubConn{docs: make(map[string]map[string][]byte)}
	if _, err := newStubStore(t, conn); err != nil {
		t.Fatalf("new store: %v", err)
	}
	if len(conn.execs) != 1 || !strings.Contains(conn.execs[0], "CREATE TABLE IF NOT EXISTS entities") {
		t.Fatalf("execs = %v", conn.execs)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	conn := &stubConn{docs: make(map[string]map[string][]byte), failPing: true}
	if _, err := newStubStore(t, conn); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("err = %v", err)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn := &stubConn{docs: make(map[string]map[string][]byte)}
	store, err := newStubStore(t, conn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.Put(ctx, "order", "o1", json.RawMessage(`{"id":"o1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "order", "o2", json.RawMessage(`{"id":"o2"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	body, err := store.Get(ctx, "order", "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != `{"id":"o1"}` {
		t.Fatalf("body = %s", body)
	}
	if _, err := store.Get(ctx, "order", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}

	docs, err := store.List(ctx, "order")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "o1" || docs[1].ID != "o2" {
		t.Fatalf("list = %+v", docs)
	}

	existed, err := store.Delete(ctx, "order", "o1")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "order", "o1")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}
