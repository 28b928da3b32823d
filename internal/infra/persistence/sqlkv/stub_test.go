package sqlkv

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// stubConn is a single-table database/sql driver that records statements
// and keeps bucket rows keyed by the first argument.
type stubConn struct {
	mu       sync.Mutex
	execs    []string
	rows     map[string]string
	failExec bool
	failPing bool
}

var stubSeq atomic.Int64

// newStubDriver registers a fresh stub driver and returns its name.
func newStubDriver() (string, *stubConn) {
	conn := &stubConn{rows: make(map[string]string)}
	name := fmt.Sprintf("stubkv%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	return name, conn
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
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	if c.failExec {
		return nil, fmt.Errorf("exec fail")
	}
	verb := strings.ToUpper(strings.Fields(query)[0])
	switch verb {
	case "INSERT":
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 args, got %d", len(args))
		}
		c.rows[fmt.Sprint(args[0].Value)] = fmt.Sprint(args[1].Value)
	case "DELETE":
		delete(c.rows, fmt.Sprint(args[0].Value))
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	rows := &stubRows{}
	if len(args) == 1 {
		if payload, ok := c.rows[fmt.Sprint(args[0].Value)]; ok {
			rows.values = [][]driver.Value{{[]byte(payload)}}
		}
	}
	return rows, nil
}

func (c *stubConn) statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.execs...)
}

type stubRows struct {
	values [][]driver.Value
	idx    int
}

func (r *stubRows) Columns() []string { return []string{"payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}
