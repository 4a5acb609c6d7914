package recdb

import (
	"bytes"
	"iter"
)

type cursorState int

const (
	cursorUnopened cursorState = iota
	cursorPositioned
	cursorExhausted
	cursorClosed
)

func (s cursorState) String() string {
	switch s {
	case cursorUnopened:
		return "unopened"
	case cursorPositioned:
		return "positioned"
	case cursorExhausted:
		return "exhausted"
	case cursorClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Cursor is a lazy, single-pass iterator over the rows of one table.
//
// A Cursor holds a read transaction from the moment it is created until it
// runs out of rows or is closed. Bolt cannot reclaim pages freed by later
// writes while that transaction is open, and Storage.Close waits for it, so
// always Close cursors you don't drain:
//
//	c, err := recdb.Query[Place](st)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	for c.Next() {
//		p := c.Row()
//		...
//	}
//	return c.Err()
type Cursor[R any] struct {
	st    *Storage
	tbl   *table
	tx    storageTx
	opt   ScanOptions
	scan  *rangeScan
	qi    *queryInfo
	state cursorState
	k     []byte
	row   *R
	err   error
}

// Query returns a cursor over all rows of R's table in key order. The
// engine cursor is created on the first call to Next.
func Query[R any, P recordPtr[R]](st *Storage) (*Cursor[R], error) {
	return QueryRange[R, P](st, FullScan())
}

// QueryRange is like Query, but only visits keys within opt's bounds.
func QueryRange[R any, P recordPtr[R]](st *Storage, opt ScanOptions) (*Cursor[R], error) {
	name := tableNameOf[R, P]()
	tbl, err := st.resolveTable(name)
	if err != nil {
		return nil, err
	}
	tx, err := st.stor.BeginTx(false)
	if err != nil {
		return nil, engineErr("begin", name, nil, err)
	}
	st.ReadCount.Add(1)

	c := &Cursor[R]{
		st:  st,
		tbl: tbl,
		tx:  tx,
		opt: opt,
		qi:  newQueryInfo(name),
	}
	st.addQuery(c.qi)
	return c, nil
}

// Next advances to the next row, returning false when there are no more
// rows or an error occurred (see Err). Once it has returned false, it keeps
// returning false without touching the storage.
func (c *Cursor[R]) Next() bool {
	var k, v []byte
	switch c.state {
	case cursorExhausted, cursorClosed:
		return false
	case cursorUnopened:
		buck := c.tx.Bucket(c.tbl.name)
		if buck == nil {
			c.finish(nil)
			return false
		}
		c.scan = newRangeScan(c.opt, buck.Cursor())
		c.state = cursorPositioned
		k, v = c.scan.start()
	default:
		k, v = c.scan.next()
	}

	for k != nil {
		row, err := decodeRow[R](c.st, v)
		if err == nil {
			c.k, c.row = k, row
			return true
		}
		if !c.st.skipCorrupt {
			c.finish(engineErr("decode", c.tbl.name, bytes.Clone(k), err))
			return false
		}
		c.st.logf("db: SCAN %s/%v: skipping corrupt row: %v", c.tbl.name, hexBytes(k), err)
		k, v = c.scan.next()
	}
	c.finish(nil)
	return false
}

func (c *Cursor[R]) finish(err error) {
	c.err = err
	c.k, c.row = nil, nil
	c.state = cursorExhausted
	c.release()
}

func (c *Cursor[R]) release() {
	if c.tx == nil {
		return
	}
	c.tx.Rollback()
	c.tx = nil
	c.scan = nil
	c.st.removeQuery(c.qi)
}

// Row returns the current row.
func (c *Cursor[R]) Row() *R {
	return c.row
}

// Key returns the current row's key.
func (c *Cursor[R]) Key() Key {
	return RawKey(c.k)
}

// RawKey returns the current row's key bytes, valid until the next call
// to Next or Close.
func (c *Cursor[R]) RawKey() []byte {
	return c.k
}

// Err returns the error that stopped the iteration, if any.
func (c *Cursor[R]) Err() error {
	return c.err
}

// Close releases the read transaction. It is safe to call more than once.
func (c *Cursor[R]) Close() error {
	if c.state == cursorClosed {
		return nil
	}
	c.release()
	c.k, c.row = nil, nil
	c.state = cursorClosed
	return nil
}

// All returns an iterator over the remaining rows. The cursor is closed
// when the loop ends, so ranging over All a second time yields nothing.
func (c *Cursor[R]) All() iter.Seq[*R] {
	return func(yield func(*R) bool) {
		defer c.Close()
		for c.Next() {
			if !yield(c.Row()) {
				return
			}
		}
	}
}

// Find returns the first row, in key order, for which pred returns true,
// or nil if there is none. This is a linear scan of the whole table.
func Find[R any, P recordPtr[R]](st *Storage, pred func(row *R) bool) (*R, error) {
	c, err := Query[R, P](st)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	for c.Next() {
		if row := c.Row(); pred(row) {
			return row, nil
		}
	}
	return nil, c.Err()
}

// Filter returns all rows for which pred returns true, in key order.
func Filter[R any, P recordPtr[R]](st *Storage, pred func(row *R) bool) ([]*R, error) {
	c, err := Query[R, P](st)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	var result []*R
	for c.Next() {
		if row := c.Row(); pred(row) {
			result = append(result, row)
		}
	}
	return result, c.Err()
}

// All returns every row of R's table in key order.
func All[R any, P recordPtr[R]](st *Storage) ([]*R, error) {
	return Filter[R, P](st, func(*R) bool { return true })
}

// Count returns the number of entries stored in R's table, without
// decoding them.
func Count[R any, P recordPtr[R]](st *Storage) (int, error) {
	name := tableNameOf[R, P]()
	tbl, err := st.resolveTable(name)
	if err != nil {
		return 0, err
	}
	var n int
	err = st.view(name, "count", func(tx storageTx) error {
		if buck := tx.Bucket(tbl.name); buck != nil {
			n = buck.KeyCount()
		}
		return nil
	})
	return n, err
}
