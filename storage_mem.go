package recdb

import (
	"bytes"
	"errors"
	"slices"
	"sync"
)

var errReadOnlyTx = errors.New("write in a read-only transaction")

// memStorage keeps tables as sorted slices. Committed tables are never
// mutated: a writer copies a table's entry slice the first time it touches
// that table and publishes its copies on commit, so every transaction sees
// a consistent snapshot. One writer at a time.
type memStorage struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tables map[string]*memTable
	closed bool
	writer bool
}

// newMemStorage returns a transient in-memory storage, used for
// Options.InMemory and in tests.
func newMemStorage() storage {
	s := &memStorage{tables: make(map[string]*memTable)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *memStorage) BeginTx(writable bool) (storageTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for writable && s.writer && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return nil, ErrClosed
	}

	tx := &memTx{
		base:     s,
		writable: writable,
		tables:   s.tables,
		size:     memSize(s.tables),
	}
	if writable {
		tx.tables = make(map[string]*memTable, len(s.tables))
		for name, t := range s.tables {
			tx.tables[name] = t
		}
		tx.owned = make(map[*memTable]bool)
		s.writer = true
	}
	return tx, nil
}

func (s *memStorage) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSize(s.tables)
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tables = nil
	s.cond.Broadcast()
	return nil
}

func memSize(tables map[string]*memTable) int64 {
	var size int64
	for _, t := range tables {
		size += t.size
	}
	return size
}

type memTx struct {
	base     *memStorage
	writable bool
	tables   map[string]*memTable
	owned    map[*memTable]bool // tables copied by this writer
	size     int64
	done     bool
}

func (tx *memTx) checkOpen() {
	if tx.done {
		panic("recdb: in-memory transaction already finished")
	}
}

// table returns the named table, copying it first if this writer hasn't
// yet.
func (tx *memTx) table(name string) *memTable {
	t := tx.tables[name]
	if t == nil || !tx.writable || tx.owned[t] {
		return t
	}
	t = t.clone()
	tx.tables[name] = t
	tx.owned[t] = true
	return t
}

func (tx *memTx) Bucket(name string) storageBucket {
	tx.checkOpen()
	t := tx.table(name)
	if t == nil {
		return nil
	}
	return &memBucket{tx: tx, t: t}
}

func (tx *memTx) CreateBucket(name string) (storageBucket, error) {
	tx.checkOpen()
	if !tx.writable {
		return nil, errReadOnlyTx
	}
	if name == "" {
		return nil, errors.New("table name required")
	}
	t := tx.table(name)
	if t == nil {
		t = &memTable{}
		tx.tables[name] = t
		tx.owned[t] = true
	}
	return &memBucket{tx: tx, t: t}, nil
}

func (tx *memTx) DeleteBucket(name string) error {
	tx.checkOpen()
	if !tx.writable {
		return errReadOnlyTx
	}
	if tx.tables[name] == nil {
		return ErrTableNotFound
	}
	delete(tx.tables, name)
	return nil
}

func (tx *memTx) BucketNames() []string {
	names := make([]string, 0, len(tx.tables))
	for name := range tx.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	if !tx.writable {
		return errReadOnlyTx
	}
	s := tx.base
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.finishLocked()
	if s.closed {
		return ErrClosed
	}
	s.tables = tx.tables
	return nil
}

func (tx *memTx) Rollback() error {
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	tx.finishLocked()
	return nil
}

func (tx *memTx) finishLocked() {
	if tx.done {
		return
	}
	tx.done = true
	if tx.writable {
		tx.base.writer = false
		tx.base.cond.Broadcast()
	}
}

func (tx *memTx) Size() int64 { return tx.size }

type memEntry struct {
	key   []byte
	value []byte
}

// memTable holds entries sorted by key. size is the sum of key and value
// lengths.
type memTable struct {
	entries []memEntry
	size    int64
}

// clone copies the entry slice. Keys and values are shared: Put stores
// private copies and never writes into them afterwards.
func (t *memTable) clone() *memTable {
	return &memTable{entries: slices.Clone(t.entries), size: t.size}
}

func (t *memTable) search(key []byte) (int, bool) {
	return slices.BinarySearchFunc(t.entries, key, func(e memEntry, k []byte) int {
		return bytes.Compare(e.key, k)
	})
}

type memBucket struct {
	tx *memTx
	t  *memTable
}

func (b *memBucket) Get(key []byte) []byte {
	if i, found := b.t.search(key); found {
		return b.t.entries[i].value
	}
	return nil
}

func (b *memBucket) Put(key, value []byte) error {
	if !b.tx.writable {
		return errReadOnlyTx
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	value = bytes.Clone(value)
	if value == nil {
		value = []byte{}
	}
	i, found := b.t.search(key)
	if found {
		b.t.size += int64(len(value) - len(b.t.entries[i].value))
		b.t.entries[i].value = value
	} else {
		b.t.size += int64(len(key) + len(value))
		b.t.entries = slices.Insert(b.t.entries, i, memEntry{bytes.Clone(key), value})
	}
	return nil
}

func (b *memBucket) Delete(key []byte) error {
	if !b.tx.writable {
		return errReadOnlyTx
	}
	if i, found := b.t.search(key); found {
		e := b.t.entries[i]
		b.t.size -= int64(len(e.key) + len(e.value))
		b.t.entries = slices.Delete(b.t.entries, i, i+1)
	}
	return nil
}

func (b *memBucket) Cursor() storageCursor {
	return &memCursor{t: b.t, pos: -1}
}

func (b *memBucket) KeyCount() int { return len(b.t.entries) }

func (b *memBucket) Stats() TableStats {
	ts := TableStats{Rows: len(b.t.entries), DataSize: int(b.t.size)}
	for _, e := range b.t.entries {
		ts.DataAlloc += cap(e.key) + cap(e.value)
	}
	return ts
}

// memCursor mimics Bolt's cursor: stepping past either end returns nil.
type memCursor struct {
	t   *memTable
	pos int
}

func (c *memCursor) at(pos int) ([]byte, []byte) {
	c.pos = max(-1, min(pos, len(c.t.entries)))
	if c.pos < 0 || c.pos >= len(c.t.entries) {
		return nil, nil
	}
	e := c.t.entries[c.pos]
	return e.key, e.value
}

func (c *memCursor) First() ([]byte, []byte) { return c.at(0) }

func (c *memCursor) Last() ([]byte, []byte) { return c.at(len(c.t.entries) - 1) }

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	i, _ := c.t.search(seek)
	return c.at(i)
}

func (c *memCursor) Next() ([]byte, []byte) { return c.at(c.pos + 1) }

func (c *memCursor) Prev() ([]byte, []byte) { return c.at(c.pos - 1) }
