package recdb

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

const (
	DefaultFileName  = "data.db"
	DefaultMaxTables = 2048
	DefaultMaxSize   = 256 * 1024 * 1024

	trackQueries = true
)

// Storage is a directory holding typed tables. It is safe for concurrent use.
type Storage struct {
	stor        storage
	path        string
	logf        func(format string, args ...any)
	verbose     bool
	encoding    Encoding
	checksums   bool
	skipCorrupt bool
	maxTables   int
	maxSize     int64

	tablesLock sync.Mutex
	tables     map[string]*table

	lastSize    atomic.Int64
	ReaderCount atomic.Int64
	ReadCount   atomic.Uint64
	WriteCount  atomic.Uint64

	queries     []*queryInfo
	queriesLock sync.Mutex
}

type Options struct {
	Logf    func(format string, args ...any)
	Verbose bool

	// IsTesting trades durability for speed.
	IsTesting bool

	// InMemory keeps all data in memory; the directory is not touched.
	InMemory bool

	FileName  string
	MaxTables int
	MaxSize   int64
	MmapSize  int

	// Timeout bounds the wait for the file lock held by another process.
	// Zero waits forever.
	Timeout time.Duration

	Encoding Encoding

	// Checksums wraps stored values in an envelope with an xxhash64 checksum.
	Checksums bool

	// SkipCorrupt makes undecodable rows look absent (Get) or skips them
	// (queries) instead of returning ErrCorruptRecord.
	SkipCorrupt bool
}

// table is a cached table handle. Bolt buckets are only valid within a
// transaction, so the handle records the name and is re-resolved per tx.
type table struct {
	name string
}

// Open opens the storage in directory path, creating the directory and the
// data file if they don't exist.
func Open(path string, opt Options) (*Storage, error) {
	if opt.Logf == nil {
		opt.Logf = log.Printf
	}
	if opt.FileName == "" {
		opt.FileName = DefaultFileName
	}
	if opt.MaxTables == 0 {
		opt.MaxTables = DefaultMaxTables
	}
	if opt.MaxSize == 0 {
		opt.MaxSize = DefaultMaxSize
	}

	var stor storage
	if opt.InMemory {
		stor = newMemStorage()
	} else {
		err := os.MkdirAll(path, 0777)
		if err != nil {
			return nil, &FileError{Path: path, Err: err}
		}

		bopt := &bbolt.Options{}
		*bopt = *bbolt.DefaultOptions
		bopt.Timeout = opt.Timeout
		if opt.IsTesting {
			bopt.NoSync = true
			bopt.NoFreelistSync = true
			bopt.InitialMmapSize = 1024 * 1024 * 5
		} else {
			bopt.FreelistType = bbolt.FreelistMapType
		}
		if opt.MmapSize != 0 {
			bopt.InitialMmapSize = opt.MmapSize
		}

		bdb, err := bbolt.Open(filepath.Join(path, opt.FileName), 0666, bopt)
		if err != nil {
			return nil, engineErr("open", "", nil, err)
		}
		stor = newBoltStorage(bdb)
	}

	st := &Storage{
		stor:        stor,
		path:        path,
		logf:        opt.Logf,
		verbose:     opt.Verbose,
		encoding:    opt.Encoding,
		checksums:   opt.Checksums,
		skipCorrupt: opt.SkipCorrupt,
		maxTables:   opt.MaxTables,
		maxSize:     opt.MaxSize,
		tables:      make(map[string]*table),
	}
	st.lastSize.Store(stor.Size())
	return st, nil
}

func (st *Storage) Path() string {
	return st.path
}

// Size returns the data file size as of the last write.
func (st *Storage) Size() int64 {
	return st.lastSize.Load()
}

// Close closes the underlying engine. Bolt waits for open queries to be
// closed first.
func (st *Storage) Close() error {
	err := st.stor.Close()
	if err != nil {
		return engineErr("close", "", nil, err)
	}
	return nil
}

// resolveTable returns the cached handle for name, creating the table on
// first use.
func (st *Storage) resolveTable(name string) (*table, error) {
	st.tablesLock.Lock()
	defer st.tablesLock.Unlock()

	if tbl := st.tables[name]; tbl != nil {
		return tbl, nil
	}

	err := st.update(name, "create table", func(tx *writeTx) error {
		if tx.Bucket(name) != nil {
			return nil
		}
		if len(tx.BucketNames()) >= st.maxTables {
			return ErrTooManyTables
		}
		_, err := tx.CreateBucket(name)
		return err
	})
	if err != nil {
		return nil, err
	}

	tbl := &table{name: name}
	st.tables[name] = tbl
	if st.verbose {
		st.logf("db: OPEN_TABLE %s", name)
	}
	return tbl, nil
}

func (st *Storage) evictTable(name string) {
	st.tablesLock.Lock()
	defer st.tablesLock.Unlock()
	delete(st.tables, name)
}

func (st *Storage) cachedTableCount() int {
	st.tablesLock.Lock()
	defer st.tablesLock.Unlock()
	return len(st.tables)
}

// Tables returns the names of all tables in the storage, including those
// not opened by this instance.
func (st *Storage) Tables() ([]string, error) {
	var names []string
	err := st.view("", "list tables", func(tx storageTx) error {
		names = tx.BucketNames()
		return nil
	})
	return names, err
}

type queryInfo struct {
	table     string
	startTime time.Time
	stack     []byte
}

func (st *Storage) addQuery(qi *queryInfo) {
	st.ReaderCount.Add(1)
	if !trackQueries {
		return
	}
	st.queriesLock.Lock()
	defer st.queriesLock.Unlock()
	st.queries = append(st.queries, qi)
}

func (st *Storage) removeQuery(qi *queryInfo) {
	st.ReaderCount.Add(-1)
	if !trackQueries {
		return
	}
	st.queriesLock.Lock()
	defer st.queriesLock.Unlock()

	found := -1
	for i, q := range st.queries {
		if q == qi {
			found = i
			break
		}
	}
	if found < 0 {
		panic("query not found in list")
	}

	n := len(st.queries)
	st.queries[found] = st.queries[n-1]
	st.queries[n-1] = nil // ensure it gets collected
	st.queries = st.queries[:n-1]
}

func newQueryInfo(table string) *queryInfo {
	qi := &queryInfo{
		table:     table,
		startTime: time.Now(),
	}
	if trackQueries {
		qi.stack = debug.Stack()
	}
	return qi
}

// DescribeOpenQueries lists the cursors that still hold a read transaction.
func (st *Storage) DescribeOpenQueries() string {
	if !trackQueries {
		return "OPEN QUERY TRACKING DISABLED"
	}

	st.queriesLock.Lock()
	queries := slices.Clone(st.queries)
	st.queriesLock.Unlock()

	if len(queries) == 0 {
		return "NO OPEN QUERIES"
	}

	slices.SortFunc(queries, func(a, b *queryInfo) int {
		return a.startTime.Compare(b.startTime)
	})

	now := time.Now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN QUERIES:\n", len(queries))
	for _, q := range queries {
		ms := now.Sub(q.startTime).Milliseconds()
		if ms < 100 {
			fmt.Fprintf(&buf, "\n---\n%s: open for %d ms\n", q.table, ms)
		} else {
			fmt.Fprintf(&buf, "\n---\n%s: open for %d ms:\n%s", q.table, ms, q.stack)
		}
	}

	return buf.String()
}
