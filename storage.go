package recdb

// storage is the key-value engine under Storage: Bolt on disk, or
// memStorage for Options.InMemory.
type storage interface {
	BeginTx(writable bool) (storageTx, error)

	// Size is the data file size in bytes, or the payload size in memory.
	Size() int64

	Close() error
}

// storageTx is one engine transaction. Buckets, cursors and every byte
// slice they return are only valid until Commit or Rollback.
type storageTx interface {
	// Bucket returns the table's bucket, or nil if the table doesn't exist.
	Bucket(name string) storageBucket

	// CreateBucket returns the table's bucket, creating it if needed.
	CreateBucket(name string) (storageBucket, error)

	// DeleteBucket removes the table with all rows, or returns
	// ErrTableNotFound.
	DeleteBucket(name string) error

	// BucketNames lists the tables in byte order.
	BucketNames() []string

	Commit() error

	// Rollback is safe to call after Commit or a previous Rollback.
	Rollback() error

	// Size is the committed database size as of the start of this
	// transaction; writes made within it are not included.
	Size() int64
}

// storageBucket holds the rows of one table sorted by encoded key.
type storageBucket interface {
	// Get returns nil when the key is absent.
	Get(key []byte) []byte

	Put(key, value []byte) error

	// Delete of a missing key is a no-op.
	Delete(key []byte) error

	Cursor() storageCursor

	KeyCount() int

	Stats() TableStats
}

// storageCursor follows Bolt's cursor contract: each move returns the
// entry it lands on, or nil key past either end. Seek lands on the first
// key >= seek.
type storageCursor interface {
	First() (key, value []byte)
	Last() (key, value []byte)
	Seek(seek []byte) (key, value []byte)
	Next() (key, value []byte)
	Prev() (key, value []byte)
}
