package recdb

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorruptRecord is matched by every *DataError: stored bytes that
	// cannot be decoded into the record type.
	ErrCorruptRecord = errors.New("corrupt record")

	ErrTooManyTables = errors.New("too many tables")
	ErrMapFull       = errors.New("database size limit reached")
	ErrEmptyKey      = errors.New("empty key")
	ErrClosed        = errors.New("storage closed")

	// ErrTableNotFound is returned by storage backends when deleting a
	// bucket that doesn't exist.
	ErrTableNotFound = errors.New("table not found")
)

// FileError reports a failure to prepare the storage directory.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("recdb: cannot access directory %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// EngineError reports a failed storage engine operation: open, table
// creation, transaction begin/commit, put, get, delete or cursor access.
type EngineError struct {
	Op    string
	Table string
	Key   []byte
	Err   error
}

func engineErr(op, table string, key []byte, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Table: table, Key: key, Err: err}
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Error() string {
	var buf strings.Builder
	buf.WriteString("recdb: ")
	buf.WriteString(e.Op)
	if e.Table != "" {
		buf.WriteByte(' ')
		buf.WriteString(e.Table)
	}
	if e.Key != nil {
		buf.WriteByte('/')
		buf.WriteString(briefKey(e.Key))
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// EncodeError reports that a record could not be serialized. Nothing is
// written when it is returned.
type EncodeError struct {
	Table string
	Key   []byte
	Err   error
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func (e *EncodeError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("recdb: encode %s/%s: %v", e.Table, briefKey(e.Key), e.Err)
	}
	return fmt.Sprintf("recdb: encode %s: %v", e.Table, e.Err)
}

// DataError describes stored bytes that failed to decode.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Is(target error) bool {
	return target == ErrCorruptRecord
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: (%d) %s", e.Msg, e.Err, len(e.Data), briefHex(e.Data))
	}
	return fmt.Sprintf("%s: (%d) %s", e.Msg, len(e.Data), briefHex(e.Data))
}

const (
	briefPrefixLen = 64
	briefSuffixLen = 32
)

// briefHex renders data in hex, keeping only the head and tail of long
// inputs.
func briefHex(data []byte) string {
	n := len(data)
	if n <= briefPrefixLen+briefSuffixLen {
		return hex.EncodeToString(data)
	}
	return fmt.Sprintf("%x...%x", data[:briefPrefixLen], data[n-briefSuffixLen:])
}

// briefKey is briefHex for keys, which may legitimately be up to 32 KiB.
func briefKey(key []byte) string {
	if len(key) <= briefPrefixLen+briefSuffixLen {
		return hexstr(key)
	}
	return fmt.Sprintf("%s (%d bytes)", briefHex(key), len(key))
}
