package recdb

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// writeTx tracks the bytes put so far, so that MaxSize can be enforced
// before Bolt allocates pages at commit time.
type writeTx struct {
	storageTx
	pending int64
}

func (tx *writeTx) put(b storageBucket, key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	tx.pending += int64(len(key) + len(value))
	return b.Put(key, value)
}

// update runs f inside a single write transaction and commits it. Any error
// (or panic) rolls the whole transaction back.
func (st *Storage) update(tableName, op string, f func(tx *writeTx) error) (err error) {
	stx, err := st.stor.BeginTx(true)
	if err != nil {
		return engineErr("begin", tableName, nil, err)
	}
	tx := &writeTx{storageTx: stx}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	err = f(tx)
	if err != nil {
		return wrapOpErr(op, tableName, err)
	}

	if tx.pending > 0 && st.maxSize > 0 && tx.Size()+tx.pending > st.maxSize {
		return engineErr(op, tableName, nil, ErrMapFull)
	}

	err = tx.Commit()
	if err != nil {
		return engineErr("commit", tableName, nil, err)
	}
	st.WriteCount.Add(1)
	st.lastSize.Store(st.stor.Size())
	return nil
}

// view runs f inside a read-only transaction.
func (st *Storage) view(tableName, op string, f func(tx storageTx) error) error {
	tx, err := st.stor.BeginTx(false)
	if err != nil {
		return engineErr("begin", tableName, nil, err)
	}
	defer tx.Rollback()
	st.ReadCount.Add(1)

	err = f(tx)
	if err != nil {
		return wrapOpErr(op, tableName, err)
	}
	return nil
}

// wrapOpErr wraps bare engine errors; typed errors pass through.
func wrapOpErr(op, tableName string, err error) error {
	var ee *EngineError
	var ence *EncodeError
	var de *DataError
	if errors.As(err, &ee) || errors.As(err, &ence) || errors.As(err, &de) {
		return err
	}
	return engineErr(op, tableName, nil, err)
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

// safelyCall turns a panic in user code (a Marshaler) into an error.
func safelyCall[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn()
}
