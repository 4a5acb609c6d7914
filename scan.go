package recdb

import (
	"bytes"
	"context"
	"log/slog"
)

const (
	debugLogScans = false
)

// ScanOptions restricts a query to a key range. Zero bounds are open; the
// zero ScanOptions scans the whole table in key order.
type ScanOptions struct {
	Prefix   Key
	Lower    Key
	Upper    Key
	LowerInc bool
	UpperInc bool
	Reverse  bool
}

func FullScan() ScanOptions {
	return ScanOptions{}
}

func PrefixScan(prefix Key) ScanOptions {
	return ScanOptions{Prefix: prefix}
}

func RangeScan(lower, upper Key, lowerInc, upperInc bool) ScanOptions {
	return ScanOptions{Lower: lower, Upper: upper, LowerInc: lowerInc, UpperInc: upperInc}
}

func (so ScanOptions) Reversed() ScanOptions {
	so.Reverse = true
	return so
}

func (so ScanOptions) Prefixed(prefix Key) ScanOptions {
	so.Prefix = prefix
	return so
}

// rangeScan walks a storageCursor within the bounds of ScanOptions.
type rangeScan struct {
	prefix, lower, upper []byte
	lowerInc, upperInc   bool
	reverse              bool
	bcur                 storageCursor
	logger               *slog.Logger
}

func newRangeScan(opt ScanOptions, bcur storageCursor) *rangeScan {
	return &rangeScan{
		prefix:   opt.Prefix.Bytes(),
		lower:    opt.Lower.Bytes(),
		upper:    opt.Upper.Bytes(),
		lowerInc: opt.LowerInc,
		upperInc: opt.UpperInc,
		reverse:  opt.Reverse,
		bcur:     bcur,
		logger:   slog.Default(),
	}
}

func (r *rangeScan) debug(msg string, k []byte) {
	if debugLogScans {
		r.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, hexAttr("key", k))
	}
}

func (r *rangeScan) start() ([]byte, []byte) {
	var k, v []byte
	if r.reverse {
		upper := r.upper
		if upper != nil && r.prefix != nil && !bytes.HasPrefix(upper, r.prefix) && bytes.Compare(upper, r.prefix) > 0 {
			upper = nil // prefix bound is tighter
		}
		if upper != nil {
			k, v = r.bcur.Seek(upper)
			r.debug("SEEK to upper", k)
			if k == nil {
				k, v = r.bcur.Last()
			} else if cmp := bytes.Compare(k, upper); cmp > 0 || (cmp == 0 && !r.upperInc) {
				k, v = r.bcur.Prev()
			}
		} else if r.prefix != nil {
			succ := bytes.Clone(r.prefix)
			if inc(succ) {
				k, v = r.bcur.Seek(succ)
				r.debug("SEEK past prefix", k)
				if k == nil {
					k, v = r.bcur.Last()
				} else {
					k, v = r.bcur.Prev()
				}
			} else {
				k, v = r.bcur.Last()
			}
		} else {
			k, v = r.bcur.Last()
			r.debug("LAST", k)
		}
	} else {
		lower := r.lower
		if lower != nil && r.prefix != nil && bytes.Compare(lower, r.prefix) < 0 {
			lower = nil // prefix bound is tighter
		}
		if lower != nil {
			k, v = r.bcur.Seek(lower)
			r.debug("SEEK to lower", k)
			if k != nil && !r.lowerInc && bytes.Equal(k, lower) {
				k, v = r.bcur.Next()
			}
		} else if r.prefix != nil {
			k, v = r.bcur.Seek(r.prefix)
			r.debug("SEEK to prefix", k)
		} else {
			k, v = r.bcur.First()
			r.debug("FIRST", k)
		}
	}
	if k != nil && r.match(k) {
		return k, v
	}
	return nil, nil
}

func (r *rangeScan) next() ([]byte, []byte) {
	var k, v []byte
	if r.reverse {
		k, v = r.bcur.Prev()
		r.debug("PREV", k)
	} else {
		k, v = r.bcur.Next()
		r.debug("NEXT", k)
	}
	if k != nil && r.match(k) {
		return k, v
	}
	return nil, nil
}

func (r *rangeScan) match(k []byte) bool {
	if r.prefix != nil && !bytes.HasPrefix(k, r.prefix) {
		r.debug("BAIL on prefix", k)
		return false
	}
	if r.reverse {
		if lower := r.lower; lower != nil {
			cmp := bytes.Compare(k, lower)
			if cmp < 0 || (cmp == 0 && !r.lowerInc) {
				r.debug("BAIL on lower", k)
				return false
			}
		}
	} else {
		if upper := r.upper; upper != nil {
			cmp := bytes.Compare(k, upper)
			if cmp > 0 || (cmp == 0 && !r.upperInc) {
				r.debug("BAIL on upper", k)
				return false
			}
		}
	}
	return true
}
