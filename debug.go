package recdb

import (
	"fmt"
	"reflect"
	"strings"
)

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders every table for debugging. Rows are decoded without knowing
// their Go type, so structs show up as maps (MsgPack) or JSON objects.
func (st *Storage) Dump(f DumpFlags) string {
	var buf strings.Builder
	err := st.view("", "dump", func(tx storageTx) error {
		for _, name := range tx.BucketNames() {
			st.dumpTable(&buf, f, name, tx.Bucket(name))
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(&buf, "** ERROR: %v\n", err)
	}
	return buf.String()
}

func (st *Storage) dumpTable(w *strings.Builder, f DumpFlags, name string, buck storageBucket) {
	s := buck.Stats()
	if f.Contains(DumpTableHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d rows)\n", name, s.Rows)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: data_size = %d, data_alloc = %d\n", name, s.DataSize, s.DataAlloc)
	}
	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(w, dumpSep2)
		}
		c := buck.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			st.dumpRow(w, name, k, v)
		}
	}
}

func (st *Storage) dumpRow(w *strings.Builder, name string, k, v []byte) {
	payload := v
	if st.checksums {
		var err error
		payload, err = decodeValueEnvelope(v)
		if err != nil {
			fmt.Fprintf(w, "%s/%s = ** ERROR: %v\n", name, hexstr(k), err)
			return
		}
	}
	var row any
	err := st.encoding.DecodeValue(payload, reflect.ValueOf(&row))
	if err != nil {
		fmt.Fprintf(w, "%s/%s = (%d bytes) %x\n", name, hexstr(k), len(payload), payload)
		return
	}
	fmt.Fprintf(w, "%s/%s = %s\n", name, hexstr(k), loggableVal(reflect.ValueOf(row)))
}
