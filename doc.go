/*
Package recdb is an embedded typed record store on top of a key-value
engine (in this case, on top of Bolt).

We implement:

1. Tables, one per record type, holding rows keyed by a single field.

2. Single and batched upserts, lookups by key, deletes.

3. Lazy cursors over a table in key order, optionally bounded by a key range
or prefix, with linear Find/Filter helpers built on top.

4. Table maintenance: truncating and dropping.

Record types implement Record (and optionally TableNamer), and are passed to
the generic functions of this package:

	type Place struct {
		ID   uint32
		Name string
	}

	var placeKey = recdb.KeyField[Place]("ID")

	func (p *Place) RecordKey() recdb.Key { return placeKey(p) }
	func (*Place) TableName() string      { return "Place" }

	err := recdb.Save(st, &Place{ID: 1, Name: "Vienna"})
	p, err := recdb.Get[Place](st, recdb.KeyOf[uint32](1))

# Technical Details

**Buckets.**
Each table is a top-level Bolt bucket named after the table. Handles are
cached per Storage, so a table is created at most once per process unless
it is dropped.

**Transactions.**
Every write operation is a single write transaction; SaveBatch writes all
rows in one. Reads use read-only transactions. A Cursor holds its read
transaction until it is exhausted or closed.

## Binary encoding

**Key encoding**.
Integers are fixed-width big-endian with the sign bit flipped for signed
types; strings and byte slices are stored verbatim. Byte order of encoded
keys matches the natural order of the values.

**Value**: MsgPack (or JSON, see Options.Encoding) of the row struct, unless
the record implements Marshaler.

**Checksummed value** (Options.Checksums):
1. Flags (uvarint).
2. Payload size (uvarint).
3. xxhash64 of the payload (8 bytes, big-endian).
4. Payload.
*/
package recdb
