package recdb

import (
	"encoding/binary"
	"io"
	"math"
)

func appendUvarint(buf []byte, v uint64) []byte {
	return binary.AppendUvarint(buf, v)
}

func appendUint64(buf []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(buf, v)
}

// bytesBuilder lets msgpack encode straight into a caller-provided buffer.
type bytesBuilder struct {
	Buf []byte
}

var _ io.Writer = (*bytesBuilder)(nil)

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = append(bb.Buf, b...)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(v byte) error {
	bb.Buf = append(bb.Buf, v)
	return nil
}

func (bb *bytesBuilder) WriteString(s string) (int, error) {
	bb.Buf = append(bb.Buf, s...)
	return len(s), nil
}

// byteDecoder consumes a value envelope front to back, reporting truncation
// as a *DataError that points into the input.
type byteDecoder struct {
	Orig []byte
	Buf  []byte
}

func makeByteDecoder(buf []byte) byteDecoder {
	return byteDecoder{buf, buf}
}

func (d *byteDecoder) Off() int {
	return len(d.Orig) - len(d.Buf)
}

func (d *byteDecoder) Uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.Buf)
	if n <= 0 {
		return 0, dataErrf(d.Orig, d.Off(), nil, "invalid uvarint")
	}
	d.Buf = d.Buf[n:]
	return v, nil
}

func (d *byteDecoder) Uvarinti() (int, error) {
	v, err := d.Uvarint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt {
		return 0, dataErrf(d.Orig, d.Off(), nil, "value does not fit into int: %d", v)
	}
	return int(v), nil
}

func (d *byteDecoder) Uint64() (uint64, error) {
	if len(d.Buf) < 8 {
		return 0, dataErrf(d.Orig, d.Off(), nil, "not enough data: %d bytes remaining, 8 wanted", len(d.Buf))
	}
	v := binary.BigEndian.Uint64(d.Buf)
	d.Buf = d.Buf[8:]
	return v, nil
}
