package recdb

import (
	"github.com/cespare/xxhash/v2"
)

// Checksummed value format (Options.Checksums):
//
//	flags:uvarint size:uvarint checksum:64 payload
//
// checksum is xxhash64 of payload, big-endian.

type valueFlags uint64

const (
	vfVerBit0 = valueFlags(1 << iota)
	vfVerBit1
	vfVerBit2
	vfVerBit3

	vfVerMask       = (vfVerBit0 | vfVerBit1 | vfVerBit2 | vfVerBit3)
	vfVer1          = vfVerBit0
	vfSupportedMask = vfVerMask
	vfDefault       = vfVer1

	minValueSize = 1 + 1 + 8
)

func (vf valueFlags) ver() valueFlags {
	return vf & vfVerMask
}

func appendValueEnvelope(buf []byte, payload []byte) []byte {
	buf = appendUvarint(buf, uint64(vfDefault))
	buf = appendUvarint(buf, uint64(len(payload)))
	buf = appendUint64(buf, xxhash.Sum64(payload))
	return append(buf, payload...)
}

func decodeValueEnvelope(data []byte) ([]byte, error) {
	if len(data) < minValueSize {
		return nil, dataErrf(data, 0, nil, "invalid value: at least %d bytes required", minValueSize)
	}
	d := makeByteDecoder(data)

	v, err := d.Uvarint()
	if err != nil {
		return nil, err
	}
	flags := valueFlags(v)
	if (flags&^vfSupportedMask) != 0 || flags.ver() != vfVer1 {
		return nil, dataErrf(data, 0, nil, "invalid value: unsupported flags %x", v)
	}

	size, err := d.Uvarinti()
	if err != nil {
		return nil, err
	}
	sum, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	if len(d.Buf) != size {
		return nil, dataErrf(data, d.Off(), nil, "invalid value: got %d bytes of payload, expected %d bytes", len(d.Buf), size)
	}
	payload := d.Buf
	if actual := xxhash.Sum64(payload); actual != sum {
		return nil, dataErrf(data, d.Off(), nil, "invalid value: checksum mismatch %016x != %016x", actual, sum)
	}
	return payload, nil
}
