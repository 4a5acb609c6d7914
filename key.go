package recdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"sync"
)

// KeyType is the set of Go types usable as record keys.
type KeyType interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~string | ~[]byte
}

// Key is an encoded record key. The zero Key is empty and cannot be stored.
//
// Integers are fixed-width big-endian (int and uint use 8 bytes), with the
// sign bit of signed integers flipped, so that byte order matches numeric
// order. Strings are stored as their bytes, byte slices as is.
type Key struct {
	raw []byte
}

// KeyOf encodes v.
func KeyOf[K KeyType](v K) Key {
	return Key{keyEncoderOf(reflect.TypeFor[K]()).encode(nil, reflect.ValueOf(v))}
}

// RawKey wraps already encoded key bytes.
func RawKey(b []byte) Key {
	return Key{bytes.Clone(b)}
}

// Bytes returns the encoded key. The caller must not modify it.
func (k Key) Bytes() []byte {
	return k.raw
}

func (k Key) IsZero() bool {
	return len(k.raw) == 0
}

func (k Key) Equal(another Key) bool {
	return bytes.Equal(k.raw, another.raw)
}

func (k Key) String() string {
	return hexstr(k.raw)
}

// DecodeKey reverses KeyOf.
func DecodeKey[K KeyType](raw []byte) (K, error) {
	var v K
	err := keyEncoderOf(reflect.TypeFor[K]()).decode(raw, reflect.ValueOf(&v).Elem())
	return v, err
}

var keyEncoders sync.Map

type keyEncoder struct {
	typ    reflect.Type
	width  int // 0 for variable-length keys
	encode func(buf []byte, v reflect.Value) []byte
	decode func(raw []byte, v reflect.Value) error
}

func isKeyKind(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String:
		return true
	case reflect.Slice:
		return typ.Elem().Kind() == reflect.Uint8
	default:
		return false
	}
}

func keyEncoderOf(typ reflect.Type) *keyEncoder {
	if e, ok := keyEncoders.Load(typ); ok {
		return e.(*keyEncoder)
	}
	enc := newKeyEncoder(typ)
	actual, _ := keyEncoders.LoadOrStore(typ, enc)
	return actual.(*keyEncoder)
}

func newKeyEncoder(typ reflect.Type) *keyEncoder {
	enc := &keyEncoder{typ: typ}
	switch typ.Kind() {
	case reflect.Uint8, reflect.Int8:
		enc.width = 1
	case reflect.Uint16, reflect.Int16:
		enc.width = 2
	case reflect.Uint32, reflect.Int32:
		enc.width = 4
	case reflect.Uint, reflect.Uint64, reflect.Int, reflect.Int64:
		enc.width = 8
	}

	switch typ.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		width := enc.width
		enc.encode = func(buf []byte, v reflect.Value) []byte {
			return appendBigEndian(buf, v.Uint(), width)
		}
		enc.decode = func(raw []byte, v reflect.Value) error {
			if len(raw) != width {
				return dataErrf(raw, 0, nil, "invalid %v key: got %d bytes, wanted %d", typ, len(raw), width)
			}
			v.SetUint(readBigEndian(raw))
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		width := enc.width
		signBit := uint64(1) << (width*8 - 1)
		mask := ^uint64(0) >> (64 - width*8)
		enc.encode = func(buf []byte, v reflect.Value) []byte {
			return appendBigEndian(buf, (uint64(v.Int())&mask)^signBit, width)
		}
		enc.decode = func(raw []byte, v reflect.Value) error {
			if len(raw) != width {
				return dataErrf(raw, 0, nil, "invalid %v key: got %d bytes, wanted %d", typ, len(raw), width)
			}
			u := readBigEndian(raw) ^ signBit
			// sign-extend back to 64 bits
			shift := 64 - width*8
			v.SetInt(int64(u<<shift) >> shift)
			return nil
		}
	case reflect.String:
		enc.encode = func(buf []byte, v reflect.Value) []byte {
			return append(buf, v.String()...)
		}
		enc.decode = func(raw []byte, v reflect.Value) error {
			v.SetString(string(raw))
			return nil
		}
	case reflect.Slice:
		if typ.Elem().Kind() != reflect.Uint8 {
			panic(fmt.Errorf("recdb: unsupported key type %v", typ))
		}
		enc.encode = func(buf []byte, v reflect.Value) []byte {
			return append(buf, v.Bytes()...)
		}
		enc.decode = func(raw []byte, v reflect.Value) error {
			v.SetBytes(bytes.Clone(raw))
			return nil
		}
	default:
		panic(fmt.Errorf("recdb: unsupported key type %v", typ))
	}
	return enc
}

func appendBigEndian(buf []byte, v uint64, width int) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[8-width:]...)
}

func readBigEndian(raw []byte) uint64 {
	var v uint64
	for _, b := range raw {
		v = v<<8 | uint64(b)
	}
	return v
}
