package recdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects how records without their own Marshaler/Unmarshaler are
// serialized.
type Encoding int

const (
	MsgPack Encoding = iota
	JSON
)

func (enc Encoding) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("Encoding(%d)", int(enc))
	}
}

// EncodeValue appends the encoding of objVal to buf.
func (enc Encoding) EncodeValue(buf []byte, objVal reflect.Value) ([]byte, error) {
	switch enc {
	case MsgPack:
		bb := bytesBuilder{buf}
		e := msgpack.GetEncoder()
		e.Reset(&bb)
		e.SetSortMapKeys(true)
		err := e.EncodeValue(objVal)
		msgpack.PutEncoder(e)
		if err != nil {
			return buf, fmt.Errorf("failed to encode %v using MsgPack: %w", objVal.Type(), err)
		}
		return bb.Buf, nil
	case JSON:
		raw, err := json.Marshal(objVal.Interface())
		if err != nil {
			return buf, fmt.Errorf("failed to encode %v to JSON: %w", objVal.Type(), err)
		}
		return append(buf, raw...), nil
	default:
		panic(fmt.Errorf("unsupported encoding %v", enc))
	}
}

// DecodeValue decodes buf into the value objPtrVal points to.
func (enc Encoding) DecodeValue(buf []byte, objPtrVal reflect.Value) error {
	switch enc {
	case MsgPack:
		var r bytes.Reader
		r.Reset(buf)
		dec := msgpack.GetDecoder()
		dec.Reset(&r)
		err := dec.DecodeValue(objPtrVal)
		msgpack.PutDecoder(dec)
		if err != nil {
			return dataErrf(buf, 0, err, "failed to decode msgpack into %v", objPtrVal.Type())
		}
		if r.Len() != 0 {
			return dataErrf(buf, len(buf)-r.Len(), nil, "trailing %d bytes after msgpack %v", r.Len(), objPtrVal.Type())
		}
		return nil
	case JSON:
		err := json.Unmarshal(buf, objPtrVal.Interface())
		if err != nil {
			return dataErrf(buf, 0, err, "failed to decode JSON into %v", objPtrVal.Type())
		}
		return nil
	default:
		panic(fmt.Errorf("unsupported encoding %v", enc))
	}
}
