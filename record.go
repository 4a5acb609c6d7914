package recdb

import (
	"reflect"
)

// DefaultTableName is used for record types that don't implement TableNamer.
const DefaultTableName = "default"

// Record is implemented by every storable type. RecordKey must be
// deterministic: equal records produce equal keys.
type Record interface {
	RecordKey() Key
}

// TableNamer lets a record type pick its table. The name must be the same
// for every value of the type; it is queried on the zero value.
type TableNamer interface {
	TableName() string
}

// Marshaler overrides the storage's value encoding for a record type.
type Marshaler interface {
	MarshalRecord() ([]byte, error)
}

// Unmarshaler is the counterpart of Marshaler. data is only valid for the
// duration of the call.
type Unmarshaler interface {
	UnmarshalRecord(data []byte) error
}

// recordPtr is satisfied by *R when R (or *R) implements Record.
type recordPtr[R any] interface {
	*R
	Record
}

func tableNameOf[R any, P recordPtr[R]]() string {
	var zero R
	if tn, ok := any(P(&zero)).(TableNamer); ok {
		if name := tn.TableName(); name != "" {
			return name
		}
	}
	return DefaultTableName
}

// TypeTableName returns the name of R's Go type, handy as a TableName
// implementation:
//
//	func (Place) TableName() string { return placeTable }
//	var placeTable = recdb.TypeTableName[Place]()
func TypeTableName[R any]() string {
	return reflect.TypeFor[R]().Name()
}

func (st *Storage) encodeRow(row any) ([]byte, error) {
	var data []byte
	var err error
	if m, ok := row.(Marshaler); ok {
		data, err = safelyCall(m.MarshalRecord)
	} else {
		data, err = st.encoding.EncodeValue(nil, reflect.ValueOf(row))
	}
	if err != nil {
		return nil, err
	}
	if st.checksums {
		data = appendValueEnvelope(nil, data)
	}
	return data, nil
}

func decodeRow[R any](st *Storage, raw []byte) (*R, error) {
	payload := raw
	if st.checksums {
		var err error
		payload, err = decodeValueEnvelope(raw)
		if err != nil {
			return nil, err
		}
	}
	row := new(R)
	if u, ok := any(row).(Unmarshaler); ok {
		err := u.UnmarshalRecord(payload)
		if err != nil {
			return nil, dataErrf(raw, 0, err, "failed to decode %T", row)
		}
		return row, nil
	}
	err := st.encoding.DecodeValue(payload, reflect.ValueOf(row))
	if err != nil {
		return nil, err
	}
	return row, nil
}
