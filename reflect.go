package recdb

import (
	"fmt"
	"reflect"
)

type structInfo struct {
	keyField reflect.StructField
	keyEnc   *keyEncoder
}

func (si *structInfo) keyValue(rowVal reflect.Value) reflect.Value {
	return rowVal.Elem().FieldByIndex(si.keyField.Index)
}

func reflectKeyField(typ reflect.Type, name string) *structInfo {
	if typ.Kind() != reflect.Struct {
		panic(fmt.Errorf("recdb: %v is not a struct", typ))
	}
	keyField, ok := typ.FieldByName(name)
	if !ok {
		panic(fmt.Errorf("recdb: key field %v.%s does not exist", typ, name))
	}
	if !keyField.IsExported() {
		panic(fmt.Errorf("recdb: key field %v.%s must be exported", typ, name))
	}
	if !isKeyKind(keyField.Type) {
		panic(fmt.Errorf("recdb: key field %v.%s has unsupported type %v", typ, name, keyField.Type))
	}
	return &structInfo{
		keyField: keyField,
		keyEnc:   keyEncoderOf(keyField.Type),
	}
}

// KeyField returns a key accessor reading the named field of R. It panics
// if R has no such exported field or the field's type is not a KeyType, so
// assign the result to a package-level variable to fail at startup:
//
//	var placeKey = recdb.KeyField[Place]("ID")
//
//	func (p *Place) RecordKey() recdb.Key { return placeKey(p) }
func KeyField[R any](name string) func(row *R) Key {
	si := reflectKeyField(reflect.TypeFor[R](), name)
	return func(row *R) Key {
		return Key{si.keyEnc.encode(nil, si.keyValue(reflect.ValueOf(row)))}
	}
}
