package extype

import (
	"fmt"
	"reflect"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
)

// UUIDExtensionName is the Arrow extension name for the read-identity
// column: a 128-bit UUID stored as 16-byte fixed binary.
const UUIDExtensionName = "minknow.uuid"

// UUIDType is the Arrow extension type wrapping fixed_size_binary(16) to
// represent a read or file identifier.
type UUIDType struct {
	arrow.ExtensionBase
}

// NewUUIDType returns a new instance of the UUID extension type.
func NewUUIDType() *UUIDType {
	return &UUIDType{
		ExtensionBase: arrow.ExtensionBase{
			Storage: &arrow.FixedSizeBinaryType{ByteWidth: 16},
		},
	}
}

// ExtensionName implements arrow.ExtensionType.
func (*UUIDType) ExtensionName() string { return UUIDExtensionName }

// ExtensionEquals implements arrow.ExtensionType. Per spec, equality for
// both POD5 extension types is by extension name alone.
func (*UUIDType) ExtensionEquals(other arrow.ExtensionType) bool {
	_, ok := other.(*UUIDType)
	return ok
}

// Serialize implements arrow.ExtensionType. UUIDType carries no
// parameters, so the serialized form is always empty.
func (*UUIDType) Serialize() string { return "" }

// Deserialize implements arrow.ExtensionType.
func (*UUIDType) Deserialize(storageType arrow.DataType, data string) (arrow.ExtensionType, error) {
	fsb, ok := storageType.(*arrow.FixedSizeBinaryType)
	if !ok || fsb.ByteWidth != 16 {
		return nil, fmt.Errorf("%s: storage type must be fixed_size_binary(16), got %s", UUIDExtensionName, storageType)
	}
	if data != "" {
		return nil, fmt.Errorf("%s: unexpected non-empty serialized data %q", UUIDExtensionName, data)
	}
	return NewUUIDType(), nil
}

// ArrayType implements arrow.ExtensionType.
func (*UUIDType) ArrayType() reflect.Type { return reflect.TypeOf(UUIDArray{}) }

// UUIDArray is the Array implementation backing UUIDType columns.
type UUIDArray struct {
	array.ExtensionArrayBase
}

// Value returns the 16 raw UUID bytes stored at i.
func (a *UUIDArray) Value(i int) []byte {
	storage := a.Storage().(*array.FixedSizeBinary)
	return storage.Value(i)
}
