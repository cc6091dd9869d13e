package extype

import (
	"fmt"
	"reflect"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
)

// VBZSignalExtensionName is the Arrow extension name for a column of
// VBZ-compressed signal chunks, stored as large binary cells.
const VBZSignalExtensionName = "minknow.vbz"

// VBZSignalType is the Arrow extension type wrapping large_binary to
// represent one VBZ-compressed signal-table cell per row.
type VBZSignalType struct {
	arrow.ExtensionBase
}

// NewVBZSignalType returns a new instance of the VBZ signal extension
// type.
func NewVBZSignalType() *VBZSignalType {
	return &VBZSignalType{
		ExtensionBase: arrow.ExtensionBase{
			Storage: arrow.BinaryTypes.LargeBinary,
		},
	}
}

// ExtensionName implements arrow.ExtensionType.
func (*VBZSignalType) ExtensionName() string { return VBZSignalExtensionName }

// ExtensionEquals implements arrow.ExtensionType: equality is by
// extension name alone, as with UUIDType.
func (*VBZSignalType) ExtensionEquals(other arrow.ExtensionType) bool {
	_, ok := other.(*VBZSignalType)
	return ok
}

// Serialize implements arrow.ExtensionType.
func (*VBZSignalType) Serialize() string { return "" }

// Deserialize implements arrow.ExtensionType.
func (*VBZSignalType) Deserialize(storageType arrow.DataType, data string) (arrow.ExtensionType, error) {
	if storageType.ID() != arrow.LARGE_BINARY {
		return nil, fmt.Errorf("%s: storage type must be large_binary, got %s", VBZSignalExtensionName, storageType)
	}
	if data != "" {
		return nil, fmt.Errorf("%s: unexpected non-empty serialized data %q", VBZSignalExtensionName, data)
	}
	return NewVBZSignalType(), nil
}

// ArrayType implements arrow.ExtensionType.
func (*VBZSignalType) ArrayType() reflect.Type { return reflect.TypeOf(VBZSignalArray{}) }

// VBZSignalArray is the Array implementation backing VBZSignalType
// columns.
type VBZSignalArray struct {
	array.ExtensionArrayBase
}

// Value returns the raw VBZ-compressed bytes stored at i.
func (a *VBZSignalArray) Value(i int) []byte {
	storage := a.Storage().(*array.LargeBinary)
	return storage.Value(i)
}
