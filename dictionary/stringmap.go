package dictionary

import (
	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// StringMapBuilder builds one row at a time of a map<string, string>
// column, used for the run-info table's context_tags and tracking_id
// fields.
type StringMapBuilder struct {
	builder  *array.MapBuilder
	keyBldr  *array.StringBuilder
	itemBldr *array.StringBuilder
}

// NewStringMapBuilder returns a StringMapBuilder over a fresh
// map<string, string> column.
func NewStringMapBuilder(mem memory.Allocator) *StringMapBuilder {
	b := array.NewMapBuilder(mem, arrow.BinaryTypes.String, arrow.BinaryTypes.String, false)
	return &StringMapBuilder{
		builder:  b,
		keyBldr:  b.KeyBuilder().(*array.StringBuilder),
		itemBldr: b.ItemBuilder().(*array.StringBuilder),
	}
}

// Append starts a new row and appends pairs as that row's map entries,
// in Go's unspecified map iteration order.
func (b *StringMapBuilder) Append(pairs map[string]string) {
	b.builder.Append(true)
	for k, v := range pairs {
		b.keyBldr.Append(k)
		b.itemBldr.Append(v)
	}
}

// AppendNull appends a null map row.
func (b *StringMapBuilder) AppendNull() { b.builder.AppendNull() }

// NewArray finishes the column.
func (b *StringMapBuilder) NewArray() arrow.Array { return b.builder.NewArray() }

// Release releases the underlying builder.
func (b *StringMapBuilder) Release() { b.builder.Release() }
