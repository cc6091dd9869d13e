/*
Package dictionary builds the int16-indexed dictionary columns pod5
read tables use for pore_type, end_reason, and run_info, and the
string-to-string map columns the run-info table uses for context_tags
and tracking_id.

A DictionaryWriter deduplicates repeated string values as they are
appended, assigning each distinct value the next int16 code and handing
back that code for the caller to place in its batch's index column.
Grounded on the dictionary-value resolution described in
original_source/c++/pod5_format/read_table_schema.cpp; Arrow itself
has no standard "writer" for this, so composition is done directly
from array.Int16Builder + array.StringBuilder plus
array.NewDictionaryArray.
*/
package dictionary

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// MaxEntries is the largest number of distinct dictionary values a
// single DictionaryWriter supports, bounded by int16's positive range.
const MaxEntries = 1<<15 - 1

// DictionaryWriter accumulates distinct string values and assigns each
// one a stable int16 code, first-seen order.
type DictionaryWriter struct {
	mem    memory.Allocator
	index  map[string]int16
	values []string
}

// NewDictionaryWriter returns an empty DictionaryWriter.
func NewDictionaryWriter(mem memory.Allocator) *DictionaryWriter {
	return &DictionaryWriter{mem: mem, index: make(map[string]int16)}
}

// Code returns the int16 dictionary code for value, assigning it the
// next free code the first time it is seen.
func (w *DictionaryWriter) Code(value string) (int16, error) {
	if code, ok := w.index[value]; ok {
		return code, nil
	}
	if len(w.values) >= MaxEntries {
		return 0, fmt.Errorf("pod5: dictionary has more than %d distinct values", MaxEntries)
	}
	code := int16(len(w.values))
	w.index[value] = code
	w.values = append(w.values, value)
	return code, nil
}

// Len reports the number of distinct values assigned so far.
func (w *DictionaryWriter) Len() int { return len(w.values) }

// NewValueArray builds the dictionary's value array (one string per
// assigned code, in code order) without consuming the writer, so it can
// be called once per flushed record batch while new codes keep
// accumulating.
func (w *DictionaryWriter) NewValueArray() arrow.Array {
	b := array.NewStringBuilder(w.mem)
	defer b.Release()
	b.AppendValues(w.values, nil)
	return b.NewArray()
}

// IndexBuilder accumulates a batch's int16 dictionary index column:
// one code per row, built from a DictionaryWriter shared across the
// whole table.
type IndexBuilder struct {
	dict    *DictionaryWriter
	builder *array.Int16Builder
}

// NewIndexBuilder returns an IndexBuilder that assigns codes from dict.
func NewIndexBuilder(mem memory.Allocator, dict *DictionaryWriter) *IndexBuilder {
	return &IndexBuilder{dict: dict, builder: array.NewInt16Builder(mem)}
}

// Append records value's dictionary code for the current row.
func (b *IndexBuilder) Append(value string) error {
	code, err := b.dict.Code(value)
	if err != nil {
		return err
	}
	b.builder.Append(code)
	return nil
}

// AppendNull records a null entry for the current row.
func (b *IndexBuilder) AppendNull() { b.builder.AppendNull() }

// NewDictionaryArray finishes the batch's index column and wraps it
// together with dict's current value array into a dictionary-encoded
// Arrow array matching dictType.
func (b *IndexBuilder) NewDictionaryArray(dictType *arrow.DictionaryType) (*array.Dictionary, error) {
	indices := b.builder.NewArray()
	defer indices.Release()
	values := b.dict.NewValueArray()
	defer values.Release()

	return array.NewDictionaryArray(dictType, indices, values), nil
}

// Release releases the underlying index builder.
func (b *IndexBuilder) Release() { b.builder.Release() }
