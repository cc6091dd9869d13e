package dictionary

import (
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

func stringDictTypeForTest() *arrow.DictionaryType {
	return &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int16, ValueType: arrow.BinaryTypes.String}
}

func TestDictionaryWriterDedupsAndAssignsStableCodes(t *testing.T) {
	w := NewDictionaryWriter(memory.NewGoAllocator())

	c1, err := w.Code("pore_r9")
	if err != nil {
		t.Fatalf("Code: %v", err)
	}
	c2, err := w.Code("pore_r10")
	if err != nil {
		t.Fatalf("Code: %v", err)
	}
	c1Again, err := w.Code("pore_r9")
	if err != nil {
		t.Fatalf("Code: %v", err)
	}

	if c1 != 0 || c2 != 1 {
		t.Fatalf("codes = %d, %d, want 0, 1", c1, c2)
	}
	if c1Again != c1 {
		t.Fatalf("repeated value got new code %d, want %d", c1Again, c1)
	}
	if w.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", w.Len())
	}
}

func TestIndexBuilderProducesDictionaryArray(t *testing.T) {
	mem := memory.NewGoAllocator()
	w := NewDictionaryWriter(mem)
	idx := NewIndexBuilder(mem, w)
	defer idx.Release()

	for _, v := range []string{"signal_positive", "unblock_mux_change", "signal_positive"} {
		if err := idx.Append(v); err != nil {
			t.Fatalf("Append(%q): %v", v, err)
		}
	}

	arr, err := idx.NewDictionaryArray(stringDictTypeForTest())
	if err != nil {
		t.Fatalf("NewDictionaryArray: %v", err)
	}
	defer arr.Release()

	if arr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", arr.Len())
	}
}

func TestStringMapBuilderRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := NewStringMapBuilder(mem)
	defer b.Release()

	b.Append(map[string]string{"flow_cell_id": "FAK00001"})
	b.AppendNull()

	arr := b.NewArray()
	defer arr.Release()

	if arr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", arr.Len())
	}
	if !arr.IsNull(1) {
		t.Fatal("second row should be null")
	}
}
