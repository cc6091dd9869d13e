/*
Package planner locates read rows by UUID across a read table's record
batches without decoding every row of every batch.

Grounded on the merge-walk traversal described for
original_source/c++/pod5_format/read_table_reader.cpp's plan_traversal:
the input UUIDs are sorted once, then each batch's read_id column is
walked in turn, probing a per-batch hash index built lazily from that
batch's ids. Because both the sorted input and each batch's rows are
visited in ascending order overall, a read table written in any row
order is still located in a single pass over its batches.
*/
package planner

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/koeng101/pod5/tablereader"
)

// Location is where one requested UUID was found: which batch, and
// which row within it.
type Location struct {
	Batch int
	Row   int
}

// Plan is the result of locating a set of UUIDs against a read table.
// Found holds one Location per UUID that was located, keyed by that
// UUID's original input position; an input index absent from Found was
// not present in the read table.
type Plan struct {
	Found        map[int]Location
	InputCount   int
	SuccessCount int
}

// Locate implements the (batch, row int, err error) contract
// tablereader.ExtractSamples and tablereader.ExtractSampleCount expect,
// treating rowIndex as an input position from the Plan that built it.
func (p *Plan) Locate(rowIndex uint64) (batch, row int, err error) {
	loc, ok := p.Found[int(rowIndex)]
	if !ok {
		return 0, 0, fmt.Errorf("pod5: input position %d not found by planner", rowIndex)
	}
	return loc.Batch, loc.Row, nil
}

type inputEntry struct {
	id       uuid.UUID
	position int
}

// BuildPlan locates every id in ids against reader's read table,
// probing a per-batch read_id index with the sorted input, batch by
// batch in ascending batch order. Found records the first hit for each
// input position; StepList and Dense give the hits in ascending
// (batch, row) order.
func BuildPlan(reader *tablereader.ReadTableReader, ids []uuid.UUID) (*Plan, error) {
	entries := make([]inputEntry, len(ids))
	for i, id := range ids {
		entries[i] = inputEntry{id: id, position: i}
	}
	sort.Slice(entries, func(i, j int) bool {
		return less(entries[i].id, entries[j].id)
	})

	found := make(map[int]Location, len(ids))
	numBatches := reader.NumBatches()
	for b := 0; b < numBatches; b++ {
		batchIDs, err := reader.ReadIDs(b)
		if err != nil {
			return nil, fmt.Errorf("pod5: planner read batch %d ids: %w", b, err)
		}
		index := make(map[uuid.UUID]int, len(batchIDs))
		for row, raw := range batchIDs {
			index[uuid.UUID(raw)] = row
		}
		for _, e := range entries {
			if _, already := found[e.position]; already {
				continue
			}
			if row, ok := index[e.id]; ok {
				found[e.position] = Location{Batch: b, Row: row}
			}
		}
	}

	return &Plan{
		Found:        found,
		InputCount:   len(ids),
		SuccessCount: len(found),
	}, nil
}

func less(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// DenseOutput is the per-batch compacted form of a Plan: the number of
// hits in each batch, and every hit's row, partitioned by batch in
// ascending (batch, row) order — the layout a sequential reader walks
// most efficiently.
type DenseOutput struct {
	CountPerBatch []int
	Rows          []int
}

// Dense compacts p into batch-partitioned form, covering every batch
// index from 0 up to the highest batch a hit landed in.
func (p *Plan) Dense() DenseOutput {
	maxBatch := -1
	for _, loc := range p.Found {
		if loc.Batch > maxBatch {
			maxBatch = loc.Batch
		}
	}
	out := DenseOutput{CountPerBatch: make([]int, maxBatch+1)}
	if maxBatch < 0 {
		return out
	}

	byBatch := make(map[int][]int, maxBatch+1)
	for _, loc := range p.Found {
		byBatch[loc.Batch] = append(byBatch[loc.Batch], loc.Row)
	}
	for b := 0; b <= maxBatch; b++ {
		rows := byBatch[b]
		sort.Ints(rows)
		out.CountPerBatch[b] = len(rows)
		out.Rows = append(out.Rows, rows...)
	}
	return out
}

// StepList is the (batch, row) pairs of every hit, sorted ascending by
// (batch, row).
func (p *Plan) StepList() []Location {
	steps := make([]Location, 0, len(p.Found))
	for _, loc := range p.Found {
		steps = append(steps, loc)
	}
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].Batch != steps[j].Batch {
			return steps[i].Batch < steps[j].Batch
		}
		return steps[i].Row < steps[j].Row
	})
	return steps
}
