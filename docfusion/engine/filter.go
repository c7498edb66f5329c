package engine

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/docfusion/docfusion/docfusion/expr"
)

// FilterRecord keeps the rows of rec for which every predicate is true.
// Null counts as false. The returned record is owned by the caller.
func FilterRecord(ctx context.Context, mem memory.Allocator, rec arrow.Record, predicates []expr.Expr) (arrow.Record, error) {
	if len(predicates) == 0 {
		rec.Retain()
		return rec, nil
	}

	mask, kept, err := Mask(mem, rec, predicates)
	if err != nil {
		return nil, err
	}
	defer mask.Release()

	if rec.NumCols() == 0 {
		return array.NewRecord(rec.Schema(), nil, int64(kept)), nil
	}
	return compute.FilterRecordBatch(compute.WithAllocator(ctx, mem), rec, mask, compute.DefaultFilterOptions())
}

// Mask evaluates predicates over rec and ANDs them into one non-null
// selection vector. kept is the number of selected rows.
func Mask(mem memory.Allocator, rec arrow.Record, predicates []expr.Expr) (mask *array.Boolean, kept int, err error) {
	n := int(rec.NumRows())
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}

	for _, p := range predicates {
		v, err := Evaluate(mem, rec, p)
		if err != nil {
			return nil, 0, err
		}
		for i := 0; i < n; i++ {
			if !keep[i] {
				continue
			}
			val, valid, err := boolAt(v, i)
			if err != nil {
				Release(v)
				return nil, 0, err
			}
			keep[i] = valid && val
		}
		Release(v)
	}

	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.AppendValues(keep, nil)
	for _, k := range keep {
		if k {
			kept++
		}
	}
	return b.NewBooleanArray(), kept, nil
}
