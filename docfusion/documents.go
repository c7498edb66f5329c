package docfusion

import (
	"context"

	"github.com/docfusion/docfusion/docfusion/ops"
)

// Insert stores one JSON object and returns it with its assigned id.
func (db *DB) Insert(ctx context.Context, doc []byte) (Document, error) {
	return ops.Insert(ctx, db.adapter, db.validator, doc)
}

// BulkInsert stores up to MaxBulkDocuments objects atomically.
func (db *DB) BulkInsert(ctx context.Context, docs [][]byte) (BulkResult, error) {
	return ops.BulkInsert(ctx, db.adapter, db.validator, docs)
}

func (db *DB) Get(ctx context.Context, id int32) (Document, error) {
	return ops.Get(ctx, db.adapter, id)
}

// List pages through documents by id. limit defaults to DefaultListLimit
// and is capped at MaxListLimit.
func (db *DB) List(ctx context.Context, limit, offset int) ([]Document, error) {
	return ops.List(ctx, db.adapter, limit, offset)
}

func (db *DB) Delete(ctx context.Context, id int32) (bool, error) {
	return ops.Delete(ctx, db.adapter, id)
}

func (db *DB) Count(ctx context.Context) (int64, error) {
	return ops.Count(ctx, db.adapter)
}

// ClampListLimit returns the page size List uses for limit.
func ClampListLimit(limit int) int { return ops.ClampListLimit(limit) }
