package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	dferrors "github.com/docfusion/docfusion/docfusion/errors"
	"github.com/docfusion/docfusion/docfusion/storage"
	"github.com/docfusion/docfusion/docfusion/storage/sqlbuilder"
)

const (
	MaxBulkDocuments = 1000
	DefaultListLimit = 10
	MaxListLimit     = 100

	bulkChunkSize = 250
)

// Document is a stored row.
type Document struct {
	ID      int32           `json:"id"`
	Content json.RawMessage `json:"content"`
}

// BulkResult summarizes a bulk insert.
type BulkResult struct {
	Inserted int   `json:"inserted"`
	FirstID  int32 `json:"first_id"`
	LastID   int32 `json:"last_id"`
}

func acquire(ctx context.Context, a storage.Adapter) (storage.Conn, error) {
	c, err := a.Acquire(ctx)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrConnAcquire, "acquire store connection", err)
	}
	return c, nil
}

// Migrate creates the documents table if it does not exist.
func Migrate(ctx context.Context, a storage.Adapter) error {
	c, err := acquire(ctx, a)
	if err != nil {
		return err
	}
	defer c.Release()

	if _, err := c.Exec(ctx, a.SQL().CreateTable); err != nil {
		return dferrors.Wrap(dferrors.ErrQueryExec, "create table", err)
	}
	return nil
}

// Insert validates and stores one document.
func Insert(ctx context.Context, a storage.Adapter, v *Validator, doc []byte) (Document, error) {
	content, err := v.Validate(doc)
	if err != nil {
		return Document{}, err
	}

	c, err := acquire(ctx, a)
	if err != nil {
		return Document{}, err
	}
	defer c.Release()

	var id int32
	if err := c.QueryRow(ctx, a.SQL().Insert, string(content)).Scan(&id); err != nil {
		return Document{}, dferrors.Wrap(dferrors.ErrQueryExec, "insert document", err)
	}
	return Document{ID: id, Content: content}, nil
}

// BulkInsert stores 1..MaxBulkDocuments documents in one transaction.
// Every document is validated before anything is written.
func BulkInsert(ctx context.Context, a storage.Adapter, v *Validator, docs [][]byte) (BulkResult, error) {
	if len(docs) == 0 {
		return BulkResult{}, dferrors.InvalidDocumentError("no documents provided")
	}
	if len(docs) > MaxBulkDocuments {
		return BulkResult{}, dferrors.InvalidDocumentError(fmt.Sprintf("too many documents (max %d)", MaxBulkDocuments))
	}

	contents := make([]any, len(docs))
	for i, d := range docs {
		content, err := v.Validate(d)
		if err != nil {
			var e *dferrors.Error
			if errors.As(err, &e) {
				e.Field = fmt.Sprintf("documents[%d]", i)
			}
			return BulkResult{}, err
		}
		contents[i] = string(content)
	}

	c, err := acquire(ctx, a)
	if err != nil {
		return BulkResult{}, err
	}
	defer c.Release()

	var ids []int32
	sqlt := a.SQL()
	dialect := a.Dialect()
	err = c.WithTx(ctx, func(q storage.Querier) error {
		for start := 0; start < len(contents); start += bulkChunkSize {
			end := min(start+bulkChunkSize, len(contents))
			b := sqlbuilder.New(dialect.PlaceholderStyle())
			stmt := sqlt.InsertMulti + b.Values(contents[start:end], dialect.JSONParam) + " RETURNING id"

			rows, err := q.Query(ctx, stmt, b.Args()...)
			if err != nil {
				return err
			}
			for rows.Next() {
				var id int32
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return err
				}
				ids = append(ids, id)
			}
			err = rows.Err()
			rows.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, dferrors.Wrap(dferrors.ErrQueryExec, "bulk insert", err)
	}

	res := BulkResult{Inserted: len(ids)}
	for i, id := range ids {
		if i == 0 || id < res.FirstID {
			res.FirstID = id
		}
		if i == 0 || id > res.LastID {
			res.LastID = id
		}
	}
	return res, nil
}

func Get(ctx context.Context, a storage.Adapter, id int32) (Document, error) {
	c, err := acquire(ctx, a)
	if err != nil {
		return Document{}, err
	}
	defer c.Release()

	var doc Document
	var content *string
	err = c.QueryRow(ctx, a.SQL().Get, id).Scan(&doc.ID, &content)
	if errors.Is(err, storage.ErrNoRows) {
		return Document{}, dferrors.NotFoundError(id)
	}
	if err != nil {
		return Document{}, dferrors.Wrap(dferrors.ErrQueryExec, "get document", err)
	}
	if content != nil {
		doc.Content = json.RawMessage(*content)
	}
	return doc, nil
}

// ClampListLimit applies the default and maximum page size.
func ClampListLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

// List returns documents ordered by id.
func List(ctx context.Context, a storage.Adapter, limit, offset int) ([]Document, error) {
	limit = ClampListLimit(limit)
	offset = max(offset, 0)

	c, err := acquire(ctx, a)
	if err != nil {
		return nil, err
	}
	defer c.Release()

	rows, err := c.Query(ctx, a.SQL().List, limit, offset)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrQueryExec, "list documents", err)
	}
	defer rows.Close()

	docs := make([]Document, 0, limit)
	for rows.Next() {
		var doc Document
		var content *string
		if err := rows.Scan(&doc.ID, &content); err != nil {
			return nil, dferrors.Wrap(dferrors.ErrRowDecode, "decode document", err)
		}
		if content != nil {
			doc.Content = json.RawMessage(*content)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, iterError("iterate documents", err)
	}
	return docs, nil
}

// Delete removes a document and reports whether it existed.
func Delete(ctx context.Context, a storage.Adapter, id int32) (bool, error) {
	c, err := acquire(ctx, a)
	if err != nil {
		return false, err
	}
	defer c.Release()

	n, err := c.Exec(ctx, a.SQL().Delete, id)
	if err != nil {
		return false, dferrors.Wrap(dferrors.ErrQueryExec, "delete document", err)
	}
	return n > 0, nil
}

func Count(ctx context.Context, a storage.Adapter) (int64, error) {
	c, err := acquire(ctx, a)
	if err != nil {
		return 0, err
	}
	defer c.Release()

	var n int64
	if err := c.QueryRow(ctx, a.SQL().Count).Scan(&n); err != nil {
		return 0, dferrors.Wrap(dferrors.ErrQueryExec, "count documents", err)
	}
	return n, nil
}
