package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/arbstack/flasharb/internal/domain"
)

// ExecutionArchiveStore provides the read access the archiver needs. The
// Postgres ExecutionStore satisfies it.
type ExecutionArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.ExecutionResult, error)
}

// ArchiveImpl implements domain.Archiver by querying old execution history,
// serializing it to JSONL, and uploading the result to object storage.
//
// Deletion of the archived rows from the primary store is intentionally NOT
// performed here; that is a separate, explicit step to run after the archive
// has been verified.
type ArchiveImpl struct {
	writer     domain.BlobWriter
	executions ExecutionArchiveStore
	logger     *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, executions ExecutionArchiveStore, logger *slog.Logger) *ArchiveImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveImpl{
		writer:     writer,
		executions: executions,
		logger:     logger.With("component", "archiver"),
	}
}

// ArchiveExecutions queries all executions that finished before the cutoff,
// serializes them to JSONL, and uploads the file at
// archive/executions/YYYY-MM.jsonl. It returns the number of archived
// records.
func (a *ArchiveImpl) ArchiveExecutions(ctx context.Context, before time.Time) (int64, error) {
	results, err := a.executions.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions query: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(results)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions marshal: %w", err)
	}

	key := archiveKey("executions", before)
	if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive executions upload: %w", err)
	}

	count := int64(len(results))
	a.logger.Info("archived executions",
		"key", key,
		"count", count,
		"before", before.Format(time.RFC3339),
	)
	return count, nil
}

// archiveKey builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/executions/2026-08.jsonl
func archiveKey(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
