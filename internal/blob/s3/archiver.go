package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/predictify/predictifyd/internal/domain"
)

// multipartThreshold is the payload size above which the archiver switches
// to a multipart upload.
const multipartThreshold int64 = 16 * 1024 * 1024

// Archiver serializes a finalized market and its stake ledger to JSONL and
// uploads the result to object storage. Archived markets stay in the primary
// store; deletion is a separate, explicit step after the archive has been
// verified.
type Archiver struct {
	writer domain.BlobWriter
	stakes domain.StakeStore
	audit  domain.AuditStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, stakes domain.StakeStore, audit domain.AuditStore) *Archiver {
	return &Archiver{writer: writer, stakes: stakes, audit: audit}
}

// ArchiveMarket uploads the market record and its stake entries as JSONL
// under archive/markets/YYYY-MM/{id}.jsonl. The first line is the market, the
// remaining lines are stake entries. The upload is recorded in the audit log
// and the number of stake entries written is returned.
func (a *Archiver) ArchiveMarket(ctx context.Context, m domain.Market) (int64, error) {
	entries, err := a.stakes.ListByMarket(ctx, m.ID)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive market %s query: %w", m.ID, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return 0, fmt.Errorf("s3blob: archive market %s marshal: %w", m.ID, err)
	}
	for i, e := range entries {
		if err := enc.Encode(e); err != nil {
			return 0, fmt.Errorf("s3blob: archive market %s marshal stake %d: %w", m.ID, i, err)
		}
	}

	path := archivePath(m)
	if int64(buf.Len()) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf.Bytes()), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf.Bytes()), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive market %s upload: %w", m.ID, err)
	}

	count := int64(len(entries))
	if err := a.audit.Log(ctx, "archive.market", map[string]any{
		"path":      path,
		"market_id": m.ID,
		"stakes":    count,
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive market %s audit log: %w", m.ID, err)
	}
	return count, nil
}

// archivePath builds the S3 key for a market archive, partitioned by the
// year-month of the market's end time.
//
//	archive/markets/2026-03/{id}.jsonl
func archivePath(m domain.Market) string {
	return fmt.Sprintf("archive/markets/%s/%s.jsonl", m.EndTime.Format("2006-01"), m.ID)
}
