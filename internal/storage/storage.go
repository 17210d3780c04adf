package storage

import (
	"context"
	"errors"
	"io"
)

// StagedFile is a receipt parked in staging. It only becomes addressable
// by callers after Promote; a Discard after a failed transaction removes
// it without a trace.
type StagedFile struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// StoredFile is the durable location of a promoted receipt.
type StoredFile struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

var ErrStagedFileNotFound = errors.New("staged_file_not_found")

// FileStore persists payment receipts. Implementations are external to the
// billing core; the workflow only relies on the stage/promote/discard
// contract so a storage write never outlives an aborted transaction.
type FileStore interface {
	Stage(ctx context.Context, name, mimeType string, r io.Reader) (*StagedFile, error)
	Promote(ctx context.Context, staged *StagedFile) (*StoredFile, error)
	Discard(ctx context.Context, staged *StagedFile) error
}
