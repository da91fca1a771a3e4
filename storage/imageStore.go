package storage

//go:generate mockgen -destination=../mocks/storage.go -package=mocks spotfix/storage ImageStore

import (
	"context"
	"io"
)

// ImageStore keeps uploaded issue photos. Save returns the reference stored
// in Issue.Images; Delete accepts that same reference.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}
