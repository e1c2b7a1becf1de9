package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded files and returns the URL they can be fetched from.
type FileStorage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (url string, err error)
}
