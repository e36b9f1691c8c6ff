// Package blob moves locally staged uploads into durable object storage.
package blob

import "context"

type UploadResult struct {
	URL string
	Key string
}

// Uploader transfers the file at localPath and removes it afterwards, whether
// or not the transfer succeeded. It never returns an error: a nil result
// means nothing was stored, and an empty path is not a failure.
type Uploader interface {
	Upload(ctx context.Context, localPath string) *UploadResult
}
