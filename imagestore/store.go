// Package imagestore holds the object-storage collaborator used for
// profile images. The auth flows treat it as best effort: an upload
// failure never blocks sign-up or sign-in.
package imagestore

import "context"

// Object identifies a stored image.
type Object struct {
	// Key is the storage identifier used for later deletion.
	Key string `json:"key"`
	// URL is a secure URL callers can hand to clients.
	URL string `json:"url"`
}

// UploadOptions carries optional folder/name hints for the stored object.
type UploadOptions struct {
	Folder string
	Name   string
}

// Store accepts binary buffers and returns secure URLs plus storage
// identifiers.
type Store interface {
	Upload(ctx context.Context, data []byte, opts UploadOptions) (Object, error)
	Delete(ctx context.Context, key string) error
	SecureURL(ctx context.Context, key string) (string, error)
}

// Noop discards uploads. Useful for tests and embedders that handle
// images elsewhere.
type Noop struct{}

var _ Store = Noop{}

func (Noop) Upload(context.Context, []byte, UploadOptions) (Object, error) {
	return Object{}, nil
}

func (Noop) Delete(context.Context, string) error {
	return nil
}

func (Noop) SecureURL(context.Context, string) (string, error) {
	return "", nil
}
