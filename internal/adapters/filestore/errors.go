package filestore

import "errors"

var (
	// ErrMissingCredentials is returned when no service account and no HTTP
	// client were configured.
	ErrMissingCredentials = errors.New("filestore: missing service account credentials")
	// ErrEmptyFileID is returned by operations that need an existing file.
	ErrEmptyFileID = errors.New("filestore: empty file id")
)
