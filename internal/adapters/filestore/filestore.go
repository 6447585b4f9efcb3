// Package filestore hosts exported files on Google Drive and hands out
// public download links.
package filestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/appraisal/pkg/logger"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const downloadBase = "https://drive.google.com/uc"

// Store is a remote file store.
type Store interface {
	// Create uploads content and returns the new file id.
	Create(ctx context.Context, name, mimeType string, content io.Reader) (string, error)
	// MakePublic grants read access to anyone with the link.
	MakePublic(ctx context.Context, fileID string) error
	// Delete removes the file.
	Delete(ctx context.Context, fileID string) error
}

// DownloadURL is the direct download link of a public file.
func DownloadURL(fileID string) string {
	q := url.Values{}
	q.Set("export", "download")
	q.Set("id", fileID)
	return downloadBase + "?" + q.Encode()
}

// DriveStore implements Store on Google Drive v3.
type DriveStore struct {
	files       *drive.FilesService
	permissions *drive.PermissionsService
	folderID    string
	logger      logger.Logger
}

type driveOptions struct {
	clientEmail string
	privateKey  string
	folderID    string
	endpoint    string
	httpClient  *http.Client
	logger      logger.Logger
}

// Option configures a DriveStore.
type Option func(*driveOptions)

// WithServiceAccount authenticates as a service account. Literal "\n"
// sequences in the key are turned into newlines so the PEM block survives
// being passed through an environment variable.
func WithServiceAccount(email, privateKey string) Option {
	return func(o *driveOptions) {
		o.clientEmail = email
		o.privateKey = strings.ReplaceAll(privateKey, `\n`, "\n")
	}
}

// WithFolderID puts new files under the given folder.
func WithFolderID(id string) Option {
	return func(o *driveOptions) { o.folderID = id }
}

// WithEndpoint overrides the Drive API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *driveOptions) { o.endpoint = endpoint }
}

// WithHTTPClient uses hc as is, without service account authentication.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *driveOptions) { o.httpClient = hc }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *driveOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewDriveStore creates a Drive-backed store. ctx is used for token
// refreshes for the lifetime of the store.
func NewDriveStore(ctx context.Context, opts ...Option) (*DriveStore, error) {
	o := &driveOptions{logger: logger.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	hc := o.httpClient
	if hc == nil {
		if o.clientEmail == "" || o.privateKey == "" {
			return nil, ErrMissingCredentials
		}
		conf := &jwt.Config{
			Email:      o.clientEmail,
			PrivateKey: []byte(o.privateKey),
			Scopes:     []string{drive.DriveScope},
			TokenURL:   google.JWTTokenURL,
		}
		hc = conf.Client(ctx)
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint))
	}
	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &DriveStore{
		files:       svc.Files,
		permissions: svc.Permissions,
		folderID:    o.folderID,
		logger:      o.logger,
	}, nil
}

// Create uploads content as a new file.
func (s *DriveStore) Create(ctx context.Context, name, mimeType string, content io.Reader) (string, error) {
	meta := &drive.File{Name: name, MimeType: mimeType}
	if s.folderID != "" {
		meta.Parents = []string{s.folderID}
	}

	f, err := s.files.Create(meta).
		Media(content, googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create file %q: %w", name, err)
	}
	if f.Id == "" {
		return "", fmt.Errorf("create file %q: %w", name, ErrEmptyFileID)
	}

	s.logger.Debug(ctx, "file uploaded", logger.String("file_id", f.Id), logger.String("name", name))
	return f.Id, nil
}

// MakePublic grants reader access to anyone.
func (s *DriveStore) MakePublic(ctx context.Context, fileID string) error {
	if fileID == "" {
		return ErrEmptyFileID
	}
	perm := &drive.Permission{Role: "reader", Type: "anyone"}
	if _, err := s.permissions.Create(fileID, perm).Context(ctx).Do(); err != nil {
		return fmt.Errorf("grant public read on %s: %w", fileID, err)
	}
	return nil
}

// Delete removes the file.
func (s *DriveStore) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return ErrEmptyFileID
	}
	if err := s.files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}
