package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mediagate/uploader/internal/auth"
	"github.com/mediagate/uploader/internal/metrics"
	"github.com/mediagate/uploader/internal/naming"
	"github.com/mediagate/uploader/internal/storage"
	"github.com/mediagate/uploader/internal/user"
)

// ErrUnauthorized covers bad credentials and unknown deletion token/owner
// pairs alike.
var ErrUnauthorized = auth.ErrUnauthorized

// ErrEmptyData is returned for a missing or zero-length payload.
var ErrEmptyData = errors.New("empty data")

// ErrUnknownContentType is returned for a missing or unsupported content type.
var ErrUnknownContentType = naming.ErrUnknownContentType

// Records persists upload rows.
type Records interface {
	InsertImage(ctx context.Context, rec Record) error
	InsertAudio(ctx context.Context, rec AudioRecord) error
	DeleteImage(ctx context.Context, deletionID string, author int64) (string, error)
	DeleteAudio(ctx context.Context, deletionID string, author int64) (string, error)
}

// Notifier receives the bytes of preserved uploads.
type Notifier interface {
	Dispatch(ctx context.Context, data []byte)
}

// ImageUpload is an incoming image or video.
type ImageUpload struct {
	Credential  string
	ContentType string
	Data        []byte
	Preserve    bool
}

// ImageResult is returned for an accepted image or video.
type ImageResult struct {
	Image  string `json:"image"`
	Delete string `json:"delete"`
	Type   string `json:"type"`
	Size   int    `json:"size"`
}

// AudioUpload is an incoming audio file.
type AudioUpload struct {
	Credential      string
	ContentType     string
	Data            []byte
	Title           string
	SoundgasmAuthor string
}

// AudioResult is returned for an accepted audio file.
type AudioResult struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Delete string `json:"delete"`
	Type   string `json:"type"`
	Size   int    `json:"size"`
}

// Options holds the URLs the service builds links from.
type Options struct {
	// PublicURL is the base of deletion links, e.g. "https://upload.example".
	PublicURL string
	// AudioBaseURL is the base every audio URL is served from.
	AudioBaseURL string
}

// Service admits uploads and performs token-gated deletions.
type Service struct {
	verifier *auth.Verifier
	users    *user.Directory
	alloc    *naming.Allocator
	store    storage.Backend
	records  Records
	notifier Notifier
	opts     Options
	log      zerolog.Logger
}

// NewService wires the upload pipelines. notifier may be nil.
func NewService(
	verifier *auth.Verifier,
	users *user.Directory,
	store storage.Backend,
	records Records,
	notifier Notifier,
	opts Options,
	log zerolog.Logger,
) *Service {
	return &Service{
		verifier: verifier,
		users:    users,
		alloc:    naming.NewAllocator(naming.NameLength),
		store:    store,
		records:  records,
		notifier: notifier,
		opts:     opts,
		log:      log.With().Str("component", "upload").Logger(),
	}
}

// UploadImage authenticates the caller, stores the payload under a fresh
// name in the caller's namespace and records it with a new deletion token.
// If recording fails the stored file stays on disk.
func (s *Service) UploadImage(ctx context.Context, in ImageUpload) (*ImageResult, error) {
	u, err := s.admit(in.Credential, in.ContentType, in.Data)
	if err != nil {
		return nil, err
	}

	ns := s.store.ForUser(u.Name)
	name, err := s.alloc.Allocate(ctx, ns, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("allocate filename: %w", err)
	}

	if in.Preserve {
		err = ns.Preserve(ctx, name, bytes.NewReader(in.Data), int64(len(in.Data)), in.ContentType)
	} else {
		err = ns.Save(ctx, name, bytes.NewReader(in.Data), int64(len(in.Data)), in.ContentType)
	}
	if err != nil {
		return nil, storageError(err)
	}
	if in.Preserve && s.notifier != nil {
		s.notifier.Dispatch(ctx, in.Data)
	}

	token, err := s.record(ctx, ns, name, func(token string) error {
		return s.records.InsertImage(ctx, Record{Author: u.ID, Filename: name, DeletionID: token})
	})
	if err != nil {
		return nil, err
	}

	metrics.Uploads.WithLabelValues("image").Inc()
	metrics.UploadBytes.WithLabelValues("image").Add(float64(len(in.Data)))
	s.log.Info().
		Str("user", u.Name).
		Str("file", name).
		Int("size", len(in.Data)).
		Bool("preserve", in.Preserve).
		Msg("image uploaded")

	return &ImageResult{
		Image:  u.BaseURL() + "/" + name,
		Delete: s.deleteURL(token, u.ID),
		Type:   in.ContentType,
		Size:   len(in.Data),
	}, nil
}

// UploadAudio is UploadImage for the flat audio namespace, with extra
// metadata stored alongside the record.
func (s *Service) UploadAudio(ctx context.Context, in AudioUpload) (*AudioResult, error) {
	u, err := s.admit(in.Credential, in.ContentType, in.Data)
	if err != nil {
		return nil, err
	}

	ns := s.store.Audio()
	name, err := s.alloc.Allocate(ctx, ns, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("allocate filename: %w", err)
	}
	if err := ns.Save(ctx, name, bytes.NewReader(in.Data), int64(len(in.Data)), in.ContentType); err != nil {
		return nil, storageError(err)
	}

	token, err := s.record(ctx, ns, name, func(token string) error {
		return s.records.InsertAudio(ctx, AudioRecord{
			Record:          Record{Author: u.ID, Filename: name, DeletionID: token},
			Title:           in.Title,
			SoundgasmAuthor: in.SoundgasmAuthor,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.Uploads.WithLabelValues("audio").Inc()
	metrics.UploadBytes.WithLabelValues("audio").Add(float64(len(in.Data)))
	s.log.Info().Str("user", u.Name).Str("file", name).Int("size", len(in.Data)).Msg("audio uploaded")

	return &AudioResult{
		URL:    s.opts.AudioBaseURL + "/" + name,
		Title:  in.Title,
		Author: in.SoundgasmAuthor,
		Delete: s.deleteURL(token, u.ID),
		Type:   in.ContentType,
		Size:   len(in.Data),
	}, nil
}

// Delete removes the record identified by deletionID and owned by userID,
// then its file. The row always goes first: a crash in between leaves a file
// without a record, never the reverse.
func (s *Service) Delete(ctx context.Context, deletionID string, userID int64) error {
	u, err := s.users.ByID(userID)
	if err != nil || deletionID == "" {
		metrics.Deletions.WithLabelValues("unauthorized").Inc()
		return ErrUnauthorized
	}

	ns := s.store.ForUser(u.Name)
	filename, err := s.records.DeleteImage(ctx, deletionID, u.ID)
	if errors.Is(err, ErrNotFound) {
		ns = s.store.Audio()
		filename, err = s.records.DeleteAudio(ctx, deletionID, u.ID)
	}
	if errors.Is(err, ErrNotFound) {
		metrics.Deletions.WithLabelValues("unauthorized").Inc()
		return ErrUnauthorized
	}
	if err != nil {
		metrics.Deletions.WithLabelValues("error").Inc()
		return fmt.Errorf("delete record: %w", err)
	}

	if err := ns.Remove(ctx, filename); err != nil {
		metrics.Deletions.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("file", ns.Location(filename)).Msg("record deleted but file removal failed")
		return fmt.Errorf("remove file: %w", err)
	}

	metrics.Deletions.WithLabelValues("ok").Inc()
	s.log.Info().Str("user", u.Name).Str("file", filename).Msg("upload deleted")
	return nil
}

// Authenticate resolves a bearer credential to its user.
func (s *Service) Authenticate(credential string) (user.User, error) {
	return s.verifier.Authenticate(credential)
}

// admit runs the side-effect free checks in order: payload, credential,
// content type.
func (s *Service) admit(credential, contentType string, data []byte) (user.User, error) {
	if len(data) == 0 {
		return user.User{}, ErrEmptyData
	}
	u, err := s.verifier.Authenticate(credential)
	if err != nil {
		return user.User{}, ErrUnauthorized
	}
	if _, ok := naming.Extension(contentType); !ok {
		return user.User{}, fmt.Errorf("%w: %q", ErrUnknownContentType, contentType)
	}
	return u, nil
}

// record issues a deletion token and commits the row through insert.
func (s *Service) record(ctx context.Context, ns storage.Namespace, name string, insert func(token string) error) (string, error) {
	token, err := naming.DeletionToken()
	if err != nil {
		return "", fmt.Errorf("issue deletion token: %w", err)
	}
	if err := insert(token); err != nil {
		metrics.OrphanedFiles.Inc()
		s.log.Error().Err(err).Str("file", ns.Location(name)).Msg("file stored but record insert failed")
		if errors.Is(err, ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("record upload: %w", err)
	}
	return token, nil
}

func (s *Service) deleteURL(token string, userID int64) string {
	return fmt.Sprintf("%s/file/%s?user_id=%d", s.opts.PublicURL, token, userID)
}

func storageError(err error) error {
	if errors.Is(err, storage.ErrExists) {
		return ErrConflict
	}
	return fmt.Errorf("store file: %w", err)
}
