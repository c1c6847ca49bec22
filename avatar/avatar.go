// Package avatar validates and stores profile images.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultMaxBytes is the upload size limit used when none is configured.
const DefaultMaxBytes = 5 << 20

var (
	ErrTooLarge    = errors.New("avatar exceeds size limit")
	ErrInvalidType = errors.New("avatar content type not allowed")
)

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// Validate checks size against maxBytes and the content type against the
// allowed image types. Size is checked first.
func Validate(size int64, contentType string, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if size > maxBytes {
		return ErrTooLarge
	}
	if _, ok := extensions[normalizeType(contentType)]; !ok {
		return ErrInvalidType
	}
	return nil
}

// ObjectKey names the stored object: avatars/<userID>-<unix ms>.<ext>.
func ObjectKey(userID, contentType string, at time.Time) string {
	ext, ok := extensions[normalizeType(contentType)]
	if !ok {
		ext = "bin"
	}
	return fmt.Sprintf("avatars/%s-%d.%s", userID, at.UnixMilli(), ext)
}

func normalizeType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// Storage persists avatar bytes and resolves them to public URLs.
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (url string, err error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL maps a URL returned by Put back to its key.
	KeyFromURL(url string) (string, bool)
}

// joinURL returns base/key with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func keyFromURL(base, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	key, ok := strings.CutPrefix(url, prefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// URLStorage keeps objects in process memory and hands out URLs under
// BaseURL. It is the default when no object store is configured.
type URLStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewURLStorage returns an empty store serving from baseURL.
func NewURLStorage(baseURL string) *URLStorage {
	return &URLStorage{BaseURL: baseURL, objects: make(map[string][]byte)}
}

func (m *URLStorage) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.objects[key] = buf
	m.mu.Unlock()
	return joinURL(m.BaseURL, key), nil
}

func (m *URLStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *URLStorage) KeyFromURL(url string) (string, bool) {
	return keyFromURL(m.BaseURL, url)
}

// Get returns the stored bytes for key.
func (m *URLStorage) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	return b, ok
}

// Len reports the number of stored objects.
func (m *URLStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
