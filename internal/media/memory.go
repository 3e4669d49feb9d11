package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MemoryUploader keeps uploads in a map. It backs local runs without an
// object store and the publication tests, including failure injection
// for the compensation path.
type MemoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int

	// FailAfter makes Upload fail once the given number of uploads
	// succeeded. Zero means never fail.
	FailAfter int
}

func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{objects: make(map[string][]byte)}
}

func (m *MemoryUploader) Upload(ctx context.Context, img Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAfter > 0 && m.seq >= m.FailAfter {
		return "", errors.New("upload rejected")
	}
	m.seq++
	url := fmt.Sprintf("mem://animals/%d", m.seq)
	m.objects[url] = img.Data
	return url, nil
}

func (m *MemoryUploader) Remove(ctx context.Context, publicURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, publicURL)
	return nil
}

// Count returns how many objects are currently stored.
func (m *MemoryUploader) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Has reports whether a URL is still stored.
func (m *MemoryUploader) Has(publicURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[publicURL]
	return ok
}
