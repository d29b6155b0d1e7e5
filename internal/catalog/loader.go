package catalog

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ObjectReader fetches an object from storage.
type ObjectReader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// LoadFile reads a catalog snapshot from disk.
func LoadFile(path string, validate *validator.Validate) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data, validate)
}

// LoadObject reads a catalog snapshot from object storage.
func LoadObject(ctx context.Context, r ObjectReader, key string, validate *validator.Validate) (*Content, error) {
	data, err := r.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download catalog %s: %w", key, err)
	}
	return Parse(data, validate)
}

// Holder keeps the current snapshot and lets it be swapped at runtime.
type Holder struct {
	mu      sync.RWMutex
	content *Content
}

func NewHolder(c *Content) *Holder {
	if c == nil {
		c = &Content{}
	}
	if c.idx == nil {
		c.Reindex()
	}
	return &Holder{content: c}
}

func (h *Holder) Current() *Content {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.content
}

func (h *Holder) Replace(c *Content) {
	if c != nil && c.idx == nil {
		c.Reindex()
	}
	h.mu.Lock()
	h.content = c
	h.mu.Unlock()
}
