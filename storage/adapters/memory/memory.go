package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bignyap/studio-storage/storage/api"
	"github.com/bignyap/studio-storage/storage/config"
)

// Store is an in-process api.BlobStore keyed by object path. It backs
// local development and tests.
type Store struct {
	mu              sync.RWMutex
	objects         map[string]int64
	omitInlineSizes bool
}

var _ api.BlobStore = (*Store)(nil)

func New(cfg config.MemoryConfig) *Store {
	return &Store{
		objects:         make(map[string]int64),
		omitInlineSizes: cfg.OmitInlineSizes,
	}
}

// Put records an object of the given size, replacing any previous one.
func (s *Store) Put(path string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = size
}

// Remove deletes an object; missing paths are ignored.
func (s *Store) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
}

// List pages over the sorted direct children of prefix. The page token is
// the offset of the next child.
func (s *Store) List(ctx context.Context, prefix, pageToken string, pageSize int) (api.Page, error) {
	if err := ctx.Err(); err != nil {
		return api.Page{}, err
	}
	if pageSize <= 0 {
		pageSize = api.DefaultPageSize
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return api.Page{}, fmt.Errorf("invalid page token %q", pageToken)
		}
		offset = n
	}

	children := s.children(prefix)
	if offset > len(children) {
		offset = len(children)
	}
	end := offset + pageSize
	if end > len(children) {
		end = len(children)
	}

	page := api.Page{Entries: children[offset:end]}
	if end < len(children) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

// Size returns the stored size of path.
func (s *Store) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	size, ok := s.objects[path]
	if !ok {
		return 0, fmt.Errorf("%s: %w", path, api.ErrNotFound)
	}
	return size, nil
}

func (s *Store) children(prefix string) []api.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirs := make(map[string]struct{})
	var entries []api.Entry
	for key, size := range s.objects {
		if !strings.HasPrefix(key, prefix) || key == prefix {
			continue
		}
		rest := key[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			dir := prefix + rest[:i+1]
			if _, seen := dirs[dir]; !seen {
				dirs[dir] = struct{}{}
				entries = append(entries, api.Entry{Path: dir, IsDir: true})
			}
			continue
		}
		e := api.Entry{Path: key}
		if !s.omitInlineSizes {
			e.Size = api.SizeOf(size)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}
