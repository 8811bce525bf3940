package streamcache

import (
	"time"

	"github.com/KoTeuKa404/pymusic/filesystem"
	"github.com/metafates/gache"
	"github.com/samber/mo"
)

// StoreLifetime bounds how long a snapshot on disk is trusted at all.
// Individual entries still obey their own expiry.
const StoreLifetime = 6 * time.Hour

type persistedEntry struct {
	Ref          string            `json:"ref"`
	URL          string            `json:"url"`
	Headers      map[string]string `json:"headers,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	InsertedAt   time.Time         `json:"inserted_at"`
	Title        string            `json:"title,omitempty"`
	Channel      string            `json:"channel,omitempty"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
}

type snapshot struct {
	Streams []persistedEntry `json:"streams"`
}

// GacheStore persists cache snapshots to a JSON file through gache.
type GacheStore struct {
	internal *gache.Cache[*snapshot]
}

// NewGacheStore creates a store backed by the file at path.
func NewGacheStore(path string) *GacheStore {
	return &GacheStore{
		internal: gache.New[*snapshot](
			&gache.Options{
				Path:       path,
				Lifetime:   StoreLifetime,
				FileSystem: &filesystem.GacheFs{},
			},
		),
	}
}

// Load reads the stored entries. An expired or missing snapshot yields no entries.
func (s *GacheStore) Load() ([]Entry, error) {
	data, expired, err := s.internal.Get()
	if err != nil {
		return nil, err
	}
	if expired || data == nil {
		return nil, nil
	}

	entries := make([]Entry, 0, len(data.Streams))
	for _, p := range data.Streams {
		entries = append(entries, Entry{
			Ref:          p.Ref,
			URL:          p.URL,
			Headers:      p.Headers,
			ExpiresAt:    optionFromPointer(p.ExpiresAt),
			InsertedAt:   p.InsertedAt,
			Title:        p.Title,
			Channel:      p.Channel,
			ThumbnailURL: p.ThumbnailURL,
		})
	}
	return entries, nil
}

// Save replaces the stored snapshot with entries.
func (s *GacheStore) Save(entries []Entry) error {
	data := &snapshot{Streams: make([]persistedEntry, 0, len(entries))}
	for _, e := range entries {
		data.Streams = append(data.Streams, persistedEntry{
			Ref:          e.Ref,
			URL:          e.URL,
			Headers:      e.Headers,
			ExpiresAt:    pointerFromOption(e.ExpiresAt),
			InsertedAt:   e.InsertedAt,
			Title:        e.Title,
			Channel:      e.Channel,
			ThumbnailURL: e.ThumbnailURL,
		})
	}
	return s.internal.Set(data)
}

// Persist saves the cache's current snapshot to the store.
func (c *Cache) Persist(store *GacheStore) error {
	return store.Save(c.Snapshot())
}

// Reload restores entries from the store and reports how many were accepted.
func (c *Cache) Reload(store *GacheStore) (int, error) {
	entries, err := store.Load()
	if err != nil {
		return 0, err
	}
	return c.Restore(entries), nil
}

func optionFromPointer(t *time.Time) mo.Option[time.Time] {
	if t == nil {
		return mo.None[time.Time]()
	}
	return mo.Some(*t)
}

func pointerFromOption(o mo.Option[time.Time]) *time.Time {
	t, ok := o.Get()
	if !ok {
		return nil
	}
	return &t
}
