package application

import (
	lru "github.com/hashicorp/golang-lru"
)

// Cache a small LRU cache of script sources in front of an Application, so
// that creating many runtimes does not re-read the same platform scripts.
type Cache struct {
	Application
	sources *lru.Cache
}

// NewCache wrap an application with a source cache of the given size
func NewCache(app Application, size int) (*Cache, error) {
	sources, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{Application: app, sources: sources}, nil
}

// Read the file content, from cache when possible
func (cache *Cache) Read(name string) ([]byte, error) {
	if data, has := cache.sources.Get(name); has {
		return data.([]byte), nil
	}

	data, err := cache.Application.Read(name)
	if err != nil {
		return nil, err
	}

	cache.sources.Add(name, data)
	return data, nil
}

// Flush drop every cached source
func (cache *Cache) Flush() {
	cache.sources.Purge()
}
