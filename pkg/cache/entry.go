package cache

import (
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/swapi-export/pkg/swapi"
)

// PageCache is the persisted result of a people crawl.
type PageCache struct {
	// LastPageNumber is the exclusive end index of the crawl that produced Characters.
	LastPageNumber int `json:"last_page_number"`

	// Characters are the raw records in fetch order.
	Characters []swapi.RawCharacter `json:"characters"`
}

// encode marshals the entry for storage.
func (p *PageCache) encode() ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("page cache cannot be nil")
	}
	if p.Characters == nil {
		p = &PageCache{LastPageNumber: p.LastPageNumber, Characters: []swapi.RawCharacter{}}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal page cache: %w", err)
	}
	return data, nil
}

// decodePageCache parses a stored entry.
func decodePageCache(data []byte) (*PageCache, error) {
	var p PageCache
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if p.LastPageNumber < 0 {
		return nil, fmt.Errorf("%w: negative last_page_number %d", ErrInvalidEntry, p.LastPageNumber)
	}
	return &p, nil
}
