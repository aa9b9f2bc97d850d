// Package inventory maintains the user's ingredient collection, grouped
// by storage category and persisted write-through to the blob store.
package inventory

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/smartfridge/fridgechef/internal/store"
)

// Category is the storage location of an ingredient. The values are the
// wire strings the prompt and the persisted blobs use.
type Category string

const (
	CategoryRefrigerated Category = "冷藏"
	CategoryFrozen       Category = "冷冻"
	CategoryRoomTemp     Category = "常温"
	CategoryStaple       Category = "主食"
	CategoryCondiment    Category = "调料"
)

// Categories lists all categories in declaration order. Prompt rendering
// and listing rely on this order being stable.
var Categories = []Category{
	CategoryRefrigerated,
	CategoryFrozen,
	CategoryRoomTemp,
	CategoryStaple,
	CategoryCondiment,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Ingredient is a single inventory item. Immutable after creation.
type Ingredient struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Store holds the in-memory ingredient list and writes it through to the
// blob store on every mutation.
type Store struct {
	mu          sync.Mutex
	blobs       store.Store
	log         *slog.Logger
	ingredients []Ingredient
	lastID      int64
}

// NewStore loads the persisted ingredient list. A missing or corrupt
// blob starts the inventory empty.
func NewStore(blobs store.Store, log *slog.Logger) (*Store, error) {
	s := &Store{blobs: blobs, log: log}

	var persisted []Ingredient
	found, err := blobs.Get(store.KeyIngredients, &persisted)
	if err != nil {
		return nil, err
	}
	if found {
		s.ingredients = persisted
	}
	return s, nil
}

// Add appends a new ingredient and persists the collection. Duplicate
// names are allowed and never merged.
func (s *Store) Add(name string, category Category) (Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ing := Ingredient{
		ID:       s.nextID(),
		Name:     name,
		Category: category,
	}
	s.ingredients = append(s.ingredients, ing)

	if err := s.persist(); err != nil {
		return Ingredient{}, err
	}
	s.log.Debug("added ingredient", "id", ing.ID, "name", ing.Name, "category", string(ing.Category))
	return ing, nil
}

// Remove deletes the ingredient with the given id. Removing an unknown
// id is a no-op.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.ingredients[:0]
	removed := false
	for _, ing := range s.ingredients {
		if ing.ID == id {
			removed = true
			continue
		}
		kept = append(kept, ing)
	}
	s.ingredients = kept

	if !removed {
		return nil
	}
	return s.persist()
}

// List returns all ingredients in insertion order.
func (s *Store) List() []Ingredient {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Ingredient, len(s.ingredients))
	copy(out, s.ingredients)
	return out
}

// ListByCategory returns the ingredients of one category, preserving
// insertion order.
func (s *Store) ListByCategory(category Category) []Ingredient {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Ingredient
	for _, ing := range s.ingredients {
		if ing.Category == category {
			out = append(out, ing)
		}
	}
	return out
}

// nextID returns a millisecond timestamp id, bumped when two adds land
// in the same millisecond. Caller holds the lock.
func (s *Store) nextID() string {
	now := time.Now().UnixMilli()
	if now <= s.lastID {
		now = s.lastID + 1
	}
	s.lastID = now
	return strconv.FormatInt(now, 10)
}

// persist writes the whole collection. Caller holds the lock.
func (s *Store) persist() error {
	return s.blobs.Set(store.KeyIngredients, s.ingredients)
}
