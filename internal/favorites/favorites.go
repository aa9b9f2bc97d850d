// Package favorites persists saved recipes and their folder membership.
package favorites

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smartfridge/fridgechef/internal/services/recipe"
	"github.com/smartfridge/fridgechef/internal/store"
)

// DefaultFolder is always present and never deletable. Recipes whose
// folder no longer resolves fall back to it.
const DefaultFolder = "默认清单"

// defaultFolders seeds a fresh install.
var defaultFolders = []string{DefaultFolder, "健康餐", "快手菜", "周末大餐"}

// ErrDefaultFolder is returned when a caller tries to delete the
// default folder.
var ErrDefaultFolder = fmt.Errorf("默认清单不可删除")

// ErrUnknownFolder is returned when an update points a recipe at a
// folder that does not exist.
var ErrUnknownFolder = fmt.Errorf("清单不存在")

// SavedRecipe is a generated recipe the user chose to keep.
type SavedRecipe struct {
	recipe.Recipe
	ID        string `json:"id"`
	SavedAt   int64  `json:"savedAt"`
	UserNotes string `json:"userNotes,omitempty"`
	Folder    string `json:"folder,omitempty"`
}

// Filter narrows a List call. Zero values mean "no constraint".
type Filter struct {
	Folder      string
	SearchQuery string
}

// Store holds saved recipes and the folder list. One lock covers both
// collections so folder deletion and member reassignment stay atomic.
type Store struct {
	mu      sync.Mutex
	blobs   store.Store
	log     *slog.Logger
	saved   []SavedRecipe
	folders []string
	lastID  int64
}

// NewStore loads both persisted collections. Missing or corrupt blobs
// fall back to an empty recipe list and the default folder set.
func NewStore(blobs store.Store, log *slog.Logger) (*Store, error) {
	s := &Store{blobs: blobs, log: log}

	var saved []SavedRecipe
	if found, err := blobs.Get(store.KeySavedRecipes, &saved); err != nil {
		return nil, err
	} else if found {
		s.saved = saved
	}

	var folders []string
	if found, err := blobs.Get(store.KeyFolders, &folders); err != nil {
		return nil, err
	} else if found {
		s.folders = folders
	} else {
		s.folders = append([]string(nil), defaultFolders...)
	}

	// The default folder must exist no matter what the blob said.
	if !contains(s.folders, DefaultFolder) {
		s.folders = append([]string{DefaultFolder}, s.folders...)
	}
	return s, nil
}

// Save promotes a generated recipe into the favorites. Failure points
// are copied once into the user notes as a bulleted warning block; the
// recipe lands in the default folder at the head of the list.
func (s *Store) Save(r recipe.Recipe) (SavedRecipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := SavedRecipe{
		Recipe:    r,
		ID:        s.nextID(),
		SavedAt:   time.Now().UnixMilli(),
		UserNotes: formatFailureNotes(r.FailurePoints),
		Folder:    DefaultFolder,
	}
	s.saved = append([]SavedRecipe{saved}, s.saved...)

	if err := s.persistRecipes(); err != nil {
		return SavedRecipe{}, err
	}
	s.log.Debug("saved recipe", "id", saved.ID, "name", saved.Name)
	return saved, nil
}

// Remove deletes a saved recipe by id. Unknown ids are a no-op.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.saved[:0]
	removed := false
	for _, r := range s.saved {
		if r.ID == id {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	s.saved = kept

	if !removed {
		return nil
	}
	return s.persistRecipes()
}

// Update replaces the stored recipe with the same id, all fields.
// Silently a no-op when the id is unknown; callers who care must check
// existence first. The folder must resolve to an existing one (empty
// means the default), so no recipe can ever point at a folder the
// folder list does not contain.
func (s *Store) Update(updated SavedRecipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if updated.Folder != "" && !contains(s.folders, updated.Folder) {
		return fmt.Errorf("%w: %q", ErrUnknownFolder, updated.Folder)
	}

	for i, r := range s.saved {
		if r.ID == updated.ID {
			s.saved[i] = updated
			return s.persistRecipes()
		}
	}
	return nil
}

// Get returns a saved recipe by id.
func (s *Store) Get(id string) (SavedRecipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.saved {
		if r.ID == id {
			return r, true
		}
	}
	return SavedRecipe{}, false
}

// List returns the saved recipes matching the filter, most recent
// first. The folder filter substitutes the default folder for recipes
// with no folder set; the search query matches name, description and
// user notes case-insensitively. Both conditions AND together.
func (s *Store) List(f Filter) []SavedRecipe {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(f.SearchQuery))

	var out []SavedRecipe
	for _, r := range s.saved {
		if f.Folder != "" && resolveFolder(r.Folder) != f.Folder {
			continue
		}
		if query != "" && !matchesQuery(r, query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Folders returns the folder list in order.
func (s *Store) Folders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.folders))
	copy(out, s.folders)
	return out
}

// CreateFolder appends a folder. An existing name (exact string match)
// is a silent no-op.
func (s *Store) CreateFolder(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if contains(s.folders, name) {
		return nil
	}
	s.folders = append(s.folders, name)
	return s.persistFolders()
}

// DeleteFolder removes a folder and reassigns its member recipes to the
// default folder in the same logical step, so no recipe is ever left
// pointing at a folder that no longer exists. Deleting the default
// folder is rejected.
func (s *Store) DeleteFolder(name string) error {
	if name == DefaultFolder {
		return ErrDefaultFolder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !contains(s.folders, name) {
		return nil
	}

	kept := s.folders[:0]
	for _, f := range s.folders {
		if f != name {
			kept = append(kept, f)
		}
	}
	s.folders = kept

	for i := range s.saved {
		if s.saved[i].Folder == name {
			s.saved[i].Folder = DefaultFolder
		}
	}

	if err := s.persistFolders(); err != nil {
		return err
	}
	return s.persistRecipes()
}

// nextID builds a collision-safe id: millisecond timestamp plus a
// random base36 suffix, unique even for rapid repeated saves within the
// same millisecond. Caller holds the lock.
func (s *Store) nextID() string {
	now := time.Now().UnixMilli()
	if now < s.lastID {
		now = s.lastID
	}
	s.lastID = now
	return strconv.FormatInt(now, 10) + randomSuffix(9)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}

// formatFailureNotes renders the failure points as a bulleted warning
// block. This is a one-time copy at save time, not a live link.
func formatFailureNotes(points []string) string {
	if len(points) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("⚠️ 避坑指南：")
	for _, p := range points {
		b.WriteString("\n• ")
		b.WriteString(p)
	}
	return b.String()
}

func resolveFolder(folder string) string {
	if folder == "" {
		return DefaultFolder
	}
	return folder
}

func matchesQuery(r SavedRecipe, query string) bool {
	return strings.Contains(strings.ToLower(r.Name), query) ||
		strings.Contains(strings.ToLower(r.Description), query) ||
		strings.Contains(strings.ToLower(r.UserNotes), query)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// persistRecipes writes the recipe collection. Caller holds the lock.
func (s *Store) persistRecipes() error {
	return s.blobs.Set(store.KeySavedRecipes, s.saved)
}

// persistFolders writes the folder list. Caller holds the lock.
func (s *Store) persistFolders() error {
	return s.blobs.Set(store.KeyFolders, s.folders)
}
