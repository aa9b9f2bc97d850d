// Package store provides the key-value blob persistence used by the
// inventory, settings and favorites stores. Values are opaque JSON
// documents keyed by a fixed string name.
package store

// Storage keys. One independent blob per collection.
const (
	KeyIngredients  = "smart_fridge_ingredients"
	KeyAppSettings  = "smart_fridge_app_settings"
	KeySavedRecipes = "smart_fridge_saved_recipes"
	KeyFolders      = "smart_fridge_folders"
)

// Store is a synchronous key-value blob store of JSON-serializable
// values. Get reports found=false both for a missing key and for a
// stored value that fails to decode — a corrupt blob is discarded and
// the caller falls back to its in-memory default.
type Store interface {
	Get(key string, v any) (found bool, err error)
	Set(key string, v any) error
}
