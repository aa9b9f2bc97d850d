// Package settings holds the user-edited provider connection settings.
package settings

import (
	"strings"

	"github.com/smartfridge/fridgechef/internal/store"
)

// AppSettings is the persisted connection configuration. One instance,
// edited through the UI only.
type AppSettings struct {
	APIURL string `json:"apiUrl"`
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

// Defaults returns the built-in settings used before the user configures
// anything.
func Defaults() AppSettings {
	return AppSettings{
		APIURL: "https://generativelanguage.googleapis.com",
		APIKey: "",
		Model:  "gemini-2.0-flash-exp",
	}
}

// IsComplete reports whether both the endpoint and the credential are
// set (after trimming). The model may legitimately be blank until the
// user picks one from the listing.
func (s AppSettings) IsComplete() bool {
	return strings.TrimSpace(s.APIURL) != "" && strings.TrimSpace(s.APIKey) != ""
}

// Store loads and saves AppSettings through the blob store.
type Store struct {
	blobs store.Store
}

func NewStore(blobs store.Store) *Store {
	return &Store{blobs: blobs}
}

// Load returns the persisted settings merged over the defaults: any
// field absent from the stored blob keeps its default value. A missing
// or corrupt blob yields the defaults unchanged — the scratch value is
// thrown away unless the blob decoded fully, so a blob that fails
// mid-decode cannot leak its prefix into the result.
func (s *Store) Load() (AppSettings, error) {
	merged := Defaults()
	found, err := s.blobs.Get(store.KeyAppSettings, &merged)
	if err != nil || !found {
		return Defaults(), err
	}
	return merged, nil
}

// Save persists the settings as-is.
func (s *Store) Save(settings AppSettings) error {
	return s.blobs.Set(store.KeyAppSettings, settings)
}
