// Package app wires the stores and the provider client into the
// operations the UI triggers.
package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync/atomic"

	"github.com/smartfridge/fridgechef/internal/errors"
	"github.com/smartfridge/fridgechef/internal/favorites"
	"github.com/smartfridge/fridgechef/internal/inventory"
	"github.com/smartfridge/fridgechef/internal/services/ai"
	"github.com/smartfridge/fridgechef/internal/services/provider"
	"github.com/smartfridge/fridgechef/internal/services/recipe"
	"github.com/smartfridge/fridgechef/internal/settings"
)

// ErrBusy is returned when a generation is triggered while another one
// is still running. Callers treat it as "already in progress", not as a
// failure to report.
var ErrBusy = stderrors.New("生成正在进行中")

// genericErrorMessage is shown for failures that carry no classified
// user-facing message of their own.
const genericErrorMessage = "生成菜谱失败，请检查网络连接或稍后重试。"

// App exposes the application operations over the wired stores.
type App struct {
	Settings  *settings.Store
	Inventory *inventory.Store
	Favorites *favorites.Store
	Provider  *provider.Client

	log  *slog.Logger
	busy atomic.Bool
}

// New wires an App. All collaborators must be non-nil.
func New(st *settings.Store, inv *inventory.Store, fav *favorites.Store, prov *provider.Client, log *slog.Logger) *App {
	return &App{
		Settings:  st,
		Inventory: inv,
		Favorites: fav,
		Provider:  prov,
		log:       log,
	}
}

// TestConnection verifies the configured endpoint by listing its
// models.
func (a *App) TestConnection(ctx context.Context) ([]provider.ModelOption, error) {
	cfg, err := a.Settings.Load()
	if err != nil {
		return nil, err
	}
	return a.Provider.TestConnection(ctx, cfg)
}

// Generate runs one recipe generation over the current inventory. Only
// one generation runs at a time: a second trigger while the first is in
// flight returns ErrBusy without touching the provider.
func (a *App) Generate(ctx context.Context, prefs ai.Preferences) ([]recipe.Recipe, error) {
	if !a.busy.CompareAndSwap(false, true) {
		a.log.Debug("generation already running, ignoring trigger")
		return nil, ErrBusy
	}
	defer a.busy.Store(false)

	cfg, err := a.Settings.Load()
	if err != nil {
		return nil, err
	}
	return a.Provider.Generate(ctx, a.Inventory.List(), prefs, cfg)
}

// SaveRecipe promotes a generated recipe into the favorites.
func (a *App) SaveRecipe(r recipe.Recipe) (favorites.SavedRecipe, error) {
	return a.Favorites.Save(r)
}

// UserMessage is the single funnel from an operation error to the text
// shown to the user. Classified errors carry their own message; anything
// else collapses into one generic line, with the detail left to the log.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if stderrors.Is(err, ErrBusy) {
		return "正在生成中，请稍候。"
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return genericErrorMessage
}
