package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/smartfridge/fridgechef/internal/app"
	"github.com/smartfridge/fridgechef/internal/config"
	"github.com/smartfridge/fridgechef/internal/favorites"
	"github.com/smartfridge/fridgechef/internal/httpclient"
	"github.com/smartfridge/fridgechef/internal/inventory"
	"github.com/smartfridge/fridgechef/internal/logger"
	"github.com/smartfridge/fridgechef/internal/services/ai"
	"github.com/smartfridge/fridgechef/internal/services/provider"
	"github.com/smartfridge/fridgechef/internal/services/recipe"
	"github.com/smartfridge/fridgechef/internal/settings"
	"github.com/smartfridge/fridgechef/internal/store"
	"github.com/smartfridge/fridgechef/internal/telemetry"
)

func main() {
	ctx := context.Background()

	cfg := config.MustLoad()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName, cfg.ServiceVersion, cfg.Env, cfg.OTLPEndpoint, nil)
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	logger := logger.New(cfg.Env)
	slog.SetDefault(logger)

	blobs, err := store.NewFileStore(cfg.DataDir, logger)
	if err != nil {
		log.Fatalf("Failed to open data dir: %v", err)
	}

	settingsStore := settings.NewStore(blobs)
	inv, err := inventory.NewStore(blobs, logger)
	if err != nil {
		log.Fatalf("Failed to load inventory: %v", err)
	}
	fav, err := favorites.NewStore(blobs, logger)
	if err != nil {
		log.Fatalf("Failed to load favorites: %v", err)
	}

	prov := provider.NewClient(httpclient.NewInstrumentedClient(cfg.RequestTimeout), logger)
	a := app.New(settingsStore, inv, fav, prov, logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "settings":
		err = runSettings(a, os.Args[2:])
	case "models":
		err = runModels(ctx, a)
	case "inventory":
		err = runInventory(a, os.Args[2:])
	case "generate":
		err = runGenerate(ctx, a, os.Args[2:])
	case "favorites":
		err = runFavorites(a, os.Args[2:])
	case "folders":
		err = runFolders(a, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		fmt.Fprintln(os.Stderr, app.UserMessage(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: fridgechef <command> [flags]

commands:
  settings  show | set -url <url> -key <key> [-model <model>]
  models    list models behind the configured endpoint
  inventory add -name <name> -category <分类> | remove -id <id> | list
  generate  [-cuisine <菜系>] [-taste <口味>] [-notes <备注>] [-must <id,id>] [-save <n>]
  favorites list [-folder <清单>] [-search <关键词>] | save -file <recipe.json> |
            remove -id <id> | move -id <id> -folder <清单> | notes -id <id> -notes <文字>
  folders   list | create -name <清单> | delete -name <清单>`)
}

func runSettings(a *app.App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("settings: expected show or set")
	}

	switch args[0] {
	case "show":
		cfg, err := a.Settings.Load()
		if err != nil {
			return err
		}
		fmt.Printf("apiUrl: %s\n", cfg.APIURL)
		fmt.Printf("apiKey: %s\n", maskKey(cfg.APIKey))
		fmt.Printf("model:  %s\n", cfg.Model)
		return nil

	case "set":
		fs := flag.NewFlagSet("settings set", flag.ExitOnError)
		url := fs.String("url", "", "API base URL")
		key := fs.String("key", "", "API key")
		model := fs.String("model", "", "model name")
		fs.Parse(args[1:])

		cfg, err := a.Settings.Load()
		if err != nil {
			return err
		}
		if *url != "" {
			cfg.APIURL = *url
		}
		if *key != "" {
			cfg.APIKey = *key
		}
		if *model != "" {
			cfg.Model = *model
		}
		if err := a.Settings.Save(cfg); err != nil {
			return err
		}
		fmt.Println("设置已保存。")
		return nil

	default:
		return fmt.Errorf("settings: unknown subcommand %q", args[0])
	}
}

func runModels(ctx context.Context, a *app.App) error {
	models, err := a.TestConnection(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("连接成功，共 %d 个可用模型：\n", len(models))
	for _, m := range models {
		if m.DisplayName != "" && m.DisplayName != m.Name {
			fmt.Printf("  %s (%s)\n", m.Name, m.DisplayName)
		} else {
			fmt.Printf("  %s\n", m.Name)
		}
	}
	return nil
}

func runInventory(a *app.App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("inventory: expected add, remove or list")
	}

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("inventory add", flag.ExitOnError)
		name := fs.String("name", "", "ingredient name")
		category := fs.String("category", string(inventory.CategoryRefrigerated), "category")
		fs.Parse(args[1:])

		if *name == "" {
			return fmt.Errorf("inventory add: -name is required")
		}
		cat := inventory.Category(*category)
		if !cat.Valid() {
			return fmt.Errorf("inventory add: unknown category %q (valid: %s)", *category, joinCategories())
		}

		ing, err := a.Inventory.Add(*name, cat)
		if err != nil {
			return err
		}
		fmt.Printf("已添加 %s [%s] (id %s)\n", ing.Name, ing.Category, ing.ID)
		return nil

	case "remove":
		fs := flag.NewFlagSet("inventory remove", flag.ExitOnError)
		id := fs.String("id", "", "ingredient id")
		fs.Parse(args[1:])

		if *id == "" {
			return fmt.Errorf("inventory remove: -id is required")
		}
		return a.Inventory.Remove(*id)

	case "list":
		for _, cat := range inventory.Categories {
			items := a.Inventory.ListByCategory(cat)
			if len(items) == 0 {
				continue
			}
			fmt.Printf("%s:\n", cat)
			for _, ing := range items {
				fmt.Printf("  %s  %s\n", ing.ID, ing.Name)
			}
		}
		return nil

	default:
		return fmt.Errorf("inventory: unknown subcommand %q", args[0])
	}
}

func runGenerate(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	cuisine := fs.String("cuisine", "", "preferred cuisine")
	taste := fs.String("taste", "", "preferred taste")
	notes := fs.String("notes", "", "additional notes")
	must := fs.String("must", "", "comma-separated ingredient ids that must be used")
	save := fs.Int("save", 0, "save the n-th suggested recipe (1-based)")
	fs.Parse(args)

	prefs := ai.Preferences{
		Cuisine:         *cuisine,
		Taste:           *taste,
		AdditionalNotes: *notes,
	}
	if *must != "" {
		for _, id := range strings.Split(*must, ",") {
			if id = strings.TrimSpace(id); id != "" {
				prefs.MustUseIngredientIDs = append(prefs.MustUseIngredientIDs, id)
			}
		}
	}

	recipes, err := a.Generate(ctx, prefs)
	if err != nil {
		return err
	}

	for i, r := range recipes {
		fmt.Printf("%d. %s（%s，%s）\n", i+1, r.Name, r.Difficulty, r.CookingTime)
		if r.Description != "" {
			fmt.Printf("   %s\n", r.Description)
		}
		for j, step := range r.Steps {
			fmt.Printf("   %d) %s\n", j+1, step)
		}
		for _, p := range r.FailurePoints {
			fmt.Printf("   ⚠️ %s\n", p)
		}
	}

	if *save > 0 {
		if *save > len(recipes) {
			return fmt.Errorf("generate: -save %d out of range, got %d recipes", *save, len(recipes))
		}
		saved, err := a.SaveRecipe(recipes[*save-1])
		if err != nil {
			return err
		}
		fmt.Printf("已收藏 %s (id %s)\n", saved.Name, saved.ID)
	}
	return nil
}

func runFavorites(a *app.App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("favorites: expected list, save, remove, move or notes")
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("favorites list", flag.ExitOnError)
		folder := fs.String("folder", "", "filter to one folder")
		search := fs.String("search", "", "case-insensitive search query")
		fs.Parse(args[1:])

		for _, r := range a.Favorites.List(favorites.Filter{Folder: *folder, SearchQuery: *search}) {
			fmt.Printf("%s  [%s]  %s\n", r.ID, r.Folder, r.Name)
			if r.UserNotes != "" {
				fmt.Printf("    %s\n", strings.ReplaceAll(r.UserNotes, "\n", "\n    "))
			}
		}
		return nil

	case "save":
		fs := flag.NewFlagSet("favorites save", flag.ExitOnError)
		file := fs.String("file", "", `recipe JSON file ("-" for stdin)`)
		fs.Parse(args[1:])

		if *file == "" {
			return fmt.Errorf("favorites save: -file is required")
		}
		r, err := readRecipe(*file)
		if err != nil {
			return err
		}
		saved, err := a.SaveRecipe(r)
		if err != nil {
			return err
		}
		fmt.Printf("已收藏 %s (id %s)\n", saved.Name, saved.ID)
		return nil

	case "remove":
		fs := flag.NewFlagSet("favorites remove", flag.ExitOnError)
		id := fs.String("id", "", "saved recipe id")
		fs.Parse(args[1:])

		if *id == "" {
			return fmt.Errorf("favorites remove: -id is required")
		}
		return a.Favorites.Remove(*id)

	case "move":
		fs := flag.NewFlagSet("favorites move", flag.ExitOnError)
		id := fs.String("id", "", "saved recipe id")
		folder := fs.String("folder", "", "target folder")
		fs.Parse(args[1:])

		if *id == "" || *folder == "" {
			return fmt.Errorf("favorites move: -id and -folder are required")
		}
		saved, ok := a.Favorites.Get(*id)
		if !ok {
			return fmt.Errorf("favorites move: no saved recipe with id %s", *id)
		}
		saved.Folder = *folder
		return a.Favorites.Update(saved)

	case "notes":
		fs := flag.NewFlagSet("favorites notes", flag.ExitOnError)
		id := fs.String("id", "", "saved recipe id")
		notes := fs.String("notes", "", "replacement user notes")
		fs.Parse(args[1:])

		if *id == "" {
			return fmt.Errorf("favorites notes: -id is required")
		}
		saved, ok := a.Favorites.Get(*id)
		if !ok {
			return fmt.Errorf("favorites notes: no saved recipe with id %s", *id)
		}
		saved.UserNotes = *notes
		return a.Favorites.Update(saved)

	default:
		return fmt.Errorf("favorites: unknown subcommand %q", args[0])
	}
}

func runFolders(a *app.App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("folders: expected list, create or delete")
	}

	switch args[0] {
	case "list":
		for _, f := range a.Favorites.Folders() {
			count := len(a.Favorites.List(favorites.Filter{Folder: f}))
			fmt.Printf("%s (%d)\n", f, count)
		}
		return nil

	case "create":
		fs := flag.NewFlagSet("folders create", flag.ExitOnError)
		name := fs.String("name", "", "folder name")
		fs.Parse(args[1:])

		if *name == "" {
			return fmt.Errorf("folders create: -name is required")
		}
		return a.Favorites.CreateFolder(*name)

	case "delete":
		fs := flag.NewFlagSet("folders delete", flag.ExitOnError)
		name := fs.String("name", "", "folder name")
		fs.Parse(args[1:])

		if *name == "" {
			return fmt.Errorf("folders delete: -name is required")
		}
		return a.Favorites.DeleteFolder(*name)

	default:
		return fmt.Errorf("folders: unknown subcommand %q", args[0])
	}
}

func readRecipe(file string) (recipe.Recipe, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to read recipe: %w", err)
	}

	var r recipe.Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to decode recipe: %w", err)
	}
	return r, nil
}

func maskKey(key string) string {
	if key == "" {
		return "(未设置)"
	}
	runes := []rune(key)
	if len(runes) <= 8 {
		return "****"
	}
	return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
}

func joinCategories() string {
	names := make([]string, len(inventory.Categories))
	for i, c := range inventory.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, " ")
}
