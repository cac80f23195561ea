// Command seed-db loads the menu (dishes and option groups) from a JSON
// file and provisions a default API key. Safe to re-run: everything is
// upserted.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"comanda/internal/repository"
)

type menuJSON struct {
	Dishes       []dishJSON        `json:"dishes"`
	OptionGroups []optionGroupJSON `json:"optionGroups"`
}

type dishJSON struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	BasePrice      string   `json:"basePrice"`
	Category       string   `json:"category"`
	OptionGroupIDs []string `json:"optionGroupIds"`
}

type optionGroupJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []struct {
		Value      string `json:"value"`
		Label      string `json:"label"`
		ExtraPrice string `json:"extraPrice"`
	} `json:"items"`
}

const (
	upsertDishSQL = `INSERT INTO dishes (id, name, base_price, category, option_group_ids)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			base_price = EXCLUDED.base_price,
			category = EXCLUDED.category,
			option_group_ids = EXCLUDED.option_group_ids,
			updated_at = now()`

	upsertOptionGroupSQL = `INSERT INTO option_groups (id, name, items)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			items = EXCLUDED.items,
			updated_at = now()`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			name = EXCLUDED.name,
			scopes = EXCLUDED.scopes,
			active = EXCLUDED.active`
)

func main() {
	var (
		databaseURL  string
		menuFile     string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "db/seed/menu.json", "path to menu JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or COMANDA_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or COMANDA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("COMANDA_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or COMANDA_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("COMANDA_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, menuFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, menuFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedMenu(ctx, pool, menuFile); err != nil {
		return errors.Wrap(err, "seed menu")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedMenu(ctx context.Context, pool *pgxpool.Pool, menuFile string) error {
	slog.Info("reading menu file", slog.String("path", menuFile))

	data, err := os.ReadFile(menuFile)
	if err != nil {
		return errors.Wrap(err, "read menu file")
	}

	var menu menuJSON
	if err := json.Unmarshal(data, &menu); err != nil {
		return errors.Wrap(err, "parse menu JSON")
	}

	slog.Info("upserting option groups", slog.Int("count", len(menu.OptionGroups)))

	for _, g := range menu.OptionGroups {
		items, err := json.Marshal(g.Items)
		if err != nil {
			return errors.Wrapf(err, "marshal items of group %s", g.ID)
		}
		if _, err := pool.Exec(ctx, upsertOptionGroupSQL, g.ID, g.Name, items); err != nil {
			return errors.Wrapf(err, "upsert option group %s", g.ID)
		}

		slog.Info("upserted option group", slog.String("id", g.ID), slog.String("name", g.Name))
	}

	slog.Info("upserting dishes", slog.Int("count", len(menu.Dishes)))

	for _, d := range menu.Dishes {
		if _, err := pool.Exec(ctx, upsertDishSQL,
			d.ID, d.Name, d.BasePrice, d.Category, d.OptionGroupIDs,
		); err != nil {
			return errors.Wrapf(err, "upsert dish %s", d.ID)
		}

		slog.Info("upserted dish", slog.String("id", d.ID), slog.String("name", d.Name))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	scopes := []string{"create_order", "update_order", "delete_order"}
	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default staff key", scopes, true,
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default staff key"))

	return nil
}
