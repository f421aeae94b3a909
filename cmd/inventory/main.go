package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/mmenanno/inventory-browser/internal/config"
	"github.com/mmenanno/inventory-browser/internal/constants"
	"github.com/mmenanno/inventory-browser/internal/items"
	"github.com/mmenanno/inventory-browser/internal/server"
	"github.com/mmenanno/inventory-browser/internal/stats"
	"github.com/mmenanno/inventory-browser/internal/store"
	"github.com/mmenanno/inventory-browser/internal/watcher"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	configPath string
	cfg        *config.Config
	itemStore  store.ItemStore
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inventory Browser - REST API over a flat item collection",
		Long: `Inventory Browser serves an item collection stored in a JSON file
(or a SQLite table) over a small REST API, with a cached summary of
item count, average price and category count.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Auto-generate config file if it doesn't exist
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				log.Printf("Config file not found, creating default at %s", configPath)
				if err := cfg.Save(configPath); err != nil {
					log.Printf("Warning: failed to save default config: %v", err)
				}
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if itemStore != nil {
				return itemStore.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides config)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Display item statistics",
		RunE:  runStats,
	}

	itemsCmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and edit the item collection",
	}

	itemsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		RunE:  runItemsList,
	}
	itemsListCmd.Flags().StringP("query", "q", "", "Case-insensitive name filter")
	itemsListCmd.Flags().IntP("limit", "l", 0, "Maximum number of items to print (0 for all)")

	itemsGetCmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show a single item",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemsGet,
	}

	itemsAddCmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item",
		RunE:  runItemsAdd,
	}
	itemsAddCmd.Flags().String("name", "", "Item name")
	itemsAddCmd.Flags().String("category", "", "Item category")
	itemsAddCmd.Flags().Float64("price", 0, "Item price")
	itemsAddCmd.MarkFlagRequired("name")
	itemsAddCmd.MarkFlagRequired("category")
	itemsAddCmd.MarkFlagRequired("price")

	itemsImportCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the SQLite item table with the contents of a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemsImport,
	}

	itemsCmd.AddCommand(itemsListCmd, itemsGetCmd, itemsAddCmd, itemsImportCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configValidateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE:  runConfigValidate,
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}

	configCmd.AddCommand(configValidateCmd, configShowCmd)

	rootCmd.AddCommand(serveCmd, statsCmd, itemsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore() (store.ItemStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open item store: %w", err)
	}
	itemStore = st
	return st, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}

	st, err := openStore()
	if err != nil {
		return err
	}

	ttl := cfg.StatsCacheTTL
	if ttl == 0 {
		ttl = constants.DefaultStatsCacheTTLSeconds * time.Second
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cache := stats.NewCache(st, stats.WithTTL(ttl), stats.WithRegisterer(reg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watchStore(ctx, cfg, cache); err != nil {
		return err
	}

	srv := server.NewServer(st, cache, cfg, reg, Version)

	log.Printf("Starting Inventory Browser v%s on port %d", Version, cfg.Port)
	return srv.Run(ctx)
}

// watchStore invalidates cache whenever the store's files change on disk,
// including writes from other processes such as the items subcommands.
// It returns once the watch is in place; the watcher stops with ctx.
func watchStore(ctx context.Context, cfg *config.Config, cache *stats.Cache) error {
	if !cfg.WatchDataFile {
		return nil
	}

	paths := store.ChangePaths(cfg)
	w, err := watcher.New(cache.Invalidate, paths...)
	if err != nil {
		return fmt.Errorf("failed to watch item store: %w", err)
	}

	go func() {
		if err := w.Run(ctx); err != nil {
			log.Printf("Item store watcher stopped: %v", err)
		}
	}()

	log.Printf("Watching %s for changes", paths[0])
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	snap, _, err := stats.NewCache(st).Get(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to calculate stats: %w", err)
	}

	fmt.Printf("\n=== Inventory Statistics ===\n\n")
	fmt.Printf("Total Items:    %d\n", snap.Total)
	fmt.Printf("Average Price:  %.2f\n", snap.AveragePrice)
	fmt.Printf("Categories:     %d\n", snap.CategoryCount)
	fmt.Printf("Computed At:    %s\n", snap.ComputedAt.Format(time.RFC3339))
	fmt.Println()
	return nil
}

func runItemsList(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := openStore()
	if err != nil {
		return err
	}

	list, err := st.ReadAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read items: %w", err)
	}

	results := items.Filter(list, query)
	if limit > 0 {
		results = items.Limit(results, limit)
	}

	for _, item := range results {
		fmt.Printf("%-15d %-40s %-20s %12.2f\n", item.ID, item.Name, item.Category, item.Price)
	}
	return nil
}

func runItemsGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}

	st, err := openStore()
	if err != nil {
		return err
	}

	item, err := st.Get(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get item %d: %w", id, err)
	}

	return printJSON(item)
}

func runItemsAdd(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	category, _ := cmd.Flags().GetString("category")
	price, _ := cmd.Flags().GetFloat64("price")

	newItem, err := items.Validate(map[string]any{
		"name":     name,
		"category": category,
		"price":    price,
	})
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}

	created, err := st.Create(cmd.Context(), newItem)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	log.Printf("Created item %d", created.ID)
	return printJSON(created)
}

func runItemsImport(cmd *cobra.Command, args []string) error {
	if cfg.StoreBackend != constants.BackendSQLite {
		return fmt.Errorf("import requires store_backend: %s", constants.BackendSQLite)
	}

	list, err := store.NewJSONStore(args[0]).ReadAll(cmd.Context())
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}

	sqlStore, ok := st.(*store.SQLiteStore)
	if !ok {
		return fmt.Errorf("configured store does not support import")
	}

	if err := sqlStore.Import(cmd.Context(), list); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	log.Printf("Imported %d items from %s", len(list), args[0])
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration is INVALID: %v\n", err)
		return err
	}

	fmt.Println("Configuration is valid")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	return printJSON(cfg)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	fmt.Println(string(data))
	return nil
}
