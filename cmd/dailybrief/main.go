package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dailybrief/dailybrief/internal/classify"
	"github.com/dailybrief/dailybrief/internal/collect"
	"github.com/dailybrief/dailybrief/internal/config"
	"github.com/dailybrief/dailybrief/internal/logger"
	"github.com/dailybrief/dailybrief/internal/pipeline"
	"github.com/dailybrief/dailybrief/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dailybrief",
	Short:   "Daily tech news briefings",
	Long:    "dailybrief collects, translates, classifies and deduplicates tech news into a daily Chinese briefing with trend forecasts.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		return logger.Init(level, cfg.Logging.File)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(peopleCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dailybrief", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/dailybrief/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds and the LLM provider, then set an API key")
		fmt.Println("(DEEPSEEK_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY).")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n", store.Today())
		if stats.LastRunDate != "" {
			fmt.Printf("Last run: %s\n", stats.LastRunDate)
		} else {
			fmt.Println("Last run: never")
		}
		fmt.Println("\nArticles:")
		fmt.Printf("  Collected: %d\n", stats.ArticleCount)
		fmt.Printf("  Processed: %d\n", stats.ProcessedCount)
		fmt.Println("\nOutput:")
		fmt.Printf("  Predictions: %d\n", stats.PredictionCount)
		fmt.Printf("  Briefings: %d\n", stats.BriefingCount)
		fmt.Printf("  Watched people: %d\n", stats.PeopleCount)
		return nil
	},
}

// --- collect command ---

var collectDate string

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect articles from configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		runDate := collectDate
		if runDate == "" {
			runDate = store.Yesterday()
		}
		fmt.Printf("Collecting articles published on %s...\n", runDate)

		collector := collect.NewCollector(cfg, s)
		result, err := collector.Collect(context.Background(), runDate)
		if err != nil {
			return err
		}

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New articles: %d\n", result.NewArticles)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)

		if len(result.Sources) > 0 {
			fmt.Println("\nArticles by source:")
			// Sort sources by count descending
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, src := range sorted {
				fmt.Printf("  %s: %d\n", src.key, src.val)
			}
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectDate, "date", "", "Run date (YYYY-MM-DD, default yesterday)")
}

// --- run command ---

var (
	runDate string
	dryRun  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> fetch -> process -> predict -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		date := runDate
		if date == "" {
			// Briefings cover the previous day's news.
			date = store.Yesterday()
		}

		pipe, err := pipeline.New(cfg, s)
		if err != nil {
			return err
		}

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(date)
		} else {
			result = pipe.Run(context.Background(), date)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/5: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("pipeline failed for %s", date)
		}
		if !dryRun {
			fmt.Printf("\nBriefing for %s complete.\n", date)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "Run date (YYYY-MM-DD, default yesterday)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

// --- cache command ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the classification cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show classification cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := classify.OpenCache(cfg.CachePath(), cfg.Processing.CacheMaxSize)
		fmt.Printf("Cache file: %s\n", cache.Path())
		fmt.Printf("Entries: %d (max %d)\n", cache.Len(), cfg.Processing.CacheMaxSize)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the classification cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.CachePath()
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("Cache is already empty.")
				return nil
			}
			return err
		}
		fmt.Printf("Removed %s\n", path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// --- people command ---

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Manage the key-people watchlist",
}

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched people",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		people, err := s.GetAllPeople()
		if err != nil {
			return err
		}
		if len(people) == 0 {
			fmt.Println("No people watched. Add one with: dailybrief people add")
			return nil
		}

		fmt.Println("Watched people:")
		fmt.Println()
		for _, p := range people {
			icon := " "
			if p.Active {
				icon = "*"
			}
			fmt.Printf("  [%d] %s %s", p.ID, icon, p.Name)
			if p.NameZh != "" {
				fmt.Printf(" (%s)", p.NameZh)
			}
			fmt.Println()
		}
		return nil
	},
}

var peopleAddCmd = &cobra.Command{
	Use:   "add [name] [chinese-name]",
	Short: "Add a person to the watchlist",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		name := args[0]
		nameZh := ""
		if len(args) > 1 {
			nameZh = args[1]
		}

		id, err := s.AddPerson(name, nameZh)
		if err != nil {
			return err
		}
		fmt.Printf("Added person [%d]: %s\n", id, name)
		return nil
	},
}

var peopleToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Toggle a person's active state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid person ID: %s", args[0])
		}
		if err := s.TogglePerson(id); err != nil {
			return err
		}
		fmt.Printf("Toggled person [%d]\n", id)
		return nil
	},
}

var peopleRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a person from the watchlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid person ID: %s", args[0])
		}
		if err := s.RemovePerson(id); err != nil {
			return err
		}
		fmt.Printf("Removed person [%d]\n", id)
		return nil
	},
}

func init() {
	peopleCmd.AddCommand(peopleListCmd)
	peopleCmd.AddCommand(peopleAddCmd)
	peopleCmd.AddCommand(peopleToggleCmd)
	peopleCmd.AddCommand(peopleRemoveCmd)
}

func openStore() (*store.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "dailybrief.db"))
}
