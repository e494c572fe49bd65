// Command aide is a personal assistant for the terminal. It enriches
// questions with live context (weather, news, stocks, web search, music),
// answers through a model provider chain with fallback, and manages local
// calendar and bookmark collections through chat commands.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/normanking/aide/internal/assistant"
	"github.com/normanking/aide/internal/command"
	"github.com/normanking/aide/internal/config"
	"github.com/normanking/aide/internal/enricher"
	"github.com/normanking/aide/internal/gateway"
	"github.com/normanking/aide/internal/llm"
	"github.com/normanking/aide/internal/logging"
	"github.com/normanking/aide/internal/store"
	"github.com/normanking/aide/pkg/types"
)

const version = "0.3.1"

var (
	cfgPath string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aide",
		Short: "Aide - personal assistant with context-aware chat",
		Long: `Aide is a personal assistant for the terminal. It classifies each
question, pulls in live context (weather, news, stocks, web search,
music), and answers through a model provider chain with automatic
fallback. Calendar events and bookmarks live in a local database and
can be managed directly from chat.

Start a conversation:  aide
One-shot question:     aide ask "what's the weather in Paris?"
Configuration:         aide config show`,
		RunE: runChat,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.aide/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Aide v%s\n", version)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE:  runChat,
	})

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(bookmarksCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// APPLICATION WIRING
// ═══════════════════════════════════════════════════════════════════════════════

// app bundles everything a command needs after configuration is loaded.
type app struct {
	cfg       *config.Config
	blobs     *store.Blobs
	events    *store.Events
	bookmarks *store.Bookmarks
	prefs     *store.Prefs
	conv      *assistant.Conversation
	registry  *llm.Registry
	closeLog  func() error
}

func (a *app) Close() {
	if a.blobs != nil {
		a.blobs.Close()
	}
	if a.closeLog != nil {
		a.closeLog()
	}
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

func initApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}
	closeLog, err := logging.Setup(cfg.Logging)
	if err != nil {
		return nil, err
	}

	blobs, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	events := store.NewEvents(blobs)
	bookmarks := store.NewBookmarks(blobs)
	prefs := store.NewPrefs(blobs)

	gw := cfg.Gateways
	weather := gateway.NewWeather(gw.Weather.Endpoint, gw.Weather.APIKey)
	news := gateway.NewNews(gw.News.Endpoint, gw.News.APIKey)
	stocks := gateway.NewStocks(gw.Stocks.Endpoint, gw.Stocks.APIKey)
	search := gateway.NewSearch(gw.Search.SearXNGEndpoint, gw.Search.ExaEndpoint, gw.Search.ExaAPIKey)
	music := gateway.NewMusic(gw.Music.AuthEndpoint, gw.Music.APIEndpoint, gw.Music.ClientID, gw.Music.ClientSecret)

	enr := enricher.New(weather, news, stocks, search, music, events, bookmarks, prefs)
	exec := command.NewExecutor(events, bookmarks, stocks)

	registry := llm.NewRegistry()
	primary, alternate := buildProviders(cfg, registry)

	conv := assistant.New(enr, exec, prefs, terminalNotifier{}, primary, alternate)

	return &app{
		cfg:       cfg,
		blobs:     blobs,
		events:    events,
		bookmarks: bookmarks,
		prefs:     prefs,
		conv:      conv,
		registry:  registry,
		closeLog:  closeLog,
	}, nil
}

// buildProviders constructs the configured model providers, wrapped with
// call metrics. The configured default provider leads the chain; the other
// one is the fallback.
func buildProviders(cfg *config.Config, registry *llm.Registry) (primary, alternate llm.Provider) {
	build := func(name string) llm.Provider {
		pc := llm.DefaultConfig(name)
		if c, ok := cfg.LLM.Providers[name]; ok {
			if c.Endpoint != "" {
				pc.Endpoint = c.Endpoint
			}
			if c.Model != "" {
				pc.Model = c.Model
			}
			pc.APIKey = c.APIKey
			pc.UserID = c.UserID
		}

		var p llm.Provider
		switch name {
		case "playai":
			p = llm.NewPlayAIProvider(pc)
		default:
			p = llm.NewGeminiProvider(pc)
		}
		return registry.Register(p)
	}

	gemini := build("gemini")
	playai := build("playai")

	if cfg.LLM.DefaultProvider == "playai" {
		return playai, gemini
	}
	return gemini, playai
}

// terminalNotifier prints failure notices to stderr, styled so they stand
// apart from the conversation itself.
type terminalNotifier struct{}

func (terminalNotifier) Notify(title, body string) {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	fmt.Fprintf(os.Stderr, "%s\n", style.Render(fmt.Sprintf("⚠ %s: %s", title, body)))
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHAT REPL
// ═══════════════════════════════════════════════════════════════════════════════

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func runChat(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Aide v%s. Type a question, /retry to retry, /quit to exit.\n\n", version)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you» ") + " ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/stats":
			printProviderStats(a.registry)
			continue
		case "/history":
			printHistory(a.conv.Messages())
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		var msg types.Message
		if line == "/retry" {
			msg, err = a.conv.RetryLast(ctx)
		} else {
			msg, err = a.conv.Send(ctx, line)
		}
		cancel()

		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			continue
		}

		printMessages(trailingSystemAnd(a.conv.Messages(), msg))
	}
	return scanner.Err()
}

// trailingSystemAnd picks the final reply plus any system messages the turn
// produced after the user's input (provider switches, command results).
func trailingSystemAnd(transcript []types.Message, reply types.Message) []types.Message {
	var out []types.Message
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == types.RoleUser {
			break
		}
		out = append([]types.Message{transcript[i]}, out...)
	}
	if len(out) == 0 {
		out = []types.Message{reply}
	}
	return out
}

func printMessages(msgs []types.Message) {
	for _, m := range msgs {
		printMessage(m)
	}
}

func printMessage(m types.Message) {
	switch m.Role {
	case types.RoleSystem:
		fmt.Println(systemStyle.Render("· " + m.Text))
	case types.RoleAssistant:
		if m.IsError {
			fmt.Println(errorStyle.Render(m.Text))
			return
		}
		fmt.Println(assistantStyle.Render("aide»"))
		fmt.Println(renderMarkdown(m.Text))
	default:
		fmt.Println(m.Text)
	}
}

func printHistory(msgs []types.Message) {
	for _, m := range msgs {
		ts := time.UnixMilli(m.CreatedAt).Format("15:04:05")
		fmt.Printf("%s [%s] %s\n", ts, m.Role, m.Text)
	}
}

func printProviderStats(registry *llm.Registry) {
	stats := registry.SnapshotAll()
	sort.Slice(stats, func(i, j int) bool { return stats[i].Provider < stats[j].Provider })

	for _, s := range stats {
		fmt.Printf("%s: %d calls, %d errors, %d tokens", s.Provider, s.Calls, s.Errors, s.Tokens)
		if s.Calls > 0 {
			fmt.Printf(", latency min/max %s/%s", s.MinLatency, s.MaxLatency)
		}
		fmt.Println()
	}
}

// renderMarkdown renders assistant output with Glamour, falling back to the
// raw text when the renderer is unavailable.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// ═══════════════════════════════════════════════════════════════════════════════
// ONE-SHOT AND COLLECTION COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question (one-shot query)",
		Long: `Ask a single question and print the response.

Examples:
  aide ask "What's the weather in Paris?"
  aide ask "Show me AAPL stock"
  aide ask "Add lunch with Sam tomorrow at noon to my calendar"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			msg, err := a.conv.Send(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, m := range trailingSystemAnd(a.conv.Messages(), msg) {
				printMessage(m)
			}
			return nil
		},
	}
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage calendar events",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List upcoming events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.Close()

			events := a.events.Upcoming(20)
			if len(events) == 0 {
				fmt.Println("No upcoming events.")
				return nil
			}
			for _, ev := range events {
				start := time.UnixMilli(ev.Start).Format("2006-01-02 15:04")
				if ev.AllDay {
					start = time.UnixMilli(ev.Start).Format("2006-01-02") + " (all day)"
				}
				fmt.Printf("%s  %s  %s\n", ev.ID[:8], start, ev.Title)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Export the calendar as iCalendar (.ics)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := os.Stdout
			if len(args) == 1 {
				f, err := os.Create(filepath.Clean(args[0]))
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return store.WriteICS(out, a.events.List())
		},
	})

	return cmd
}

func bookmarksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "Manage bookmarks",
	}

	printBookmarks := func(items []types.Bookmark) {
		if len(items) == 0 {
			fmt.Println("No bookmarks.")
			return
		}
		for _, bm := range items {
			fmt.Printf("%s  %s\n    %s\n", bm.ID[:8], bm.Title, bm.URL)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all bookmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.Close()

			printBookmarks(a.bookmarks.List())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search [query]",
		Short: "Search bookmarks by title, URL, category or tag",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}
			defer a.Close()

			printBookmarks(a.bookmarks.Search(strings.Join(args, " ")))
			return nil
		},
	})

	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("Aide Configuration:")
			fmt.Println("───────────────────")
			fmt.Printf("Default Provider: %s\n", cfg.LLM.DefaultProvider)
			for name, p := range cfg.LLM.Providers {
				state := "no key"
				if p.APIKey != "" {
					state = "configured"
				}
				fmt.Printf("  %-8s %s (%s)\n", name, p.Model, state)
			}
			fmt.Printf("Database Path:    %s\n", cfg.Storage.DBPath)
			fmt.Printf("Log Level:        %s\n", cfg.Logging.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			if cfgPath != "" {
				fmt.Println(cfgPath)
				return
			}
			home, err := os.UserHomeDir()
			if err != nil {
				fmt.Println("~/.aide/config.yaml")
				return
			}
			fmt.Println(filepath.Join(home, ".aide", "config.yaml"))
		},
	})

	return cmd
}
