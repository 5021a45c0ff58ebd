// Command supportbot runs the Yogateria customer support assistant:
// an HTTP chat API, an interactive terminal session and the catalog
// ingestion job.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yogateria/supportbot/internal/adapters/filewatcher"
	"github.com/yogateria/supportbot/internal/config"
	"github.com/yogateria/supportbot/internal/domain/entities"
	httpserver "github.com/yogateria/supportbot/internal/infrastructure/http"
	"github.com/yogateria/supportbot/internal/logging"
)

var (
	configPath string
	debug      bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "supportbot",
	Short: "Yogateria customer support assistant",
	Long: `supportbot answers store customer questions grounded in the product
catalog, tracked carts and order history. It serves an HTTP chat API,
an interactive terminal session and the catalog ingestion job.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Logging.Debug = true
		}
		logger, err = logging.New(cfg.Logging.Debug)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

type configKey struct{}

func cmdConfig(cmd *cobra.Command) *config.Config {
	return cmd.Context().Value(configKey{}).(*config.Config)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cmdConfig(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		a := buildApp(cfg, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// An in-process index starts empty; fill it before serving.
		if a.memoryStore && len(a.catalog) > 0 {
			if n, err := a.ingest.IngestProducts(ctx, a.catalog); err != nil {
				logger.Sugar().Warnw("startup ingest failed", "error", err)
			} else {
				logger.Sugar().Infow("startup ingest complete", "passages", n)
			}
		}

		server := httpserver.NewServer(a.pipeline, a.chatLog, a.orders, a.retrieval, cfg.Server.Addr, logger)
		return server.Start(ctx)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive terminal session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cmdConfig(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		a := buildApp(cfg, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if a.memoryStore && len(a.catalog) > 0 {
			if _, err := a.ingest.IngestProducts(ctx, a.catalog); err != nil {
				logger.Sugar().Warnw("startup ingest failed", "error", err)
			}
		}

		return runSession(ctx, a)
	},
}

// runSession drives the terminal loop. The session owns the tracked
// identifier: an id or email seen in any message sticks for the turns
// that follow until another one appears.
func runSession(ctx context.Context, a *app) error {
	fmt.Println("Yogateria support assistant. Type your question, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	var userRef string
	var history []entities.ChatMessage

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		if id := a.pipeline.ExtractIdentifier(line); id != "" {
			userRef = id
		}

		result, err := a.pipeline.Turn(ctx, &entities.ChatRequest{
			Message: line,
			UserRef: userRef,
			History: history,
		})
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		userRef = result.UserRef

		fmt.Println(result.Answer)
		for _, card := range result.Products {
			fmt.Printf("  [%s] %s - %s\n", card.Title, card.Price, card.URL)
		}
		for _, f := range result.FollowUps {
			fmt.Printf("  ? %s\n", f)
		}

		history = append(history,
			entities.ChatMessage{Role: "user", Content: line},
			entities.ChatMessage{Role: "assistant", Content: result.Answer},
		)
	}
	return scanner.Err()
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index the product catalog into the vector store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cmdConfig(cmd)
		a := buildApp(cfg, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		n, err := a.reloadCatalog(ctx)
		if err != nil {
			return fmt.Errorf("ingesting catalog: %w", err)
		}
		logger.Sugar().Infow("catalog indexed", "passages", n)

		watch, _ := cmd.Flags().GetBool("watch")
		if !watch {
			return nil
		}
		return watchAndReingest(ctx, a)
	},
}

// watchAndReingest re-indexes whenever a JSON export in the data
// directory changes.
func watchAndReingest(ctx context.Context, a *app) error {
	watcher, err := filewatcher.NewFSNotifyWatcher([]string{".json"}, 2*time.Second, a.log)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Stop()

	dir := filepath.Dir(a.cfg.Data.ProductsPath)
	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	a.log.Sugar().Infow("watching for catalog changes", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			a.log.Sugar().Infow("data file changed", "path", event.Path)
			n, err := a.reloadCatalog(ctx)
			if err != nil {
				a.log.Sugar().Errorw("re-ingest failed", "error", err)
				continue
			}
			a.log.Sugar().Infow("catalog re-indexed", "passages", n)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	serveCmd.Flags().String("addr", "", "listen address override")
	ingestCmd.Flags().Bool("watch", false, "keep watching the data directory and re-ingest on change")

	rootCmd.AddCommand(serveCmd, chatCmd, ingestCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
