package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/adapter/cache"
	"github.com/seu-repo/vitrina-voz/internal/adapter/catalog"
	"github.com/seu-repo/vitrina-voz/internal/adapter/events"
	"github.com/seu-repo/vitrina-voz/internal/adapter/storage/kv"
	"github.com/seu-repo/vitrina-voz/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/vitrina-voz/internal/ports"
	"github.com/seu-repo/vitrina-voz/internal/service/storefront"
	"github.com/seu-repo/vitrina-voz/internal/service/voice"
	"github.com/seu-repo/vitrina-voz/pkg/config"
)

var (
	catalogBackend string
	catalogURL     string
	catalogTimeout time.Duration
	clientID       string
	maxCandidates  int
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "voicecli",
	Short: "Drive the storefront voice assistant from a terminal",
	Long: `Type Spanish shopping commands and see what the assistant does with them.

Examples:
  agrega 2 coca cola al carrito
  busca leche
  quita el pan
  ver carrito
  vaciar carrito`,
	SilenceUsage: true,
	RunE:         runREPL,
}

var sayCmd = &cobra.Command{
	Use:   "say <utterance>",
	Short: "Run a single utterance and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSay,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogBackend, "catalog", config.CatalogMemory, "catalog backend (memory|http)")
	rootCmd.PersistentFlags().StringVar(&catalogURL, "catalog-url", "", "storefront API base URL for the http catalog")
	rootCmd.PersistentFlags().DurationVar(&catalogTimeout, "timeout", 5*time.Second, "catalog request timeout")
	rootCmd.PersistentFlags().StringVar(&clientID, "client", "terminal", "client id used for the cart")
	rootCmd.PersistentFlags().IntVar(&maxCandidates, "max-candidates", voice.DefaultMaxCandidates, "search results to keep")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(sayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

func newSearcher(logger *zap.Logger) (ports.ProductSearcher, error) {
	switch catalogBackend {
	case config.CatalogMemory:
		return catalog.NewMemorySearcher(catalog.DemoProducts(), maxCandidates), nil
	case config.CatalogHTTP:
		if catalogURL == "" {
			return nil, fmt.Errorf("--catalog-url is required for the http catalog")
		}
		breaker := circuitbreaker.New(circuitbreaker.Settings{Name: "catalog"}, logger)
		client := circuitbreaker.NewHTTPClient(&http.Client{Timeout: catalogTimeout}, breaker, logger)
		return catalog.NewHTTPSearcher(catalogURL, client, maxCandidates, logger)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", catalogBackend)
	}
}

// newSession wires a single-client storefront on an in-process cache.
func newSession(ctx context.Context, cmd *cobra.Command) (*session, func(), error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	searcher, err := newSearcher(logger)
	if err != nil {
		return nil, nil, err
	}

	local := cache.NewLocalCache(time.Minute, logger)
	bus := events.NewBus(logger)
	manager := storefront.NewManager(
		kv.NewCartStore(local, 0, logger),
		searcher,
		bus,
		voice.Config{MaxCandidates: maxCandidates},
		logger,
	)

	s, err := newSessionFor(ctx, manager, bus, clientID, cmd.OutOrStdout())
	if err != nil {
		manager.Close()
		local.Close()
		return nil, nil, err
	}
	cleanup := func() {
		s.Close()
		manager.Close()
		local.Close()
		_ = logger.Sync()
	}
	return s, cleanup, nil
}

func runREPL(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, cleanup, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintln(cmd.OutOrStdout(), "Asistente de voz (texto). Escribe :ayuda para ver los comandos, :salir para terminar.")
	return s.Run(ctx, cmd.InOrStdin())
}

func runSay(cmd *cobra.Command, args []string) error {
	s, cleanup, err := newSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return s.Say(cmd.Context(), strings.Join(args, " "))
}
