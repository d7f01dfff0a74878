package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/decora/internal/apiclient"
	"github.com/tyemirov/decora/internal/identity"
	"github.com/tyemirov/decora/internal/marketplace"
	"github.com/tyemirov/decora/internal/stubapi"
	"github.com/tyemirov/decora/internal/stubpg"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

// DefaultBaseURL is the documented fallback when no backend is configured.
const DefaultBaseURL = "https://api.decora.example.com"

const (
	configCodeMissingAuthURL     = "config.missing_auth_url"
	configCodeInvalidTimeout     = "config.invalid_timeout"
	configCodeConflictingTokens  = "config.conflicting_credentials"
	configCodeUnusableStoreFlags = "config.unusable_store_flags"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "decora",
		Short: "Client for the Decora decoration-services booking marketplace",
	}

	rootCmd.PersistentFlags().String("base_url", DefaultBaseURL, "Backend API base URL")
	rootCmd.PersistentFlags().String("auth_url", "", "Identity service base URL (for refresh-token sessions)")
	rootCmd.PersistentFlags().String("access_token", "", "Static access token (dev; overrides refresh_token)")
	rootCmd.PersistentFlags().String("refresh_token", "", "Refresh token for the identity service")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Overall timeout for one command")

	_ = viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base_url"))
	_ = viper.BindPFlag("auth_url", rootCmd.PersistentFlags().Lookup("auth_url"))
	_ = viper.BindPFlag("access_token", rootCmd.PersistentFlags().Lookup("access_token"))
	_ = viper.BindPFlag("refresh_token", rootCmd.PersistentFlags().Lookup("refresh_token"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	viper.SetEnvPrefix("DECORA")
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newServicesCommand(),
		newServiceCommand(),
		newMeCommand(),
		newBookingsCommand(),
		newBookCommand(),
		newCancelCommand(),
		newPayCommand(),
		newProjectsCommand(),
		newProjectStatusCommand(),
		newAdminCommand(),
		newMintTokenCommand(),
		newStubServerCommand(),
	)

	return rootCmd
}

// ClientConfig is everything a client command needs to talk to the
// backend.
type ClientConfig struct {
	BaseURL      string
	AuthURL      string
	AccessToken  string
	RefreshToken string
	Timeout      time.Duration
}

func configError(code string, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadClientConfig reads and validates the client-side configuration.
func LoadClientConfig() (ClientConfig, error) {
	baseURL := viper.GetString("base_url")
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	timeout := viper.GetDuration("timeout")
	if timeout <= 0 {
		return ClientConfig{}, configError(configCodeInvalidTimeout, "timeout must be greater than zero")
	}

	accessToken := viper.GetString("access_token")
	refreshToken := viper.GetString("refresh_token")
	authURL := viper.GetString("auth_url")
	if accessToken != "" && refreshToken != "" {
		return ClientConfig{}, configError(configCodeConflictingTokens, "provide either access_token or refresh_token, not both")
	}
	if refreshToken != "" && strings.TrimSpace(authURL) == "" {
		return ClientConfig{}, configError(configCodeMissingAuthURL, "auth_url must be provided when refresh_token is set")
	}

	return ClientConfig{
		BaseURL:      baseURL,
		AuthURL:      authURL,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Timeout:      timeout,
	}, nil
}

// buildProvider selects the identity provider for the configured
// credentials: static token, refresh-token session, or anonymous.
func buildProvider(configuration ClientConfig, logger *zap.Logger) (identity.Provider, error) {
	if configuration.AccessToken != "" {
		return identity.NewStaticFromAccessToken(configuration.AccessToken)
	}
	if configuration.RefreshToken != "" {
		return identity.NewSessionProvider(identity.SessionConfig{
			AuthURL:      configuration.AuthURL,
			RefreshToken: configuration.RefreshToken,
			Logger:       logger,
		})
	}
	return identity.Anonymous(), nil
}

// buildSDK wires the identity provider, the API client, and the typed
// marketplace surface.
func buildSDK(configuration ClientConfig, logger *zap.Logger) (*marketplace.Client, error) {
	provider, providerErr := buildProvider(configuration, logger)
	if providerErr != nil {
		return nil, providerErr
	}
	api, apiErr := apiclient.New(apiclient.Config{
		BaseURL:  configuration.BaseURL,
		Identity: provider,
		Logger:   logger,
		Metrics:  apiclient.NewCounterMetrics(),
	})
	if apiErr != nil {
		return nil, apiErr
	}
	return marketplace.NewClient(api), nil
}

func newStubServerCommand() *cobra.Command {
	stubCmd := &cobra.Command{
		Use:   "stub-server",
		Short: "Run the in-process stub backend implementing the marketplace contract",
		RunE:  runStubServer,
	}
	stubCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	stubCmd.Flags().String("database_url", "", "Profile store URL (postgres:// or sqlite://; empty for in-memory)")
	stubCmd.Flags().Bool("use_pgx", false, "Use the raw pgx profile store instead of GORM (postgres only)")
	stubCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients")
	stubCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled")

	_ = viper.BindPFlag("listen_addr", stubCmd.Flags().Lookup("listen_addr"))
	_ = viper.BindPFlag("database_url", stubCmd.Flags().Lookup("database_url"))
	_ = viper.BindPFlag("use_pgx", stubCmd.Flags().Lookup("use_pgx"))
	_ = viper.BindPFlag("enable_cors", stubCmd.Flags().Lookup("enable_cors"))
	_ = viper.BindPFlag("cors_allowed_origins", stubCmd.Flags().Lookup("cors_allowed_origins"))

	return stubCmd
}

func runStubServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	listenAddr := viper.GetString("listen_addr")
	databaseURL := viper.GetString("database_url")
	usePgx := viper.GetBool("use_pgx")
	enableCORS := viper.GetBool("enable_cors")
	corsAllowedOrigins := viper.GetStringSlice("cors_allowed_origins")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if enableCORS {
		corsMiddleware, corsErr := stubapi.ConfigureCORS(logger, corsAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	profileStore, storeErr := buildProfileStore(command.Context(), databaseURL, usePgx, logger)
	if storeErr != nil {
		return storeErr
	}

	marketStore := stubapi.NewMarketStore()
	stubapi.MountRoutes(router, profileStore, marketStore, logger)

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("stub backend listening", zap.String("addr", listenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func buildProfileStore(ctx context.Context, databaseURL string, usePgx bool, logger *zap.Logger) (stubapi.ProfileStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if databaseURL == "" {
		if usePgx {
			return nil, configError(configCodeUnusableStoreFlags, "use_pgx requires a postgres database_url")
		}
		logger.Info("using in-memory profile store")
		return stubapi.NewMemoryProfileStore(), nil
	}
	if usePgx {
		pool, poolErr := stubpg.BuildPool(ctx, databaseURL)
		if poolErr != nil {
			return nil, poolErr
		}
		if schemaErr := stubpg.EnsureSchema(ctx, pool); schemaErr != nil {
			return nil, schemaErr
		}
		logger.Info("using pgx profile store")
		return stubpg.NewPostgresProfileStore(pool), nil
	}
	store, storeErr := stubapi.NewDatabaseProfileStore(ctx, databaseURL)
	if storeErr != nil {
		return nil, storeErr
	}
	logger.Info("using persistent profile store", zap.String("driver", store.Driver()))
	return store, nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
