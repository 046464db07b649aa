package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/followup/internal/profile"
	"github.com/hrygo/followup/internal/version"
	"github.com/hrygo/followup/server"
	apiv1 "github.com/hrygo/followup/server/router/api/v1"
	"github.com/hrygo/followup/store"
	"github.com/hrygo/followup/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "followup",
		Short: "Conversation follow-up tracker with reminders and check-in contracts",
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(viper.GetString("log-level"), viper.GetString("log-format"))
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the periodic scan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			srv, err := server.NewServer(p, s)
			if err != nil {
				_ = s.Close()
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(ctx) }()

			printGreetings(p)
			select {
			case err := <-errCh:
				srv.Shutdown(context.Background())
				return err
			case <-ctx.Done():
				srv.Shutdown(context.Background())
				return nil
			}
		},
	}

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Run one scan over every user and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			srv, err := server.NewServer(p, s)
			if err != nil {
				return err
			}
			report := srv.Runner().RunOnce(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				return fmt.Errorf("jwt secret is not set, use --jwt-secret or FOLLOWUP_JWT_SECRET")
			}
			userID := viper.GetInt32("user")
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive id")
			}
			token, err := apiv1.IssueToken(secret, userID, viper.GetDuration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "followup %s\n", version.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("timezone", "UTC", "IANA timezone for check-in times")
	rootCmd.PersistentFlags().Duration("scan-interval", 5*time.Minute, "interval between scans")
	rootCmd.PersistentFlags().Float64("rate-limit", 10, "API requests per second per user")
	rootCmd.PersistentFlags().Int("rate-burst", 20, "API request burst per user")
	rootCmd.PersistentFlags().String("jwt-secret", "", "HS256 secret; enables bearer token auth")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	tokenCmd.Flags().Int32("user", 0, "user id the token is issued for")
	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "token lifetime")

	for _, f := range []string{"mode", "addr", "port", "data", "driver", "dsn", "timezone", "scan-interval", "rate-limit", "rate-burst", "jwt-secret", "log-level", "log-format"} {
		if err := viper.BindPFlag(f, rootCmd.PersistentFlags().Lookup(f)); err != nil {
			panic(err)
		}
	}
	for _, f := range []string{"user", "ttl"} {
		if err := viper.BindPFlag(f, tokenCmd.Flags().Lookup(f)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("followup")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, scanCmd, tokenCmd, versionCmd)
}

// loadProfile builds the profile from flags, FOLLOWUP_* variables and defaults.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:         viper.GetString("mode"),
		Addr:         viper.GetString("addr"),
		Port:         viper.GetInt("port"),
		Data:         viper.GetString("data"),
		Driver:       viper.GetString("driver"),
		DSN:          viper.GetString("dsn"),
		Timezone:     viper.GetString("timezone"),
		ScanInterval: viper.GetDuration("scan-interval"),
		RateLimit:    viper.GetFloat64("rate-limit"),
		RateBurst:    viper.GetInt("rate-burst"),
		JWTSecret:    viper.GetString("jwt-secret"),
	}
	p.Version = version.GetCurrentVersion(p.Mode)
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func openStore(ctx context.Context) (*profile.Profile, *store.Store, error) {
	p, err := loadProfile()
	if err != nil {
		return nil, nil, err
	}
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create db driver: %w", err)
	}
	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return p, s, nil
}

func setupLogging(level, format string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: l}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("followup %s started in %s mode\n", p.Version, p.Mode)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Listening on %s:%d\n", p.Addr, p.Port)
}

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
