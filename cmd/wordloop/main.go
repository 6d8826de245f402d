package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/wordloop/internal/profile"
	"github.com/hrygo/wordloop/internal/version"
	"github.com/hrygo/wordloop/server"
	"github.com/hrygo/wordloop/store"
	"github.com/hrygo/wordloop/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "wordloop",
		Short: "A spaced-repetition scheduling and mastery engine.",
		Run: func(cmd *cobra.Command, _ []string) {
			runServe(cmd.Context())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder runner",
		Run: func(cmd *cobra.Command, _ []string) {
			runServe(cmd.Context())
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, storeInstance, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer storeInstance.Close()

			schemaVersion, err := storeInstance.GetSchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %s\n", schemaVersion)
			return nil
		},
	}
)

func newProfile() *profile.Profile {
	instanceProfile := &profile.Profile{
		Mode:        viper.GetString("mode"),
		Addr:        viper.GetString("addr"),
		Port:        viper.GetInt("port"),
		UNIXSock:    viper.GetString("unix-sock"),
		Data:        viper.GetString("data"),
		Driver:      viper.GetString("driver"),
		DSN:         viper.GetString("dsn"),
		InstanceURL: viper.GetString("instance-url"),
		Version:     version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	return instanceProfile
}

// openStore validates the profile, connects and migrates.
func openStore(ctx context.Context) (*profile.Profile, *store.Store, error) {
	instanceProfile := newProfile()
	if err := instanceProfile.Validate(); err != nil {
		return nil, nil, err
	}
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, nil, err
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		storeInstance.Close()
		return nil, nil, err
	}
	return instanceProfile, storeInstance, nil
}

func runServe(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	instanceProfile, storeInstance, err := openStore(ctx)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		return
	}

	s, err := server.NewServer(ctx, instanceProfile, storeInstance)
	if err != nil {
		storeInstance.Close()
		slog.Error("failed to create server", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	// Trigger graceful shutdown on SIGINT or SIGTERM.
	// The default signal sent by the `kill` command is SIGTERM,
	// which is taken as the graceful shutdown signal for many systems, eg., Kubernetes, Gunicorn.
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := s.Start(ctx); err != nil {
		s.Shutdown(ctx)
		slog.Error("failed to start server", "error", err)
		return
	}

	printGreetings(instanceProfile)

	go func() {
		<-c
		s.Shutdown(ctx)
		cancel()
	}()

	// Wait for CTRL-C.
	<-ctx.Done()
}

func init() {
	// An optional .env in the working directory seeds the environment.
	_ = godotenv.Load()

	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("unix-sock", "", "path to the unix socket, overrides --addr and --port")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your wordloop instance")

	for _, flag := range []string{"mode", "addr", "port", "unix-sock", "data", "driver", "dsn", "instance-url"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("wordloop")
	viper.AutomaticEnv()
	if err := viper.BindEnv("instance-url", "WORDLOOP_INSTANCE_URL"); err != nil {
		panic(err)
	}
	if err := viper.BindEnv("unix-sock", "WORDLOOP_UNIX_SOCK"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, newPlanCmd(), newExportCmd())
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("wordloop %s started successfully!\n", profile.Version)
	if profile.IsDev() {
		fmt.Fprintf(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}
	if len(profile.UNIXSock) == 0 {
		if len(profile.Addr) == 0 {
			fmt.Printf("API running on port %d\n", profile.Port)
		} else {
			fmt.Printf("API running on %s:%d\n", profile.Addr, profile.Port)
		}
	} else {
		fmt.Printf("API running on unix socket %s\n", profile.UNIXSock)
	}
	if profile.ReminderEnabled {
		fmt.Printf("Reminders scheduled with cron %q\n", profile.ReminderCron)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
