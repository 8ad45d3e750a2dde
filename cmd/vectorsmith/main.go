package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vectorsmith/vectorsmith/ai"
	"github.com/vectorsmith/vectorsmith/internal/profile"
	"github.com/vectorsmith/vectorsmith/internal/version"
	"github.com/vectorsmith/vectorsmith/server"
	"github.com/vectorsmith/vectorsmith/store"
	"github.com/vectorsmith/vectorsmith/store/qdrant"
)

var rootCmd = &cobra.Command{
	Use:   "vectorsmith",
	Short: `A semantic document API: store free text as vector embeddings in Qdrant and search it by meaning.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Only load .env for direct binary execution (not when running as
		// a systemd service, which carries its own environment).
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		driver, err := qdrant.NewDriver(instanceProfile.QdrantHost, instanceProfile.QdrantPort)
		if err != nil {
			printStoreError(err, instanceProfile)
			slog.Error("failed to create qdrant driver", "error", err)
			return
		}
		storeInstance := store.New(driver)

		embeddingConfig := ai.NewEmbeddingConfigFromProfile(instanceProfile, store.DefaultVectorSize)
		embeddingService, err := ai.NewEmbeddingService(embeddingConfig)
		if err != nil {
			slog.Error("failed to create embedding service", "error", err)
			return
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, embeddingService)
		if err != nil {
			printStoreError(err, instanceProfile)
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM. SIGTERM is what
		// most process managers (systemd, kubernetes) send.
		signal.Notify(c, terminationSignals...)

		if err := s.Start(ctx); err != nil {
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
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 8000)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8000, "port of server")

	for _, flag := range []string{"mode", "addr", "port"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("vectorsmith")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("Vectorsmith %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}

	fmt.Printf("Mode: %s\n", profile.Mode)
	fmt.Printf("Qdrant: %s:%d\n", profile.QdrantHost, profile.QdrantPort)
	fmt.Printf("Embedding provider: %s (%s)\n", profile.EmbeddingProvider, profile.EmbeddingModel)

	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
		fmt.Printf("Access Vectorsmith at: http://localhost:%d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printStoreError provides user-friendly error messages for vector store
// connection issues.
func printStoreError(err error, profile *profile.Profile) {
	fmt.Fprintln(os.Stderr, "\nVector store connection failed")

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "context deadline exceeded"):
		fmt.Fprintf(os.Stderr, "\nQdrant is not reachable at %s:%d.\n", profile.QdrantHost, profile.QdrantPort)
		fmt.Fprintf(os.Stderr, "\n   Start Qdrant with:\n")
		fmt.Fprintf(os.Stderr, "   docker run -p 6333:6333 -p 6334:6334 qdrant/qdrant\n")
		fmt.Fprintf(os.Stderr, "\n   Note: the service talks gRPC (port 6334), not the REST port 6333.\n")
	default:
		fmt.Fprintln(os.Stderr, "\nError:", errMsg)
	}

	if _, statErr := os.Stat(".env"); statErr == nil {
		fmt.Fprintf(os.Stderr, "\nFound .env file - configuration loaded from current directory.\n")
	} else {
		fmt.Fprintf(os.Stderr, "\nTip: create a .env file for local configuration.\n")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
