package main

import (
	"fmt"
	"os"

	"github.com/ignatij/memoflow/internal/cli"
	"github.com/ignatij/memoflow/internal/config"
	internal_http "github.com/ignatij/memoflow/internal/http"
	"github.com/ignatij/memoflow/internal/log"
	internal_storage "github.com/ignatij/memoflow/internal/storage"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{Use: "memoflow"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			log.GetLogger().Errorf("Failed to load config: %v", err)
			os.Exit(1)
		}
		connStr, _ := cmd.Flags().GetString("db")
		if connStr == "" {
			connStr = cfg.DBConnStr()
		}
		if connStr == "" {
			fmt.Println("Error: --db flag, DATABASE_URL or complete DB_* env vars required")
			os.Exit(1)
		}
		store, err := internal_storage.InitStore(connStr)
		if err != nil {
			log.GetLogger().Errorf("Failed to initialize store: %v", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := internal_http.StartServer(cfg.Port, store); err != nil {
			log.GetLogger().Errorf("Server stopped: %v", err)
			os.Exit(1)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().String("db", "", "Database connection string")
	rootCmd.PersistentFlags().String("config", "", "Path to TOML config file")
	rootCmd.AddCommand(serveCmd)
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
