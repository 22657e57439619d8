package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/siherrmann/docqa"
	"github.com/siherrmann/docqa/config"
	"github.com/siherrmann/docqa/helper"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	usePostgres bool
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:           "docqa",
	Short:         "Ask questions about PDF and text documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "docqa.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&usePostgres, "postgres", false, "Store indexes and sessions in Postgres (DB_* environment)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(uploadCmd, askCmd, searchCmd, deleteCmd, cleanupCmd, configCmd)
}

// openDocQA builds a DocQA from the config file and the global flags.
func openDocQA() (*docqa.DocQA, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var dbConfig *helper.DatabaseConfiguration
	if usePostgres {
		dbConfig, err = helper.NewDatabaseConfiguration()
		if err != nil {
			return nil, err
		}
	}

	return docqa.NewDocQA(cfg, dbConfig)
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
