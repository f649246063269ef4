package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/n9te9/fedgate/internal/gatewayd"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Federation Gateway",
	Run: func(cmd *cobra.Command, args []string) {
		println("Federation Gateway v0.1.0")
	},
}

var configPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new gatewayd config",
	Run: func(cmd *cobra.Command, args []string) {
		if err := gatewayd.Init(configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Federation Gateway server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := gatewayd.Run(configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose the configured subgraphs and report errors/warnings",
	Run: func(cmd *cobra.Command, args []string) {
		schema, warnings, err := gatewayd.ComposeFromConfig(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
		}
		fmt.Printf("composed %d service(s), %d type(s)\n", len(schema.Services), len(schema.Types()))
	},
}

var (
	queryFile     string
	operationName string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compose the configured subgraphs and print the query plan for a document",
	Run: func(cmd *cobra.Command, args []string) {
		schema, _, err := gatewayd.ComposeFromConfig(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		queryBytes, err := os.ReadFile(queryFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		rootPlan, err := gatewayd.PlanQuery(schema, string(queryBytes), operationName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rootPlan); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func main() {
	rootCmd := cobra.Command{Use: "federation-gateway"}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "gateway.yaml", "path to the gateway config file")
	planCmd.Flags().StringVar(&queryFile, "query", "", "path to the GraphQL document to plan")
	planCmd.Flags().StringVar(&operationName, "operation", "", "operation name to plan, if the document has more than one")
	planCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(planCmd)

	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
