package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"covimpact/internal/model"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect and import complexity model artifacts",
}

var modelInfoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Show an artifact's version, features, and ensemble size",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelInfo,
}

var modelImportCmd = &cobra.Command{
	Use:   "import <forest.json> <artifact.cimf>",
	Short: "Package an exported JSON ensemble as a model artifact",
	Long: `Package a trained ensemble, exported as JSON by the offline training
tooling, into the compressed artifact format the analyzer loads.`,
	Args: cobra.ExactArgs(2),
	RunE: runModelImport,
}

func init() {
	modelCmd.AddCommand(modelInfoCmd)
	modelCmd.AddCommand(modelImportCmd)
	rootCmd.AddCommand(modelCmd)
}

func runModelInfo(cmd *cobra.Command, args []string) error {
	artifactPath, err := model.Resolve(args[0])
	if err != nil {
		return err
	}
	forest, err := model.Load(artifactPath)
	if err != nil {
		return err
	}

	fmt.Printf("artifact:  %s\n", artifactPath)
	fmt.Printf("version:   %s\n", forest.Version)
	fmt.Printf("trees:     %d\n", len(forest.Trees))
	fmt.Printf("features:  %v\n", forest.FeatureNames)
	if len(forest.FeatureRanges) > 0 {
		fmt.Println("training ranges:")
		for i, name := range forest.FeatureNames {
			r := forest.FeatureRanges[i]
			fmt.Printf("  %-16s [%g, %g]\n", name, r[0], r[1])
		}
	}
	return nil
}

func runModelImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read ensemble export: %w", err)
	}

	var forest model.Forest
	if err := json.Unmarshal(data, &forest); err != nil {
		return fmt.Errorf("failed to decode ensemble export: %w", err)
	}

	if err := model.Write(args[1], &forest); err != nil {
		return err
	}
	fmt.Printf("wrote %s (version %s, %d trees)\n", args[1], forest.Version, len(forest.Trees))
	return nil
}
