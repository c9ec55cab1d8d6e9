package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/packetsmith/rohc/internal/cli/output"
	"github.com/packetsmith/rohc/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective Options record",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var schemaOutputFile string

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate a JSON Schema for the configuration file",
	Long: `Generate a JSON schema for rohcctl's configuration file.

The schema can be used for:
  - IDE autocompletion (VS Code, IntelliJ, etc.)
  - Configuration file validation
  - Documentation generation

Examples:
  # Print schema to stdout
  rohcctl config schema

  # Save schema to file
  rohcctl config schema --output-file config.schema.json`,
	Args: cobra.NoArgs,
	RunE: runConfigSchema,
}

func init() {
	configSchemaCmd.Flags().StringVar(&schemaOutputFile, "output-file", "", "Write schema to a file instead of stdout")
	configCmd.AddCommand(configShowCmd, configSchemaCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}

	format, err := outputFormat()
	if err != nil {
		return err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(opts)
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "rohcctl Configuration"
	schema.Description = "Configuration schema for the ROHC compressor control CLI"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("generating schema: %w", err)
	}

	if schemaOutputFile != "" {
		if err := os.WriteFile(schemaOutputFile, schemaJSON, 0o644); err != nil {
			return fmt.Errorf("writing schema file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", schemaOutputFile)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(schemaJSON))
	return nil
}
