package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quartzbi/quartz/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		source     string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate OpenAPI specification",
		Long: `Generate an OpenAPI 3.1 specification. Without flags this prints the spec for
the admin and workspace APIs; with --source it connects to a data source,
introspects its schema, and prints a spec for the source's tables and views.`,
		Example: `  quartz openapi                     # admin and workspace API spec
  quartz openapi --source sales      # spec for one data source's schema
  quartz openapi -o spec.json        # write to file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(source, outputFile)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Generate a spec for a data source's schema instead")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")

	return cmd
}

func runOpenAPI(sourceName, outputFile string) error {
	var doc interface{}

	if sourceName == "" {
		doc = openapi.BuildAPISpec("/")
	} else {
		store, err := openConfigStore()
		if err != nil {
			return fmt.Errorf("open config store: %w", err)
		}
		defer store.Close()

		ctx := context.Background()

		src, err := store.GetSourceByName(ctx, sourceName)
		if err != nil {
			return fmt.Errorf("look up source %q: %w", sourceName, err)
		}

		registry := newRegistry()
		defer registry.CloseAll()

		if err := registry.Connect(src.Name, connectionConfig(src)); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		conn, err := registry.Get(src.Name)
		if err != nil {
			return fmt.Errorf("get connector: %w", err)
		}

		schema, err := conn.IntrospectSchema(ctx)
		if err != nil {
			return fmt.Errorf("introspect schema: %w", err)
		}

		doc = openapi.GenerateSourceSpec(openapi.SourceSpec{
			Name:   src.Name,
			Driver: src.Driver,
			Schema: schema,
		}, "/")
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", outputFile, err)
		}
		fmt.Printf("Wrote OpenAPI spec to %s\n", outputFile)
		return nil
	}

	fmt.Println(string(data))
	return nil
}
