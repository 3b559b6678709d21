package main

import (
	"fmt"

	"github.com/spf13/cobra"

	videocfg "github.com/goliatone/go-videoconfig"
	"github.com/goliatone/go-videoconfig/render"
	"github.com/goliatone/go-videoconfig/schema/openapi"
)

func newSchemaCommand() *cobra.Command {
	var format string
	var rootComponent string

	cmd := &cobra.Command{
		Use:         "schema",
		Short:       "Print the settings schema as JSON",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var generator videocfg.SchemaGenerator
			switch videocfg.SchemaFormat(format) {
			case videocfg.SchemaFormatDescriptors:
				generator = videocfg.DefaultSchemaGenerator()
			case videocfg.SchemaFormatOpenAPI:
				var opts []openapi.Option
				if rootComponent != "" {
					opts = append(opts, openapi.WithRootComponent(rootComponent))
				}
				generator = openapi.NewGenerator(opts...)
			default:
				return fmt.Errorf("unknown schema format %q (want %s or %s)", format, videocfg.SchemaFormatDescriptors, videocfg.SchemaFormatOpenAPI)
			}
			doc, err := generator.Generate(render.Schema())
			if err != nil {
				return err
			}
			return writeJSON(cmd, doc.Document)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(videocfg.SchemaFormatOpenAPI), "Output format: descriptors or openapi")
	cmd.Flags().StringVar(&rootComponent, "root-component", "", "Register the settings object as a named OpenAPI component")
	return cmd
}
