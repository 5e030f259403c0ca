package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

// NewResourcesCommand creates the resources command.
func NewResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List resource types",
		Long:  "List the resource types known to the CLI with their paths and supported operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types := policy.DefaultRegistry().Types()

			type resourceInfo struct {
				Name       string `json:"name"       yaml:"name"`
				Type       string `json:"type"       yaml:"type"`
				Path       string `json:"path"       yaml:"path"`
				Operations string `json:"operations" yaml:"operations"`
			}

			infos := make([]resourceInfo, 0, len(types))
			for _, rt := range types {
				infos = append(infos, resourceInfo{
					Name:       rt.Name,
					Type:       rt.TypeName,
					Path:       rt.ClassURL(),
					Operations: rt.Operations.String(),
				})
			}

			return writeValue(cmd.OutOrStdout(), infos, "", func() error {
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.Header("Name", "Type", "Path", "Operations")

				for _, info := range infos {
					_ = table.Append(info.Name, info.Type, info.Path, info.Operations)
				}

				err := table.Render()
				if err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}
}
