package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ten99policy/ten99policy-go/internal/constants"
	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var jqExpression string

	cmd := &cobra.Command{
		Use:   "get TYPE ID",
		Short: "Retrieve a resource",
		Long:  "Retrieve one resource, e.g. 'ten99policy get contractor cn_123'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ResolveResourceType(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			resource, err := client.Retrieve(ctx, rt, args[1], nil)
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", rt.Name, err)
			}

			return writeValue(cmd.OutOrStdout(), resource.Object, jqExpression, func() error {
				return renderObjectTable(cmd.OutOrStdout(), resource.Object)
			})
		},
	}

	cmd.Flags().StringVar(&jqExpression, "jq", "", "filter the JSON output with a jq expression")

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var (
		limit         int
		startingAfter string
		all           bool
		jqExpression  string
	)

	cmd := &cobra.Command{
		Use:   "list TYPE",
		Short: "List resources",
		Long:  "List resources of one type, one page at a time or with --all every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ResolveResourceType(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			params := map[string]interface{}{"limit": limit}
			if startingAfter != "" {
				params["starting_after"] = startingAfter
			}

			page, err := client.List(ctx, rt, params)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", rt.Path, err)
			}

			items := page.Data()

			for all && page != nil && page.HasMore() {
				page, err = page.NextPage(ctx)
				if err != nil {
					return fmt.Errorf("failed to list %s: %w", rt.Path, err)
				}

				if page != nil {
					items = append(items, page.Data()...)
				}
			}

			return writeValue(cmd.OutOrStdout(), items, jqExpression, func() error {
				return renderListTable(cmd, items)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", constants.DefaultListLimit, "page size")
	cmd.Flags().StringVar(&startingAfter, "starting-after", "", "list resources after this id")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().StringVar(&jqExpression, "jq", "", "filter the JSON output with a jq expression")

	return cmd
}

func renderListTable(cmd *cobra.Command, items []interface{}) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("ID", "Object", "Summary")

	for _, item := range items {
		obj := asObject(item)
		if obj == nil {
			continue
		}

		_ = table.Append(obj.ID(), valueOrDefault(obj.GetString("object"), NotAvailable), summary(obj))
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d item(s)\n", len(items))

	return nil
}

func asObject(item interface{}) *policy.Object {
	switch v := item.(type) {
	case *policy.APIResource:
		return v.Object
	case *policy.Object:
		return v
	default:
		return nil
	}
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:   "create TYPE",
		Short: "Create a resource",
		Long:  "Create a resource from --set KEY=VALUE pairs, e.g. 'ten99policy create job --set name=Courier --set wage=30'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ResolveResourceType(args[0])
			if err != nil {
				return err
			}

			params, err := ParseAssignments(assignments)
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			resource := client.NewResource(rt, "")

			err = resource.Update(params)
			if err != nil {
				return err
			}

			err = resource.Save(ctx)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", rt.Name, err)
			}

			return writeValue(cmd.OutOrStdout(), resource.Object, "", func() error {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", rt.Name, resource.ID())

				return renderObjectTable(cmd.OutOrStdout(), resource.Object)
			})
		},
	}

	cmd.Flags().StringArrayVar(&assignments, "set", nil, "field assignment KEY=VALUE (repeatable)")

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var (
		assignments []string
		unset       []string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "update TYPE ID",
		Short: "Update a resource",
		Long: "Retrieve a resource, apply --set and --unset changes and save it. " +
			"Only changed fields are sent; --dry-run prints that change set instead.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(assignments) == 0 && len(unset) == 0 {
				return constants.ErrNothingToUpdate
			}

			rt, err := ResolveResourceType(args[0])
			if err != nil {
				return err
			}

			params, err := ParseAssignments(assignments)
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			resource, err := client.Retrieve(ctx, rt, args[1], nil)
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", rt.Name, err)
			}

			err = ApplyChanges(resource.Object, params, unset)
			if err != nil {
				return err
			}

			if dryRun {
				payload := resource.Serialize(nil)

				return writeValue(cmd.OutOrStdout(), payload, "", func() error {
					return renderPayloadTable(cmd.OutOrStdout(), payload)
				})
			}

			err = resource.Save(ctx)
			if err != nil {
				return fmt.Errorf("failed to update %s: %w", rt.Name, err)
			}

			return writeValue(cmd.OutOrStdout(), resource.Object, "", func() error {
				return renderObjectTable(cmd.OutOrStdout(), resource.Object)
			})
		},
	}

	cmd.Flags().StringArrayVar(&assignments, "set", nil, "field assignment KEY=VALUE (repeatable)")
	cmd.Flags().StringArrayVar(&unset, "unset", nil, "field to clear (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the change set without saving")

	return cmd
}

// ApplyChanges sets params on obj and clears every unset field. Nested maps
// are merged into the current value so that sibling fields stay untouched.
func ApplyChanges(obj *policy.Object, params map[string]interface{}, unset []string) error {
	for _, key := range sortedParamKeys(params) {
		value := params[key]
		current, _ := obj.Get(key)

		nested, isMap := value.(map[string]interface{})
		if isMap {
			if child := nestedObject(current); child != nil {
				err := ApplyChanges(child, nested, nil)
				if err != nil {
					return err
				}

				continue
			}

			if existing, ok := current.(map[string]interface{}); ok {
				merged, err := mergeMaps(existing, nested)
				if err != nil {
					return err
				}

				value = merged
			}
		}

		err := obj.Set(key, value)
		if err != nil {
			return err
		}
	}

	for _, key := range unset {
		err := obj.Set(key, nil)
		if err != nil {
			return err
		}
	}

	return nil
}

// mergeMaps returns a copy of base with patch applied on top. base is not
// modified.
func mergeMaps(base, patch map[string]interface{}) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(base)+len(patch))
	for key, value := range base {
		merged[key] = value
	}

	for key, value := range patch {
		nested, isMap := value.(map[string]interface{})
		if !isMap {
			merged[key] = value

			continue
		}

		if child := nestedObject(merged[key]); child != nil {
			err := ApplyChanges(child, nested, nil)
			if err != nil {
				return nil, err
			}

			continue
		}

		if existing, ok := merged[key].(map[string]interface{}); ok {
			child, err := mergeMaps(existing, nested)
			if err != nil {
				return nil, err
			}

			merged[key] = child

			continue
		}

		merged[key] = value
	}

	return merged, nil
}

// nestedObject returns the object behind value when it is one.
func nestedObject(value interface{}) *policy.Object {
	switch v := value.(type) {
	case *policy.Object:
		return v
	case *policy.APIResource:
		if v != nil {
			return v.Object
		}
	case *policy.ListObject:
		if v != nil {
			return v.Object
		}
	}

	return nil
}

func sortedParamKeys(params map[string]interface{}) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete TYPE ID",
		Short: "Delete a resource",
		Long:  "Delete one resource, e.g. 'ten99policy delete webhook_endpoint we_123'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ResolveResourceType(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			resource, err := client.Remove(ctx, rt, args[1])
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", rt.Name, err)
			}

			return writeValue(cmd.OutOrStdout(), resource.Object, "", func() error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", rt.Name, args[1])

				return err
			})
		},
	}

	return cmd
}
