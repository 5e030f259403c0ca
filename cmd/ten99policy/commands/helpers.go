package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ten99policy/ten99policy-go/internal/constants"
	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"

	defaultJSONIndent = 2
)

// ParseAssignments turns KEY=VALUE pairs into request params. Values are
// decoded with the same tolerant JSON reading the SDK applies to API payloads,
// so numbers, booleans and {'single': 'quoted'} documents keep their type.
// Dotted keys build nested maps.
func ParseAssignments(assignments []string) (map[string]interface{}, error) {
	params := map[string]interface{}{}

	for _, assignment := range assignments {
		key, raw, ok := strings.Cut(assignment, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidAssignment, assignment)
		}

		setPath(params, strings.Split(key, "."), policy.DecodeLoose(raw))
	}

	return params, nil
}

func setPath(params map[string]interface{}, path []string, value interface{}) {
	if len(path) == 1 {
		params[path[0]] = value

		return
	}

	child, ok := params[path[0]].(map[string]interface{})
	if !ok {
		child = map[string]interface{}{}
		params[path[0]] = child
	}

	setPath(child, path[1:], value)
}

// ResolveResourceType finds a registered resource type by name, path or type
// name, ignoring case.
func ResolveResourceType(name string) (*policy.ResourceType, error) {
	wanted := strings.ToLower(strings.ReplaceAll(name, "-", "_"))

	for _, rt := range policy.DefaultRegistry().Types() {
		candidates := []string{
			rt.Name,
			rt.Name + "s",
			strings.ReplaceAll(rt.Path, "-", "_"),
			strings.ToLower(rt.TypeName),
		}

		for _, candidate := range candidates {
			if candidate == wanted {
				return rt, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", policy.ErrUnknownResourceType, name)
}

// outputFormat returns the configured output format.
func outputFormat() (string, error) {
	format := viper.GetString("output")

	switch format {
	case "":
		return constants.FormatTable, nil
	case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrInvalidOutput, format)
	}
}

// plainValue converts SDK values into the generic JSON model used by the
// encoders and jq.
func plainValue(value interface{}) (interface{}, error) {
	data, err := policy.MarshalPayload(value)
	if err != nil {
		return nil, err
	}

	var plain interface{}

	err = json.Unmarshal(data, &plain)
	if err != nil {
		return nil, fmt.Errorf("decoding output: %w", err)
	}

	return plain, nil
}

// applyJQ evaluates expression against input and returns every result.
func applyJQ(expression string, input interface{}) ([]interface{}, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq expression: %s, error: %w", expression, err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %s, error: %w", expression, err)
	}

	var results []interface{}

	iter := code.Run(input)

	for {
		result, ok := iter.Next()
		if !ok {
			break
		}

		if errVal, isErr := result.(error); isErr {
			return nil, fmt.Errorf("jq evaluation error: %w", errVal)
		}

		results = append(results, result)
	}

	if len(results) == 0 {
		return nil, constants.ErrEmptyJQResult
	}

	return results, nil
}

// writeValue prints value as JSON or YAML, or calls table for table output.
// A jq expression replaces the value by its results, which are never tabulated.
func writeValue(out io.Writer, value interface{}, jqExpression string, table func() error) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	if jqExpression == "" && format == constants.FormatTable && table != nil {
		return table()
	}

	plain, err := plainValue(value)
	if err != nil {
		return err
	}

	results := []interface{}{plain}

	if jqExpression != "" {
		results, err = applyJQ(jqExpression, plain)
		if err != nil {
			return err
		}
	}

	for _, result := range results {
		err = encode(out, format, result)
		if err != nil {
			return err
		}
	}

	return nil
}

func encode(out io.Writer, format string, value interface{}) error {
	if format == constants.FormatYAML {
		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))
	encoder.SetEscapeHTML(false)

	return encoder.Encode(value)
}

// renderObjectTable prints the fields of obj as a property table.
func renderObjectTable(out io.Writer, obj *policy.Object) error {
	table := tablewriter.NewWriter(out)
	table.Header("Property", "Value")

	for _, key := range obj.Keys() {
		value, _ := obj.Get(key)
		_ = table.Append(key, cellValue(value))
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderPayloadTable prints a diff payload as a property table.
func renderPayloadTable(out io.Writer, payload policy.Payload) error {
	table := tablewriter.NewWriter(out)
	table.Header("Property", "Change")

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		change := cellValue(payload[key])
		if payload[key] == "" {
			change = "(unset)"
		}

		_ = table.Append(key, change)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func cellValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return NotAvailable
	case string:
		return v
	case float64, bool, int, int64:
		return fmt.Sprint(v)
	}

	data, err := policy.MarshalPayload(value)
	if err != nil {
		return fmt.Sprint(value)
	}

	return string(data)
}

// summary picks a human readable label for a list row.
func summary(obj *policy.Object) string {
	if name := obj.GetString("name"); name != "" {
		return name
	}

	fullName := strings.TrimSpace(obj.GetString("first_name") + " " + obj.GetString("last_name"))
	if fullName != "" {
		return fullName
	}

	if email := obj.GetString("email"); email != "" {
		return email
	}

	return NotAvailable
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	if len(secret) <= constants.SecretVisibleSuffix {
		return constants.MaskedSecret
	}

	return constants.MaskedSecret + secret[len(secret)-constants.SecretVisibleSuffix:]
}
