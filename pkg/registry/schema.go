package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// validateSchema checks an action configuration against the JSON schema
// published by its factory. A nil or empty schema accepts any configuration.
func validateSchema(schema, config map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))

	for _, resultError := range result.Errors() {
		details = append(details, resultError.String())
	}

	return errors.New(strings.Join(details, "; "))
}
