// Package configbinder decodes loosely typed configuration maps (named storage
// and database sections of application.yaml) into typed structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties binds a map of properties to a target struct using mapstructure.
// It uses the "yaml" tag for binding and allows weakly typed input, so values
// that arrived as strings from environment variables ("5432", "true") still
// decode into numeric and boolean fields.
//
// Parameters:
//
//	properties: The map of properties to bind. A nil or empty map is a no-op.
//	target: Pointer to the struct to populate.
//
// Returns:
//
//	An error if binding fails.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}

	decoderConfig := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(properties); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}

	return nil
}

// BindNamed looks up section[name] and binds it to target. The section is the
// raw value decoded from YAML for a map of named entries such as "storage".
func BindNamed(section map[string]interface{}, name string, target interface{}) error {
	raw, ok := section[name]
	if !ok {
		return fmt.Errorf("configuration for '%s' not found", name)
	}
	props, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("configuration for '%s' has unexpected format %T", name, raw)
	}
	return BindProperties(props, target)
}
