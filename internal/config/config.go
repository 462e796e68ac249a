// Package config handles ffdrive configuration: the precedence loader
// for CLI options, the TOML job store, and the definitions-file watcher.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix namespaces every environment override.
const envPrefix = "FFDRIVE_"

// LoadConfig fills an options struct with precedence CLI > environment >
// TOML file. Fields opt in via `toml:"section.key"` and `env:"KEY"` tags;
// a field named Config names the TOML file to read. When cmd is given,
// flags the user set explicitly on the command line are left alone.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := changedFlags(cmd)

	var configPath string
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Name == "Config" {
			configPath = v.Field(i).String()
			break
		}
	}

	if configPath != "" {
		if err := applyTOMLFile(v, t, configPath, changed); err != nil {
			return err
		}
	}

	applyEnv(v, t, changed)
	return nil
}

// changedFlags collects the flag names the user set explicitly.
func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

// applyTOMLFile overlays values from the TOML file onto fields not
// already pinned by a CLI flag. A missing file is not an error.
func applyTOMLFile(v reflect.Value, t reflect.Type, path string, changed map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var file map[string]any
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}

	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if changed[fieldNameToFlag(fieldType.Name)] {
			continue
		}
		if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" {
			if value := getNestedValue(file, tomlPath); value != nil {
				setFieldValue(v.Field(i), value)
			}
		}
	}
	return nil
}

// applyEnv overlays FFDRIVE_-prefixed environment variables onto fields
// not already pinned by a CLI flag.
func applyEnv(v reflect.Value, t reflect.Type, changed map[string]bool) {
	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if changed[fieldNameToFlag(fieldType.Name)] {
			continue
		}
		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(envPrefix + envKey); envValue != "" {
				setFieldValueFromString(v.Field(i), envValue)
			}
		}
	}
}

// fieldNameToFlag converts a struct field name to its CLI flag name,
// "LoggingLevel" to "logging-level".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue walks a dot-notation path through nested TOML tables.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue assigns a decoded TOML value to a struct field.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int:
		if i, ok := value.(int64); ok {
			field.SetInt(i)
		} else if i, intOk := value.(int); intOk {
			field.SetInt(int64(i))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			if arr, ok := value.([]any); ok {
				slice := make([]string, len(arr))
				for i, v := range arr {
					if s, strOk := v.(string); strOk {
						slice[i] = s
					}
				}
				field.Set(reflect.ValueOf(slice))
			}
		}
	}
}

// setFieldValueFromString assigns an environment value to a struct
// field. Slices split on commas.
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			slice := make([]string, len(parts))
			for i, part := range parts {
				slice[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
}

