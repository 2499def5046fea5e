package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/indicatord/internal/logging"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "INDICATORD_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills the flat options struct opts from the TOML file named by
// its Config field and from INDICATORD_* environment variables. Precedence
// is CLI flag > environment > file > the struct's defaults; flags the user
// set on cmd are never touched. Values that do not convert are reported
// together and leave their field unchanged.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	doc, err := readTOML(configPath(v))
	if err != nil {
		return err
	}
	changed := changedFlags(cmd)

	var errs []error
	for i := range t.NumField() {
		ft := t.Field(i)
		field := v.Field(i)
		if !field.CanSet() || changed[fieldNameToFlag(ft.Name)] {
			continue
		}

		if key := ft.Tag.Get("env"); key != "" {
			if s := os.Getenv(EnvPrefix + key); s != "" {
				if err := setFieldValueFromString(field, s); err != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				}
				continue
			}
		}

		if path := ft.Tag.Get("toml"); path != "" && doc != nil {
			if value := getNestedValue(doc, path); value != nil {
				if err := setFieldValue(field, value); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func configPath(v reflect.Value) string {
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return ""
}

// readTOML returns nil without error when the file does not exist.
func readTOML(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

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

// fieldNameToFlag converts a struct field name to the kebab-case flag name
// humacli derives from it. Acronyms stay together.
// Example: "LoggingLevel" -> "logging-level", "LEDModbusUnit" -> "led-modbus-unit".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			acronymEnd := unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || acronymEnd {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current[parts[len(parts)-1]]
}

// setFieldValue stores a decoded TOML value. Arrays become comma lists for
// string fields so `profiles = ["red", "green"]` and "red,green" agree.
func setFieldValue(field reflect.Value, value any) error {
	if field.Type() == durationType {
		switch d := value.(type) {
		case string:
			return setFieldValueFromString(field, d)
		case int64:
			// Bare integers are milliseconds.
			field.SetInt(int64(time.Duration(d) * time.Millisecond))
			return nil
		}
		return fmt.Errorf("want a duration, got %T", value)
	}

	switch field.Kind() {
	case reflect.String:
		switch s := value.(type) {
		case string:
			field.SetString(s)
		case []any:
			parts, err := stringList(s)
			if err != nil {
				return err
			}
			field.SetString(strings.Join(parts, ","))
		default:
			return fmt.Errorf("want a string, got %T", value)
		}
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want a boolean, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, ok := value.(int64)
		if !ok {
			return fmt.Errorf("want an integer, got %T", value)
		}
		field.SetInt(i)
	case reflect.Float64:
		switch f := value.(type) {
		case float64:
			field.SetFloat(f)
		case int64:
			field.SetFloat(float64(f))
		default:
			return fmt.Errorf("want a number, got %T", value)
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("want a list of strings, got %T", value)
		}
		parts, err := stringList(arr)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}

func stringList(arr []any) ([]string, error) {
	out := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("item %d: want a string, got %T", i, item)
		}
		out[i] = s
	}
	return out, nil
}

// setFieldValueFromString parses an environment value into field.
func setFieldValueFromString(field reflect.Value, value string) error {
	if field.Type() == durationType {
		if d, err := time.ParseDuration(value); err == nil {
			field.SetInt(int64(d))
			return nil
		}
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not a duration", value)
		}
		field.SetInt(int64(time.Duration(ms) * time.Millisecond))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%q is not a boolean", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not an integer", value)
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", value)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported list type %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table: level, format and
// buffer_size, with every other key taken as a module level. A missing or
// unreadable file yields the defaults.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	doc, err := readTOML(configPath)
	if err != nil || doc == nil {
		return cfg
	}
	table, _ := doc["logging"].(map[string]any)

	for key, raw := range table {
		if key == "buffer_size" {
			if n, ok := raw.(int64); ok {
				cfg.BufferSize = int(n)
			}
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
