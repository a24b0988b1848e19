/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/powerscan/pkg/logger"
)

var (
	// ErrDstMustBeNonNilPointer indicates that the destination must be a non-nil pointer.
	ErrDstMustBeNonNilPointer = errors.New("dst must be a non-nil pointer")
	// ErrDstMustBePointerToStruct indicates that the destination must be a pointer to a struct.
	ErrDstMustBePointerToStruct = errors.New("dst must be a pointer to a struct")
)

var durationType = reflect.TypeOf(time.Duration(0))

// EnvConfigLoader loads configuration from environment variables.
// Nested fields join their json tags with underscores, so with the
// POWERSCAN_ prefix NATS.URL is read from POWERSCAN_NATS_URL.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
}

// NewEnvConfigLoader creates a new environment variable config loader.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	return &EnvConfigLoader{
		logger: log,
		prefix: prefix,
	}
}

// Load implements ConfigLoader. A complete JSON document in <prefix>CONFIG_JSON
// takes precedence over individual variables.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	if raw := os.Getenv(e.prefix + "CONFIG_JSON"); raw != "" {
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return fmt.Errorf("failed to unmarshal %sCONFIG_JSON: %w", e.prefix, err)
		}

		return nil
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrDstMustBeNonNilPointer
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return ErrDstMustBePointerToStruct
	}

	e.loadStruct(v, e.prefix)

	return nil
}

func (e *EnvConfigLoader) loadStruct(v reflect.Value, prefix string) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		tag := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}

		name := prefix + strings.ToUpper(strings.ReplaceAll(tag, ".", "_"))

		if err := e.setField(field, name); err != nil && e.logger != nil {
			e.logger.Debug().Err(err).Str("env", name).Msg("Skipping environment variable")
		}
	}
}

func (e *EnvConfigLoader) setField(field reflect.Value, name string) error {
	if isStructLike(field) {
		if field.Kind() == reflect.Ptr {
			if !e.hasPrefix(name + "_") {
				return nil
			}

			if field.IsNil() {
				field.Set(reflect.New(field.Type().Elem()))
			}

			field = field.Elem()
		}

		e.loadStruct(field, name+"_")

		return nil
	}

	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return nil
	}

	return setScalar(field, name, raw)
}

func (*EnvConfigLoader) hasPrefix(prefix string) bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}

	return false
}

func isStructLike(field reflect.Value) bool {
	if field.Kind() == reflect.Struct {
		return true
	}

	return field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct
}

func setScalar(field reflect.Value, name, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", name, err)
		}

		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(field, name, raw)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer value for %s: %w", name, err)
		}

		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid float value for %s: %w", name, err)
		}

		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(raw, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}

			field.Set(reflect.ValueOf(parts).Convert(field.Type()))

			return nil
		}

		return unmarshalInto(field, name, raw)
	default:
		return unmarshalInto(field, name, raw)
	}

	return nil
}

// setInt handles plain integers and duration-like types, which accept "5s" strings.
func setInt(field reflect.Value, name, raw string) error {
	if t := field.Type(); t == durationType || t.Name() == "Duration" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", name, err)
		}

		field.SetInt(int64(d))

		return nil
	}

	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer value for %s: %w", name, err)
	}

	field.SetInt(i)

	return nil
}

func unmarshalInto(field reflect.Value, name, raw string) error {
	if err := json.Unmarshal([]byte(raw), field.Addr().Interface()); err != nil {
		return fmt.Errorf("unsupported value for %s: %w", name, err)
	}

	return nil
}
