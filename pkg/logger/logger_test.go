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

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    zerolog.Level
		wantErr bool
	}{
		{name: "default info", cfg: Config{Output: "stdout"}, want: zerolog.InfoLevel},
		{name: "explicit warn", cfg: Config{Level: "warn", Output: "stderr"}, want: zerolog.WarnLevel},
		{name: "debug flag wins", cfg: Config{Level: "error", Debug: true}, want: zerolog.DebugLevel},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
		{name: "bad output", cfg: Config{Output: "syslog"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(&tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			zl, ok := l.(*zeroLogger)
			require.True(t, ok)
			assert.Equal(t, tt.want, zl.logger.GetLevel())
		})
	}
}

func TestWithComponentAddsField(t *testing.T) {
	var buf bytes.Buffer

	l := FromZerolog(zerolog.New(&buf)).WithComponent("prober")
	l.Info().Str("address", "10.0.0.1").Msg("probe")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "prober", line["component"])
	assert.Equal(t, "10.0.0.1", line["address"])
}

func TestSetDebug(t *testing.T) {
	l := FromZerolog(zerolog.New(&bytes.Buffer{}).Level(zerolog.InfoLevel))

	l.SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, l.(*zeroLogger).logger.GetLevel())

	l.SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, l.(*zeroLogger).logger.GetLevel())
}

func TestConfigMerge(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_OUTPUT", "stderr")

	merged := (&Config{Level: "debug"}).Merge()
	assert.Equal(t, "debug", merged.Level)
	assert.Equal(t, "stderr", merged.Output)

	var nilCfg *Config
	assert.Equal(t, "warn", nilCfg.Merge().Level)
}
