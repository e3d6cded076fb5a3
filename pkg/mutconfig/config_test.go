// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutconfig

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/protomut/protomut/pkg/codec"
	"github.com/protomut/protomut/pkg/osutil"
	"github.com/protomut/protomut/pkg/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func writeSchema(t *testing.T) string {
	data, err := proto.Marshal(testutil.DescriptorSet())
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "set.pb")
	require.NoError(t, osutil.WriteFile(file, data))
	return file
}

func TestLoadFile(t *testing.T) {
	set := writeSchema(t)
	dir := t.TempDir()
	files := map[string]string{
		"cfg.json": fmt.Sprintf(`
# comments are fine
{
	"schema": %q,
	"message": "protomut.test.Node",
	"format": "text",
	"seed": 42,
	"keep_initialized": true,
	"crossover_prob": 0.5
}`, set),
		"cfg.yaml": fmt.Sprintf(`
schema: %q
message: protomut.test.Node
format: text
seed: 42
keep_initialized: true
crossover_prob: 0.5
`, set),
	}
	for name, data := range files {
		file := filepath.Join(dir, name)
		require.NoError(t, osutil.WriteFile(file, []byte(data)))
		cfg, err := LoadFile(file)
		require.NoError(t, err, name)
		require.Equal(t, codec.Text, cfg.Format)
		require.Equal(t, int64(42), cfg.Seed)
		require.Equal(t, 4096, cfg.MaxSize)
		require.Equal(t, 5, cfg.MaxRepeatedAdd)
		require.Equal(t, 0.5, cfg.CrossOverProb)
		require.Equal(t, "protomut.test.Node", string(cfg.Type.Descriptor().FullName()))

		m := cfg.NewMutator(testutil.RandSource(t))
		require.True(t, m.KeepInitialized)
		h := cfg.NewHelper()
		require.Equal(t, 0.5, h.CrossOverProb)
		out := h.Fuzz(nil, nil, 100)
		require.LessOrEqual(t, len(out), 100)
	}
}

func TestLoadErrors(t *testing.T) {
	set := writeSchema(t)
	tests := []string{
		`{}`,
		`{"message": "protomut.test.Node", "unknown": 1}`,
		`{"message": "protomut.test.Missing", "schema": %q}`,
		`{"message": "protomut.test.Node", "schema": %q, "format": "json"}`,
		`{"message": "protomut.test.Node", "schema": %q, "max_size": -1}`,
		`{"message": "protomut.test.Node", "schema": %q, "max_repeated_add": -1}`,
		`{"message": "protomut.test.Node", "schema": %q, "crossover_prob": 2}`,
		`{"message": "protomut.test.Node", "schema": "/nonexistent"}`,
	}
	for i, test := range tests {
		data := test
		if i >= 2 && i < len(tests)-1 {
			data = fmt.Sprintf(test, set)
		}
		_, err := LoadData([]byte(data))
		require.Error(t, err, "%v", data)
	}
}

func TestDefaultSeed(t *testing.T) {
	cfg, err := LoadData([]byte(`{"message": "google.protobuf.FileDescriptorSet"}`))
	require.NoError(t, err)
	require.NotEqual(t, int64(-1), cfg.Seed)
	require.Equal(t, codec.Binary, cfg.Format)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.json")
	require.NoError(t, osutil.WriteFile(base, []byte(`{"message": "protomut.test.Node", "max_size": 100, "seed": 1}`)))
	override := filepath.Join(dir, "override.yml")
	require.NoError(t, osutil.WriteFile(override, []byte("max_size: 200\nschema: "+writeSchema(t)+"\n")))
	cfg, err := LoadFiles([]string{base, override})
	require.NoError(t, err)
	require.Nil(t, cfg.Type, "not completed yet")
	require.NoError(t, Complete(cfg))
	require.Equal(t, 200, cfg.MaxSize)
	require.Equal(t, int64(1), cfg.Seed)
	require.Equal(t, "protomut.test.Node", cfg.Message)

	cfg, err = LoadFiles(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultValues(), cfg)
	_, err = LoadFiles([]string{filepath.Join(dir, "missing.json")})
	require.Error(t, err)
}
