// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutconfig

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/protomut/protomut/mutator"
	"github.com/protomut/protomut/pkg/afl"
	"github.com/protomut/protomut/pkg/codec"
	"github.com/protomut/protomut/pkg/config"
	"github.com/protomut/protomut/pkg/schema"
)

func LoadData(data []byte) (*Config, error) {
	cfg := DefaultValues()
	if err := config.LoadData(data, cfg); err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(filename string) (*Config, error) {
	cfg := DefaultValues()
	if err := config.LoadFile(filename, cfg); err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFiles loads several config files one after another into the same config,
// so that later files override parameters of the earlier ones.
// The result is not completed, so the caller may adjust it before calling Complete.
func LoadFiles(filenames []string) (*Config, error) {
	cfg := DefaultValues()
	for _, file := range filenames {
		if err := config.LoadFile(file, cfg); err != nil {
			return nil, fmt.Errorf("%v: %w", file, err)
		}
	}
	return cfg, nil
}

func DefaultValues() *Config {
	return &Config{
		RawFormat:      codec.Binary.String(),
		MaxSize:        4096,
		Seed:           -1,
		MaxRepeatedAdd: mutator.MaxRepeatedAdd,
		CrossOverProb:  afl.DefaultCrossOverProb,
	}
}

// Complete checks the config and fills in the derived fields.
func Complete(cfg *Config) error {
	if cfg.Message == "" {
		return fmt.Errorf("config param message is empty")
	}
	var err error
	if cfg.Format, err = codec.ParseFormat(cfg.RawFormat); err != nil {
		return fmt.Errorf("bad config param format: %w", err)
	}
	if cfg.MaxSize <= 0 {
		return fmt.Errorf("bad config param max_size: %v, want > 0", cfg.MaxSize)
	}
	if cfg.MaxRepeatedAdd < 1 {
		return fmt.Errorf("bad config param max_repeated_add: %v, want >= 1", cfg.MaxRepeatedAdd)
	}
	if cfg.CrossOverProb < 0 || cfg.CrossOverProb > 1 {
		return fmt.Errorf("bad config param crossover_prob: %v, want [0, 1]", cfg.CrossOverProb)
	}
	if cfg.Seed == -1 {
		cfg.Seed = time.Now().UnixNano()
	}
	s, err := schema.LoadFile(cfg.Schema)
	if err != nil {
		return err
	}
	if cfg.Type, err = s.MessageType(cfg.Message); err != nil {
		return err
	}
	return nil
}

// NewMutator creates an engine configured according to cfg.
func (cfg *Config) NewMutator(rs rand.Source) *mutator.Mutator {
	m := mutator.New(rs)
	m.KeepInitialized = cfg.KeepInitialized
	m.MaxRepeatedAdd = cfg.MaxRepeatedAdd
	return m
}

func (cfg *Config) NewAdapter(seed int64) *codec.Adapter {
	return codec.NewAdapter(cfg.Type, cfg.Format, cfg.NewMutator(rand.NewSource(seed)))
}

// NewHelper creates the fuzzer glue with the configured seed.
func (cfg *Config) NewHelper() *afl.Helper {
	h := afl.New(cfg.NewAdapter(cfg.Seed), cfg.Seed)
	h.CrossOverProb = cfg.CrossOverProb
	return h
}
