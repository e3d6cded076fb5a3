// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// proto-mutate mutates a given serialized message and prints the result,
// or mutates a whole corpus directory.
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/protomut/protomut/pkg/codec"
	"github.com/protomut/protomut/pkg/config"
	"github.com/protomut/protomut/pkg/hash"
	"github.com/protomut/protomut/pkg/log"
	"github.com/protomut/protomut/pkg/mutconfig"
	"github.com/protomut/protomut/pkg/osutil"
	"github.com/protomut/protomut/pkg/stat"
	"github.com/protomut/protomut/pkg/tool"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/prototext"
	"gopkg.in/yaml.v3"
)

var (
	flagConfigs tool.CfgsFlag
	flagSchema  = flag.String("schema", "", "descriptor set with the message definitions")
	flagMessage = flag.String("message", "", "full name of the top-level message")
	flagFormat  = flag.String("format", "", "input format: binary or text")
	flagSeed    = flag.Int64("seed", -1, "prng seed")
	flagMaxSize = flag.Int("max_size", 0, "max size of the result")
	flagCross   = flag.String("cross", "", "cross over the input with this file instead of mutating it")
	flagText    = flag.Bool("text", false, "print the result in text format")
	flagCorpus  = flag.String("corpus", "", "mutate all files in this dir")
	flagOut     = flag.String("out", "", "dir to write mutated corpus files to")
	flagRounds  = flag.Int("rounds", 1, "number of mutations of every corpus file")
	flagWorkers = flag.Int("workers", runtime.NumCPU(), "number of parallel corpus workers")
	flagMetrics = flag.String("metrics", "", "serve Prometheus metrics on this address")
	flagStats   = flag.Bool("stats", false, "print stats in YAML format at exit")
	flagSave    = flag.String("save_config", "", "save the effective config to this file and exit")
)

func main() {
	flag.Var(&flagConfigs, "config", "comma-separated list of config files")
	defer tool.Init()()
	cfg, err := loadConfig()
	if err != nil {
		tool.Fail(err)
	}
	if *flagSave != "" {
		if err := config.SaveFile(*flagSave, cfg); err != nil {
			tool.Fail(err)
		}
		return
	}
	if *flagMetrics != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*flagMetrics, nil); err != nil {
				log.Fatalf("failed to serve metrics: %v", err)
			}
		}()
	}
	if *flagCorpus != "" {
		if *flagOut == "" {
			tool.Failf("-corpus requires -out")
		}
		written, err := mutateCorpus(cfg, *flagCorpus, *flagOut, *flagRounds, *flagWorkers)
		if err != nil {
			tool.Fail(err)
		}
		log.Logf(0, "written %v new inputs to %v", written, *flagOut)
		for _, st := range stat.Collect(stat.Console) {
			log.Logf(0, "%v: %v", st.Name, st.Value)
		}
	} else if err := mutateOne(cfg, flag.Arg(0), *flagCross, os.Stdout); err != nil {
		tool.Fail(err)
	}
	if *flagStats {
		if err := dumpStats(os.Stdout); err != nil {
			tool.Fail(err)
		}
	}
}

func loadConfig() (*mutconfig.Config, error) {
	cfg, err := mutconfig.LoadFiles(flagConfigs)
	if err != nil {
		return nil, err
	}
	if *flagSchema != "" {
		cfg.Schema = *flagSchema
	}
	if *flagMessage != "" {
		cfg.Message = *flagMessage
	}
	if *flagFormat != "" {
		cfg.RawFormat = *flagFormat
	}
	if *flagSeed != -1 {
		cfg.Seed = *flagSeed
	}
	if *flagMaxSize != 0 {
		cfg.MaxSize = *flagMaxSize
	}
	if err := mutconfig.Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mutateOne mutates the input file (an empty message if not given) and writes the result to w.
func mutateOne(cfg *mutconfig.Config, input, cross string, w io.Writer) error {
	var data []byte
	if input != "" {
		var err error
		if data, err = os.ReadFile(input); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}
	a := cfg.NewAdapter(cfg.Seed)
	var out []byte
	if cross != "" {
		other, err := os.ReadFile(cross)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		out = a.CrossOver(cfg.Seed, data, other, cfg.MaxSize)
	} else {
		out = a.Mutate(cfg.Seed, data, cfg.MaxSize)
	}
	if *flagText && cfg.Format == codec.Binary {
		msg := cfg.Type.New()
		if err := codec.Decode(codec.Binary, out, msg); err != nil {
			return err
		}
		text, err := prototext.MarshalOptions{Multiline: true, AllowPartial: true}.Marshal(msg.Interface())
		if err != nil {
			return err
		}
		out = text
	}
	_, err := w.Write(out)
	return err
}

// mutateCorpus mutates every file in dir rounds times and saves new results to outDir.
// Seeds are derived from the file contents, so the results do not depend on the number of workers.
func mutateCorpus(cfg *mutconfig.Config, dir, outDir string, rounds, workers int) (int, error) {
	files, err := osutil.ListDir(dir)
	if err != nil {
		return 0, err
	}
	if err := osutil.MkdirAll(outDir); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}
	workers = max(1, min(workers, len(files)))
	var written atomic.Int64
	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		eg.Go(func() error {
			a := cfg.NewAdapter(cfg.Seed + int64(w))
			for i := w; i < len(files); i += workers {
				data, err := os.ReadFile(filepath.Join(dir, files[i]))
				if err != nil {
					return fmt.Errorf("failed to read corpus file: %w", err)
				}
				rnd := rand.New(rand.NewSource(cfg.Seed ^ hash.Hash(data).Seed()))
				for round := 0; round < rounds; round++ {
					out := a.Mutate(rnd.Int63(), data, cfg.MaxSize)
					if len(out) == 0 {
						continue
					}
					file := filepath.Join(outDir, hash.String(out))
					if osutil.IsExist(file) {
						continue
					}
					if err := osutil.WriteFile(file, out); err != nil {
						return err
					}
					written.Add(1)
					log.Logf(2, "%v -> %v", files[i], filepath.Base(file))
				}
			}
			return nil
		})
	}
	err = eg.Wait()
	return int(written.Load()), err
}

func dumpStats(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(stat.Collect(stat.All))
}
