// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/matchprep/core"
	"github.com/poiesic/matchprep/pipeline"
	"github.com/poiesic/matchprep/storage"
)

func main() {
	app := &cli.App{
		Name:  "matchprep",
		Usage: "Prepare record-pair matching datasets with cached embeddings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "process",
				Usage:  "Process train/validation/test CSV files and write the cache bundle",
				Action: processCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "train",
						Usage:    "Path to the training CSV file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "validation",
						Usage:    "Path to the validation CSV file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "test",
						Usage:    "Path to the test CSV file",
						Required: true,
					},
				}, configFlags()...),
			},
			{
				Name:   "process-unlabeled",
				Usage:  "Process an unlabeled CSV file against an existing cache bundle",
				Action: processUnlabeledCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Usage:    "Path to the unlabeled CSV file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "bundle",
						Usage: "Path to a cache bundle whose vocabulary and embeddings are reused",
					},
				}, configFlags()...),
			},
			{
				Name:   "inspect",
				Usage:  "Print the fingerprint and contents summary of a cache bundle",
				Action: inspectCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "bundle",
						Aliases:  []string{"b"},
						Usage:    "Path to the cache bundle file",
						Required: true,
					},
				},
			},
			{
				Name:   "reset-embedding-cache",
				Usage:  "Delete the on-disk embedding cache so sources are re-fetched",
				Action: resetEmbeddingCacheCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dir",
						Usage:    "Embedding cache directory to delete",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// configFlags covers every processing knob, shared by the process commands.
func configFlags() []cli.Flag {
	defaults := core.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML configuration file (flags override its values)",
		},
		&cli.StringFlag{
			Name:  "left-prefix",
			Usage: "Header prefix marking left-record columns",
			Value: defaults.LeftPrefix,
		},
		&cli.StringFlag{
			Name:  "right-prefix",
			Usage: "Header prefix marking right-record columns",
			Value: defaults.RightPrefix,
		},
		&cli.StringFlag{
			Name:  "label-attr",
			Usage: "Header name of the match label column",
			Value: defaults.LabelAttr,
		},
		&cli.StringFlag{
			Name:  "id-attr",
			Usage: "Header name of the pair identifier column",
			Value: defaults.IDAttr,
		},
		&cli.StringSliceFlag{
			Name:  "ignore",
			Usage: "Header name to exclude from processing (repeatable)",
		},
		&cli.StringFlag{
			Name:  "tokenizer",
			Usage: "Tokenization strategy (simple, alnum)",
			Value: defaults.Tokenizer,
		},
		&cli.BoolFlag{
			Name:  "lowercase",
			Usage: "Lowercase every token after tokenization",
			Value: defaults.Lowercase,
		},
		&cli.StringFlag{
			Name:  "embedding-source",
			Usage: "Embedding source spec, e.g. hash:300, file:/data/wiki.vec, api:model@host",
			Value: defaults.EmbeddingSource,
		},
		&cli.StringFlag{
			Name:  "embedding-cache-dir",
			Usage: "On-disk embedding cache directory",
			Value: defaults.EmbeddingCacheDir,
		},
		&cli.StringFlag{
			Name:  "cache-file",
			Usage: "Cache bundle filename written next to the training file",
			Value: defaults.CacheFile,
		},
		&cli.BoolFlag{
			Name:  "check-cached-data",
			Usage: "Verify the bundle fingerprint before trusting it",
			Value: defaults.CheckCachedData,
		},
		&cli.BoolFlag{
			Name:  "auto-rebuild-cache",
			Usage: "Rebuild a stale bundle instead of failing",
			Value: defaults.AutoRebuildCache,
		},
		&cli.BoolFlag{
			Name:  "hash-contents",
			Usage: "Fingerprint input files by content hash instead of size and mtime",
			Value: defaults.HashContents,
		},
	}
}

// resolveConfig layers defaults, then the YAML file, then any flag the user
// set explicitly on the command line.
func resolveConfig(c *cli.Context) (core.Config, error) {
	cfg := core.DefaultConfig()

	if path := c.String("config"); path != "" {
		if err := applyConfigFile(path, &cfg); err != nil {
			return core.Config{}, err
		}
	}

	if c.IsSet("left-prefix") {
		cfg.LeftPrefix = c.String("left-prefix")
	}
	if c.IsSet("right-prefix") {
		cfg.RightPrefix = c.String("right-prefix")
	}
	if c.IsSet("label-attr") {
		cfg.LabelAttr = c.String("label-attr")
	}
	if c.IsSet("id-attr") {
		cfg.IDAttr = c.String("id-attr")
	}
	if c.IsSet("ignore") {
		cfg.IgnoredColumns = c.StringSlice("ignore")
	}
	if c.IsSet("tokenizer") {
		cfg.Tokenizer = c.String("tokenizer")
	}
	if c.IsSet("lowercase") {
		cfg.Lowercase = c.Bool("lowercase")
	}
	if c.IsSet("embedding-source") {
		cfg.EmbeddingSource = c.String("embedding-source")
	}
	if c.IsSet("embedding-cache-dir") {
		cfg.EmbeddingCacheDir = c.String("embedding-cache-dir")
	}
	if c.IsSet("cache-file") {
		cfg.CacheFile = c.String("cache-file")
	}
	if c.IsSet("check-cached-data") {
		cfg.CheckCachedData = c.Bool("check-cached-data")
	}
	if c.IsSet("auto-rebuild-cache") {
		cfg.AutoRebuildCache = c.Bool("auto-rebuild-cache")
	}
	if c.IsSet("hash-contents") {
		cfg.HashContents = c.Bool("hash-contents")
	}

	return cfg, cfg.Validate()
}

func processCommand(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	p := pipeline.New()
	defer p.Close()

	res, err := p.Process(context.Background(), cfg, c.String("train"), c.String("validation"), c.String("test"))
	if err != nil {
		var stale *core.StaleCacheError
		if errors.As(err, &stale) {
			fmt.Fprintln(os.Stderr, "cached data is stale:")
			for _, d := range stale.Diffs {
				fmt.Fprintf(os.Stderr, "  %s\n", d)
			}
			fmt.Fprintln(os.Stderr, "re-run with --auto-rebuild-cache to rebuild")
		}
		return err
	}

	origin := "built"
	if res.FromCache {
		origin = "loaded from cache"
	}
	fmt.Fprintf(os.Stderr, "Processed data %s\n", origin)
	fmt.Fprintf(os.Stderr, "  train: %d examples\n", len(res.Train.Examples))
	fmt.Fprintf(os.Stderr, "  validation: %d examples\n", len(res.Validation.Examples))
	fmt.Fprintf(os.Stderr, "  test: %d examples\n", len(res.Test.Examples))
	fmt.Fprintf(os.Stderr, "  vocabulary: %d tokens\n", res.Vocabulary.Size())
	fmt.Fprintf(os.Stderr, "  embeddings: %d vectors of %d dims, %d unresolved\n",
		len(res.Embeddings.Vectors), res.Embeddings.Dims, len(res.Embeddings.Unresolved))
	return nil
}

func processUnlabeledCommand(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	var known *pipeline.Result
	if path := c.String("bundle"); path != "" {
		b, err := storage.ReadBundle(path)
		if err != nil {
			return fmt.Errorf("failed to read bundle: %w", err)
		}
		known = &pipeline.Result{
			Vocabulary: b.Vocabulary,
			Embeddings: b.Embeddings,
			FromCache:  true,
		}
	}

	p := pipeline.New()
	defer p.Close()

	res, err := p.ProcessUnlabeled(context.Background(), cfg, c.String("input"), known)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Processed %d unlabeled examples\n", len(res.Dataset.Examples))
	fmt.Fprintf(os.Stderr, "  vocabulary: %d tokens\n", res.Vocabulary.Size())
	fmt.Fprintf(os.Stderr, "  embeddings: %d vectors, %d unresolved\n",
		len(res.Embeddings.Vectors), len(res.Embeddings.Unresolved))
	return nil
}

func inspectCommand(c *cli.Context) error {
	b, err := storage.ReadBundle(c.String("bundle"))
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}

	fmt.Printf("digest: %s\n", b.Fingerprint.Digest)
	fmt.Println("fingerprint entries:")
	for _, e := range b.Fingerprint.Entries {
		fmt.Printf("  %s\n", e)
	}
	fmt.Printf("train: %d examples\n", exampleCount(b.Train))
	fmt.Printf("validation: %d examples\n", exampleCount(b.Validation))
	fmt.Printf("test: %d examples\n", exampleCount(b.Test))
	if b.Vocabulary != nil {
		fmt.Printf("vocabulary: %d tokens\n", b.Vocabulary.Size())
	}
	if b.Embeddings != nil {
		fmt.Printf("embeddings: %d vectors of %d dims, %d unresolved\n",
			len(b.Embeddings.Vectors), b.Embeddings.Dims, len(b.Embeddings.Unresolved))
	}
	return nil
}

func resetEmbeddingCacheCommand(c *cli.Context) error {
	dir := c.String("dir")
	if dir == "" || dir == "/" {
		return fmt.Errorf("refusing to delete %q", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete embedding cache: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Deleted embedding cache at %s\n", dir)
	return nil
}

func exampleCount(ds *core.Dataset) int {
	if ds == nil {
		return 0
	}
	return len(ds.Examples)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
