// Copyright 2025 Inferaflow
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/inferaflow/docustore"
	"github.com/inferaflow/docustore/blob"
	s3store "github.com/inferaflow/docustore/blob/s3"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/embedding"
)

func main() {
	dbFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:    "embedding-api-key",
			Usage:   "Bearer token for the embedding service",
			EnvVars: []string{"DOCUSTORE_EMBEDDING_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "S3-compatible endpoint URL (omit to keep payloads in memory)",
		},
		&cli.StringFlag{
			Name:  "s3-region",
			Usage: "S3 bucket region",
			Value: "us-east-1",
		},
		&cli.StringFlag{
			Name:    "s3-access-key",
			Usage:   "S3 access key ID",
			EnvVars: []string{"DOCUSTORE_S3_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "s3-secret-key",
			Usage:   "S3 secret access key",
			EnvVars: []string{"DOCUSTORE_S3_SECRET_KEY"},
		},
		&cli.StringFlag{
			Name:  "s3-bucket",
			Usage: "S3 bucket holding document payloads",
		},
	}

	app := &cli.App{
		Name:  "docustore",
		Usage: "Document ingestion and semantic retrieval store",
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
				Name:      "ingest",
				Usage:     "Ingest a document and process it into searchable chunks",
				ArgsUsage: "FILE",
				Action:    ingestCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "owner",
						Usage:    "Owner user ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "org-tag",
						Usage: "Organization tag to share the document with",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the document visible to everyone",
					},
				}, dbFlags...),
			},
			{
				Name:   "list",
				Usage:  "List documents visible to a user",
				Action: listCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Usage:    "User ID listing on behalf of",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Organization tag assigned to the user (repeatable)",
					},
				}, dbFlags...),
			},
			{
				Name:      "search",
				Usage:     "Search visible documents by semantic similarity",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Usage:    "User ID searching on behalf of",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Organization tag assigned to the user (repeatable)",
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Minimum similarity score",
						Value: 0.5,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of matches",
						Value: 10,
					},
				}, dbFlags...),
			},
			{
				Name:      "delete",
				Usage:     "Delete a document from every store",
				ArgsUsage: "FINGERPRINT",
				Action:    deleteCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "requester",
						Usage: "Requesting user ID (omit for administrative deletion)",
					},
				}, dbFlags...),
			},
			{
				Name:      "reprocess",
				Usage:     "Re-run processing for a document from the start",
				ArgsUsage: "FINGERPRINT",
				Action:    reprocessCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Owner user ID",
					},
				}, dbFlags...),
			},
			{
				Name:   "migrate-blobs",
				Usage:  "Move payloads from legacy file-name keys to fingerprint keys",
				Action: migrateCommand,
				Flags:  dbFlags,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(c *cli.Context) (*docustore.Database, error) {
	opts := []docustore.DatabaseOption{
		docustore.WithEmbeddingConfig(embedding.NewConfig(
			embedding.WithBaseURL(c.String("embedding-host")),
			embedding.WithModel(c.String("embedding-model")),
			embedding.WithAPIKey(c.String("embedding-api-key")),
		)),
	}

	store, err := openBlobStore(c)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, docustore.WithBlobStore(store))
	}

	return docustore.NewDatabase(c.String("db"), opts...)
}

func openBlobStore(c *cli.Context) (blob.Store, error) {
	if c.String("s3-endpoint") == "" && c.String("s3-bucket") == "" {
		slog.Warn("no S3 configuration given, payloads are kept in memory only")
		return nil, nil
	}

	store, err := s3store.NewClient(&s3store.Config{
		Endpoint:        c.String("s3-endpoint"),
		Region:          c.String("s3-region"),
		AccessKeyID:     c.String("s3-access-key"),
		SecretAccessKey: c.String("s3-secret-key"),
		Bucket:          c.String("s3-bucket"),
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}
	return store, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	record, err := db.Ingest(ctx, filepath.Base(path), data,
		c.String("owner"), c.String("org-tag"), c.Bool("public"))
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Fingerprint: %s\n", record.Fingerprint)

	// Wait for the asynchronous pipeline before the process exits.
	current, err := waitForTerminal(ctx, func() (*core.FileRecord, error) {
		return db.FileRepository().Get(ctx, record.Fingerprint)
	}, ingestPollInterval, ingestWaitTimeout)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Status: %s\n", current.Status)
	if current.ProcessingError != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", current.ProcessingError)
	}
	return nil
}

const (
	ingestPollInterval = 200 * time.Millisecond
	ingestWaitTimeout  = 5 * time.Minute
)

// waitForTerminal polls the record until processing settles. A failed
// queue submission leaves the record pending forever, so the wait is
// bounded by timeout instead of spinning until interrupted.
func waitForTerminal(ctx context.Context, get func() (*core.FileRecord, error), interval, timeout time.Duration) (*core.FileRecord, error) {
	deadline := time.Now().Add(timeout)
	for {
		record, err := get()
		if err != nil {
			return nil, err
		}
		if record.Status.IsTerminal() {
			return record, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("processing did not settle within %s (last status %s)", timeout, record.Status)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func listCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListVisible(context.Background(), c.String("user"), c.StringSlice("tag"))
	if err != nil {
		return err
	}

	for _, record := range records {
		fmt.Printf("%s  %-12s  %-10s  %s\n",
			record.Fingerprint, record.Status, record.OwnerID, record.Name)
	}
	fmt.Fprintf(os.Stderr, "%d documents\n", len(records))
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one query argument")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := db.Search(context.Background(), c.Args().First(),
		c.String("user"), c.StringSlice("tag"),
		float32(c.Float64("min-similarity")), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	for _, match := range matches {
		fmt.Printf("%.3f  %s#%d\n  %s\n",
			match.Score, match.Entry.Fingerprint, match.Entry.ChunkIndex,
			firstLine(match.Entry.Content))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one fingerprint argument")
	}
	fingerprint := core.Fingerprint(c.Args().First())

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := db.Delete(context.Background(), fingerprint, c.String("requester"))
	if err != nil {
		return fmt.Errorf("deletion failed: %w", err)
	}

	for _, step := range report.Failed() {
		fmt.Fprintf(os.Stderr, "step %s failed: %v\n", step.Name, step.Err)
	}
	fmt.Fprintf(os.Stderr, "Deleted %s\n", fingerprint)
	return nil
}

func reprocessCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one fingerprint argument")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	fingerprint := core.Fingerprint(c.Args().First())
	if err := db.Reprocess(context.Background(), fingerprint, c.String("owner")); err != nil {
		return fmt.Errorf("reprocessing failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Requeued %s\n", fingerprint)
	return nil
}

func migrateCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := db.Migrator().MigrateBlobs(context.Background())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Migrated: %d\nAlready current: %d\nMissing: %d\nFailed: %d\n",
		report.Migrated, report.AlreadyCurrent, report.Missing, report.Failed)
	return nil
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

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
