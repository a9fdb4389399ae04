// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/katalvlaran/wavemoth/blobstore"
	miniostore "github.com/katalvlaran/wavemoth/blobstore/minio"
	s3store "github.com/katalvlaran/wavemoth/blobstore/s3"
	"github.com/katalvlaran/wavemoth/config"
	"github.com/katalvlaran/wavemoth/resource"
	"gopkg.in/alecthomas/kingpin.v2"
)

// publishCommand uploads a resource file under rev<N>/<nside>.dat and reads
// its header back through the store.
func publishCommand(app *kingpin.Application, g *globals) (*kingpin.CmdClause, handler) {
	cmd := app.Command("publish", "upload a resource file to the configured blob store")
	file := cmd.Arg("file", "resource file").Required().ExistingFile()
	backend := cmd.Flag("backend", "local, s3 or minio (overrides publish.backend)").Enum("local", "s3", "minio")

	return cmd, func(ctx context.Context) int {
		cfg, logger, code := g.setup()
		if code != 0 {
			return code
		}
		defer func() { _ = logger.Sync() }()
		if *backend != "" {
			cfg.Publish.Backend = *backend
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, "wavemoth:", err)

				return 2
			}
		}
		h, err := resource.QueryFile(*file)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}
		store, err := openStore(ctx, cfg.Publish)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}
		name := path.Join("rev"+strconv.Itoa(resource.FormatVersion), strconv.Itoa(h.Nside)+".dat")
		if err = store.Put(ctx, name, data); err != nil {
			logger.Sugar().Errorw("publish", "name", name, "error", err)

			return 1
		}

		blob, err := store.Open(ctx, name)
		if err != nil {
			logger.Sugar().Errorw("publish readback", "name", name, "error", err)

			return 1
		}
		r, err := resource.OpenBlob(blob)
		if err != nil {
			logger.Sugar().Errorw("publish readback", "name", name, "error", err)

			return 1
		}
		defer r.Close()
		if r.Header() != h || r.Size() != int64(len(data)) {
			logger.Sugar().Errorw("publish readback mismatch", "name", name, "header", r.Header(), "size", r.Size())

			return 1
		}
		logger.Sugar().Infow("published",
			"backend", cfg.Publish.Backend,
			"name", name,
			"keys", len(r.Keys()),
			"size", humanize.Bytes(uint64(len(data))))

		return 0
	}
}

func openStore(ctx context.Context, p config.Publish) (blobstore.Store, error) {
	switch p.Backend {
	case "s3":
		var opts []func(*awsconfig.LoadOptions) error
		if p.Region != "" {
			opts = append(opts, awsconfig.WithRegion(p.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("publish: aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if p.Endpoint != "" {
				o.BaseEndpoint = aws.String(p.Endpoint)
				o.UsePathStyle = true
			}
		})

		return s3store.NewStore(client, p.Bucket, p.Prefix), nil
	case "minio":
		client, err := miniostore.Dial(p.Endpoint, os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), p.Secure)
		if err != nil {
			return nil, err
		}

		return miniostore.NewStore(client, p.Bucket, p.Prefix), nil
	}
	root := p.Root
	if root == "" {
		root = "."
	}

	return blobstore.NewLocalStore(filepath.Join(root, filepath.FromSlash(p.Prefix))), nil
}
