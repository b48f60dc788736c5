package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hupe1980/strata/blobstore"
	"github.com/hupe1980/strata/blobstore/minio"
	"github.com/hupe1980/strata/blobstore/s3"
)

const cacheBlockSize = 64 << 10

// location is a blob name inside a store.
type location struct {
	store  blobstore.BlobStore
	name   string
	remote bool
}

// parseLocation resolves a local path, s3:// or minio:// URI. Remote stores
// are wrapped in a block cache of cacheBytes when it is positive.
func parseLocation(ctx context.Context, uri string, cacheBytes int64) (location, error) {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return location{
			store: blobstore.NewLocalStore(filepath.Dir(uri)),
			name:  filepath.Base(uri),
		}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return location{}, fmt.Errorf("parse location %q: %w", uri, err)
	}

	var loc location
	switch scheme {
	case "s3":
		prefix, name := splitKey(strings.TrimPrefix(u.Path, "/"))
		if u.Host == "" || name == "" {
			return location{}, fmt.Errorf("location %q: want s3://bucket/[prefix/]name", uri)
		}
		opts := []s3.Option{s3.WithPrefix(prefix)}
		if ep := os.Getenv("STRATA_S3_ENDPOINT"); ep != "" {
			opts = append(opts, s3.WithEndpoint(ep))
		}
		store, err := s3.New(ctx, u.Host, opts...)
		if err != nil {
			return location{}, err
		}
		loc = location{store: store, name: name, remote: true}
	case "minio":
		bucket, key, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		prefix, name := splitKey(key)
		if u.Host == "" || bucket == "" || name == "" {
			return location{}, fmt.Errorf("location %q: want minio://host/bucket/[prefix/]name", uri)
		}
		secure, _ := strconv.ParseBool(os.Getenv("MINIO_SECURE"))
		store, err := minio.Connect(minio.Config{
			Endpoint:  u.Host,
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Secure:    secure,
			Region:    os.Getenv("MINIO_REGION"),
		}, bucket, prefix)
		if err != nil {
			return location{}, err
		}
		loc = location{store: store, name: name, remote: true}
	default:
		return location{}, fmt.Errorf("location %q: unsupported scheme %q", uri, scheme)
	}

	if cacheBytes > 0 {
		loc.store = blobstore.NewCachingStore(loc.store, cacheBytes, blobstore.WithBlockSize(cacheBlockSize))
	}
	return loc, nil
}

func splitKey(key string) (prefix, name string) {
	if key == "" {
		return "", ""
	}
	dir, name := path.Split(key)
	return strings.TrimSuffix(dir, "/"), name
}
