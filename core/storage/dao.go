package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Build file areas under a build's object prefix.
const (
	BuildInputPath       = "input-files"
	BuildPreprocessPath  = "preprocess-files"
	BuildTransformedPath = "transformed-files"
	BuildOutputPath      = "output-files"
)

// ReleaseDAO exposes release file access on top of the storage Client:
// previously published packages are read by (release center, package,
// file name); a build's working files are read and written by build id
// and relative path. Everything is a plain byte stream.
type ReleaseDAO struct {
	client Client
	cfg    Config
}

// NewReleaseDAO creates a DAO over the configured buckets.
func NewReleaseDAO(client Client, cfg Config) *ReleaseDAO {
	return &ReleaseDAO{client: client, cfg: cfg}
}

// GetPublishedFile streams one file of a previously published release
// package.
func (d *ReleaseDAO) GetPublishedFile(ctx context.Context, releaseCenter, packageID, filename string) (io.ReadCloser, error) {
	object := releaseCenter + "/" + packageID + "/" + filename
	reader, err := d.client.GetObject(ctx, d.cfg.PublishedBucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get published file %s: %w", object, err)
	}
	return reader, nil
}

// GetBuildFile streams one of a build's working files.
func (d *ReleaseDAO) GetBuildFile(ctx context.Context, buildID, relativePath string) (io.ReadCloser, error) {
	object := buildID + "/" + relativePath
	reader, err := d.client.GetObject(ctx, d.cfg.BuildBucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get build file %s: %w", object, err)
	}
	return reader, nil
}

// PutBuildFile uploads one of a build's working files. Size may be -1 for
// streams of unknown length.
func (d *ReleaseDAO) PutBuildFile(ctx context.Context, buildID, relativePath string, r io.Reader, size int64) error {
	object := buildID + "/" + relativePath
	_, err := d.client.PutObject(ctx, d.cfg.BuildBucket, object, r, size, minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return fmt.Errorf("put build file %s: %w", object, err)
	}
	return nil
}

// ListBuildFiles returns the file names under one area of a build,
// stripped of the build and area prefix.
func (d *ReleaseDAO) ListBuildFiles(ctx context.Context, buildID, area string) ([]string, error) {
	prefix := buildID + "/" + area + "/"
	var names []string
	for info := range d.client.ListObjects(ctx, d.cfg.BuildBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list build files %s: %w", prefix, info.Err)
		}
		names = append(names, strings.TrimPrefix(info.Key, prefix))
	}
	return names, nil
}
