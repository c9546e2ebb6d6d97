// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client to provide a simplified interface for common operations
// like checking bucket existence, uploading files, and listing objects. This abstraction
// supports both AWS S3 and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Release DAO
//
// ReleaseDAO layers the release builder's file model on top of Client:
// previously published release packages live in one bucket keyed by
// (release center, package id, file name); every build's working files
// live in another bucket under <buildID>/input-files,
// <buildID>/transformed-files and <buildID>/output-files. All access is
// by plain byte stream so multi-million-row files never load into memory.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	dao := storage.NewReleaseDAO(client, config)
//	r, err := dao.GetBuildFile(ctx, buildID, "transformed-files/sct2_Concept_Delta_INT_20210131.txt")
package storage
