package cmd

import (
	"context"
	"fmt"

	"release-builder/core/config"
	"release-builder/core/logger"
	"release-builder/core/storage"
	"release-builder/feature/release"
	"release-builder/feature/release/identifier"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for build phase commands
	buildID          string
	effectiveTime    string
	firstTimeRelease bool
	previousPackage  string
	workbenchFixes   bool
	newFiles         []string
)

// buildCmd is the parent command for running build phases from the CLI.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run release build phases without the HTTP server",
	Long: `Run the transformation or export phase of a build directly.

Examples:
  # Transform a build's input files
  build transform --build-id b-42 --effective-time 20210131

  # Export release files against a published package
  build export --build-id b-42 --effective-time 20210131 --previous-package pkg-20200731

  # Export a first-time release
  build export --build-id b-42 --effective-time 20210131 --first-time`,
}

// transformCmd runs the transformation phase for one build.
var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform a build's authored input files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuildPhase(func(ctx context.Context, svc *release.Service, build *release.Build) error {
			return svc.TransformFiles(ctx, build)
		})
	},
}

// exportCmd runs the export phase for one build.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a build's Delta, Full and Snapshot release files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuildPhase(func(ctx context.Context, svc *release.Service, build *release.Build) error {
			return svc.GenerateReleaseFiles(ctx, build)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{transformCmd, exportCmd} {
		c.Flags().StringVar(&buildID, "build-id", "", "Build id (storage key)")
		c.Flags().StringVar(&effectiveTime, "effective-time", "", "Release date being built (yyyyMMdd)")
		c.Flags().BoolVar(&firstTimeRelease, "first-time", false, "Build has no published history")
		c.Flags().StringVar(&previousPackage, "previous-package", "", "Published package id to reconcile against")
		c.Flags().BoolVar(&workbenchFixes, "workbench-fixes", false, "Enable legacy data repair passes")
		c.Flags().StringArrayVar(&newFiles, "new-file", nil, "Delta file with no published counterpart (repeatable)")
		_ = c.MarkFlagRequired("build-id")
		_ = c.MarkFlagRequired("effective-time")
		buildCmd.AddCommand(c)
	}
	RootCmd.AddCommand(buildCmd)
}

func runBuildPhase(run func(ctx context.Context, svc *release.Service, build *release.Build) error) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	dao := storage.NewReleaseDAO(store, cfg.Storage)
	svc := release.NewService(dao, identifier.NewHTTPClient(cfg.Identifier), cfg.Identifier, cfg.Release, cfg.Server.ReleaseCenter, l)

	build := &release.Build{
		ID:               buildID,
		EffectiveTime:    effectiveTime,
		FirstTimeRelease: firstTimeRelease,
		PreviousPackage:  previousPackage,
		WorkbenchFixes:   workbenchFixes,
		NewFiles:         newFiles,
	}
	if err := run(ctx, svc, build); err != nil {
		return err
	}
	l.Info("Build phase completed", zap.String("build_id", buildID))
	return nil
}
