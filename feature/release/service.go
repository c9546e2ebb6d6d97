package release

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"release-builder/core/storage"
	"release-builder/feature/release/export"
	"release-builder/feature/release/identifier"
	"release-builder/feature/release/rf2table"
	"release-builder/feature/release/schema"
	"release-builder/feature/release/transform"
)

// internationalReleaseCenter is where edition builds find their
// international dependency packages.
const internationalReleaseCenter = "international"

// Service runs the transformation and export phases of a build.
type Service struct {
	dao    *storage.ReleaseDAO
	ids    identifier.Client
	idCfg  identifier.Config
	cfg    Config
	center string
	logger *zap.Logger
}

// NewService creates a release service for one release center.
func NewService(dao *storage.ReleaseDAO, ids identifier.Client, idCfg identifier.Config, cfg Config, releaseCenter string, logger *zap.Logger) *Service {
	return &Service{
		dao:    dao,
		ids:    ids,
		idCfg:  idCfg,
		cfg:    cfg,
		center: releaseCenter,
		logger: logger,
	}
}

// TransformFiles rewrites every authored input file into its
// release-ready form. Id assignment runs first across all files, so that
// every placeholder UUID is resolvable before any file needs it as a
// foreign key; the finishing phase then stamps effective times, corrects
// module ids and substitutes the cached ids. Files within a phase are
// processed in parallel and share one identifier cache.
func (s *Service) TransformFiles(ctx context.Context, build *Build) error {
	names, err := s.dao.ListBuildFiles(ctx, build.ID, storage.BuildInputPath)
	if err != nil {
		return err
	}
	cache := identifier.NewCache(s.ids, s.idCfg, s.logger)
	factory := transform.NewFactory(transform.FactoryConfig{
		EffectiveTime:          build.EffectiveTime,
		Namespace:              s.cfg.Namespace,
		ModuleID:               s.cfg.ModuleID,
		ModelComponentModuleID: s.cfg.ModelComponentModuleID,
		ModelConceptIDs:        s.cfg.ModelConcepts(),
		Comment:                "build " + build.ID,
	}, cache)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return s.preProcessFile(gctx, factory, build, name)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return s.finalizeFile(gctx, factory, build, name)
		})
	}
	return g.Wait()
}

func (s *Service) preProcessFile(ctx context.Context, factory *transform.Factory, build *Build, name string) error {
	sch, err := schema.NewTableSchema(name)
	if err != nil {
		s.logger.Warn("skipping unrecognised input file", zap.String("file", name), zap.Error(err))
		return nil
	}
	if build.Cancelled() {
		return &identifier.CancellationError{Msg: build.ID}
	}
	if err := s.preAssignFile(ctx, factory, build, sch, name); err != nil {
		return err
	}
	pipeline, err := factory.PreProcess(sch)
	if err != nil {
		return err
	}
	rc, err := s.dao.GetBuildFile(ctx, build.ID, storage.BuildInputPath+"/"+name)
	if err != nil {
		return err
	}
	defer rc.Close()
	return s.uploadStream(ctx, build, storage.BuildPreprocessPath+"/"+name, func(w io.Writer) error {
		return pipeline.Transform(ctx, rc, w)
	})
}

// preAssignFile streams the raw input once to collect its placeholder
// UUIDs and registers them as one bulk identifier job, so the rewrite
// pass that follows resolves every line from the warm cache.
func (s *Service) preAssignFile(ctx context.Context, factory *transform.Factory, build *Build, sch *schema.TableSchema, name string) error {
	rc, err := s.dao.GetBuildFile(ctx, build.ID, storage.BuildInputPath+"/"+name)
	if err != nil {
		return err
	}
	err = factory.PreAssign(ctx, build.Cancelled, sch, rc)
	closeErr := rc.Close()
	if err != nil {
		return err
	}
	return closeErr
}

func (s *Service) finalizeFile(ctx context.Context, factory *transform.Factory, build *Build, name string) error {
	sch, err := schema.NewTableSchema(name)
	if err != nil {
		return nil
	}
	if build.Cancelled() {
		return &identifier.CancellationError{Msg: build.ID}
	}
	rc, err := s.dao.GetBuildFile(ctx, build.ID, storage.BuildPreprocessPath+"/"+name)
	if err != nil {
		return err
	}
	defer rc.Close()
	pipeline := factory.Final(sch)
	return s.uploadStream(ctx, build, storage.BuildTransformedPath+"/"+name, func(w io.Writer) error {
		return pipeline.Transform(ctx, rc, w)
	})
}

// GenerateReleaseFiles runs the export phase over every transformed Delta
// file, producing the Delta, Full and Snapshot export forms in the
// build's output area. Each file is retried on transient failures up to
// the configured budget; any terminal failure aborts the build.
func (s *Service) GenerateReleaseFiles(ctx context.Context, build *Build) error {
	names, err := s.dao.ListBuildFiles(ctx, build.ID, storage.BuildTransformedPath)
	if err != nil {
		return err
	}
	for _, name := range names {
		sch, err := schema.NewTableSchema(name)
		if err != nil || sch.ReleaseType != schema.ReleaseDelta {
			s.logger.Debug("skipping non-delta transformed file", zap.String("file", name))
			continue
		}
		if build.Cancelled() {
			return &GenerationError{File: name, Err: &identifier.CancellationError{Msg: build.ID}}
		}
		if err := s.generateWithRetry(ctx, build, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) generateWithRetry(ctx context.Context, build *Build, name string) error {
	attempts := s.cfg.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.generateReleaseFile(ctx, build, name)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return &GenerationError{File: name, Err: err}
		}
		s.logger.Warn("release file generation failed",
			zap.String("file", name),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return &GenerationError{File: name, Err: fmt.Errorf("after %d attempts: %w", attempts, err)}
}

func (s *Service) generateReleaseFile(ctx context.Context, build *Build, deltaName string) error {
	table := rf2table.NewTable(s.logger, rf2table.NewCompositeKeyResolver(build.RefsetCompositeKeys))
	defer table.Close()

	rc, err := s.dao.GetBuildFile(ctx, build.ID, storage.BuildTransformedPath+"/"+deltaName)
	if err != nil {
		return err
	}
	sch, err := table.Create(deltaName, rc, build.WorkbenchFixes)
	closeErr := rc.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	if build.Extension != nil {
		if err := s.mergeInternationalDelta(ctx, table, build, deltaName); err != nil {
			return err
		}
	}

	firstTime := build.IsFirstTimeFile(deltaName)
	prevSnapshotName := schema.DeriveFilename(deltaName, schema.ReleaseSnapshot)

	if build.WorkbenchFixes && !firstTime {
		if err := s.applyWorkbenchFixes(ctx, table, sch, build, prevSnapshotName); err != nil {
			return err
		}
	}

	discard := map[rf2table.Key]struct{}{}
	if !firstTime {
		discard, err = s.findPublishedDeltaKeys(ctx, table, build, prevSnapshotName)
		if err != nil {
			return err
		}
	}
	if err := s.uploadExport(ctx, build, deltaName, func(w io.Writer) error {
		return export.WriteDelta(table.SelectAllOrdered(), sch, w, discard)
	}); err != nil {
		return err
	}

	if !firstTime {
		prevFullName := schema.DeriveFilename(deltaName, schema.ReleaseFull)
		if err := s.appendPublished(ctx, table, build, prevFullName); err != nil {
			return err
		}
		for _, extra := range build.AdditionalPreviousFiles[deltaName] {
			if err := s.appendPublished(ctx, table, build, extra); err != nil {
				return err
			}
		}
	}
	return s.uploadFullAndSnapshot(ctx, build, sch, table, deltaName)
}

// applyWorkbenchFixes repairs authoring-tool damage against the previous
// published Snapshot. The pass order is fixed: republished states are
// discarded first, then changed refset member ids are reconciled back to
// their published identity, and finally blank attribute values inherit
// from the published state. Each pass streams its own copy of the
// snapshot.
func (s *Service) applyWorkbenchFixes(ctx context.Context, table *rf2table.Table, sch *schema.TableSchema, build *Build, prevSnapshotName string) error {
	passes := []func(io.Reader) error{
		func(r io.Reader) error {
			return table.DiscardAlreadyPublishedDeltaStates(r, build.EffectiveTime)
		},
	}
	if sch.ComponentType == schema.ComponentRefset {
		passes = append(passes, func(r io.Reader) error {
			return table.ReconcileRefsetMemberIDs(r, build.EffectiveTime)
		})
		if sch.RefsetSubtype == schema.RefsetAttributeValue {
			passes = append(passes, func(r io.Reader) error {
				return table.ResolveEmptyValueID(r, build.EffectiveTime)
			})
		}
	}
	for _, pass := range passes {
		rc, err := s.getPublished(ctx, build, prevSnapshotName)
		if err != nil {
			return err
		}
		err = pass(rc)
		closeErr := rc.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

func (s *Service) findPublishedDeltaKeys(ctx context.Context, table *rf2table.Table, build *Build, prevSnapshotName string) (map[rf2table.Key]struct{}, error) {
	rc, err := s.getPublished(ctx, build, prevSnapshotName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return table.FindAlreadyPublishedDeltaKeys(rc)
}

func (s *Service) mergeInternationalDelta(ctx context.Context, table *rf2table.Table, build *Build, deltaName string) error {
	name := equivalentInternationalFilename(deltaName, build.Extension.DependencyEffectiveTime)
	rc, err := s.dao.GetPublishedFile(ctx, internationalReleaseCenter, build.Extension.DependencyPackage, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	return table.AppendDataAfter(rc, false, build.Extension.PreviousEffectiveTime)
}

func (s *Service) getPublished(ctx context.Context, build *Build, filename string) (io.ReadCloser, error) {
	return s.dao.GetPublishedFile(ctx, s.center, build.PreviousPackage, filename)
}

func (s *Service) appendPublished(ctx context.Context, table *rf2table.Table, build *Build, filename string) error {
	rc, err := s.getPublished(ctx, build, filename)
	if err != nil {
		return err
	}
	defer rc.Close()
	return table.AppendData(rc, false)
}

func (s *Service) uploadExport(ctx context.Context, build *Build, filename string, write func(io.Writer) error) error {
	return s.uploadStream(ctx, build, storage.BuildOutputPath+"/"+filename, write)
}

// uploadStream overlaps export writing with the storage upload through a
// pipe. The upload goroutine is always joined before returning so a
// failed write never leaks an in-flight put.
func (s *Service) uploadStream(ctx context.Context, build *Build, relativePath string, write func(io.Writer) error) error {
	pr, pw := io.Pipe()
	uploadErr := make(chan error, 1)
	go func() {
		err := s.dao.PutBuildFile(ctx, build.ID, relativePath, pr, -1)
		pr.CloseWithError(err)
		uploadErr <- err
	}()
	writeErr := write(pw)
	pw.CloseWithError(writeErr)
	if err := <-uploadErr; err != nil {
		return err
	}
	return writeErr
}

func (s *Service) uploadFullAndSnapshot(ctx context.Context, build *Build, sch *schema.TableSchema, table *rf2table.Table, deltaName string) error {
	fullName := schema.DeriveFilename(deltaName, schema.ReleaseFull)
	snapshotName := schema.DeriveFilename(deltaName, schema.ReleaseSnapshot)

	fullPR, fullPW := io.Pipe()
	snapPR, snapPW := io.Pipe()
	uploadErrs := make(chan error, 2)
	upload := func(name string, pr *io.PipeReader) {
		err := s.dao.PutBuildFile(ctx, build.ID, storage.BuildOutputPath+"/"+name, pr, -1)
		pr.CloseWithError(err)
		uploadErrs <- err
	}
	go upload(fullName, fullPR)
	go upload(snapshotName, snapPR)

	writeErr := export.WriteFullAndSnapshot(table.SelectAllOrdered(), sch, build.EffectiveTime, fullPW, snapPW)
	fullPW.CloseWithError(writeErr)
	snapPW.CloseWithError(writeErr)

	err1 := <-uploadErrs
	err2 := <-uploadErrs
	if writeErr != nil {
		return writeErr
	}
	if err1 != nil {
		return err1
	}
	return err2
}
