package transform

import (
	"context"
	"io"

	"release-builder/feature/release/identifier"
	"release-builder/feature/release/schema"
)

// Well-known column positions shared by all RF2 component layouts.
const (
	colID            = 0
	colEffectiveTime = 1
	colModuleID      = 3
)

// Per-layout foreign-key columns that may hold placeholder UUIDs and must
// resolve from the cache in the final phase. Refset layouts are not
// listed: their component-reference columns vary by file, so they are
// derived from the schema instead.
var foreignKeyColumns = map[schema.ComponentType][]int{
	schema.ComponentDescription:                {4},
	schema.ComponentTextDefinition:             {4},
	schema.ComponentStatedRelationship:         {4, 5, 7},
	schema.ComponentRelationship:               {4, 5, 7},
	schema.ComponentRelationshipConcreteValues: {4, 7},
}

// Per-layout column referencing the concept that decides module
// correction for concept-model content.
var conceptReferenceColumns = map[schema.ComponentType]int{
	schema.ComponentDescription:        4,
	schema.ComponentTextDefinition:     4,
	schema.ComponentStatedRelationship: 7,
	schema.ComponentRelationship:       7,
	schema.ComponentRefset:             5,
}

// FactoryConfig carries the build-wide values baked into transformations.
type FactoryConfig struct {
	// EffectiveTime stamps rows authored without one.
	EffectiveTime string
	// Namespace is the id-issuing namespace for this release.
	Namespace int
	// ModuleID is the default module for new content.
	ModuleID string
	// ModelComponentModuleID is the module owning concept-model content.
	ModelComponentModuleID string
	// ModelConceptIDs are the concept-model component ids whose
	// referencing rows must move to the model component module.
	ModelConceptIDs []string
	// Comment is recorded with every identifier service request.
	Comment string
}

// Factory selects the ordered transformation set for a component file,
// split into the pre-process and final phases.
type Factory struct {
	cfg   FactoryConfig
	cache *identifier.Cache
}

// NewFactory creates a factory over the build's shared identifier cache.
func NewFactory(cfg FactoryConfig, cache *identifier.Cache) *Factory {
	return &Factory{cfg: cfg, cache: cache}
}

// PreAssign registers a file's distinct placeholder UUIDs with the
// identifier service in one bulk job, so the id-assignment pass rewrites
// every line from the warm cache instead of one request per row. The
// cancelled check aborts the batch between retries. Components that keep
// their UUIDs need no assignment.
func (f *Factory) PreAssign(ctx context.Context, cancelled func() bool, s *schema.TableSchema, r io.Reader) error {
	if !identifier.TakesSCTID(s.ComponentType) {
		return nil
	}
	partition, err := identifier.PartitionID(f.cfg.Namespace, s.ComponentType)
	if err != nil {
		return err
	}
	uuids, err := PlaceholderUUIDs(r, colID)
	if err != nil {
		return err
	}
	_, err = f.cache.GetSCTIDs(ctx, cancelled, uuids, f.cfg.Namespace, partition, f.cfg.Comment)
	return err
}

// PreProcess returns the id-assignment phase for a file. Components that
// take SCTIDs get their own id column rewritten here, from the cache
// PreAssign populated, before any file needs the id as a foreign key.
// Refset members and identifiers keep their UUIDs, so their pre-process
// pass is empty.
func (f *Factory) PreProcess(s *schema.TableSchema) (*StreamingFileTransformation, error) {
	if !identifier.TakesSCTID(s.ComponentType) {
		return NewStreamingFileTransformation(), nil
	}
	partition, err := identifier.PartitionID(f.cfg.Namespace, s.ComponentType)
	if err != nil {
		return nil, err
	}
	return NewStreamingFileTransformation(&UUIDToSCTID{
		Column:      colID,
		Target:      colID,
		Cache:       f.cache,
		Namespace:   f.cfg.Namespace,
		PartitionID: partition,
		Comment:     f.cfg.Comment,
	}), nil
}

// Final returns the finishing phase: effective-time stamping, the
// conditional module-id fix, and foreign-key resolution from the cache.
// The module fix is prepended so it observes column values before any id
// substitution rewrites them.
func (f *Factory) Final(s *schema.TableSchema) *StreamingFileTransformation {
	pipeline := NewStreamingFileTransformation(&ReplaceValue{
		Column:      colEffectiveTime,
		Value:       f.cfg.EffectiveTime,
		OnlyIfBlank: true,
	})
	for _, column := range foreignKeys(s) {
		pipeline.Append(&CachedSCTID{Column: column, Cache: f.cache})
	}
	pipeline.Prepend(f.moduleFix(s))
	return pipeline
}

// foreignKeys returns the columns that must resolve from the cache. For
// refsets every component-reference column is taken from the schema, so
// extra member columns (association targets, attribute values) resolve
// alongside referencedComponentId.
func foreignKeys(s *schema.TableSchema) []int {
	if s.ComponentType == schema.ComponentRefset {
		return s.SCTIDOrUUIDColumns()
	}
	return foreignKeyColumns[s.ComponentType]
}

// moduleFix corrects the module id of rows referencing concept-model
// components and blank-fills everything else with the release module.
func (f *Factory) moduleFix(s *schema.TableSchema) LineTransformation {
	fill := &ReplaceValue{Column: colModuleID, Value: f.cfg.ModuleID, OnlyIfBlank: true}
	conceptColumn, ok := conceptReferenceColumns[s.ComponentType]
	if !ok || len(f.cfg.ModelConceptIDs) == 0 {
		return fill
	}
	return &Conditional{
		Conditions: []Condition{{Column: conceptColumn, In: f.cfg.ModelConceptIDs}},
		Match:      &ReplaceValue{Column: colModuleID, Value: f.cfg.ModelComponentModuleID},
		NoMatch:    fill,
	}
}
