package transform

import (
	"context"
	"fmt"

	"release-builder/feature/release/identifier"

	"github.com/google/uuid"
)

// LineTransformation rewrites columns of one data line in place.
type LineTransformation interface {
	Apply(ctx context.Context, columns []string) error
}

// ReplaceValue writes a fixed value to one column, either unconditionally
// or only when the column is blank.
type ReplaceValue struct {
	// Column is the zero-based column to rewrite.
	Column int
	// Value is the replacement value.
	Value string
	// OnlyIfBlank leaves non-blank values untouched.
	OnlyIfBlank bool
}

// Apply implements LineTransformation.
func (t *ReplaceValue) Apply(_ context.Context, columns []string) error {
	if t.Column >= len(columns) {
		return fmt.Errorf("replace value: column %d out of range (%d columns)", t.Column, len(columns))
	}
	if t.OnlyIfBlank && columns[t.Column] != "" {
		return nil
	}
	columns[t.Column] = t.Value
	return nil
}

// UUIDToSCTID assigns a permanent id for the placeholder UUID in Column,
// writing the id to Target. Values that are not UUIDs (already permanent
// ids) pass through untouched. Assignment goes through the shared cache,
// so each placeholder is registered with the service exactly once.
type UUIDToSCTID struct {
	Column      int
	Target      int
	Cache       *identifier.Cache
	Namespace   int
	PartitionID string
	Comment     string
}

// Apply implements LineTransformation.
func (t *UUIDToSCTID) Apply(ctx context.Context, columns []string) error {
	if t.Column >= len(columns) || t.Target >= len(columns) {
		return fmt.Errorf("uuid to sctid: column %d/%d out of range (%d columns)", t.Column, t.Target, len(columns))
	}
	value := columns[t.Column]
	if uuid.Validate(value) != nil {
		return nil
	}
	id, err := t.Cache.GetSCTID(ctx, value, t.Namespace, t.PartitionID, t.Comment)
	if err != nil {
		return err
	}
	columns[t.Target] = fmt.Sprintf("%d", id)
	return nil
}

// CachedSCTID substitutes a foreign-key column holding a placeholder UUID
// with the permanent id already resolved by an earlier pass. An unresolved
// UUID is an error: foreign keys must never reach the output unassigned.
type CachedSCTID struct {
	Column int
	Cache  *identifier.Cache
}

// Apply implements LineTransformation.
func (t *CachedSCTID) Apply(_ context.Context, columns []string) error {
	if t.Column >= len(columns) {
		return fmt.Errorf("cached sctid: column %d out of range (%d columns)", t.Column, len(columns))
	}
	value := columns[t.Column]
	if uuid.Validate(value) != nil {
		return nil
	}
	id, ok := t.Cache.Get(value)
	if !ok {
		return fmt.Errorf("foreign key uuid %s was not resolved by the pre-process phase", value)
	}
	columns[t.Column] = fmt.Sprintf("%d", id)
	return nil
}

// Condition is one test of a Conditional transformation.
type Condition struct {
	// Column is the zero-based column under test.
	Column int
	// Equals matches an exact value when In is empty.
	Equals string
	// In matches any of a set of values.
	In []string
}

func (c *Condition) matches(columns []string) bool {
	if c.Column >= len(columns) {
		return false
	}
	value := columns[c.Column]
	if len(c.In) > 0 {
		for _, candidate := range c.In {
			if value == candidate {
				return true
			}
		}
		return false
	}
	return value == c.Equals
}

// Conditional applies Match when every condition holds, NoMatch otherwise.
// Either branch may be nil.
type Conditional struct {
	Conditions []Condition
	Match      LineTransformation
	NoMatch    LineTransformation
}

// Apply implements LineTransformation.
func (t *Conditional) Apply(ctx context.Context, columns []string) error {
	branch := t.Match
	for i := range t.Conditions {
		if !t.Conditions[i].matches(columns) {
			branch = t.NoMatch
			break
		}
	}
	if branch == nil {
		return nil
	}
	return branch.Apply(ctx, columns)
}
