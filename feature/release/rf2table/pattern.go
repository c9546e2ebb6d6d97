package rf2table

import (
	"regexp"
	"strings"

	"release-builder/feature/release/schema"
)

// refsetKeyIndexes maps each reference set family to the column positions
// that make up a member's logical identity. Positions are zero-based over
// the whole row (0 id, 1 effectiveTime, 2 active, 3 moduleId, 4 refsetId,
// 5 referencedComponentId, member columns from 6). Every family captures
// refsetId and referencedComponentId; map and descriptor families add the
// columns that distinguish members sharing a referenced component.
var refsetKeyIndexes = map[schema.RefsetSubtype][]int{
	schema.RefsetPlain:            {4, 5},
	schema.RefsetAttributeValue:   {4, 5},
	schema.RefsetAssociation:      {4, 5, 6},
	schema.RefsetSimpleMap:        {4, 5, 6},
	schema.RefsetComplexMap:       {4, 5, 6, 10},
	schema.RefsetExtendedMap:      {4, 5, 6, 10},
	schema.RefsetDescriptor:       {4, 5, 8},
	schema.RefsetModuleDependency: {4, 5, 6, 7},
}

// CompositeKeyResolver builds and caches the per-refset regular expression
// that extracts a row's composite identity from a tab-delimited line.
// Overrides map a refset id to explicit column positions and take
// precedence over the family defaults.
type CompositeKeyResolver struct {
	overrides map[string][]int
	patterns  map[string]*regexp.Regexp
}

// NewCompositeKeyResolver creates a resolver with optional per-refset
// column overrides. A nil override map means family defaults only.
func NewCompositeKeyResolver(overrides map[string][]int) *CompositeKeyResolver {
	return &CompositeKeyResolver{
		overrides: overrides,
		patterns:  make(map[string]*regexp.Regexp),
	}
}

// Pattern returns the compiled composite-key pattern for one refset within
// a schema, building and caching it on first use.
func (r *CompositeKeyResolver) Pattern(s *schema.TableSchema, refsetID string) (*regexp.Regexp, error) {
	cacheKey := s.Filename + "|" + refsetID
	if p, ok := r.patterns[cacheKey]; ok {
		return p, nil
	}

	indexes, ok := r.overrides[refsetID]
	if !ok {
		indexes = refsetKeyIndexes[s.RefsetSubtype]
	}

	captured := make(map[int]bool, len(indexes))
	maxIndex := 0
	for _, idx := range indexes {
		if idx >= len(s.Fields) {
			return nil, schema.NewConfigError("%s: composite key column %d exceeds %d fields for refset %s",
				s.Filename, idx, len(s.Fields), refsetID)
		}
		captured[idx] = true
		if idx > maxIndex {
			maxIndex = idx
		}
	}

	parts := make([]string, maxIndex+1)
	for i := 0; i <= maxIndex; i++ {
		if captured[i] {
			parts[i] = `([^\t]*)`
		} else {
			parts[i] = `[^\t]*`
		}
	}
	pattern, err := regexp.Compile(`^` + strings.Join(parts, `\t`))
	if err != nil {
		return nil, schema.NewConfigError("%s: composite key pattern for refset %s: %v", s.Filename, refsetID, err)
	}

	r.patterns[cacheKey] = pattern
	return pattern, nil
}

// CompositeIdentity computes the composite identity string for one full
// tab-delimited row. The refset id is read from the schema's refsetId
// column; the captured groups of the pattern are concatenated.
func (r *CompositeKeyResolver) CompositeIdentity(s *schema.TableSchema, line string) (string, error) {
	refsetIdx, err := s.RefsetIDIndex()
	if err != nil {
		return "", err
	}
	columns := strings.Split(line, "\t")
	if refsetIdx >= len(columns) {
		return "", schema.NewConfigError("%s: row has %d columns, refsetId expected at %d",
			s.Filename, len(columns), refsetIdx)
	}

	pattern, err := r.Pattern(s, columns[refsetIdx])
	if err != nil {
		return "", err
	}
	groups := pattern.FindStringSubmatch(line)
	if groups == nil {
		return "", schema.NewConfigError("%s: row does not match composite key pattern", s.Filename)
	}

	var identity strings.Builder
	for _, group := range groups[1:] {
		identity.WriteString(group)
	}
	return identity.String(), nil
}
