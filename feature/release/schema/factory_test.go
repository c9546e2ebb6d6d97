package schema_test

import (
	"testing"

	"release-builder/feature/release/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableSchema(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		component   schema.ComponentType
		releaseType schema.ReleaseType
		subtype     schema.RefsetSubtype
		columns     int
	}{
		{
			name:        "Concept delta",
			filename:    "sct2_Concept_Delta_INT_20210131.txt",
			component:   schema.ComponentConcept,
			releaseType: schema.ReleaseDelta,
			columns:     5,
		},
		{
			name:        "Description with language suffix",
			filename:    "sct2_Description_Delta-en_INT_20210131.txt",
			component:   schema.ComponentDescription,
			releaseType: schema.ReleaseDelta,
			columns:     9,
		},
		{
			name:        "Relationship full",
			filename:    "sct2_Relationship_Full_INT_20210131.txt",
			component:   schema.ComponentRelationship,
			releaseType: schema.ReleaseFull,
			columns:     10,
		},
		{
			name:        "Plain refset without member codes",
			filename:    "der2_Refset_SimpleDelta_INT_20210131.txt",
			component:   schema.ComponentRefset,
			releaseType: schema.ReleaseDelta,
			subtype:     schema.RefsetPlain,
			columns:     6,
		},
		{
			name:        "Language refset embeds Delta before hyphen",
			filename:    "der2_cRefset_LanguageDelta-en_INT_20210131.txt",
			component:   schema.ComponentRefset,
			releaseType: schema.ReleaseDelta,
			subtype:     schema.RefsetPlain,
			columns:     7,
		},
		{
			name:        "Association reference refset",
			filename:    "der2_cRefset_AssociationReferenceDelta_INT_20210131.txt",
			component:   schema.ComponentRefset,
			releaseType: schema.ReleaseDelta,
			subtype:     schema.RefsetAssociation,
			columns:     7,
		},
		{
			name:        "Complex map refset",
			filename:    "der2_iissscRefset_ComplexMapSnapshot_INT_20210131.txt",
			component:   schema.ComponentRefset,
			releaseType: schema.ReleaseSnapshot,
			subtype:     schema.RefsetComplexMap,
			columns:     12,
		},
		{
			name:        "Module dependency refset",
			filename:    "der2_ssRefset_ModuleDependencyDelta_INT_20210131.txt",
			component:   schema.ComponentRefset,
			releaseType: schema.ReleaseDelta,
			subtype:     schema.RefsetModuleDependency,
			columns:     8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := schema.NewTableSchema(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.component, s.ComponentType)
			assert.Equal(t, tt.releaseType, s.ReleaseType)
			if tt.component == schema.ComponentRefset {
				assert.Equal(t, tt.subtype, s.RefsetSubtype)
			}

			// Column count is only observable once the header is bound.
			header := headerOfWidth(tt.columns)
			require.NoError(t, s.ParseHeader(header))
			assert.Len(t, s.Fields, tt.columns)
		})
	}
}

func TestNewTableSchema_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		filename string
	}{
		{"No release token", "sct2_Concept_INT_20210131.txt"},
		{"Unknown prefix", "xxx2_Concept_Delta_INT_20210131.txt"},
		{"Unknown component", "sct2_Banana_Delta_INT_20210131.txt"},
		{"Unknown refset code", "der2_xRefset_SimpleDelta_INT_20210131.txt"},
		{"Too few parts", "concepts.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.NewTableSchema(tt.filename)
			assert.Error(t, err)
			var cfgErr *schema.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestParseHeader(t *testing.T) {
	s, err := schema.NewTableSchema("sct2_Concept_Delta_INT_20210131.txt")
	require.NoError(t, err)

	t.Run("Valid header", func(t *testing.T) {
		err := s.ParseHeader("id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "effectiveTime", "active", "moduleId", "definitionStatusId"}, s.FieldNames())
		assert.True(t, s.NumericKeys())
		assert.Equal(t, "id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId", s.HeaderLine())
	})

	t.Run("Wrong column count", func(t *testing.T) {
		err := s.ParseHeader("id\teffectiveTime\tactive")
		assert.Error(t, err)
	})

	t.Run("Wrong leading columns", func(t *testing.T) {
		err := s.ParseHeader("uuid\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId")
		assert.Error(t, err)
	})
}

func TestNumericKeys_Refset(t *testing.T) {
	s, err := schema.NewTableSchema("der2_Refset_SimpleDelta_INT_20210131.txt")
	require.NoError(t, err)
	require.NoError(t, s.ParseHeader("id\teffectiveTime\tactive\tmoduleId\trefsetId\treferencedComponentId"))
	assert.False(t, s.NumericKeys())
}

func TestSCTIDOrUUIDColumns(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     []int
	}{
		{
			name:     "Plain refset has only referencedComponentId",
			filename: "der2_Refset_SimpleDelta_INT_20210131.txt",
			want:     []int{5},
		},
		{
			name:     "Association refset adds its target component",
			filename: "der2_cRefset_AssociationReferenceDelta_INT_20210131.txt",
			want:     []int{5, 6},
		},
		{
			name:     "Attribute value refset adds its value component",
			filename: "der2_cRefset_AttributeValueDelta_INT_20210131.txt",
			want:     []int{5, 6},
		},
		{
			name:     "Map refset string targets stay untouched",
			filename: "der2_sRefset_SimpleMapDelta_INT_20210131.txt",
			want:     []int{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := schema.NewTableSchema(tt.filename)
			require.NoError(t, err)
			// No ParseHeader: the columns derive from the name layout alone.
			assert.Equal(t, tt.want, s.SCTIDOrUUIDColumns())
		})
	}
}

func TestDeriveFilename(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target schema.ReleaseType
		want   string
	}{
		{
			name:   "Delta to Full",
			input:  "sct2_Concept_Delta_INT_20210131.txt",
			target: schema.ReleaseFull,
			want:   "sct2_Concept_Full_INT_20210131.txt",
		},
		{
			name:   "Delta to Snapshot preserves language suffix",
			input:  "der2_cRefset_LanguageDelta-en_INT_20210131.txt",
			target: schema.ReleaseSnapshot,
			want:   "der2_cRefset_LanguageSnapshot-en_INT_20210131.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schema.DeriveFilename(tt.input, tt.target))
		})
	}
}

// headerOfWidth builds a syntactically valid header with n columns.
func headerOfWidth(n int) string {
	header := "id\teffectiveTime"
	for i := 2; i < n; i++ {
		header += "\tcol" + string(rune('a'+i))
	}
	return header
}
