package schema

import "fmt"

// FieldType is the semantic type of a single RF2 column.
type FieldType int

const (
	// TypeSCTID is a permanent numeric SNOMED CT identifier.
	TypeSCTID FieldType = iota
	// TypeSCTIDOrUUID is an identifier column that may still hold an
	// authoring UUID before transformation (refset member ids,
	// referenced components).
	TypeSCTIDOrUUID
	// TypeUUID is a UUID or free-text identifier column.
	TypeUUID
	// TypeBoolean is an RF2 boolean column ("0" or "1").
	TypeBoolean
	// TypeTime is an RF2 date column (yyyyMMdd).
	TypeTime
	// TypeInteger is a plain integer column.
	TypeInteger
	// TypeString is an uninterpreted text column.
	TypeString
)

// String returns the lowercase name of the field type.
func (t FieldType) String() string {
	switch t {
	case TypeSCTID:
		return "sctid"
	case TypeSCTIDOrUUID:
		return "sctid_or_uuid"
	case TypeUUID:
		return "uuid"
	case TypeBoolean:
		return "boolean"
	case TypeTime:
		return "time"
	case TypeInteger:
		return "integer"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("fieldtype(%d)", int(t))
	}
}

// ComponentType identifies the kind of RF2 file a schema describes.
type ComponentType int

const (
	ComponentConcept ComponentType = iota
	ComponentDescription
	ComponentTextDefinition
	ComponentStatedRelationship
	ComponentRelationship
	ComponentRelationshipConcreteValues
	ComponentIdentifier
	ComponentRefset
)

// String returns the RF2 file name token for the component type.
func (c ComponentType) String() string {
	switch c {
	case ComponentConcept:
		return "Concept"
	case ComponentDescription:
		return "Description"
	case ComponentTextDefinition:
		return "TextDefinition"
	case ComponentStatedRelationship:
		return "StatedRelationship"
	case ComponentRelationship:
		return "Relationship"
	case ComponentRelationshipConcreteValues:
		return "RelationshipConcreteValues"
	case ComponentIdentifier:
		return "Identifier"
	case ComponentRefset:
		return "Refset"
	default:
		return fmt.Sprintf("componenttype(%d)", int(c))
	}
}

// RefsetSubtype narrows a reference set schema to the pattern family used
// for composite-key derivation. Plain covers every refset without
// type-specific extra identity columns (simple, language, query, ...).
type RefsetSubtype int

const (
	RefsetPlain RefsetSubtype = iota
	RefsetAssociation
	RefsetSimpleMap
	RefsetComplexMap
	RefsetExtendedMap
	RefsetDescriptor
	RefsetModuleDependency
	RefsetAttributeValue
)

// ReleaseType is the export form encoded in the file name.
type ReleaseType string

const (
	ReleaseDelta    ReleaseType = "Delta"
	ReleaseSnapshot ReleaseType = "Snapshot"
	ReleaseFull     ReleaseType = "Full"
)

// Field is a single named, typed RF2 column.
type Field struct {
	// Name is the column name from the header line.
	Name string
	// Type is the semantic column type.
	Type FieldType
}

// TableSchema describes one RF2 file: its component type, release type and
// ordered column list. A schema is immutable once the header has been
// parsed.
type TableSchema struct {
	// Filename is the source file name without its extension.
	Filename string
	// ComponentType is the kind of component the file holds.
	ComponentType ComponentType
	// RefsetSubtype is set when ComponentType is ComponentRefset.
	RefsetSubtype RefsetSubtype
	// ReleaseType is the export form token found in the file name.
	ReleaseType ReleaseType
	// Fields is the ordered column list, including id and effectiveTime.
	Fields []Field

	// fieldTypes holds the derived types until ParseHeader binds names.
	fieldTypes []FieldType
}

// ConfigError reports a schema or composite-key configuration defect.
// Configuration errors are fatal and never retried.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "schema configuration error: " + e.Msg
}

// NewConfigError builds a ConfigError with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// FieldNames returns the ordered column names.
func (s *TableSchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// HeaderLine returns the tab-joined header for export output.
func (s *TableSchema) HeaderLine() string {
	line := ""
	for i, f := range s.Fields {
		if i > 0 {
			line += "\t"
		}
		line += f.Name
	}
	return line
}

// NumericKeys reports whether row keys for this schema order numerically.
// SCTID-keyed files sort by integer id; everything else sorts as text.
func (s *TableSchema) NumericKeys() bool {
	if len(s.fieldTypes) == 0 {
		return false
	}
	return s.fieldTypes[0] == TypeSCTID
}

// SCTIDOrUUIDColumns returns the indexes of columns that may still hold
// an authoring UUID awaiting a permanent id. The leading id column is
// excluded: refset member ids keep their UUIDs. Derived from the file
// name layout, so it works before ParseHeader binds names.
func (s *TableSchema) SCTIDOrUUIDColumns() []int {
	var columns []int
	for i, t := range s.fieldTypes {
		if i == 0 {
			continue
		}
		if t == TypeSCTIDOrUUID {
			columns = append(columns, i)
		}
	}
	return columns
}

// RefsetIDIndex returns the column index of refsetId, or an error when the
// schema is not a reference set or the column is missing.
func (s *TableSchema) RefsetIDIndex() (int, error) {
	if s.ComponentType != ComponentRefset {
		return 0, NewConfigError("%s: refsetId lookup on non-refset schema %s", s.Filename, s.ComponentType)
	}
	for i, f := range s.Fields {
		if f.Name == "refsetId" {
			return i, nil
		}
	}
	return 0, NewConfigError("%s: refsetId column not found", s.Filename)
}
