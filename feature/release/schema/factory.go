package schema

import (
	"path/filepath"
	"regexp"
	"strings"
)

// releaseTokenPattern matches the export form token inside a file name
// part. The token may be followed by a language suffix after a hyphen
// (e.g. "LanguageDelta-en"), so a trailing hyphen also terminates it.
var releaseTokenPattern = regexp.MustCompile(`(Delta|Snapshot|Full)(-|$)`)

// Fixed column layouts per component type, including id and effectiveTime.
// Refset layouts cover the six standard columns; member columns follow from
// the file name letter codes.
var componentFieldTypes = map[ComponentType][]FieldType{
	ComponentConcept: {TypeSCTID, TypeTime, TypeBoolean, TypeSCTID, TypeSCTID},
	ComponentDescription: {TypeSCTID, TypeTime, TypeBoolean, TypeSCTID, TypeSCTID,
		TypeString, TypeSCTID, TypeString, TypeSCTID},
	ComponentTextDefinition: {TypeSCTID, TypeTime, TypeBoolean, TypeSCTID, TypeSCTID,
		TypeString, TypeSCTID, TypeString, TypeSCTID},
	ComponentStatedRelationship: {TypeSCTID, TypeTime, TypeBoolean, TypeSCTID, TypeSCTID,
		TypeSCTID, TypeInteger, TypeSCTID, TypeSCTID, TypeSCTID},
	ComponentRelationship: {TypeSCTID, TypeTime, TypeBoolean, TypeSCTID, TypeSCTID,
		TypeSCTID, TypeInteger, TypeSCTID, TypeSCTID, TypeSCTID},
	ComponentRelationshipConcreteValues: {TypeSCTID, TypeTime, TypeBoolean, TypeSCTID, TypeSCTID,
		TypeString, TypeInteger, TypeSCTID, TypeSCTID, TypeSCTID},
	ComponentIdentifier: {TypeSCTID, TypeTime, TypeBoolean, TypeSCTID, TypeSCTID,
		TypeString, TypeSCTID},
	ComponentRefset: {TypeUUID, TypeTime, TypeBoolean, TypeSCTID, TypeSCTID,
		TypeSCTIDOrUUID},
}

// refsetSubtypeTokens maps the leading name token of a der2 file to the
// composite-key pattern family. Checked in order; first prefix match wins.
var refsetSubtypeTokens = []struct {
	token   string
	subtype RefsetSubtype
}{
	{"AssociationReference", RefsetAssociation},
	{"Association", RefsetAssociation},
	{"SimpleMap", RefsetSimpleMap},
	{"ExtendedMap", RefsetExtendedMap},
	{"ComplexMap", RefsetComplexMap},
	{"RefsetDescriptor", RefsetDescriptor},
	{"ModuleDependency", RefsetModuleDependency},
	{"AttributeValue", RefsetAttributeValue},
}

// NewTableSchema derives a schema from an RF2 release file name.
// The returned schema has typed columns but no names until ParseHeader
// binds the header line.
func NewTableSchema(filename string) (*TableSchema, error) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return nil, NewConfigError("%s: not an RF2 release file name", filename)
	}

	s := &TableSchema{Filename: base}

	switch parts[0] {
	case "sct2":
		ct, ok := sct2ComponentType(parts[1])
		if !ok {
			return nil, NewConfigError("%s: unknown component token %q", filename, parts[1])
		}
		s.ComponentType = ct
		rt, _, ok := splitReleaseToken(parts[2])
		if !ok {
			return nil, NewConfigError("%s: no Delta/Snapshot/Full token", filename)
		}
		s.ReleaseType = rt
		s.fieldTypes = componentFieldTypes[ct]
	case "der2":
		codes, ok := strings.CutSuffix(parts[1], "Refset")
		if !ok {
			return nil, NewConfigError("%s: unknown der2 table token %q", filename, parts[1])
		}
		s.ComponentType = ComponentRefset
		rt, nameToken, ok := splitReleaseToken(parts[2])
		if !ok {
			return nil, NewConfigError("%s: no Delta/Snapshot/Full token", filename)
		}
		s.ReleaseType = rt
		s.RefsetSubtype = refsetSubtype(nameToken)
		types := append([]FieldType{}, componentFieldTypes[ComponentRefset]...)
		for _, code := range codes {
			switch code {
			case 'c':
				types = append(types, TypeSCTIDOrUUID)
			case 's':
				types = append(types, TypeString)
			case 'i':
				types = append(types, TypeInteger)
			default:
				return nil, NewConfigError("%s: unknown refset column code %q", filename, string(code))
			}
		}
		s.fieldTypes = types
	default:
		return nil, NewConfigError("%s: unknown file prefix %q", filename, parts[0])
	}

	return s, nil
}

// ParseHeader binds column names from the tab-separated header line and
// validates the column count against the derived layout.
func (s *TableSchema) ParseHeader(header string) error {
	names := strings.Split(strings.TrimRight(header, "\r\n"), "\t")
	if len(names) != len(s.fieldTypes) {
		return NewConfigError("%s: header has %d columns, schema expects %d",
			s.Filename, len(names), len(s.fieldTypes))
	}
	if names[0] != "id" || names[1] != "effectiveTime" {
		return NewConfigError("%s: header must start with id and effectiveTime", s.Filename)
	}
	s.Fields = make([]Field, len(names))
	for i, name := range names {
		s.Fields[i] = Field{Name: name, Type: s.fieldTypes[i]}
	}
	return nil
}

// DeriveFilename returns the output file name for the given export form by
// substituting the release token of this schema's source file name. The
// extension of the source name is preserved.
//
// Only the release token changes: the derived name keeps the current
// cycle's date token. Callers that resolve previous published files with
// a derived name rely on the published package storing its files under
// the current cycle's date token.
func DeriveFilename(deltaFilename string, target ReleaseType) string {
	for _, token := range []string{"Delta", "Snapshot", "Full"} {
		if strings.Contains(deltaFilename, token) {
			return strings.Replace(deltaFilename, token, string(target), 1)
		}
	}
	return deltaFilename
}

func sct2ComponentType(token string) (ComponentType, bool) {
	switch token {
	case "Concept":
		return ComponentConcept, true
	case "Description":
		return ComponentDescription, true
	case "TextDefinition":
		return ComponentTextDefinition, true
	case "StatedRelationship":
		return ComponentStatedRelationship, true
	case "RelationshipConcreteValues":
		return ComponentRelationshipConcreteValues, true
	case "Relationship":
		return ComponentRelationship, true
	case "Identifier":
		return ComponentIdentifier, true
	default:
		return 0, false
	}
}

// splitReleaseToken extracts the export form token from a file name part
// such as "AssociationReferenceDelta" or "LanguageDelta-en". It returns the
// release type and the leading name token before it.
func splitReleaseToken(part string) (ReleaseType, string, bool) {
	loc := releaseTokenPattern.FindStringSubmatchIndex(part)
	if loc == nil {
		return "", "", false
	}
	token := part[loc[2]:loc[3]]
	return ReleaseType(token), part[:loc[2]], true
}

func refsetSubtype(nameToken string) RefsetSubtype {
	for _, entry := range refsetSubtypeTokens {
		if strings.HasPrefix(nameToken, entry.token) {
			return entry.subtype
		}
	}
	return RefsetPlain
}
