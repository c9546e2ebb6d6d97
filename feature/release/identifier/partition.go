package identifier

import (
	"release-builder/feature/release/schema"
)

// InternationalNamespace is the namespace id of the international release.
// International SCTIDs use the short partition format; extension namespaces
// use the long format.
const InternationalNamespace = 0

// TakesSCTID reports whether a component kind is identified by an SCTID.
// Refset members and identifiers keep their authoring UUIDs.
func TakesSCTID(componentType schema.ComponentType) bool {
	switch componentType {
	case schema.ComponentRefset, schema.ComponentIdentifier:
		return false
	default:
		return true
	}
}

// PartitionID returns the identifier service partition for a component
// type within a namespace. Only concepts, descriptions and relationships
// receive SCTIDs; refset members keep their UUIDs.
func PartitionID(namespace int, componentType schema.ComponentType) (string, error) {
	var kind string
	switch componentType {
	case schema.ComponentConcept:
		kind = "0"
	case schema.ComponentDescription, schema.ComponentTextDefinition:
		kind = "1"
	case schema.ComponentRelationship, schema.ComponentStatedRelationship,
		schema.ComponentRelationshipConcreteValues:
		kind = "2"
	default:
		return "", schema.NewConfigError("component type %s does not take SCTIDs", componentType)
	}
	if namespace == InternationalNamespace {
		return "0" + kind, nil
	}
	return "1" + kind, nil
}
