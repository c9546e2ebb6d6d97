// Package schema derives RF2 table schemas from release file names.
//
// An RF2 file name encodes almost everything needed to interpret the file:
// the component type (sct2_Concept, sct2_Description, der2_cRefset, ...),
// the release type token (Delta, Snapshot, Full), and for reference sets the
// letter codes describing the member columns that follow
// referencedComponentId (c = component reference, s = string, i = integer).
//
// # Usage
//
//	s, err := schema.NewTableSchema("der2_cRefset_AssociationReferenceDelta_INT_20210131.txt")
//	if err != nil {
//	    return err
//	}
//	if err := s.ParseHeader(headerLine); err != nil {
//	    return err
//	}
//
// Field names always come from the header line; field types come from the
// fixed per-component layouts plus the refset letter codes. The first
// field's type decides whether the owning table orders rows numerically
// (SCTID keys) or lexicographically (UUID keys).
package schema
