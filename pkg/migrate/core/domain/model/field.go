package model

import "strings"

// FieldDescriptor describes one column of a migrated object.
// A field is a reference when ReferenceTo names a parent object. A reference field always
// has two column forms: the id-form (the field itself, e.g. "Account__c") and the
// readable-form ("<Relationship>.<ParentExternalID>", e.g. "Account__r.Name").
type FieldDescriptor struct {
	// Name is the logical field name and the id-form column of a reference.
	Name string `yaml:"name"`
	// ReferenceTo is the parent object for reference fields; empty for plain fields.
	ReferenceTo string `yaml:"reference_to"`
	// ParentExternalID is the external-identifier field of the parent object.
	ParentExternalID string `yaml:"parent_external_id"`
	// Write marks the field as required by the write operation.
	Write bool `yaml:"write"`
}

// IsReference reports whether the field links to a parent object.
func (f FieldDescriptor) IsReference() bool {
	return f.ReferenceTo != ""
}

// IDColumn returns the id-form column name.
func (f FieldDescriptor) IDColumn() string {
	return f.Name
}

// RelationshipName returns the relationship part of the readable-form column.
// Custom fields ending in "__c" map to "__r"; standard fields ending in "Id" drop the suffix.
func (f FieldDescriptor) RelationshipName() string {
	switch {
	case strings.HasSuffix(f.Name, "__c"):
		return strings.TrimSuffix(f.Name, "__c") + "__r"
	case strings.HasSuffix(f.Name, "Id") && len(f.Name) > 2:
		return strings.TrimSuffix(f.Name, "Id")
	default:
		return f.Name
	}
}

// ReadableColumn returns the readable-form column name, or "" for plain fields.
func (f FieldDescriptor) ReadableColumn() string {
	if !f.IsReference() {
		return ""
	}
	return f.RelationshipName() + "." + f.ParentExternalID
}

// ChildReference identifies a reference field on a child object that points back at a parent.
type ChildReference struct {
	// ChildObject is the object holding the reference.
	ChildObject string
	// Field is the child's reference field.
	Field FieldDescriptor
}

// IDColumn returns the id-form column on the child side.
func (c ChildReference) IDColumn() string {
	return c.Field.IDColumn()
}

// ReadableColumn returns the readable-form column on the child side.
func (c ChildReference) ReadableColumn() string {
	return c.Field.ReadableColumn()
}
