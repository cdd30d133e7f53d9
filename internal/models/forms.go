package models

import (
	"bytes"
	"encoding/json"
)

// ============================================================================
// Request payloads
// ============================================================================

// Optional is a JSON field that distinguishes "absent" from "null".
// Set is true whenever the key appeared in the payload; Null is true when
// its value was JSON null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a set, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null returns a set Optional carrying JSON null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON marks the field as set and decodes its value.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		o.Value = zero
		o.Null = true
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// MarshalJSON encodes the value, or null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// CreateOrganizationInput is the body of POST /organizations.
type CreateOrganizationInput struct {
	Name string `json:"name"`
}

// SwitchOrganizationInput is the body of PUT /organizations/current.
type SwitchOrganizationInput struct {
	OrganizationID string `json:"organization_id"`
}

// CreateProjectInput is the body of POST /projects.
// Sections names default documents to create with the project, e.g. "about".
type CreateProjectInput struct {
	Name     string   `json:"name"`
	Funder   *string  `json:"funder,omitempty"`
	Deadline *string  `json:"deadline,omitempty"`
	Sections []string `json:"sections,omitempty"`
}

// ProjectUpdate is the body of PATCH /projects/{id}. Only set fields are written.
type ProjectUpdate struct {
	Name     Optional[string] `json:"name"`
	Funder   Optional[string] `json:"funder"`
	Deadline Optional[string] `json:"deadline"`
	Status   Optional[string] `json:"status"`
}

// IsEmpty reports whether no field was supplied.
func (u ProjectUpdate) IsEmpty() bool {
	return !u.Name.Set && !u.Funder.Set && !u.Deadline.Set && !u.Status.Set
}

// MarshalJSON emits only the supplied fields.
func (u ProjectUpdate) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	putOptional(out, "name", u.Name)
	putOptional(out, "funder", u.Funder)
	putOptional(out, "deadline", u.Deadline)
	putOptional(out, "status", u.Status)
	return json.Marshal(out)
}

// CreateDocumentInput is the body of POST /projects/{id}/documents.
// A nil SortOrder appends after the current last document.
type CreateDocumentInput struct {
	Title     string  `json:"title"`
	Content   *string `json:"content,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
}

// DocumentUpdate is the body of PATCH /projects/{id}/documents/{docId}.
type DocumentUpdate struct {
	Title     Optional[string] `json:"title"`
	Content   Optional[string] `json:"content"`
	SortOrder Optional[int]    `json:"sort_order"`
}

// IsEmpty reports whether no field was supplied.
func (u DocumentUpdate) IsEmpty() bool {
	return !u.Title.Set && !u.Content.Set && !u.SortOrder.Set
}

// MarshalJSON emits only the supplied fields.
func (u DocumentUpdate) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	putOptional(out, "title", u.Title)
	putOptional(out, "content", u.Content)
	putOptional(out, "sort_order", u.SortOrder)
	return json.Marshal(out)
}

// ReorderInput is the body of POST /projects/{id}/documents/reorder.
// Order lists every document id of the project in its new order.
type ReorderInput struct {
	Order []string `json:"order"`
}

// SuccessResult is the payload of delete and reorder calls.
type SuccessResult struct {
	Success bool `json:"success"`
}

func putOptional[T any](out map[string]any, key string, o Optional[T]) {
	if !o.Set {
		return
	}
	if o.Null {
		out[key] = nil
		return
	}
	out[key] = o.Value
}
