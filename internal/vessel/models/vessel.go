package models

import "marina/internal/entity"

// Stored field names of a Vessel record.
const (
	FieldOwner  = "owner"
	FieldName   = "name"
	FieldType   = "type"
	FieldLength = "length"
	FieldLoads  = "loads"
)

// Vessel is a boat owned by one subject. Loads is the manifest: the ids of
// the Cargo it carries, in assignment order.
type Vessel struct {
	ID     string
	Owner  string
	Name   string
	Type   string
	Length float64
	Loads  []string
}

// Patch carries the fields a partial update changes. Nil means unchanged.
type Patch struct {
	Name   *string
	Type   *string
	Length *float64
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Length == nil
}

// Apply merges p onto v.
func (v *Vessel) Apply(p Patch) {
	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.Type != nil {
		v.Type = *p.Type
	}
	if p.Length != nil {
		v.Length = *p.Length
	}
}

// Carries reports whether loadID is on the manifest.
func (v Vessel) Carries(loadID string) bool {
	for _, id := range v.Loads {
		if id == loadID {
			return true
		}
	}
	return false
}

// RemoveLoad drops every occurrence of loadID from the manifest.
func (v *Vessel) RemoveLoad(loadID string) {
	kept := v.Loads[:0]
	for _, id := range v.Loads {
		if id != loadID {
			kept = append(kept, id)
		}
	}
	v.Loads = kept
}

// FromEntity maps a stored Boat record.
func FromEntity(e entity.Entity) Vessel {
	loads := e.Props.Strings(FieldLoads)
	if loads == nil {
		loads = []string{}
	}
	return Vessel{
		ID:     entity.FormatID(e.ID),
		Owner:  e.Props.Text(FieldOwner),
		Name:   e.Props.Text(FieldName),
		Type:   e.Props.Text(FieldType),
		Length: e.Props.Number(FieldLength),
		Loads:  loads,
	}
}

// Props is the stored form of v, without its id.
func (v Vessel) Props() entity.Props {
	loads := v.Loads
	if loads == nil {
		loads = []string{}
	}
	return entity.Props{
		FieldOwner:  v.Owner,
		FieldName:   v.Name,
		FieldType:   v.Type,
		FieldLength: v.Length,
		FieldLoads:  append([]string(nil), loads...),
	}
}
