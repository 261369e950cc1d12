package models

import "marina/internal/entity"

// Stored field names of a Cargo record.
const (
	FieldVolume       = "volume"
	FieldItem         = "item"
	FieldCreationDate = "creation_date"
	FieldCarrier      = "carrier"
)

// Cargo is a load that may be carried by at most one Vessel.
type Cargo struct {
	ID           string
	Volume       float64
	Item         string
	CreationDate string
	// Carrier is the id of the carrying Vessel, nil when unassigned.
	Carrier *string
}

// Patch carries the fields a partial update changes. Carrier is never
// caller-supplied.
type Patch struct {
	Volume       *float64
	Item         *string
	CreationDate *string
}

func (p Patch) Empty() bool {
	return p.Volume == nil && p.Item == nil && p.CreationDate == nil
}

func (c *Cargo) Apply(p Patch) {
	if p.Volume != nil {
		c.Volume = *p.Volume
	}
	if p.Item != nil {
		c.Item = *p.Item
	}
	if p.CreationDate != nil {
		c.CreationDate = *p.CreationDate
	}
}

// CarriedBy reports whether vesselID is the carrier.
func (c Cargo) CarriedBy(vesselID string) bool {
	return c.Carrier != nil && *c.Carrier == vesselID
}

func FromEntity(e entity.Entity) Cargo {
	c := Cargo{
		ID:           entity.FormatID(e.ID),
		Volume:       e.Props.Number(FieldVolume),
		Item:         e.Props.Text(FieldItem),
		CreationDate: e.Props.Text(FieldCreationDate),
	}
	if carrier, ok := e.Props[FieldCarrier].(string); ok && carrier != "" {
		c.Carrier = &carrier
	}
	return c
}

func (c Cargo) Props() entity.Props {
	var carrier any
	if c.Carrier != nil {
		carrier = *c.Carrier
	}
	return entity.Props{
		FieldVolume:       c.Volume,
		FieldItem:         c.Item,
		FieldCreationDate: c.CreationDate,
		FieldCarrier:      carrier,
	}
}
