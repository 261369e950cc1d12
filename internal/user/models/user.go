package models

import "marina/internal/entity"

// User is a person who has completed the login flow at least once.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	UserID    string `json:"user_id"`
}

// Stored field names.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldUserID    = "user_id"
)

// FromEntity maps a stored User record.
func FromEntity(e entity.Entity) User {
	return User{
		ID:        entity.FormatID(e.ID),
		FirstName: e.Props.Text(FieldFirstName),
		LastName:  e.Props.Text(FieldLastName),
		UserID:    e.Props.Text(FieldUserID),
	}
}

// Props is the stored form of u, without its id.
func (u User) Props() entity.Props {
	return entity.Props{
		FieldFirstName: u.FirstName,
		FieldLastName:  u.LastName,
		FieldUserID:    u.UserID,
	}
}
