package core

import "strings"

// Gender is the backend's sex marker for a user.
type Gender string

const (
	GenderMale   Gender = "m"
	GenderFemale Gender = "f"
)

// ParseGender maps a backend or config value to a Gender. Unknown values are male.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "female", "z", "zena":
		return GenderFemale
	default:
		return GenderMale
	}
}

// User is a chat participant as seen by the backend.
type User struct {
	ID          int64
	Name        string
	Gender      Gender
	Anonymous   bool
	IdleSeconds int
	IsRoomAdmin bool
	Karma       int
}
