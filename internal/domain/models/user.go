package models

import (
	"regexp"
	"strings"
)

// Roles recognised by the access gate.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a stored account. Passwords are kept and compared as plain text.
type User struct {
	ID            string   `json:"id,omitempty" bson:"-"`
	Name          string   `json:"name" bson:"name"`
	Username      string   `json:"username" bson:"username"`
	Password      string   `json:"password" bson:"password"`
	Role          string   `json:"role" bson:"role"`
	Section       string   `json:"section" bson:"section"`
	CurrentPeriod string   `json:"current_period" bson:"current_period"`
	Periods       []string `json:"periods" bson:"periods"`
}

// HasPeriod reports whether display is one of the user's selectable periods.
func (u User) HasPeriod(display string) bool {
	for _, p := range u.Periods {
		if p == display {
			return true
		}
	}
	return false
}

// Section is a production line namespace.
type Section struct {
	ID    string `json:"id,omitempty" bson:"-"`
	Label string `json:"label" bson:"label"`
	Value string `json:"value" bson:"value"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NewSection derives the slug from a label: "Dry Cake" becomes "dry_cake".
func NewSection(label string) Section {
	label = strings.TrimSpace(label)
	return Section{
		Label: label,
		Value: whitespaceRun.ReplaceAllString(strings.ToLower(label), "_"),
	}
}
