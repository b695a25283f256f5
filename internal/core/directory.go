package core

import (
	"crypto/subtle"
	"strings"
)

// Directory verifies employee logins against a static allow-list.
type Directory struct {
	users map[string]string
}

// NewDirectory builds a Directory from email to employee id pairs. Emails
// match case-insensitively.
func NewDirectory(users map[string]string) *Directory {
	d := &Directory{users: make(map[string]string, len(users))}
	for email, id := range users {
		d.users[strings.ToLower(strings.TrimSpace(email))] = strings.TrimSpace(id)
	}
	return d
}

// Verify reports whether email is listed with employeeID.
func (d *Directory) Verify(email, employeeID string) bool {
	want, ok := d.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(employeeID))) == 1
}
