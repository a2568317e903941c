package student

import (
	"strings"

	"github.com/gympoint/academy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Student is an academy member.
type Student struct {
	// ID is the database identifier.
	ID int64 `json:"id"`

	// Name is the display name used in mails.
	Name string `json:"name"`

	// Email is unique across students and receives notifications.
	Email string `json:"email"`
}

// Validate checks the invariants the core relies on.
func (s *Student) Validate() error {
	if s.ID <= 0 {
		return shared.Validation("student", "Validate", "student id must be positive")
	}
	if strings.TrimSpace(s.Name) == "" {
		return shared.Validation("student", "Validate", "student name is required")
	}
	if !strings.Contains(s.Email, "@") {
		return shared.Validation("student", "Validate", "student email is invalid")
	}
	return nil
}

// Summary returns the embedded projection of the student.
func (s *Student) Summary() Summary {
	return Summary{ID: s.ID, Name: s.Name, Email: s.Email}
}

// Contact returns the mail recipient projection.
func (s *Student) Contact() Contact {
	return Contact{ID: s.ID, Name: s.Name, Email: s.Email}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROJECTIONS
// ══════════════════════════════════════════════════════════════════════════════

// Summary is the read-only student projection embedded in list responses.
// Email is omitted where the response only exposes id and name.
type Summary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Contact is the recipient snapshot carried by notification payloads. ID
// keys per-student notification toggles; zero means unknown.
type Contact struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
