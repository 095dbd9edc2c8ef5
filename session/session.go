package session

import (
	"strings"

	"github.com/jrsteele09/go-dept-admin/internal/utils"
	"github.com/pkg/errors"
)

// Role is the actor kind the backend issued the token for.
type Role string

const (
	RoleDepartmentAdmin Role = "DEPARTMENT_ADMIN" // Scoped to a single department
	RoleUniversityAdmin Role = "UNIVERSITY_ADMIN" // University-wide, no faculty or department
)

// Session is the authenticated identity and scope of the portal user.
// It is treated as an immutable value: any change replaces it wholesale.
type Session struct {
	Token        string  `json:"token"`           // Bearer credential
	Role         Role    `json:"role"`            // Actor kind
	TenantID     string  `json:"tenantId"`        // Tenant scope (required)
	UniversityID string  `json:"universityId"`    // University scope (required)
	FacultyID    *string `json:"facultyId"`       // Absent for higher-privilege roles
	DepartmentID *string `json:"departmentId"`    // Absent for higher-privilege roles
	Email        string  `json:"email,omitempty"` // Display only
}

// Validate reports the first missing required field.
func (s Session) Validate() error {
	switch {
	case strings.TrimSpace(s.Token) == "":
		return errors.Wrap(ErrMissingField, "token")
	case strings.TrimSpace(string(s.Role)) == "":
		return errors.Wrap(ErrMissingField, "role")
	case strings.TrimSpace(s.TenantID) == "":
		return errors.Wrap(ErrMissingField, "tenantId")
	case strings.TrimSpace(s.UniversityID) == "":
		return errors.Wrap(ErrMissingField, "universityId")
	}
	return nil
}

// Username is the local part of the email, used for display.
func (s Session) Username() string {
	local, _, _ := strings.Cut(s.Email, "@")
	return local
}

// Clone returns a deep copy so callers never share the optional fields.
func (s Session) Clone() *Session {
	c := s
	c.FacultyID = utils.ClonePtr(s.FacultyID)
	c.DepartmentID = utils.ClonePtr(s.DepartmentID)
	return &c
}

// HasDepartmentScope is true when the session is bound to a single department.
func (s Session) HasDepartmentScope() bool {
	return utils.Value(s.DepartmentID) != ""
}
