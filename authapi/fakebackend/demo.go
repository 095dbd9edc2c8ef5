package fakebackend

import (
	"github.com/jrsteele09/go-dept-admin/internal/utils"
	"github.com/jrsteele09/go-dept-admin/session"
)

// DemoPassword is shared by the seeded demo accounts.
const DemoPassword = "Department1"

// SeedDemo registers one account per role and sample payloads for every portal view.
func SeedDemo(b *Backend) ([]Account, error) {
	accounts := []Account{
		{
			Email:        "head@cs.uni.edu",
			Role:         session.RoleDepartmentAdmin,
			TenantID:     "tenant-1",
			UniversityID: "uni-1",
			FacultyID:    utils.Ptr("fac-science"),
			DepartmentID: utils.Ptr("dep-cs"),
		},
		{
			Email:        "registrar@uni.edu",
			Role:         session.RoleUniversityAdmin,
			TenantID:     "tenant-1",
			UniversityID: "uni-1",
		},
	}
	for _, a := range accounts {
		if err := b.AddAccount(a, DemoPassword); err != nil {
			return nil, err
		}
	}

	b.SetResource("programs", []map[string]any{
		{"id": "p-1", "name": "BSc Computer Science", "years": 3},
		{"id": "p-2", "name": "MSc Data Science", "years": 1},
	})
	b.SetResource("courses", []map[string]any{
		{"id": "c-101", "title": "Programming I", "credits": 15},
		{"id": "c-201", "title": "Operating Systems", "credits": 15},
	})
	b.SetResource("students", []map[string]any{
		{"id": "s-1", "name": "Ada Lovelace", "program": "p-1"},
	})
	b.SetResource("staff", []map[string]any{
		{"id": "st-1", "name": "Alan Turing", "position": "Lecturer"},
	})
	b.SetResource("payments", []map[string]any{})
	b.SetResource("announcements", []map[string]any{
		{"id": "a-1", "title": "Term starts Monday"},
	})
	b.SetResource("notifications", []map[string]any{})
	b.SetResource("roles", []map[string]any{
		{"role": string(session.RoleDepartmentAdmin), "enabled": true},
	})
	return accounts, nil
}
