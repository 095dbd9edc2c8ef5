package session

// Storage keys owned by Store. No other component writes them.
const (
	KeyAuthRecord   = "auth" // Primary structured record
	KeyToken        = "token"
	KeyRole         = "role"
	KeyTenantID     = "tenantId"
	KeyUniversityID = "universityId"
	KeyFacultyID    = "facultyId"
	KeyDepartmentID = "departmentId"
	KeyEmail        = "email"
	KeyPendingEmail = "pendingLoginEmail" // Set by the login form, cleared by Login
)

// Schema versions of the persisted session.
//   - SchemaLegacy: one key per field, no primary record
//   - SchemaUnversioned: {"authData": {...}} mirrored by legacy keys
//   - SchemaCurrent: {"version": 2, "authData": {...}}
const (
	SchemaLegacy      = 0
	SchemaUnversioned = 1
	SchemaCurrent     = 2
)

var legacyKeys = []string{
	KeyToken,
	KeyRole,
	KeyTenantID,
	KeyUniversityID,
	KeyFacultyID,
	KeyDepartmentID,
	KeyEmail,
}

// LegacyKeys returns the per-field keys of the legacy layout.
func LegacyKeys() []string {
	return append([]string(nil), legacyKeys...)
}

// OwnedKeys returns every key a logout purges.
func OwnedKeys() []string {
	keys := make([]string, 0, len(legacyKeys)+2)
	keys = append(keys, KeyAuthRecord)
	keys = append(keys, legacyKeys...)
	return append(keys, KeyPendingEmail)
}
