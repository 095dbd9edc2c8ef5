package session

import (
	"bytes"
	"encoding/json"

	"github.com/jrsteele09/go-dept-admin/internal/utils"
	"github.com/pkg/errors"
)

// DecodeResult is the outcome of reading a persisted session.
// Exactly one of Session and Err is set.
type DecodeResult struct {
	Session *Session
	Schema  int
	Err     error
}

// OK reports whether a usable session was decoded.
func (r DecodeResult) OK() bool {
	return r.Err == nil && r.Session != nil
}

type storedRecord struct {
	Version  *int            `json:"version,omitempty"`
	AuthData json.RawMessage `json:"authData"`
}

type currentRecord struct {
	Version  int     `json:"version"`
	AuthData Session `json:"authData"`
}

// DecodeRecord parses the primary structured record. Every schema must be
// corroborated by the separately stored token and role markers.
func DecodeRecord(raw string, corroborated bool) DecodeResult {
	var rec storedRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return DecodeResult{Err: errors.Wrap(ErrMalformedRecord, err.Error())}
	}

	schema := SchemaUnversioned
	if rec.Version != nil {
		if *rec.Version != SchemaCurrent {
			return DecodeResult{Err: errors.Wrapf(ErrUnsupportedSchema, "version %d", *rec.Version)}
		}
		schema = SchemaCurrent
	}

	if len(rec.AuthData) == 0 || bytes.Equal(bytes.TrimSpace(rec.AuthData), []byte("null")) {
		return DecodeResult{Schema: schema, Err: errors.Wrap(ErrMissingField, "authData")}
	}

	var s Session
	if err := json.Unmarshal(rec.AuthData, &s); err != nil {
		return DecodeResult{Schema: schema, Err: errors.Wrap(ErrMalformedRecord, err.Error())}
	}
	if err := s.Validate(); err != nil {
		return DecodeResult{Schema: schema, Err: err}
	}
	if !corroborated {
		return DecodeResult{Schema: schema, Err: ErrNotCorroborated}
	}
	return DecodeResult{Session: &s, Schema: schema}
}

// DecodeLegacy rebuilds a session from the per-field legacy keys.
// Token, role and tenant are the markers the legacy layout always carried;
// the university scope is required as well so the rebuilt session is never partial.
func DecodeLegacy(values map[string]string) DecodeResult {
	if len(values) == 0 {
		return DecodeResult{Schema: SchemaLegacy, Err: ErrNoRecord}
	}

	required := []string{KeyToken, KeyRole, KeyTenantID, KeyUniversityID}
	for _, key := range required {
		if utils.NilIfBlank(values[key]) == nil {
			return DecodeResult{Schema: SchemaLegacy, Err: errors.Wrap(ErrInsufficientLegacy, key)}
		}
	}

	s := Session{
		Token:        utils.Value(utils.NilIfBlank(values[KeyToken])),
		Role:         Role(utils.Value(utils.NilIfBlank(values[KeyRole]))),
		TenantID:     utils.Value(utils.NilIfBlank(values[KeyTenantID])),
		UniversityID: utils.Value(utils.NilIfBlank(values[KeyUniversityID])),
		FacultyID:    utils.NilIfBlank(values[KeyFacultyID]),
		DepartmentID: utils.NilIfBlank(values[KeyDepartmentID]),
		Email:        utils.Value(utils.NilIfBlank(values[KeyEmail])),
	}
	return DecodeResult{Session: &s, Schema: SchemaLegacy}
}

// EncodeRecord renders the primary record in the current schema.
func EncodeRecord(s Session) (string, error) {
	b, err := json.Marshal(currentRecord{Version: SchemaCurrent, AuthData: s})
	if err != nil {
		return "", errors.Wrap(err, "[EncodeRecord] json.Marshal")
	}
	return string(b), nil
}

// legacyValues maps the session onto the legacy per-field keys.
// Empty values mean the key must be absent.
func legacyValues(s Session) map[string]string {
	return map[string]string{
		KeyToken:        s.Token,
		KeyRole:         string(s.Role),
		KeyTenantID:     s.TenantID,
		KeyUniversityID: s.UniversityID,
		KeyFacultyID:    utils.Value(s.FacultyID),
		KeyDepartmentID: utils.Value(s.DepartmentID),
		KeyEmail:        s.Email,
	}
}
