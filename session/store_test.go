package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/go-dept-admin/internal/errors"
	"github.com/jrsteele09/go-dept-admin/internal/utils"
	"github.com/jrsteele09/go-dept-admin/session"
	"github.com/jrsteele09/go-dept-admin/session/storagefake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testToken        = "t1"
	testTenantID     = "ten1"
	testUniversityID = "uni1"
	testDepartmentID = "dep1"
	testEmail        = "x@y.com"
)

func departmentSession() session.Session {
	return session.Session{
		Token:        testToken,
		Role:         session.RoleDepartmentAdmin,
		TenantID:     testTenantID,
		UniversityID: testUniversityID,
		FacultyID:    nil,
		DepartmentID: utils.Ptr(testDepartmentID),
		Email:        testEmail,
	}
}

func universitySession() session.Session {
	return session.Session{
		Token:        "t2",
		Role:         session.RoleUniversityAdmin,
		TenantID:     "ten2",
		UniversityID: "uni2",
	}
}

// newStore creates a store over storage with logging silenced
func newStore(t *testing.T, storage session.Storage, options ...session.StoreOption) *session.Store {
	t.Helper()
	options = append([]session.StoreOption{session.WithLogger(zerolog.Nop())}, options...)
	store, err := session.NewStore(storage, options...)
	require.NoError(t, err)
	return store
}

func requireNoOwnedKeys(t *testing.T, storage *storagefake.FakeStorage) {
	t.Helper()
	snapshot := storage.Snapshot()
	for _, key := range session.OwnedKeys() {
		require.NotContains(t, snapshot, key)
	}
}

func TestNewStore_RequiresStorage(t *testing.T) {
	_, err := session.NewStore(nil)
	require.Error(t, err)
}

func TestStore_CurrentIsNilBeforeInitialize(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	require.NoError(t, newStore(t, storage).Login(context.Background(), departmentSession()))

	reloaded := newStore(t, storage)
	require.Nil(t, reloaded.Current())
	require.False(t, reloaded.Initialized())

	select {
	case <-reloaded.Ready():
		t.Fatal("ready before initialize")
	default:
	}

	require.NotNil(t, reloaded.Initialize(context.Background()))
	require.True(t, reloaded.Initialized())
	<-reloaded.Ready()
}

func TestStore_LoginThenInitializeRoundTrip(t *testing.T) {
	ctx := context.Background()

	sessions := map[string]session.Session{
		"department admin": departmentSession(),
		"university admin": universitySession(),
		"faculty scoped": {
			Token:        "t3",
			Role:         session.RoleDepartmentAdmin,
			TenantID:     "ten3",
			UniversityID: "uni3",
			FacultyID:    utils.Ptr("fac3"),
			DepartmentID: utils.Ptr("dep3"),
			Email:        "head@uni.edu",
		},
	}

	for name, s := range sessions {
		t.Run(name, func(t *testing.T) {
			storage := storagefake.NewFakeStorage()
			require.NoError(t, newStore(t, storage).Login(ctx, s))

			reloaded := newStore(t, storage).Initialize(ctx)
			require.NotNil(t, reloaded)
			require.Equal(t, s, *reloaded)
		})
	}
}

func TestStore_InitializeCorruptPrimaryRecord(t *testing.T) {
	ctx := context.Background()

	validRecord := func(t *testing.T) map[string]any {
		authData := map[string]any{
			"token":        testToken,
			"role":         string(session.RoleDepartmentAdmin),
			"tenantId":     testTenantID,
			"universityId": testUniversityID,
			"facultyId":    nil,
			"departmentId": testDepartmentID,
			"email":        testEmail,
		}
		return map[string]any{"authData": authData}
	}

	encode := func(t *testing.T, v any) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return string(b)
	}

	seed := func(record string) *storagefake.FakeStorage {
		return storagefake.NewFakeStorageWith(map[string]string{
			session.KeyAuthRecord:   record,
			session.KeyToken:        testToken,
			session.KeyRole:         string(session.RoleDepartmentAdmin),
			session.KeyTenantID:     testTenantID,
			session.KeyUniversityID: testUniversityID,
			session.KeyDepartmentID: testDepartmentID,
			session.KeyEmail:        testEmail,
			session.KeyPendingEmail: "pending@y.com",
		})
	}

	for _, field := range []string{"token", "role", "tenantId", "universityId"} {
		t.Run("missing "+field, func(t *testing.T) {
			record := validRecord(t)
			delete(record["authData"].(map[string]any), field)
			storage := seed(encode(t, record))

			store := newStore(t, storage)
			require.Nil(t, store.Initialize(ctx))
			require.Nil(t, store.Current())
			requireNoOwnedKeys(t, storage)
		})
	}

	corrupt := map[string]string{
		"not json":           "definitely { not json",
		"json string":        `"authData"`,
		"null":               "null",
		"authData null":      `{"authData":null}`,
		"authData string":    `{"authData":"oops"}`,
		"token wrong type":   `{"authData":{"token":1,"role":"DEPARTMENT_ADMIN","tenantId":"ten1","universityId":"uni1"}}`,
		"unsupported schema": `{"version":9,"authData":{"token":"t1","role":"DEPARTMENT_ADMIN","tenantId":"ten1","universityId":"uni1"}}`,
		"blank token":        `{"version":2,"authData":{"token":"  ","role":"DEPARTMENT_ADMIN","tenantId":"ten1","universityId":"uni1"}}`,
	}
	for name, raw := range corrupt {
		t.Run(name, func(t *testing.T) {
			storage := seed(raw)

			store := newStore(t, storage)
			require.Nil(t, store.Initialize(ctx))
			requireNoOwnedKeys(t, storage)
		})
	}

	t.Run("unversioned record without markers", func(t *testing.T) {
		storage := storagefake.NewFakeStorageWith(map[string]string{
			session.KeyAuthRecord: encode(t, validRecord(t)),
			session.KeyTenantID:   testTenantID,
		})

		require.Nil(t, newStore(t, storage).Initialize(ctx))
		requireNoOwnedKeys(t, storage)
	})

	t.Run("unversioned record missing role marker", func(t *testing.T) {
		storage := storagefake.NewFakeStorageWith(map[string]string{
			session.KeyAuthRecord: encode(t, validRecord(t)),
			session.KeyToken:      testToken,
		})

		require.Nil(t, newStore(t, storage).Initialize(ctx))
		requireNoOwnedKeys(t, storage)
	})
}

func TestStore_InitializeUpgradesUnversionedRecord(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorageWith(map[string]string{
		session.KeyAuthRecord: `{"authData":{"token":"t1","role":"DEPARTMENT_ADMIN","tenantId":"ten1","universityId":"uni1","facultyId":null,"departmentId":"dep1","email":"x@y.com"}}`,
		session.KeyToken:      testToken,
		session.KeyRole:       string(session.RoleDepartmentAdmin),
	})

	var events []session.Event
	store := newStore(t, storage, session.WithObserver(func(e session.Event) { events = append(events, e) }))

	s := store.Initialize(ctx)
	require.NotNil(t, s)
	require.Equal(t, departmentSession(), *s)
	require.Equal(t, []session.Event{session.EventUpgraded, session.EventRestored}, events)

	result := session.DecodeRecord(storage.Snapshot()[session.KeyAuthRecord], true)
	require.True(t, result.OK())
	require.Equal(t, session.SchemaCurrent, result.Schema)
	require.Equal(t, testTenantID, storage.Snapshot()[session.KeyTenantID])
}

func TestStore_InitializeMigratesLegacyKeys(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorageWith(map[string]string{
		session.KeyToken:        testToken,
		session.KeyRole:         string(session.RoleDepartmentAdmin),
		session.KeyTenantID:     testTenantID,
		session.KeyUniversityID: testUniversityID,
		session.KeyFacultyID:    "null",
		session.KeyDepartmentID: testDepartmentID,
	})

	var events []session.Event
	store := newStore(t, storage, session.WithObserver(func(e session.Event) { events = append(events, e) }))

	s := store.Initialize(ctx)
	require.NotNil(t, s)
	require.Equal(t, session.Session{
		Token:        testToken,
		Role:         session.RoleDepartmentAdmin,
		TenantID:     testTenantID,
		UniversityID: testUniversityID,
		DepartmentID: utils.Ptr(testDepartmentID),
	}, *s)
	require.Equal(t, []session.Event{session.EventMigrated}, events)

	raw, ok := storage.Snapshot()[session.KeyAuthRecord]
	require.True(t, ok, "primary record written by migration")
	result := session.DecodeRecord(raw, true)
	require.True(t, result.OK())
	require.Equal(t, *s, *result.Session)

	// The next start takes the structured path.
	events = nil
	again := newStore(t, storage, session.WithObserver(func(e session.Event) { events = append(events, e) }))
	require.Equal(t, s, again.Initialize(ctx))
	require.Equal(t, []session.Event{session.EventRestored}, events)
}

func TestStore_InitializeInsufficientLegacyKeys(t *testing.T) {
	ctx := context.Background()

	for _, missing := range []string{session.KeyToken, session.KeyRole, session.KeyTenantID, session.KeyUniversityID} {
		t.Run("missing "+missing, func(t *testing.T) {
			values := map[string]string{
				session.KeyToken:        testToken,
				session.KeyRole:         string(session.RoleDepartmentAdmin),
				session.KeyTenantID:     testTenantID,
				session.KeyUniversityID: testUniversityID,
				session.KeyEmail:        testEmail,
			}
			delete(values, missing)
			storage := storagefake.NewFakeStorageWith(values)

			require.Nil(t, newStore(t, storage).Initialize(ctx))
			require.NotContains(t, storage.Snapshot(), session.KeyAuthRecord)
		})
	}
}

func TestStore_InitializeEmptyStorage(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	var events []session.Event
	store := newStore(t, storage, session.WithObserver(func(e session.Event) { events = append(events, e) }))

	require.Nil(t, store.Initialize(context.Background()))
	require.Empty(t, storage.Snapshot())
	require.Equal(t, []session.Event{session.EventUnauthenticated}, events)
}

func TestStore_InitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()
	require.NoError(t, newStore(t, storage).Login(ctx, departmentSession()))

	store := newStore(t, storage)
	first := store.Initialize(ctx)
	require.NotNil(t, first)

	// A second call must not read storage again.
	storage.FailGet(session.KeyAuthRecord, true)
	require.Equal(t, first, store.Initialize(ctx))
}

func TestStore_InitializeStorageReadFailure(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()
	require.NoError(t, newStore(t, storage).Login(ctx, departmentSession()))
	storage.FailGet(session.KeyAuthRecord, true)

	store := newStore(t, storage)
	require.Nil(t, store.Initialize(ctx))
	require.True(t, store.Initialized())

	// Unreadable is not corrupt: nothing is purged.
	require.Contains(t, storage.Snapshot(), session.KeyAuthRecord)
}

func TestStore_LogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()
	store := newStore(t, storage)
	require.NoError(t, store.SetPendingEmail(ctx, "a@b.com"))
	require.NoError(t, store.Login(ctx, universitySession()))

	require.NoError(t, store.Logout(ctx))
	first := storage.Snapshot()
	require.Empty(t, first)
	require.Nil(t, store.Current())

	require.NoError(t, store.Logout(ctx))
	require.Equal(t, first, storage.Snapshot())
	require.Nil(t, store.Current())
}

func TestStore_LogoutPurgesPendingEmail(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()
	store := newStore(t, storage)
	store.Initialize(ctx)

	require.NoError(t, store.SetPendingEmail(ctx, "a@b.com"))
	require.NoError(t, store.Logout(ctx))
	requireNoOwnedKeys(t, storage)
}

func TestStore_LoginReplacesWithoutMerge(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()
	store := newStore(t, storage)

	s1 := departmentSession()
	s1.FacultyID = utils.Ptr("fac1")
	s2 := universitySession()

	require.NoError(t, store.Login(ctx, s1))
	require.NoError(t, store.Login(ctx, s2))
	require.Equal(t, s2, *store.Current())

	snapshot := storage.Snapshot()
	require.NotContains(t, snapshot, session.KeyDepartmentID)
	require.NotContains(t, snapshot, session.KeyFacultyID)
	require.NotContains(t, snapshot, session.KeyEmail)
	require.Equal(t, s2.Token, snapshot[session.KeyToken])

	result := session.DecodeRecord(snapshot[session.KeyAuthRecord], true)
	require.True(t, result.OK())
	require.Nil(t, result.Session.DepartmentID)
	require.Nil(t, result.Session.FacultyID)
	require.Equal(t, s2, *result.Session)
}

func TestStore_LoginAdoptsPendingEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("adopted when session has no email", func(t *testing.T) {
		storage := storagefake.NewFakeStorage()
		store := newStore(t, storage)
		require.NoError(t, store.SetPendingEmail(ctx, "a@b.com"))

		s := universitySession()
		require.NoError(t, store.Login(ctx, s))

		current := store.Current()
		require.Equal(t, "a@b.com", current.Email)
		require.Equal(t, "a", current.Username())
		require.NotContains(t, storage.Snapshot(), session.KeyPendingEmail)
		require.Equal(t, "a@b.com", storage.Snapshot()[session.KeyEmail])
	})

	t.Run("session email wins", func(t *testing.T) {
		storage := storagefake.NewFakeStorage()
		store := newStore(t, storage)
		require.NoError(t, store.SetPendingEmail(ctx, "a@b.com"))

		require.NoError(t, store.Login(ctx, departmentSession()))
		require.Equal(t, testEmail, store.Current().Email)
		require.NotContains(t, storage.Snapshot(), session.KeyPendingEmail)
	})

	t.Run("blank pending email clears marker", func(t *testing.T) {
		storage := storagefake.NewFakeStorage()
		store := newStore(t, storage)
		require.NoError(t, store.SetPendingEmail(ctx, "a@b.com"))
		require.NoError(t, store.SetPendingEmail(ctx, "  "))
		require.Empty(t, storage.Snapshot())
	})
}

func TestStore_LoginRejectsPartialSession(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()
	store := newStore(t, storage)

	partial := departmentSession()
	partial.UniversityID = ""

	err := store.Login(ctx, partial)
	require.ErrorIs(t, err, apperrors.ErrInvalidSession)
	require.ErrorIs(t, err, session.ErrMissingField)
	require.Nil(t, store.Current())
	require.Empty(t, storage.Snapshot())
}

func TestStore_LoginWithoutLegacyMirror(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorageWith(map[string]string{
		session.KeyToken:        "stale",
		session.KeyDepartmentID: "stale-dep",
	})
	store := newStore(t, storage, session.WithLegacyMirror(false))

	require.NoError(t, store.Login(ctx, departmentSession()))
	snapshot := storage.Snapshot()
	require.Len(t, snapshot, 3)
	require.Contains(t, snapshot, session.KeyAuthRecord)
	require.Equal(t, testToken, snapshot[session.KeyToken])
	require.Equal(t, string(session.RoleDepartmentAdmin), snapshot[session.KeyRole])

	reloaded := newStore(t, storage, session.WithLegacyMirror(false)).Initialize(ctx)
	require.NotNil(t, reloaded)
	require.Equal(t, departmentSession(), *reloaded)
}

func TestStore_InitializeCurrentRecordMissingMarker(t *testing.T) {
	ctx := context.Background()

	for _, mirror := range []bool{true, false} {
		for _, marker := range []string{session.KeyToken, session.KeyRole} {
			t.Run(fmt.Sprintf("mirror=%v without %s", mirror, marker), func(t *testing.T) {
				storage := storagefake.NewFakeStorage()
				require.NoError(t, newStore(t, storage, session.WithLegacyMirror(mirror)).Login(ctx, departmentSession()))
				require.NoError(t, storage.Remove(ctx, marker))

				require.Nil(t, newStore(t, storage, session.WithLegacyMirror(mirror)).Initialize(ctx))
				requireNoOwnedKeys(t, storage)
			})
		}
	}

	t.Run("blank marker counts as absent", func(t *testing.T) {
		storage := storagefake.NewFakeStorage()
		require.NoError(t, newStore(t, storage).Login(ctx, departmentSession()))
		require.NoError(t, storage.Set(ctx, session.KeyToken, "undefined"))

		require.Nil(t, newStore(t, storage).Initialize(ctx))
		requireNoOwnedKeys(t, storage)
	})
}

func TestStore_LogoutToken(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()
	store := newStore(t, storage)
	require.NoError(t, store.Login(ctx, departmentSession()))

	ended, err := store.LogoutToken(ctx, "replaced")
	require.NoError(t, err)
	require.False(t, ended)
	require.Equal(t, departmentSession(), *store.Current())
	require.Contains(t, storage.Snapshot(), session.KeyAuthRecord)

	ended, err = store.LogoutToken(ctx, testToken)
	require.NoError(t, err)
	require.True(t, ended)
	require.Nil(t, store.Current())
	requireNoOwnedKeys(t, storage)

	ended, err = store.LogoutToken(ctx, testToken)
	require.NoError(t, err)
	require.False(t, ended)
}

func TestStore_LoginPersistFailure(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()
	storage.FailSet(session.KeyRole, true)

	var events []session.Event
	store := newStore(t, storage, session.WithObserver(func(e session.Event) { events = append(events, e) }))

	err := store.Login(ctx, departmentSession())
	require.ErrorIs(t, err, apperrors.ErrSessionNotPersisted)

	// Live in memory, absent from storage.
	require.Equal(t, departmentSession(), *store.Current())
	requireNoOwnedKeys(t, storage)
	require.Equal(t, []session.Event{session.EventPersistFailed}, events)
	require.Nil(t, newStore(t, storage).Initialize(ctx))
}

func TestStore_LogoutPurgeFailureStillClearsMemory(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()
	store := newStore(t, storage)
	require.NoError(t, store.Login(ctx, departmentSession()))

	storage.FailRemove(session.KeyToken, true)
	require.Error(t, store.Logout(ctx))
	require.Nil(t, store.Current())
	require.NotContains(t, storage.Snapshot(), session.KeyAuthRecord)
}

func TestStore_CurrentReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, storagefake.NewFakeStorage())
	require.NoError(t, store.Login(ctx, departmentSession()))

	c := store.Current()
	c.Token = "mutated"
	*c.DepartmentID = "mutated"

	require.Equal(t, departmentSession(), *store.Current())
}

func TestStore_ReloadObservesOtherInstance(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()

	tabA := newStore(t, storage)
	tabB := newStore(t, storage)
	require.Nil(t, tabA.Initialize(ctx))
	require.Nil(t, tabB.Initialize(ctx))

	require.NoError(t, tabA.Login(ctx, departmentSession()))
	require.Nil(t, tabB.Current(), "no cross-instance propagation")
	require.Equal(t, departmentSession(), *tabB.Reload(ctx))
}

func TestStore_LoginScenario(t *testing.T) {
	ctx := context.Background()
	storage := storagefake.NewFakeStorage()

	store := newStore(t, storage)
	require.Nil(t, store.Initialize(ctx))

	s := departmentSession()
	require.NoError(t, store.Login(ctx, s))
	require.Equal(t, s, *store.Current())

	reloaded := newStore(t, storage).Initialize(ctx)
	require.NotNil(t, reloaded)
	require.Equal(t, s, *reloaded)
}

func TestStore_TokenSource(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, storagefake.NewFakeStorage())

	_, err := store.Token()
	require.ErrorIs(t, err, apperrors.ErrNoSession)

	require.NoError(t, store.Login(ctx, departmentSession()))
	tok, err := store.Token()
	require.NoError(t, err)
	require.Equal(t, testToken, tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())
	require.True(t, tok.Expiry.IsZero(), "opaque tokens carry no expiry")
}
