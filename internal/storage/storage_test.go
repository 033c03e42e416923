package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestInitAppliesAllMigrations(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion(), version)

	for _, table := range []string{"todos", "users", "user_phones", "bookings", "documents", "schema_migrations"} {
		require.Truef(t, tableExists(t, store.DB(), table), "expected table %s to exist", table)
	}
	for _, index := range []string{"idx_users_email", "idx_user_phones_user_id", "idx_bookings_user_id", "idx_documents_user_id", "idx_user_phones_primary"} {
		require.Truef(t, indexExists(t, store.DB(), index), "expected index %s to exist", index)
	}

	var foreignKeys int
	require.NoError(t, store.DB().QueryRow(`PRAGMA foreign_keys`).Scan(&foreignKeys))
	require.Equal(t, 1, foreignKeys)

	var journal string
	require.NoError(t, store.DB().QueryRow(`PRAGMA journal_mode`).Scan(&journal))
	require.Equal(t, "wal", journal)
}

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tinkuji.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Init(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion(), version)
	require.NoError(t, store.Close())

	reopened, err := OpenAndInit(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	version, err = reopened.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion(), version)

	var todos int
	require.NoError(t, reopened.DB().QueryRow(`SELECT COUNT(1) FROM todos`).Scan(&todos))
	require.Equal(t, 2, todos)
}

func TestRunMigrationsIsAtomic(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)
	defer closeNoErr(t, db)

	migrations := []Migration{
		{
			Version:     1,
			Description: "create a",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE test_a (id TEXT PRIMARY KEY)`)
				return err
			},
		},
		{
			Version:     2,
			Description: "create b then fail",
			Up: func(tx *sql.Tx) error {
				if _, err := tx.Exec(`CREATE TABLE test_b (id TEXT PRIMARY KEY)`); err != nil {
					return err
				}
				return errors.New("boom")
			},
		},
	}

	err := RunMigrations(context.Background(), db, migrations)
	require.Error(t, err)
	require.Equal(t, 1, mustUserVersion(t, db))
	require.True(t, tableExists(t, db, "test_a"))
	require.False(t, tableExists(t, db, "test_b"))
}

func TestInitRefusesNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tinkuji.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`PRAGMA user_version = 99`)
	require.NoError(t, err)
	closeNoErr(t, db)

	store, err := OpenAndInit(context.Background(), path)
	if store != nil {
		t.Cleanup(func() { _ = store.Close() })
	}
	require.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestRepositoryCallsBeforeInitFail(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "tinkuji.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	_, err = store.Users.GetByEmail(ctx, "a@b.com")
	require.ErrorIs(t, err, ErrNotInitialized)

	err = store.Bookings.Create(ctx, newTestBooking("b1", "u1"))
	require.ErrorIs(t, err, ErrNotInitialized)

	_, err = store.Documents.ListByUser(ctx, "u1")
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestUserCreateGetAndDuplicateEmail(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Users.Create(ctx, &User{ID: "u1", Email: "a@b.com", Password: "x", Name: "A"}))

	loaded, err := store.Users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "u1", loaded.ID)
	require.False(t, loaded.CreatedAt.IsZero())

	err = store.Users.Create(ctx, &User{ID: "u2", Email: "a@b.com", Password: "y", Name: "B"})
	require.ErrorIs(t, err, ErrConstraintViolation)
	require.ErrorIs(t, err, ErrUniqueViolation)

	again, err := store.Users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, loaded, again)
}

func TestUserGetByEmailIgnoresCase(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Users.Create(ctx, &User{ID: "u1", Email: "Old@Example.com", Password: "x", Name: "A"}))

	for _, email := range []string{"Old@Example.com", "old@example.com", "OLD@EXAMPLE.COM"} {
		loaded, err := store.Users.GetByEmail(ctx, email)
		require.NoError(t, err)
		require.NotNil(t, loaded, email)
		require.Equal(t, "u1", loaded.ID)
	}

	// Legacy data may hold both spellings; the exact one wins.
	require.NoError(t, store.Users.Create(ctx, &User{ID: "u2", Email: "old@example.com", Password: "y", Name: "B"}))
	loaded, err := store.Users.GetByEmail(ctx, "old@example.com")
	require.NoError(t, err)
	require.Equal(t, "u2", loaded.ID)
	loaded, err = store.Users.GetByEmail(ctx, "Old@Example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", loaded.ID)
}

func TestUserLookupMissingReturnsNil(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.Users.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = store.Users.GetByID(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestUserCreateRejectsInvalidEmail(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.Users.Create(context.Background(), &User{ID: "u1", Email: "not-an-email", Password: "x", Name: "A"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateUserNeverChangesID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")

	patch := Patch{}.Set("id", "hijacked").Set("name", "Renamed").Set("address", "12 Road")
	require.NoError(t, store.Users.Update(ctx, "u1", patch))

	user, err := store.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "Renamed", user.Name)
	require.Equal(t, "12 Road", *user.Address)

	hijacked, err := store.Users.GetByID(ctx, "hijacked")
	require.NoError(t, err)
	require.Nil(t, hijacked)
}

func TestUpdateUserNilClearsField(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")

	require.NoError(t, store.Users.Update(ctx, "u1", Patch{}.Set("country_code", "+91").Set("phone_number", "9999999999")))

	var cleared *string
	require.NoError(t, store.Users.Update(ctx, "u1", Patch{}.Set("country_code", cleared).Set("phone_number", nil)))

	user, err := store.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, user.CountryCode)
	require.Nil(t, user.PhoneNumber)
}

func TestBookingListNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")

	for _, id := range []string{"b1", "b2", "b3"} {
		require.NoError(t, store.Bookings.Create(ctx, newTestBooking(id, "u1")))

		list, err := store.Bookings.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, id, list[0].ID)
	}

	list, err := store.Bookings.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"b3", "b2", "b1"}, bookingIDs(list))
}

func TestBookingListOrdersByCreatedAt(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	older := newTestBooking("older", "u1")
	older.CreatedAt = base
	newer := newTestBooking("newer", "u1")
	newer.CreatedAt = base.Add(1500 * time.Millisecond)

	require.NoError(t, store.Bookings.Create(ctx, newer))
	require.NoError(t, store.Bookings.Create(ctx, older))

	list, err := store.Bookings.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"newer", "older"}, bookingIDs(list))
}

func TestUpdateBookingWithoutValidFieldsFails(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")
	require.NoError(t, store.Bookings.Create(ctx, newTestBooking("b1", "u1")))
	before := mustGetBooking(t, store, "b1")

	err := store.Bookings.Update(ctx, "b1", Patch{})
	require.ErrorIs(t, err, ErrNoValidFields)

	err = store.Bookings.Update(ctx, "b1", Patch{}.Set("id", "b2").Set("user_id", "u2").Set("created_at", "x").Set("bogus", 1))
	require.ErrorIs(t, err, ErrNoValidFields)

	require.Equal(t, before, mustGetBooking(t, store, "b1"))
}

func TestUpdateBookingPaymentStatusKeepsOtherFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")

	booking := newTestBooking("b1", "u1")
	booking.Money = 1000
	booking.Advance = 200
	require.NoError(t, store.Bookings.Create(ctx, booking))
	created := mustGetBooking(t, store, "b1")

	require.NoError(t, store.Bookings.Update(ctx, "b1", Patch{}.Set("payment_status", "completed")))

	list, err := store.Bookings.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "completed", list[0].PaymentStatus)

	expected := *created
	expected.PaymentStatus = "completed"
	require.Equal(t, expected, list[0])
	require.Equal(t, 1000.0, list[0].Money)
	require.Equal(t, 200.0, list[0].Advance)
}

func TestUpdateBookingIgnoresIDAndUserID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")
	createTestUser(t, store, "u2")
	require.NoError(t, store.Bookings.Create(ctx, newTestBooking("b1", "u1")))

	require.NoError(t, store.Bookings.Update(ctx, "b1", Patch{}.Set("id", "other").Set("user_id", "u2").Set("to_location", "Jaipur")))

	booking := mustGetBooking(t, store, "b1")
	require.Equal(t, "b1", booking.ID)
	require.Equal(t, "u1", booking.UserID)
	require.Equal(t, "Jaipur", booking.ToLocation)
}

func TestUpdateBookingValidatesValues(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")
	require.NoError(t, store.Bookings.Create(ctx, newTestBooking("b1", "u1")))

	err := store.Bookings.Update(ctx, "b1", Patch{}.Set("departure_date", "01/02/2024"))
	require.ErrorIs(t, err, ErrValidation)

	err = store.Bookings.Update(ctx, "b1", Patch{}.Set("return_type", "Round-trip"))
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, store.Bookings.Update(ctx, "b1", Patch{}.Set("return_type", ReturnTypeBothWays)))
	require.Equal(t, ReturnTypeBothWays, mustGetBooking(t, store, "b1").ReturnType)
}

func TestUpdateAndDeleteMissingRowReturnNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	err := store.Bookings.Update(ctx, "missing", Patch{}.Set("extras", "x"))
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorContains(t, err, "update booking: ")

	err = store.Phones.Delete(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorContains(t, err, "delete phone: ")

	require.ErrorIs(t, store.Bookings.Delete(ctx, "missing"), ErrNotFound)
	require.ErrorIs(t, store.Documents.Delete(ctx, "missing"), ErrNotFound)
}

func TestUpdateRejectsValuesOfTheWrongKind(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")
	require.NoError(t, store.Bookings.Create(ctx, newTestBooking("b1", "u1")))

	cases := []struct {
		column string
		value  any
	}{
		{"departure_date", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
		{"arrival_time", 1230},
		{"return_type", 1.5},
		{"money", "4500"},
		{"advance", true},
	}
	for _, tc := range cases {
		require.NotPanics(t, func() {
			err := store.Bookings.Update(ctx, "b1", Patch{}.Set(tc.column, tc.value))
			require.ErrorIs(t, err, ErrValidation, tc.column)
		})
	}

	require.NotPanics(t, func() {
		err := store.Users.Update(ctx, "u1", Patch{}.Set("email", 42))
		require.ErrorIs(t, err, ErrValidation)
	})

	require.NoError(t, store.Bookings.Update(ctx, "b1", Patch{}.Set("money", 700).Set("advance", 150.5)))
	stored := mustGetBooking(t, store, "b1")
	require.Equal(t, 700.0, stored.Money)
	require.Equal(t, "2024-06-01", stored.DepartureDate)
}

func TestBookingForeignKeyViolation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.Bookings.Create(context.Background(), newTestBooking("b1", "ghost"))
	require.ErrorIs(t, err, ErrConstraintViolation)
	require.ErrorIs(t, err, ErrForeignKeyViolation)
}

func TestDeleteBooking(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")
	require.NoError(t, store.Bookings.Create(ctx, newTestBooking("b1", "u1")))

	require.NoError(t, store.Bookings.Delete(ctx, "b1"))
	booking, err := store.Bookings.Get(ctx, "b1")
	require.NoError(t, err)
	require.Nil(t, booking)
}

func TestDeletingUserCascades(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")

	require.NoError(t, store.Phones.Add(ctx, &PhoneNumber{ID: "p1", UserID: "u1", CountryCode: "+91", PhoneNumber: "1", PhoneType: PhoneTypePrimary}))
	require.NoError(t, store.Phones.Add(ctx, &PhoneNumber{ID: "p2", UserID: "u1", CountryCode: "+91", PhoneNumber: "2", PhoneType: PhoneTypeOther}))
	require.NoError(t, store.Bookings.Create(ctx, newTestBooking("b1", "u1")))
	require.NoError(t, store.Bookings.Create(ctx, newTestBooking("b2", "u1")))
	require.NoError(t, store.Documents.Create(ctx, newTestDocument("d1", "u1", "/tmp/d1.pdf")))

	_, err := store.DB().Exec(`DELETE FROM users WHERE id = ?`, "u1")
	require.NoError(t, err)

	phones, err := store.Phones.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, phones)

	bookings, err := store.Bookings.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, bookings)

	docs, err := store.Documents.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestPhonesListedPrimaryFirstAndSinglePrimaryEnforced(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")

	require.NoError(t, store.Phones.Add(ctx, &PhoneNumber{ID: "other", UserID: "u1", CountryCode: "+91", PhoneNumber: "3", PhoneType: PhoneTypeOther}))
	require.NoError(t, store.Phones.Add(ctx, &PhoneNumber{ID: "second", UserID: "u1", CountryCode: "+91", PhoneNumber: "2", PhoneType: PhoneTypeSecondary}))
	require.NoError(t, store.Phones.Add(ctx, &PhoneNumber{ID: "primary", UserID: "u1", CountryCode: "+91", PhoneNumber: "1", PhoneType: PhoneTypePrimary}))

	phones, err := store.Phones.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, phones, 3)
	require.Equal(t, "primary", phones[0].ID)
	require.Equal(t, "second", phones[1].ID)
	require.Equal(t, "other", phones[2].ID)

	err = store.Phones.Add(ctx, &PhoneNumber{ID: "primary-2", UserID: "u1", CountryCode: "+91", PhoneNumber: "4", PhoneType: PhoneTypePrimary})
	require.ErrorIs(t, err, ErrUniqueViolation)

	err = store.Phones.Add(ctx, &PhoneNumber{ID: "bad", UserID: "u1", CountryCode: "+91", PhoneNumber: "5", PhoneType: "Work"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSinglePrimaryMigrationDemotesDuplicates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tinkuji.db")
	ctx := context.Background()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, db, DefaultMigrations()[:3]))
	_, err = db.Exec(`INSERT INTO users(id, email, password, name, created_at) VALUES('u1', 'a@b.com', 'x', 'A', '2024-01-01T00:00:00.000Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO user_phones(id, user_id, country_code, phone_number, phone_type) VALUES
		('p1', 'u1', '+91', '1', 'Primary'),
		('p2', 'u1', '+91', '2', 'Primary')`)
	require.NoError(t, err)
	closeNoErr(t, db)

	store, err := OpenAndInit(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	phones, err := store.Phones.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, phones, 2)
	require.Equal(t, "p1", phones[0].ID)
	require.Equal(t, PhoneTypePrimary, phones[0].PhoneType)
	require.Equal(t, PhoneTypeSecondary, phones[1].PhoneType)

	user, err := store.Users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), user.CreatedAt)
}

func TestDocumentCRUD(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")

	doc := newTestDocument("d1", "u1", "/data/documents/1_a.pdf")
	require.NoError(t, store.Documents.Create(ctx, doc))

	loaded, err := store.Documents.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "/data/documents/1_a.pdf", loaded.FilePath)
	require.Nil(t, loaded.Comments)

	require.NoError(t, store.Documents.Update(ctx, "d1", Patch{}.Set("comments", "renew soon").Set("user_id", "u9")))
	loaded, err = store.Documents.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "renew soon", *loaded.Comments)
	require.Equal(t, "u1", loaded.UserID)

	paths, err := store.Documents.FilePaths(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"/data/documents/1_a.pdf"}, paths)

	require.NoError(t, store.Documents.Delete(ctx, "d1"))
	loaded, err = store.Documents.Get(ctx, "d1")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestFileReferencesCountsImagesAndDocuments(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "u1")

	const shared = "/data/documents/1_a.pdf"
	require.NoError(t, store.Documents.Create(ctx, newTestDocument("d1", "u1", shared)))
	require.NoError(t, store.Documents.Create(ctx, newTestDocument("d2", "u1", "/data/documents/2_b.pdf")))

	refs, err := store.Documents.FileReferences(ctx, shared)
	require.NoError(t, err)
	require.Equal(t, 1, refs)

	require.NoError(t, store.Users.Update(ctx, "u1", Patch{}.Set("image", shared)))
	refs, err = store.Users.FileReferences(ctx, shared)
	require.NoError(t, err)
	require.Equal(t, 2, refs)

	refs, err = store.Documents.FileReferences(ctx, "/data/files/none.jpg")
	require.NoError(t, err)
	require.Zero(t, refs)
}

func TestPatchFilterKeepsOrderAndLastValue(t *testing.T) {
	t.Parallel()

	patch := Patch{}.
		Set("payment_status", "partial").
		Set("id", "nope").
		Set("money", 10).
		Set("payment_status", "paid")

	filtered := bookingUpdates.filter(patch)
	require.Equal(t, Patch{
		{Column: "payment_status", Value: "paid"},
		{Column: "money", Value: 10},
	}, filtered)

	fromMap := PatchFromMap(map[string]any{"b": 2, "a": 1})
	require.Equal(t, "a", fromMap[0].Column)
	require.Equal(t, "b", fromMap[1].Column)
}

type recordingObserver struct {
	calls []string
}

func (o *recordingObserver) ObserveQuery(entity, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.calls = append(o.calls, entity+"."+op+"."+result)
}

func TestObserverSeesRepositoryCalls(t *testing.T) {
	t.Parallel()

	observer := &recordingObserver{}
	store, err := OpenAndInit(context.Background(), filepath.Join(t.TempDir(), "tinkuji.db"), WithObserver(observer))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Users.Create(ctx, &User{ID: "u1", Email: "a@b.com", Password: "x", Name: "A"}))
	_ = store.Users.Create(ctx, &User{ID: "u2", Email: "a@b.com", Password: "x", Name: "B"})
	_, err = store.Users.GetByEmail(ctx, "missing@b.com")
	require.NoError(t, err)

	require.Equal(t, []string{"user.create.ok", "user.create.error", "user.get.ok"}, observer.calls)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenAndInit(context.Background(), filepath.Join(t.TempDir(), "tinkuji.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func createTestUser(t *testing.T, store *Store, id string) {
	t.Helper()
	require.NoError(t, store.Users.Create(context.Background(), &User{
		ID:       id,
		Email:    id + "@example.com",
		Password: "hash",
		Name:     "User " + id,
	}))
}

func newTestBooking(id, userID string) *Booking {
	driver := "Ramesh"
	return &Booking{
		ID:              id,
		UserID:          userID,
		FromLocation:    "Delhi",
		ToLocation:      "Agra",
		DepartureDate:   "2024-06-01",
		DepartureTime:   "08:30:00",
		ArrivalDate:     "2024-06-01",
		ArrivalTime:     "12:45:00",
		CustomerName:    "Asha",
		CustomerContact: "9999999999",
		DriverName:      &driver,
		Money:           500,
		Advance:         100,
		PaymentAmount:   100,
		PaymentStatus:   "partial",
		OilStatus:       "included",
		BookingStatus:   "booked",
		ReturnType:      ReturnTypeOneWay,
	}
}

func newTestDocument(id, userID, path string) *Document {
	return &Document{
		ID:         id,
		UserID:     userID,
		Name:       "Permit",
		FilePath:   path,
		FileType:   "pdf",
		ExpiryDate: "2025-12-31",
	}
}

func mustGetBooking(t *testing.T, store *Store, id string) *Booking {
	t.Helper()
	booking, err := store.Bookings.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, booking)
	return booking
}

func bookingIDs(list []Booking) []string {
	ids := make([]string, 0, len(list))
	for _, b := range list {
		ids = append(ids, b.ID)
	}
	return ids
}

func openRawTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tinkuji.db"))
	require.NoError(t, err)
	return db
}

func mustUserVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var version int
	require.NoError(t, db.QueryRow(`PRAGMA user_version`).Scan(&version))
	return version
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func indexExists(t *testing.T, db *sql.DB, index string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type='index' AND name=?`, index).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func closeNoErr(t *testing.T, db *sql.DB) {
	t.Helper()
	require.NoError(t, db.Close())
}
