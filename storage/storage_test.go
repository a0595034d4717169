package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"

	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

func randomHex(t *testing.T, n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatal(err)
	}
	return hex.EncodeToString(b)
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(
		Config{
			Driver:  DriverSQLite,
			DataDir: t.TempDir(),
		},
	)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const (
	aliceAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bobAddress   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name    string
		driver  DriverType
		conf    DSNConf
		want    string
		wantErr bool
	}{
		{
			name:   "mysql default port",
			driver: DriverMySQL,
			conf:   DSNConf{User: "u", Password: "p", Host: "db", DB: "consent"},
			want:   "u:p@tcp(db:3306)/consent?charset=utf8mb4&parseTime=True",
		},
		{
			name:   "postgres",
			driver: DriverPostgres,
			conf:   DSNConf{User: "postgres", Password: "secret", Host: "localhost", DB: "consent_database"},
			want:   "host=localhost user=postgres dbname=consent_database port=5432 password=secret",
		},
		{
			name:   "postgres without password",
			driver: DriverPostgres,
			conf:   DSNConf{User: "postgres", Host: "localhost", DB: "consent_database", Port: 5433},
			want:   "host=localhost user=postgres dbname=consent_database port=5433",
		},
		{
			name:    "sqlite",
			driver:  DriverSQLite,
			wantErr: true,
		},
		{
			name:    "unknown",
			driver:  "oracle",
			wantErr: true,
		},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				got, err := DSN(test.driver, test.conf)
				if test.wantErr {
					if err == nil {
						t.Fatal("expected error")
					}
					return
				}
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != test.want {
					t.Errorf("expected %q, got %q", test.want, got)
				}
			},
		)
	}
}

func countWallets(t *testing.T, s *Storage) int64 {
	t.Helper()
	var count int64
	if err := s.db.Model(&model.Wallet{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	return count
}

func TestWalletStorage_RegisterIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	wallets := s.Wallets()

	first, created, err := wallets.Register(ctx, aliceAddress, "Alice")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !created {
		t.Fatal("expected first registration to create a wallet")
	}
	second, created, err := wallets.Register(ctx, aliceAddress, "Alice again")
	if err != nil {
		t.Fatalf("second Register failed: %v", err)
	}
	if created {
		t.Fatal("expected second registration to return the existing wallet")
	}
	if first.CID != second.CID {
		t.Errorf("cid changed: %s != %s", first.CID, second.CID)
	}
	if second.DisplayName != "Alice" {
		t.Errorf("display name was overwritten: %s", second.DisplayName)
	}
	count := countWallets(t, s)
	if count != 1 {
		t.Errorf("expected 1 wallet row, got %d", count)
	}
}

func TestWalletStorage_RegisterConcurrent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	wallets := s.Wallets()

	const n = 8
	cids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, _, err := wallets.Register(ctx, bobAddress, "Bob")
			errs[i] = err
			if w != nil {
				cids[i] = w.CID
			}
		}(i)
	}
	wg.Wait()

	var cid string
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			// sqlite may report a busy database under concurrent writes
			continue
		}
		if cid == "" {
			cid = cids[i]
		}
		if cids[i] != cid {
			t.Errorf("different cids returned for the same wallet: %s != %s", cids[i], cid)
		}
	}
	count := countWallets(t, s)
	if count != 1 {
		t.Errorf("expected exactly 1 wallet row, got %d", count)
	}
}

func TestWalletStorage_Lookup(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	wallets := s.Wallets()

	w, _, err := wallets.Register(ctx, aliceAddress, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	byCID, err := wallets.ByCID(ctx, w.CID)
	if err != nil {
		t.Fatalf("ByCID failed: %v", err)
	}
	if byCID.WalletAddress != aliceAddress || byCID.DisplayName != "Alice" {
		t.Errorf("unexpected wallet %+v", byCID)
	}
	byAddress, err := wallets.ByAddress(ctx, aliceAddress)
	if err != nil {
		t.Fatalf("ByAddress failed: %v", err)
	}
	if byAddress.CID != w.CID {
		t.Errorf("expected cid %s, got %s", w.CID, byAddress.CID)
	}

	var notFound model.NotFoundError
	if _, err = wallets.ByCID(ctx, "cid_unknown"); !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
	if _, err = wallets.ByAddress(ctx, bobAddress); !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestRecordStorage_Ordering(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	w, _, err := s.Wallets().Register(ctx, aliceAddress, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = s.Seeder().SeedCourses(ctx); err != nil {
		t.Fatal(err)
	}
	courses, err := s.Records().Courses(ctx)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	grades := []model.Grade{
		{WalletCID: w.CID, CourseID: courses[0].CourseID, Points: 70, AddedAt: base},
		{WalletCID: w.CID, CourseID: courses[1].CourseID, Points: 80, AddedAt: base.Add(2 * time.Hour)},
		{WalletCID: w.CID, CourseID: courses[2].CourseID, Points: 90, AddedAt: base.Add(time.Hour)},
		{WalletCID: "cid_other", CourseID: courses[3].CourseID, Points: 50, AddedAt: base},
	}
	if err = s.db.Create(&grades).Error; err != nil {
		t.Fatal(err)
	}
	certs := []model.Certificate{
		{WalletCID: w.CID, CertificateName: "old", IssueDate: datatypes.Date(base.AddDate(-2, 0, 0))},
		{WalletCID: w.CID, CertificateName: "new", IssueDate: datatypes.Date(base)},
	}
	if err = s.db.Create(&certs).Error; err != nil {
		t.Fatal(err)
	}

	gotGrades, err := s.Records().Grades(ctx, w.CID)
	if err != nil {
		t.Fatalf("Grades failed: %v", err)
	}
	if len(gotGrades) != 3 {
		t.Fatalf("expected 3 grades, got %d", len(gotGrades))
	}
	for i, want := range []float64{80, 90, 70} {
		if gotGrades[i].Points != want {
			t.Errorf("grade %d: expected %v points, got %v", i, want, gotGrades[i].Points)
		}
	}
	if gotGrades[0].CourseName != courses[1].CourseName {
		t.Errorf("expected course name %q, got %q", courses[1].CourseName, gotGrades[0].CourseName)
	}

	gotCerts, err := s.Records().Certificates(ctx, w.CID)
	if err != nil {
		t.Fatalf("Certificates failed: %v", err)
	}
	if len(gotCerts) != 2 || gotCerts[0].CertificateName != "new" || gotCerts[1].CertificateName != "old" {
		t.Errorf("unexpected certificate order: %+v", gotCerts)
	}

	empty, err := s.Records().Grades(ctx, "cid_nobody")
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil grades, got %v", empty)
	}
}

func TestSeeder(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seeder := s.Seeder()

	n, err := seeder.SeedCourses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(defaultCourses) {
		t.Errorf("expected %d courses, got %d", len(defaultCourses), n)
	}
	if n, err = seeder.SeedCourses(ctx); err != nil || n != 0 {
		t.Errorf("expected second seeding to be a no-op, got %d, %v", n, err)
	}

	w, _, err := s.Wallets().Register(ctx, aliceAddress, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if err = seeder.SeedStudent(ctx, w.CID); err != nil {
		t.Fatalf("SeedStudent failed: %v", err)
	}
	grades, err := s.Records().Grades(ctx, w.CID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grades) < 2 || len(grades) > 4 {
		t.Errorf("expected 2 to 4 grades, got %d", len(grades))
	}
	for _, g := range grades {
		if g.Points < 60 || g.Points > 100 {
			t.Errorf("points out of range: %v", g.Points)
		}
	}
	certs, err := s.Records().Certificates(ctx, w.CID)
	if err != nil {
		t.Fatal(err)
	}
	if len(certs) != 1 {
		t.Fatalf("expected 1 certificate, got %d", len(certs))
	}
	if certs[0].CertificateName == "" || certs[0].IssuingInstitution == "" {
		t.Errorf("incomplete certificate %+v", certs[0])
	}
}

func TestKeyValueStorage_SetIfChanged(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	kv := s.KeyValue()

	v1 := map[string]string{"eduConsent": "0x01"}
	first, err := kv.SetIfChanged(ctx, model.KeyValueScopeContracts, model.KeyValueKeyAddresses, v1)
	if err != nil {
		t.Fatal(err)
	}
	same, err := kv.SetIfChanged(ctx, model.KeyValueScopeContracts, model.KeyValueKeyAddresses, v1)
	if err != nil {
		t.Fatal(err)
	}
	if !same.Equal(first) {
		t.Errorf("unchanged value must keep its timestamp: %v != %v", same, first)
	}

	stored, err := kv.Get(ctx, model.KeyValueScopeContracts, model.KeyValueKeyAddresses)
	if err != nil || stored == nil {
		t.Fatalf("Get: %v, %v", stored, err)
	}
	if !jsonEqual(stored.Value, []byte(`{"eduConsent":"0x01"}`)) {
		t.Errorf("unexpected value %s", stored.Value)
	}

	v2 := map[string]string{"eduConsent": "0x02"}
	if _, err = kv.SetIfChanged(ctx, model.KeyValueScopeContracts, model.KeyValueKeyAddresses, v2); err != nil {
		t.Fatal(err)
	}
	stored, err = kv.Get(ctx, model.KeyValueScopeContracts, model.KeyValueKeyAddresses)
	if err != nil || stored == nil || !jsonEqual(stored.Value, []byte(`{"eduConsent":"0x02"}`)) {
		t.Errorf("expected updated value, got %v (%v)", stored, err)
	}

	missing, err := kv.Get(ctx, model.KeyValueScopeContracts, "nothing")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing key, got %v, %v", missing, err)
	}
}

// TestWalletStorage_RegisterLostRace simulates a concurrent registration that
// inserts the same wallet between the lookup and the insert
func TestWalletStorage_RegisterLostRace(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	db, err := open(postgres.New(postgres.Config{Conn: sqlDB}), false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	wallets := (&Storage{db: db}).Wallets()

	columns := []string{
		"wallet_address",
		"cid",
		"display_name",
		"created_at",
	}
	mock.ExpectQuery(`SELECT \* FROM "wallet" WHERE wallet_address = \$1`).
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "wallet"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()
	mock.ExpectQuery(`SELECT \* FROM "wallet" WHERE wallet_address = \$1`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(aliceAddress, "cid_winner", "Alice", time.Now()))

	w, created, err := wallets.Register(context.Background(), aliceAddress, "Alice")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if created {
		t.Error("expected created to be false after losing the race")
	}
	if w.CID != "cid_winner" {
		t.Errorf("expected the winner's cid, got %s", w.CID)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWalletStorage_RegisterDatabaseError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	db, err := open(postgres.New(postgres.Config{Conn: sqlDB}), false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	wallets := (&Storage{db: db}).Wallets()

	mock.ExpectQuery(`SELECT \* FROM "wallet"`).WillReturnError(errors.New("connection reset"))

	_, _, err = wallets.Register(context.Background(), aliceAddress, "Alice")
	if err == nil {
		t.Fatal("expected an error")
	}
	var notFound model.NotFoundError
	if errors.As(err, &notFound) {
		t.Error("database failure must not be reported as not found")
	}
}
