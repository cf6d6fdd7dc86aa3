package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/normalize"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/schema"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/storage"
)

// memState is the committed database image of the fake store.
type memState struct {
	locations []schema.Location
	hospitals map[string]schema.Hospital
	weekly    []schema.WeeklyReport
	quality   map[string]schema.HospitalQuality
}

func newMemState() *memState {
	return &memState{
		hospitals: map[string]schema.Hospital{},
		quality:   map[string]schema.HospitalQuality{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.locations = append([]schema.Location(nil), s.locations...)
	c.weekly = append([]schema.WeeklyReport(nil), s.weekly...)
	for k, v := range s.hospitals {
		c.hospitals[k] = v
	}
	for k, v := range s.quality {
		c.quality[k] = v
	}
	return c
}

// memStore implements storage.Store over memState with transaction
// semantics: the callback works on a staged clone that only replaces the
// committed image when the callback succeeds.
type memStore struct {
	committed  *memState
	beginCount int

	failWeekly error
}

func newMemStore() *memStore { return &memStore{committed: newMemState()} }

func (m *memStore) RunInTransaction(ctx context.Context, fn func(storage.Tx) error) error {
	m.beginCount++
	staged := m.committed.clone()
	if err := fn(&memTx{state: staged, failWeekly: m.failWeekly}); err != nil {
		return err
	}
	m.committed = staged
	return nil
}

func (m *memStore) EnsureSchema(context.Context) error { return nil }
func (m *memStore) Close(context.Context) error        { return nil }

type memTx struct {
	state      *memState
	failWeekly error
}

func derefS(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func derefF(p *float64) string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%g", *p)
}

func locKey(l schema.Location) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		l.City, l.State, l.ZipCode, derefS(l.Address), derefF(l.Latitude), derefF(l.Longitude), derefS(l.FIPSCode))
}

func (t *memTx) ResolveLocations(_ context.Context, locs []schema.Location) ([]int64, error) {
	ids := make([]int64, len(locs))
	for i, l := range locs {
		id := int64(-1)
		for j := range t.state.locations {
			if locKey(t.state.locations[j]) == locKey(l) {
				id = int64(j + 1)
				break
			}
		}
		if id < 0 {
			t.state.locations = append(t.state.locations, l)
			id = int64(len(t.state.locations))
		}
		ids[i] = id
	}
	return ids, nil
}

func (t *memTx) ResolveHospitals(_ context.Context, hs []schema.Hospital) ([]string, error) {
	if err := t.InsertHospitals(context.Background(), hs); err != nil {
		return nil, err
	}
	pks := make([]string, len(hs))
	for i, h := range hs {
		pks[i] = h.HospitalPK
	}
	return pks, nil
}

func (t *memTx) InsertHospitals(_ context.Context, hs []schema.Hospital) error {
	for _, h := range hs {
		if _, ok := t.state.hospitals[h.HospitalPK]; !ok {
			t.state.hospitals[h.HospitalPK] = h
		}
	}
	return nil
}

func (t *memTx) InsertWeeklyReports(_ context.Context, reps []schema.WeeklyReport) (int64, error) {
	if t.failWeekly != nil {
		return 0, t.failWeekly
	}
	t.state.weekly = append(t.state.weekly, reps...)
	return int64(len(reps)), nil
}

func (t *memTx) InsertQualityRatings(_ context.Context, qs []schema.HospitalQuality) (int64, error) {
	var n int64
	for _, q := range qs {
		key := q.FacilityID + "|" + q.RatingDate.Format(schema.DateLayout)
		if _, ok := t.state.quality[key]; ok {
			continue
		}
		t.state.quality[key] = q
		n++
	}
	return n, nil
}

func writeCSV(t *testing.T, name string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
	return path
}

var hhsHeader = []string{
	"hospital_pk", "state", "hospital_name", "address", "city", "zip",
	"fips_code", "geocoded_hospital_address", "collection_week",
	"all_adult_hospital_beds_7_day_avg", "total_icu_beds_7_day_avg",
}

func hhsFixture(t *testing.T) string {
	t.Helper()
	return writeCSV(t, "hhs.csv", [][]string{
		hhsHeader,
		{"050100", "CA", "GENERAL HOSPITAL", "123 MAIN ST", "SAN FRANCISCO", "94103",
			"06075", "POINT (-122.41 37.77)", "2022-09-23", "110.5", "20"},
		{"060200", "CO", "MERCY MEDICAL", "9 ELM AVE", "DENVER", "80203",
			"08031", "POINT (-104.98 39.73)", "2022-09-23", "-999999", "15.2"},
		// Same hospital_pk as the first row; only the first occurrence counts.
		{"050100", "CA", "GENERAL HOSPITAL DUP", "123 MAIN ST", "SAN FRANCISCO", "94103",
			"06075", "", "2022-09-23", "99", "18"},
	})
}

func TestLoadHHS(t *testing.T) {
	store := newMemStore()

	res, err := LoadHHS(context.Background(), store, hhsFixture(t), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, res.Hospitals)
	require.Equal(t, int64(2), res.Reports)
	require.Equal(t, 1, store.beginCount)

	db := store.committed
	require.Len(t, db.locations, 2)
	require.Len(t, db.hospitals, 2)
	require.Len(t, db.weekly, 2)

	// Keep-first dedup: the duplicate row's name never lands.
	gh := db.hospitals["050100"]
	require.Equal(t, "GENERAL HOSPITAL", gh.HospitalName)
	require.NotNil(t, gh.LocationID)

	// POINT is (longitude latitude).
	loc := db.locations[*gh.LocationID-1]
	require.NotNil(t, loc.Longitude)
	require.InDelta(t, -122.41, *loc.Longitude, 1e-9)
	require.InDelta(t, 37.77, *loc.Latitude, 1e-9)

	// The -999999 sentinel lands as NULL, not as a number.
	require.Equal(t, "060200", db.weekly[1].HospitalPK)
	require.Nil(t, db.weekly[1].AllAdultBeds)
	require.NotNil(t, db.weekly[1].TotalICUBeds)
}

func TestLoadHHSRerunAppendsFactsOnly(t *testing.T) {
	store := newMemStore()
	path := hhsFixture(t)

	for i := 0; i < 2; i++ {
		_, err := LoadHHS(context.Background(), store, path, zap.NewNop())
		require.NoError(t, err)
	}

	// Dimensions converge, the fact table appends.
	require.Len(t, store.committed.locations, 2)
	require.Len(t, store.committed.hospitals, 2)
	require.Len(t, store.committed.weekly, 4)
}

func TestLoadHHSRollsBackOnInsertFailure(t *testing.T) {
	store := newMemStore()
	store.failWeekly = &pgconn.PgError{Code: "23503", Message: "fk violation"}

	_, err := LoadHHS(context.Background(), store, hhsFixture(t), zap.NewNop())
	require.Error(t, err)
	require.Equal(t, KindIntegrity, Classify(err))

	// Nothing committed, including the dimension rows resolved before the
	// failing fact insert.
	require.Empty(t, store.committed.locations)
	require.Empty(t, store.committed.hospitals)
	require.Empty(t, store.committed.weekly)
}

func TestLoadHHSInvalidDateFailsFile(t *testing.T) {
	store := newMemStore()
	path := writeCSV(t, "bad.csv", [][]string{
		hhsHeader,
		{"050100", "CA", "GENERAL HOSPITAL", "123 MAIN ST", "SAN FRANCISCO", "94103",
			"06075", "", "2022-09-23", "1", "2"},
		{"060200", "CO", "MERCY MEDICAL", "9 ELM AVE", "DENVER", "80203",
			"08031", "", "not-a-date", "1", "2"},
	})

	_, err := LoadHHS(context.Background(), store, path, zap.NewNop())
	require.ErrorIs(t, err, normalize.ErrInvalidDate)
	require.Equal(t, KindValidation, Classify(err))
	require.Zero(t, store.beginCount)
}

func TestLoadHHSMissingFile(t *testing.T) {
	_, err := LoadHHS(context.Background(), newMemStore(), filepath.Join(t.TempDir(), "nope.csv"), zap.NewNop())
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Equal(t, KindSource, Classify(err))
}

var cmsHeader = []string{
	"Facility ID", "Facility Name", "City", "State", "ZIP Code",
	"Hospital Ownership", "Emergency Services", "Hospital Type", "Hospital overall rating",
}

func cmsFixture(t *testing.T) string {
	t.Helper()
	return writeCSV(t, "cms.csv", [][]string{
		cmsHeader,
		{"010001", "SOUTHEAST HEALTH", "DOTHAN", "AL", "36301",
			"Government - Hospital District", "Yes", "Acute Care Hospitals", "3"},
		{"010005", "MARSHALL MEDICAL", "BOAZ", "AL", "35957",
			"Proprietary", "No", "Acute Care Hospitals", "Not Available"},
		{"010006", "NORTH ALABAMA", "FLORENCE", "AL", "35631",
			"Voluntary non-profit", "Yes", "Acute Care Hospitals", "5"},
	})
}

func TestLoadQuality(t *testing.T) {
	store := newMemStore()
	date := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)

	// Batch size 2 forces two flushes; both must land in the same
	// transaction.
	total, err := LoadQuality(context.Background(), store, cmsFixture(t), date, 2,
		clockwork.NewFakeClock(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, 1, store.beginCount)

	db := store.committed
	require.Len(t, db.hospitals, 3)
	require.Len(t, db.quality, 3)
	require.Len(t, db.locations, 3)

	h := db.hospitals["010001"]
	require.Equal(t, "SOUTHEAST HEALTH", h.HospitalName)
	require.NotNil(t, h.LocationID)

	q := db.quality["010005|2021-07-01"]
	require.Nil(t, q.QualityRating)
	require.False(t, q.EmergencyServices)
	require.Equal(t, "Proprietary", derefS(q.Ownership))

	q = db.quality["010006|2021-07-01"]
	require.NotNil(t, q.QualityRating)
	require.Equal(t, 5, *q.QualityRating)
	require.True(t, q.EmergencyServices)
}

func TestLoadQualityRerunSameDateIsIdempotent(t *testing.T) {
	store := newMemStore()
	path := cmsFixture(t)
	date := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		_, err := LoadQuality(context.Background(), store, path, date, 1000,
			clockwork.NewFakeClock(), zap.NewNop())
		require.NoError(t, err)
	}

	require.Len(t, store.committed.quality, 3)
	require.Len(t, store.committed.hospitals, 3)
	require.Len(t, store.committed.locations, 3)
}

func TestLoadQualityMissingFile(t *testing.T) {
	_, err := LoadQuality(context.Background(), newMemStore(),
		filepath.Join(t.TempDir(), "nope.csv"), time.Now(), 1000,
		clockwork.NewFakeClock(), zap.NewNop())
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Equal(t, KindSource, Classify(err))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Kind("")},
		{"missing file", fmt.Errorf("open source: %w", fs.ErrNotExist), KindSource},
		{"ragged csv", fmt.Errorf("parse row 7: %w", &csv.ParseError{StartLine: 7, Err: csv.ErrFieldCount}), KindSource},
		{"bad date", fmt.Errorf("hospital \"x\": %w", normalize.ErrInvalidDate), KindValidation},
		{"resolve mismatch", storage.ErrResolveMismatch, KindIntegrity},
		{"unique violation", &pgconn.PgError{Code: "23505"}, KindIntegrity},
		{"bad numeric", &pgconn.PgError{Code: "22P02"}, KindIntegrity},
		{"connection failure", &pgconn.PgError{Code: "08006"}, KindConnection},
		{"anything else", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}
