// Package postgres implements storage.Store on pgx v5 over a single
// connection. Dimension tables are written with conflict-tolerant
// INSERT ... SELECT unnest(...) statements; surrogate ids are recovered with
// an ordered unnest lookup, because a conflict-avoiding bulk insert does not
// return ids for rows that already existed. The fact table uses COPY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/schema"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/storage"
)

// pgConn is the subset of *pgx.Conn the store uses. Tests inject a fake.
type pgConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// Store holds the run-scoped connection. One Store serves one load.
type Store struct {
	conn pgConn
	log  *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// Connect dials Postgres. The connection is held for the run's lifetime and
// released by Close.
func Connect(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &Store{conn: c, log: log}, nil
}

// Close releases the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// EnsureSchema creates the destination tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, schema.DDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// RunInTransaction spans fn with a single transaction: commit when fn
// returns nil, roll back everything otherwise.
func (s *Store) RunInTransaction(ctx context.Context, fn func(storage.Tx) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after a successful commit

	if err := fn(&loadTx{db: tx, log: s.log}); err != nil {
		s.log.Warn("load failed, rolling back transaction", zap.Error(err))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// txConn is the subset of pgx.Tx the batch writers use.
type txConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// loadTx implements storage.Tx within one open transaction.
type loadTx struct {
	db  txConn
	log *zap.Logger
}

var _ storage.Tx = (*loadTx)(nil)

const insertLocationsSQL = `
INSERT INTO location (city, state, zip_code, address, latitude, longitude, fips_code)
SELECT * FROM unnest(
	$1::text[], $2::text[], $3::text[], $4::text[], $5::float8[], $6::float8[], $7::text[]
)
ON CONFLICT (city, state, zip_code, address, latitude, longitude) DO NOTHING`

// resolveLocationsSQL recovers one id per input tuple, in input order.
// NULL-bearing tuples never conflict on insert and so can recur in the
// table; the lowest id wins, matching what earlier loads resolved.
const resolveLocationsSQL = `
SELECT (
	SELECT l.id FROM location l
	WHERE l.city = k.city AND l.state = k.state AND l.zip_code = k.zip_code
		AND l.address   IS NOT DISTINCT FROM k.address
		AND l.latitude  IS NOT DISTINCT FROM k.latitude
		AND l.longitude IS NOT DISTINCT FROM k.longitude
		AND l.fips_code IS NOT DISTINCT FROM k.fips_code
	ORDER BY l.id
	LIMIT 1
)
FROM unnest(
	$1::text[], $2::text[], $3::text[], $4::text[], $5::float8[], $6::float8[], $7::text[]
) WITH ORDINALITY AS k(city, state, zip_code, address, latitude, longitude, fips_code, ord)
ORDER BY k.ord`

func (t *loadTx) ResolveLocations(ctx context.Context, locs []schema.Location) ([]int64, error) {
	if len(locs) == 0 {
		return nil, nil
	}

	cities := make([]string, len(locs))
	states := make([]string, len(locs))
	zips := make([]string, len(locs))
	addrs := make([]*string, len(locs))
	lats := make([]*float64, len(locs))
	lons := make([]*float64, len(locs))
	fips := make([]*string, len(locs))
	for i, l := range locs {
		cities[i], states[i], zips[i] = l.City, l.State, l.ZipCode
		addrs[i], lats[i], lons[i], fips[i] = l.Address, l.Latitude, l.Longitude, l.FIPSCode
	}
	args := []any{cities, states, zips, addrs, lats, lons, fips}

	if _, err := t.db.Exec(ctx, insertLocationsSQL, args...); err != nil {
		t.log.Error("insert location batch failed", zap.Int("rows", len(locs)), zap.Error(err))
		return nil, fmt.Errorf("insert location batch (%d rows): %w", len(locs), err)
	}

	rows, err := t.db.Query(ctx, resolveLocationsSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve location ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(locs))
	for rows.Next() {
		var id *int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan location id: %w", err)
		}
		if id == nil {
			return nil, fmt.Errorf("location row %d: %w", len(ids), storage.ErrResolveMismatch)
		}
		ids = append(ids, *id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve location ids: %w", err)
	}
	if len(ids) != len(locs) {
		return nil, fmt.Errorf("locations: want %d ids, got %d: %w", len(locs), len(ids), storage.ErrResolveMismatch)
	}
	return ids, nil
}

const insertHospitalsSQL = `
INSERT INTO hospital (hospital_pk, hospital_name, location_id)
SELECT * FROM unnest($1::text[], $2::text[], $3::int8[])
ON CONFLICT (hospital_pk) DO NOTHING`

const resolveHospitalsSQL = `
SELECT (
	SELECT h.hospital_pk FROM hospital h
	WHERE h.hospital_pk = k.hospital_pk AND h.hospital_name = k.hospital_name
)
FROM unnest($1::text[], $2::text[]) WITH ORDINALITY AS k(hospital_pk, hospital_name, ord)
ORDER BY k.ord`

func (t *loadTx) InsertHospitals(ctx context.Context, hs []schema.Hospital) error {
	if len(hs) == 0 {
		return nil
	}
	pks, names, locIDs := hospitalArrays(hs)
	if _, err := t.db.Exec(ctx, insertHospitalsSQL, pks, names, locIDs); err != nil {
		t.log.Error("insert hospital batch failed", zap.Int("rows", len(hs)), zap.Error(err))
		return fmt.Errorf("insert hospital batch (%d rows): %w", len(hs), err)
	}
	return nil
}

func (t *loadTx) ResolveHospitals(ctx context.Context, hs []schema.Hospital) ([]string, error) {
	if len(hs) == 0 {
		return nil, nil
	}
	if err := t.InsertHospitals(ctx, hs); err != nil {
		return nil, err
	}

	pks, names, _ := hospitalArrays(hs)
	rows, err := t.db.Query(ctx, resolveHospitalsSQL, pks, names)
	if err != nil {
		return nil, fmt.Errorf("resolve hospital keys: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, len(hs))
	for rows.Next() {
		var pk *string
		if err := rows.Scan(&pk); err != nil {
			return nil, fmt.Errorf("scan hospital key: %w", err)
		}
		if pk == nil {
			return nil, fmt.Errorf("hospital row %d: %w", len(out), storage.ErrResolveMismatch)
		}
		out = append(out, *pk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve hospital keys: %w", err)
	}
	if len(out) != len(hs) {
		return nil, fmt.Errorf("hospitals: want %d keys, got %d: %w", len(hs), len(out), storage.ErrResolveMismatch)
	}
	return out, nil
}

func hospitalArrays(hs []schema.Hospital) (pks, names []string, locIDs []*int64) {
	pks = make([]string, len(hs))
	names = make([]string, len(hs))
	locIDs = make([]*int64, len(hs))
	for i, h := range hs {
		pks[i], names[i], locIDs[i] = h.HospitalPK, h.HospitalName, h.LocationID
	}
	return pks, names, locIDs
}

// weeklyReportColumns is the COPY column order for weekly_report.
var weeklyReportColumns = []string{
	"collection_week",
	"all_adult_hospital_beds_7_day_avg",
	"all_pediatric_inpatient_beds_7_day_avg",
	"total_icu_beds_7_day_avg",
	"all_adult_hospital_inpatient_bed_occupied_7_day_avg",
	"all_pediatric_inpatient_bed_occupied_7_day_avg",
	"icu_beds_used_7_day_avg",
	"inpatient_beds_used_covid_7_day_avg",
	"staffed_icu_adult_patients_confirmed_covid_7_day_avg",
	"hospital_weekly_id",
}

// InsertWeeklyReports appends fact rows via COPY. There is deliberately no
// conflict target: re-loading a week duplicates its rows.
func (t *loadTx) InsertWeeklyReports(ctx context.Context, reps []schema.WeeklyReport) (int64, error) {
	if len(reps) == 0 {
		return 0, nil
	}
	rows := make([][]any, len(reps))
	for i, r := range reps {
		rows[i] = []any{
			r.CollectionWeek,
			r.AllAdultBeds,
			r.AllPediatricBeds,
			r.TotalICUBeds,
			r.AdultBedsOccupied,
			r.PediatricBedsOccupied,
			r.ICUBedsUsed,
			r.COVIDBedsUsed,
			r.COVIDAdultICU,
			r.HospitalPK,
		}
	}
	n, err := t.db.CopyFrom(ctx, pgx.Identifier{"weekly_report"}, weeklyReportColumns, pgx.CopyFromRows(rows))
	if err != nil {
		t.log.Error("copy weekly_report batch failed", zap.Int("rows", len(reps)), zap.Error(err))
		return n, fmt.Errorf("copy weekly_report batch (%d rows): %w", len(reps), err)
	}
	return n, nil
}

const insertQualitySQL = `
INSERT INTO hospital_quality (
	facility_id, quality_rating, rating_date, ownership, hospital_type, provides_emergency_services
)
SELECT * FROM unnest(
	$1::text[], $2::int4[], $3::date[], $4::text[], $5::text[], $6::bool[]
)
ON CONFLICT (facility_id, rating_date) DO NOTHING`

func (t *loadTx) InsertQualityRatings(ctx context.Context, qs []schema.HospitalQuality) (int64, error) {
	if len(qs) == 0 {
		return 0, nil
	}
	facilities := make([]string, len(qs))
	ratings := make([]*int32, len(qs))
	dates := make([]time.Time, len(qs))
	owners := make([]*string, len(qs))
	types := make([]*string, len(qs))
	emergency := make([]bool, len(qs))
	for i, q := range qs {
		facilities[i], dates[i] = q.FacilityID, q.RatingDate
		owners[i], types[i], emergency[i] = q.Ownership, q.HospitalType, q.EmergencyServices
		if q.QualityRating != nil {
			r := int32(*q.QualityRating)
			ratings[i] = &r
		}
	}

	tag, err := t.db.Exec(ctx, insertQualitySQL, facilities, ratings, dates, owners, types, emergency)
	if err != nil {
		t.log.Error("insert hospital_quality batch failed", zap.Int("rows", len(qs)), zap.Error(err))
		return 0, fmt.Errorf("insert hospital_quality batch (%d rows): %w", len(qs), err)
	}
	return tag.RowsAffected(), nil
}

// IsIntegrityError reports whether err is a database constraint or data
// violation (SQLSTATE classes 22 and 23).
func IsIntegrityError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	code := pgErr.SQLState()
	return len(code) >= 2 && (code[:2] == "22" || code[:2] == "23")
}
