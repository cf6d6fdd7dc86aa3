// Package storage defines the store contracts the pipelines load through,
// plus a backend-agnostic batched loader. The concrete Postgres
// implementation lives in the postgres subpackage; pipelines and tests
// depend only on these interfaces.
package storage

import (
	"context"
	"errors"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/schema"
)

// ErrResolveMismatch reports that an id lookup returned fewer rows than were
// requested. Downstream foreign-key assignment would misalign, so this is
// fatal for the run.
var ErrResolveMismatch = errors.New("resolve: lookup returned fewer rows than requested")

// Tx is the write surface available inside one load transaction. All methods
// operate on whole batches; dependency order (location, then hospital, then
// fact tables) is the caller's responsibility.
type Tx interface {
	// ResolveLocations inserts the candidate locations that are not already
	// present, then resolves a surrogate id for every input tuple. The result
	// is order-preserving: ids[i] belongs to locs[i]. An unresolvable tuple
	// fails with ErrResolveMismatch.
	ResolveLocations(ctx context.Context, locs []schema.Location) ([]int64, error)

	// ResolveHospitals inserts absent hospitals, then resolves the stable
	// hospital_pk for every input row keyed on (hospital_pk, hospital_name),
	// order-preserving like ResolveLocations.
	ResolveHospitals(ctx context.Context, hs []schema.Hospital) ([]string, error)

	// InsertHospitals is the conflict-tolerant insert without the resolve
	// phase, for loads that reference hospitals by their natural key directly.
	InsertHospitals(ctx context.Context, hs []schema.Hospital) error

	// InsertWeeklyReports appends fact rows. The table has no conflict
	// target: re-loading a week duplicates its rows.
	InsertWeeklyReports(ctx context.Context, reps []schema.WeeklyReport) (int64, error)

	// InsertQualityRatings inserts ratings, skipping (facility_id,
	// rating_date) pairs already present. Returns the number inserted.
	InsertQualityRatings(ctx context.Context, qs []schema.HospitalQuality) (int64, error)
}

// Store owns the database connection for one run.
type Store interface {
	// RunInTransaction runs fn inside a single transaction and commits only
	// when fn returns nil; any error rolls everything back.
	RunInTransaction(ctx context.Context, fn func(Tx) error) error

	// EnsureSchema creates the destination tables if they do not exist.
	EnsureSchema(ctx context.Context) error

	Close(ctx context.Context) error
}
