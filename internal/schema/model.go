// Package schema holds the typed row models for the four destination tables
// and the DDL that defines them. Nullable columns are pointer fields.
package schema

import "time"

// DateLayout is the wire format for collection_week and rating dates.
const DateLayout = "2006-01-02"

// Location is one row of the location table. The natural key is the full
// tuple; rows are inserted-if-absent and never updated.
type Location struct {
	City      string   `db:"city"`
	State     string   `db:"state"`
	ZipCode   string   `db:"zip_code"`
	Address   *string  `db:"address"`
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
	FIPSCode  *string  `db:"fips_code"`
}

// Hospital is one row of the hospital table, keyed by the external
// hospital_pk identifier. Inserted-if-absent; later loads are no-ops.
type Hospital struct {
	HospitalPK   string `db:"hospital_pk"`
	HospitalName string `db:"hospital_name"`
	LocationID   *int64 `db:"location_id"`
}

// WeeklyReport is one row of the weekly_report fact table: one observation
// per (hospital, week). The table has no conflict target, so re-loading a
// week appends duplicate rows.
type WeeklyReport struct {
	CollectionWeek        time.Time `db:"collection_week"`
	AllAdultBeds          *float64  `db:"all_adult_hospital_beds_7_day_avg"`
	AllPediatricBeds      *float64  `db:"all_pediatric_inpatient_beds_7_day_avg"`
	TotalICUBeds          *float64  `db:"total_icu_beds_7_day_avg"`
	AdultBedsOccupied     *float64  `db:"all_adult_hospital_inpatient_bed_occupied_7_day_avg"`
	PediatricBedsOccupied *float64  `db:"all_pediatric_inpatient_bed_occupied_7_day_avg"`
	ICUBedsUsed           *float64  `db:"icu_beds_used_7_day_avg"`
	COVIDBedsUsed         *float64  `db:"inpatient_beds_used_covid_7_day_avg"`
	COVIDAdultICU         *float64  `db:"staffed_icu_adult_patients_confirmed_covid_7_day_avg"`
	HospitalPK            string    `db:"hospital_weekly_id"`
}

// HospitalQuality is one row of the hospital_quality table, keyed by
// (facility_id, rating_date). Inserted-if-absent.
type HospitalQuality struct {
	FacilityID        string    `db:"facility_id"`
	QualityRating     *int      `db:"quality_rating"`
	RatingDate        time.Time `db:"rating_date"`
	Ownership         *string   `db:"ownership"`
	HospitalType      *string   `db:"hospital_type"`
	EmergencyServices bool      `db:"provides_emergency_services"`
}
