package normalize

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/schema"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/pkg/records"
)

// HHSColumns are the columns the pipeline keeps from the HHS capacity
// extract, in source spelling. The extract itself carries over a hundred.
var HHSColumns = []string{
	"hospital_pk",
	"state",
	"hospital_name",
	"address",
	"city",
	"zip",
	"fips_code",
	"geocoded_hospital_address",
	"collection_week",
	"all_adult_hospital_beds_7_day_avg",
	"all_pediatric_inpatient_beds_7_day_avg",
	"all_adult_hospital_inpatient_bed_occupied_7_day_avg",
	"all_pediatric_inpatient_bed_occupied_7_day_avg",
	"total_icu_beds_7_day_avg",
	"icu_beds_used_7_day_avg",
	"inpatient_beds_used_covid_7_day_avg",
	"staffed_icu_adult_patients_confirmed_covid_7_day_avg",
}

// HHSRow is one normalized HHS capacity row: the location and hospital
// dimension candidates plus the weekly fact.
type HHSRow struct {
	Location schema.Location
	Hospital schema.Hospital
	Report   schema.WeeklyReport
}

// HHSRowFromRecord applies the per-field cleaning rules to one raw record.
// A malformed collection_week fails the row (and, per the loader's policy,
// the whole file); a malformed geocode only blanks the coordinates.
func HHSRowFromRecord(rec records.Record) (HHSRow, error) {
	pk := rec.String("hospital_pk")
	week, err := Date(rec.String("collection_week"))
	if err != nil {
		return HHSRow{}, fmt.Errorf("hospital %q: %w", pk, err)
	}

	lon, lat := GeoPoint(rec.String("geocoded_hospital_address"))

	return HHSRow{
		Location: schema.Location{
			City:      rec.String("city"),
			State:     rec.String("state"),
			ZipCode:   rec.String("zip"),
			Address:   str(rec.String("address")),
			Latitude:  lat,
			Longitude: lon,
			FIPSCode:  str(rec.String("fips_code")),
		},
		Hospital: schema.Hospital{
			HospitalPK:   pk,
			HospitalName: rec.String("hospital_name"),
		},
		Report: schema.WeeklyReport{
			CollectionWeek:        week,
			AllAdultBeds:          Float(rec.String("all_adult_hospital_beds_7_day_avg")),
			AllPediatricBeds:      Float(rec.String("all_pediatric_inpatient_beds_7_day_avg")),
			TotalICUBeds:          Float(rec.String("total_icu_beds_7_day_avg")),
			AdultBedsOccupied:     Float(rec.String("all_adult_hospital_inpatient_bed_occupied_7_day_avg")),
			PediatricBedsOccupied: Float(rec.String("all_pediatric_inpatient_bed_occupied_7_day_avg")),
			ICUBedsUsed:           Float(rec.String("icu_beds_used_7_day_avg")),
			COVIDBedsUsed:         Float(rec.String("inpatient_beds_used_covid_7_day_avg")),
			COVIDAdultICU:         Float(rec.String("staffed_icu_adult_patients_confirmed_covid_7_day_avg")),
			HospitalPK:            pk,
		},
	}, nil
}

// DedupHHS drops all but the first occurrence of each hospital_pk within a
// single load. Later duplicates in the same file are dropped silently.
func DedupHHS(rows []HHSRow) []HHSRow {
	seen := make(map[xxh3.Uint128]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		key := xxh3.HashString128(r.Hospital.HospitalPK)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
