package normalize

import (
	"time"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/schema"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/pkg/records"
)

// CMSHeaderMap maps the CMS quality file's display headers to canonical keys.
var CMSHeaderMap = map[string]string{
	"Facility ID":             "facility_id",
	"Facility Name":           "facility_name",
	"City":                    "city",
	"State":                   "state",
	"ZIP Code":                "zip_code",
	"Hospital Ownership":      "ownership",
	"Emergency Services":      "emergency_services",
	"Hospital Type":           "hospital_type",
	"Hospital overall rating": "overall_rating",
}

// CMSColumns are the canonical keys kept from the CMS quality file.
var CMSColumns = []string{
	"facility_id",
	"facility_name",
	"city",
	"state",
	"zip_code",
	"ownership",
	"emergency_services",
	"hospital_type",
	"overall_rating",
}

// QualityRow is one normalized CMS quality row. The location carries only
// city/state/zip; the CMS file has no street address or geocode, so the
// remaining natural-key columns stay absent.
type QualityRow struct {
	Location schema.Location
	Hospital schema.Hospital
	Quality  schema.HospitalQuality
}

// QualityRowFromRecord applies the cleaning rules to one raw CMS record.
// Malformed optional fields (rating, emergency services) normalize to
// absent/false rather than failing the row.
func QualityRowFromRecord(rec records.Record, ratingDate time.Time) QualityRow {
	facilityID := rec.String("facility_id")
	return QualityRow{
		Location: schema.Location{
			City:    rec.String("city"),
			State:   rec.String("state"),
			ZipCode: rec.String("zip_code"),
		},
		Hospital: schema.Hospital{
			HospitalPK:   facilityID,
			HospitalName: rec.String("facility_name"),
		},
		Quality: schema.HospitalQuality{
			FacilityID:        facilityID,
			QualityRating:     Rating(rec.String("overall_rating")),
			RatingDate:        ratingDate,
			Ownership:         str(rec.String("ownership")),
			HospitalType:      str(rec.String("hospital_type")),
			EmergencyServices: YesNo(rec.String("emergency_services")),
		},
	}
}
