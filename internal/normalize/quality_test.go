package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/pkg/records"
)

func TestQualityRowFromRecord(t *testing.T) {
	day := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	rec := records.Record{
		"facility_id":        "F001",
		"facility_name":      "Mercy",
		"city":               "Chicago",
		"state":              "IL",
		"zip_code":           "60601",
		"ownership":          "Voluntary non-profit - Private",
		"emergency_services": "Yes",
		"hospital_type":      "Acute Care Hospitals",
		"overall_rating":     "4",
	}

	row := QualityRowFromRecord(rec, day)
	require.Equal(t, "Chicago", row.Location.City)
	require.Nil(t, row.Location.Address)
	require.Nil(t, row.Location.Latitude)

	require.Equal(t, "F001", row.Hospital.HospitalPK)
	require.Equal(t, "Mercy", row.Hospital.HospitalName)

	require.Equal(t, "F001", row.Quality.FacilityID)
	require.Equal(t, day, row.Quality.RatingDate)
	require.NotNil(t, row.Quality.QualityRating)
	require.Equal(t, 4, *row.Quality.QualityRating)
	require.True(t, row.Quality.EmergencyServices)
}

func TestQualityRowMalformedOptionalFieldsAreAbsent(t *testing.T) {
	day := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	rec := records.Record{
		"facility_id":        "F002",
		"facility_name":      "County",
		"city":               "Austin",
		"state":              "TX",
		"zip_code":           "78701",
		"ownership":          nil,
		"emergency_services": nil,
		"hospital_type":      nil,
		"overall_rating":     "Not Available",
	}

	row := QualityRowFromRecord(rec, day)
	require.Nil(t, row.Quality.QualityRating)
	require.Nil(t, row.Quality.Ownership)
	require.Nil(t, row.Quality.HospitalType)
	require.False(t, row.Quality.EmergencyServices)
}
