package schema

// DDL creates the four destination tables. The location unique constraint
// deliberately excludes fips_code, and NULLs compare distinct, so tuples
// with NULL columns can recur; the resolver copes by picking the lowest id.
const DDL = `
CREATE TABLE IF NOT EXISTS location (
	id BIGSERIAL PRIMARY KEY,
	city TEXT NOT NULL,
	state TEXT NOT NULL,
	zip_code TEXT NOT NULL,
	address TEXT,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	fips_code TEXT,
	UNIQUE (city, state, zip_code, address, latitude, longitude)
);

CREATE TABLE IF NOT EXISTS hospital (
	hospital_pk TEXT PRIMARY KEY,
	hospital_name TEXT NOT NULL,
	location_id BIGINT REFERENCES location (id)
);

CREATE TABLE IF NOT EXISTS weekly_report (
	id BIGSERIAL PRIMARY KEY,
	collection_week DATE NOT NULL,
	all_adult_hospital_beds_7_day_avg DOUBLE PRECISION,
	all_pediatric_inpatient_beds_7_day_avg DOUBLE PRECISION,
	total_icu_beds_7_day_avg DOUBLE PRECISION,
	all_adult_hospital_inpatient_bed_occupied_7_day_avg DOUBLE PRECISION,
	all_pediatric_inpatient_bed_occupied_7_day_avg DOUBLE PRECISION,
	icu_beds_used_7_day_avg DOUBLE PRECISION,
	inpatient_beds_used_covid_7_day_avg DOUBLE PRECISION,
	staffed_icu_adult_patients_confirmed_covid_7_day_avg DOUBLE PRECISION,
	hospital_weekly_id TEXT NOT NULL REFERENCES hospital (hospital_pk)
);

CREATE TABLE IF NOT EXISTS hospital_quality (
	id BIGSERIAL PRIMARY KEY,
	facility_id TEXT NOT NULL REFERENCES hospital (hospital_pk),
	quality_rating INT CHECK (quality_rating BETWEEN 1 AND 5),
	rating_date DATE NOT NULL,
	ownership TEXT,
	hospital_type TEXT,
	provides_emergency_services BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (facility_id, rating_date)
);
`
