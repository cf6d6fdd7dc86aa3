package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/metrics"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/normalize"
	csvparser "github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/parser/csv"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/schema"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/storage"
)

// HHSResult summarizes one successful HHS capacity load.
type HHSResult struct {
	// Hospitals is the count of unique hospitals retained after intra-file
	// dedup; locations and hospital rows are keyed off these.
	Hospitals int
	// Reports is the number of weekly_report fact rows inserted.
	Reports int64
}

// LoadHHS runs the whole-file HHS capacity load: parse, normalize, dedup,
// then resolve and insert the three tables in dependency order inside one
// transaction. Any failure rolls the whole file back.
func LoadHHS(ctx context.Context, store storage.Store, path string, log *zap.Logger) (HHSResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	start := time.Now()
	parser := csvparser.NewParser(csvparser.Options{Columns: normalize.HHSColumns}, log)
	recs, err := parser.ParseFile(path)
	metrics.RecordStep("load_hhs", "extract", err, time.Since(start))
	if err != nil {
		return HHSResult{}, err
	}
	metrics.RecordRows("load_hhs", "parsed", int64(len(recs)))

	// Normalize. A malformed collection_week stops the whole file: a partial
	// week load would be worse than no load.
	rows := make([]normalize.HHSRow, 0, len(recs))
	for i, rec := range recs {
		row, err := normalize.HHSRowFromRecord(rec)
		if err != nil {
			return HHSResult{}, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	parsed := len(rows)
	rows = normalize.DedupHHS(rows)
	if dropped := parsed - len(rows); dropped > 0 {
		log.Info("dropped duplicate hospital rows", zap.Int("dropped", dropped))
		metrics.RecordRows("load_hhs", "deduped", int64(dropped))
	}

	res := HHSResult{Hospitals: len(rows)}
	insertStart := time.Now()
	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		locs := make([]schema.Location, len(rows))
		hs := make([]schema.Hospital, len(rows))
		for i, r := range rows {
			locs[i] = r.Location
			hs[i] = r.Hospital
		}

		ids, err := tx.ResolveLocations(ctx, locs)
		if err != nil {
			return err
		}
		for i := range hs {
			id := ids[i]
			hs[i].LocationID = &id
		}

		pks, err := tx.ResolveHospitals(ctx, hs)
		if err != nil {
			return err
		}

		reps := make([]schema.WeeklyReport, len(rows))
		for i, r := range rows {
			reps[i] = r.Report
			reps[i].HospitalPK = pks[i]
		}
		n, err := tx.InsertWeeklyReports(ctx, reps)
		if err != nil {
			return err
		}
		res.Reports = n
		return nil
	})
	metrics.RecordStep("load_hhs", "insert", err, time.Since(insertStart))
	if err != nil {
		return HHSResult{}, err
	}

	metrics.RecordRows("load_hhs", "inserted", res.Reports)
	log.Info("hhs load committed",
		zap.Int("hospitals", res.Hospitals),
		zap.Int64("weekly_reports", res.Reports))
	return res, nil
}
