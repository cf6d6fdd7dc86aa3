package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/metrics"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/normalize"
	csvparser "github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/parser/csv"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/schema"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/storage"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/pkg/records"
)

// LoadQuality runs the CMS quality-rating load: stream the file, normalize in
// batches of batchSize, and per batch resolve locations, upsert hospitals, and
// insert one rating snapshot row per facility. Every batch runs inside the
// same transaction, so a failed batch rolls back the entire file. ratingDate
// stamps every row; it is the snapshot date the operator passed on the command
// line, not anything read from the file.
//
// Returns the number of rows processed.
func LoadQuality(
	ctx context.Context,
	store storage.Store,
	path string,
	ratingDate time.Time,
	batchSize int,
	clock clockwork.Clock,
	log *zap.Logger,
) (int64, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if batchSize <= 0 {
		return 0, fmt.Errorf("batch size must be > 0, got %d", batchSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	parser := csvparser.NewParser(csvparser.Options{
		HeaderMap: normalize.CMSHeaderMap,
		Columns:   normalize.CMSColumns,
	}, log)

	start := time.Now()
	var total int64
	err = store.RunInTransaction(ctx, func(tx storage.Tx) error {
		g, gctx := errgroup.WithContext(ctx)
		recCh := make(chan records.Record, batchSize)

		g.Go(func() error {
			defer close(recCh)
			return parser.Stream(gctx, f, recCh)
		})

		g.Go(func() error {
			n, err := storage.LoadBatches(gctx, recCh, batchSize, clock, log,
				func(fctx context.Context, batch []records.Record) error {
					return flushQualityBatch(fctx, tx, batch, ratingDate)
				})
			total = n
			return err
		})

		return g.Wait()
	})
	metrics.RecordStep("load_quality", "load", err, time.Since(start))
	if err != nil {
		return 0, err
	}

	metrics.RecordRows("load_quality", "inserted", total)
	log.Info("quality load committed",
		zap.Int64("rows", total),
		zap.String("rating_date", ratingDate.Format(schema.DateLayout)))
	return total, nil
}

// flushQualityBatch persists one batch: locations first (city/state/zip
// natural key), then hospitals carrying the resolved location ids, then the
// rating rows. tx is only ever touched from the consumer goroutine; a pgx
// connection is not safe for concurrent use.
func flushQualityBatch(ctx context.Context, tx storage.Tx, batch []records.Record, ratingDate time.Time) error {
	rows := make([]normalize.QualityRow, len(batch))
	locs := make([]schema.Location, len(batch))
	for i, rec := range batch {
		rows[i] = normalize.QualityRowFromRecord(rec, ratingDate)
		locs[i] = rows[i].Location
	}

	ids, err := tx.ResolveLocations(ctx, locs)
	if err != nil {
		return err
	}

	hs := make([]schema.Hospital, len(rows))
	qs := make([]schema.HospitalQuality, len(rows))
	for i, r := range rows {
		hs[i] = r.Hospital
		id := ids[i]
		hs[i].LocationID = &id
		qs[i] = r.Quality
	}

	if err := tx.InsertHospitals(ctx, hs); err != nil {
		return err
	}
	_, err = tx.InsertQualityRatings(ctx, qs)
	return err
}
