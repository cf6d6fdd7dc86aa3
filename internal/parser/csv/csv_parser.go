// Package csv turns HHS/CMS extract files into records. It wraps
// encoding/csv with header normalization (BOM strip, optional header map)
// and keeps only the columns the caller asked for, since the source extracts
// carry far more columns than the pipeline persists.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/pkg/records"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\ufeff"

// Options configures the parser. All fields are optional.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// HeaderMap maps source header names to canonical keys
	// (e.g. "Facility ID" -> "facility_id"). Unmapped headers pass through
	// unchanged.
	HeaderMap map[string]string

	// Columns, when non-empty, restricts the emitted records to these
	// canonical keys. A record always carries every listed column; columns
	// absent from the source come through as nil.
	Columns []string
}

// Parser parses one CSV layout. It is safe to reuse across inputs but is not
// concurrency-safe.
type Parser struct {
	opt Options
	log *zap.Logger
}

// NewParser constructs a Parser. A nil logger falls back to a no-op logger.
func NewParser(opt Options, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{opt: opt, log: log}
}

// ParseFile opens path and parses the whole file. A missing path surfaces as
// an fs.ErrNotExist-wrapping error so callers can classify it.
func (p *Parser) ParseFile(path string) ([]records.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse consumes CSV data from r and returns one record per data row. Any
// structural CSV error is fatal: the loaders run one all-or-nothing
// transaction per file, so a half-read file must not reach the database.
func (p *Parser) Parse(r io.Reader) ([]records.Record, error) {
	cr, proj, err := p.newReader(r)
	if err != nil {
		return nil, err
	}

	var out []records.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse row %d: %w", line, err)
		}
		out = append(out, proj.record(row))
	}
	p.log.Debug("parsed csv", zap.Int("rows", len(out)))
	return out, nil
}

// Stream reads rows one at a time and sends each record into out. It returns
// on EOF, on the first structural error, or when ctx is done. The caller owns
// closing out.
func (p *Parser) Stream(ctx context.Context, r io.Reader, out chan<- records.Record) error {
	cr, proj, err := p.newReader(r)
	if err != nil {
		return err
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse row %d: %w", line, err)
		}

		select {
		case out <- proj.record(row):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// projection captures the header-to-record mapping computed once per file.
type projection struct {
	header []string
	// pick holds, per requested column, the source index or -1. Nil when no
	// column selection was configured.
	pick    []int
	columns []string
}

func (pr projection) record(row []string) records.Record {
	if pr.pick != nil {
		rec := make(records.Record, len(pr.columns))
		for j, c := range pr.columns {
			i := pr.pick[j]
			if i >= 0 && i < len(row) {
				rec[c] = emptyToNil(strings.TrimSpace(row[i]))
			} else {
				rec[c] = nil
			}
		}
		return rec
	}

	rec := make(records.Record, len(pr.header))
	for i, val := range row {
		rec[pr.header[i]] = emptyToNil(strings.TrimSpace(val))
	}
	return rec
}

// newReader builds the csv.Reader, consumes the header row, and precomputes
// the column projection.
func (p *Parser) newReader(r io.Reader) (*csv.Reader, projection, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	// encoding/csv enforces per-row width against the header; a ragged row
	// must fail the file rather than shift columns silently.
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err != nil {
		return nil, projection{}, fmt.Errorf("read csv header: %w", err)
	}

	header := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if m, ok := p.opt.HeaderMap[c]; ok && m != "" {
			c = m
		}
		header[i] = c
	}

	proj := projection{header: header}
	if len(p.opt.Columns) > 0 {
		idx := make(map[string]int, len(header))
		for i, name := range header {
			idx[name] = i
		}
		proj.columns = p.opt.Columns
		proj.pick = make([]int, len(p.opt.Columns))
		for j, c := range p.opt.Columns {
			if i, ok := idx[c]; ok {
				proj.pick[j] = i
			} else {
				proj.pick[j] = -1
				p.log.Warn("source file is missing a selected column", zap.String("column", c))
			}
		}
	}
	return cr, proj, nil
}

// emptyToNil converts an empty string to nil; other values pass through.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
