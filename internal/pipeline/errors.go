// Package pipeline orchestrates the two loads: extract, normalize, resolve,
// and batch-insert inside one all-or-nothing transaction per file.
package pipeline

import (
	"encoding/csv"
	"errors"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/normalize"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/storage"
)

// Kind classifies a run failure for logging and reporting. Every kind is
// fatal for the run; the distinction is what the operator gets told.
type Kind string

const (
	// KindSource: file missing/unreadable or structurally malformed CSV.
	KindSource Kind = "source"
	// KindValidation: a field failed to parse into its canonical type.
	KindValidation Kind = "validation"
	// KindIntegrity: the database rejected a batch (FK, uniqueness, data
	// type) or an id lookup misaligned.
	KindIntegrity Kind = "integrity"
	// KindConnection: could not reach the database.
	KindConnection Kind = "connection"
	// KindInternal: everything else.
	KindInternal Kind = "internal"
)

// Classify maps an error from any pipeline stage onto its kind.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindSource
	case errors.Is(err, normalize.ErrInvalidDate):
		return KindValidation
	case errors.Is(err, storage.ErrResolveMismatch):
		return KindIntegrity
	}

	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return KindSource
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return KindConnection
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.SQLState()
		switch {
		case strings.HasPrefix(code, "22"), strings.HasPrefix(code, "23"):
			return KindIntegrity
		case strings.HasPrefix(code, "08"):
			return KindConnection
		}
	}
	return KindInternal
}
