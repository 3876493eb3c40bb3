package db

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/drill/internal/errors"
)

// constraint is the SQLite constraint a failed write tripped, if any.
type constraint int

const (
	constraintNone constraint = iota
	constraintUnique
	constraintForeignKey
)

// constraintOf classifies err by the message SQLite attaches to constraint failures.
func constraintOf(err error) constraint {
	if err == nil {
		return constraintNone
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return constraintUnique
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return constraintForeignKey
	}
	return constraintNone
}

// writeError maps a failed insert to a coded error. A unique violation becomes
// conflict, a dangling reference becomes not-found for (refKind, refID).
func writeError(err error, conflict, refKind, refID string) error {
	switch constraintOf(err) {
	case constraintUnique:
		if conflict != "" {
			return errors.NewConflict(conflict)
		}
	case constraintForeignKey:
		if refKind != "" {
			return errors.NewNotFound(refKind, refID)
		}
	}
	return errors.NewInternal(err)
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// toNullJSON stores an empty payload as NULL.
func toNullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// placeholders returns "?, ?, ..." for an IN list of n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
