// Package review schedules missed items for spaced repetition (SM-2).
//
// All functions are pure: they take the caller's "today" and return new values.
// Persistence belongs to a Repository.
package review

import (
	"math"
	"sort"
	"time"
)

// Scheduling constants.
const (
	InitialEase     = 2.5
	MinEase         = 1.3
	InitialInterval = 1
	SecondInterval  = 6
	PassGrade       = 3
	MaxGrade        = 5
	FailGrade       = 0
)

// Record is the review state of one item.
type Record struct {
	ItemID          string    `json:"item_id"`
	SourceSessionID string    `json:"source_session_id"`
	IntervalDays    int       `json:"interval_days"`
	EaseFactor      float64   `json:"ease_factor"`
	RepetitionCount int       `json:"repetition_count"`
	NextReviewDate  time.Time `json:"next_review_date"`
	LastReviewDate  time.Time `json:"last_review_date"`
}

// Day truncates t to its calendar date at 00:00 UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// Register creates the record for an item missed for the first time. It is due today.
func Register(itemID, sessionID string, today time.Time) Record {
	today = Day(today)
	return Record{
		ItemID:          itemID,
		SourceSessionID: sessionID,
		IntervalDays:    InitialInterval,
		EaseFactor:      InitialEase,
		RepetitionCount: 0,
		NextReviewDate:  today,
		LastReviewDate:  today,
	}
}

// Grade applies a 0-5 recall grade and returns the updated record.
// Out-of-range grades are clamped.
func Grade(r Record, grade int, today time.Time) Record {
	grade = max(0, min(MaxGrade, grade))
	today = Day(today)

	if grade < PassGrade {
		r.RepetitionCount = 0
		r.IntervalDays = InitialInterval
		r.EaseFactor = math.Max(MinEase, r.EaseFactor-0.2)
	} else {
		switch r.RepetitionCount {
		case 0:
			r.IntervalDays = InitialInterval
		case 1:
			r.IntervalDays = SecondInterval
		default:
			r.IntervalDays = int(math.Round(float64(r.IntervalDays) * r.EaseFactor))
		}
		q := float64(MaxGrade - grade)
		r.EaseFactor = math.Max(MinEase, r.EaseFactor+(0.1-q*(0.08+q*0.02)))
		r.RepetitionCount++
	}

	r.IntervalDays = max(r.IntervalDays, InitialInterval)
	r.NextReviewDate = today.AddDate(0, 0, r.IntervalDays)
	r.LastReviewDate = today
	return r
}

// RecordFailure registers itemID if it has no record, or applies a failing grade
// to its existing record. It returns the updated slice and the affected record.
func RecordFailure(records []Record, itemID, sessionID string, today time.Time) ([]Record, Record) {
	out := append([]Record(nil), records...)
	for i, r := range out {
		if r.ItemID == itemID {
			out[i] = Grade(r, FailGrade, today)
			return out, out[i]
		}
	}
	r := Register(itemID, sessionID, today)
	return append(out, r), r
}

// IsDue reports whether r is due on today.
func (r Record) IsDue(today time.Time) bool {
	return !Day(r.NextReviewDate).After(Day(today))
}

// DueToday returns the records whose next review date is on or before today.
func DueToday(records []Record, today time.Time) []Record {
	var due []Record
	for _, r := range records {
		if r.IsDue(today) {
			due = append(due, r)
		}
	}
	return due
}

// SortByStaleness orders records by next review date, oldest first; ties by item ID.
func SortByStaleness(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.NextReviewDate.Equal(b.NextReviewDate) {
			return a.NextReviewDate.Before(b.NextReviewDate)
		}
		return a.ItemID < b.ItemID
	})
}

// Remove deletes the record for itemID. It reports whether a record was removed.
func Remove(records []Record, itemID string) ([]Record, bool) {
	out := make([]Record, 0, len(records))
	removed := false
	for _, r := range records {
		if r.ItemID == itemID {
			removed = true
			continue
		}
		out = append(out, r)
	}
	return out, removed
}
