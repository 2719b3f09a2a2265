// Package listing derives the patient table shown on the dashboard from the
// fetched records: search, sort and display limit. It never issues requests
// on its own.
package listing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
)

type Field string

const (
	FieldID       Field = "id"
	FieldFullName Field = "fullname"
	FieldPhone    Field = "phone"
	FieldGender   Field = "gender"
	FieldAge      Field = "age"
	FieldEmail    Field = "email"
)

// Fields lists the sortable columns.
var Fields = []Field{FieldID, FieldFullName, FieldPhone, FieldGender, FieldAge, FieldEmail}

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Display limit presets. All shows every record.
const (
	All          = 0
	DefaultLimit = 10
)

var Limits = []int{10, 20, All}

// ParseField accepts a column name case-insensitively.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// Lister is the read path a listing is refreshed from.
type Lister interface {
	List(ctx context.Context) ([]model.Patient, error)
}

type Sort struct {
	Field     Field
	Direction Direction
}

// Listing holds the records of the last refresh together with the view
// state. The zero value is not usable; call New.
type Listing struct {
	mu      sync.RWMutex
	records []model.Patient
	search  string
	sort    *Sort
	limit   int
	log     *logger.Logger
}

func New(log *logger.Logger) *Listing {
	if log == nil {
		log = logger.Nop()
	}
	return &Listing{limit: DefaultLimit, log: log.With("listing")}
}

// Refresh replaces the records from lister. On failure the listing degrades
// to empty and the error is returned for the caller to surface.
func (l *Listing) Refresh(ctx context.Context, lister Lister) error {
	records, err := lister.List(ctx)
	if err != nil {
		l.log.Warn(err, "failed to refresh patient listing")
		records = nil
	}
	l.Set(records)
	return err
}

// Set replaces the records in backend order.
func (l *Listing) Set(records []model.Patient) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]model.Patient(nil), records...)
}

// Remove drops a deleted record. It reports whether the id was present.
func (l *Listing) Remove(id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, p := range l.records {
		if p.ID == id {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Listing) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// SetSearch filters by case-insensitive substring of the full name. An empty
// string matches everything.
func (l *Listing) SetSearch(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.search = strings.ToLower(strings.TrimSpace(s))
}

// SortBy selects a column. Selecting the active column flips the direction;
// any other column starts ascending.
func (l *Listing) SortBy(f Field) Sort {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sort != nil && l.sort.Field == f {
		if l.sort.Direction == Ascending {
			l.sort.Direction = Descending
		} else {
			l.sort.Direction = Ascending
		}
	} else {
		l.sort = &Sort{Field: f, Direction: Ascending}
	}
	return *l.sort
}

// SortState returns the active sort, if any.
func (l *Listing) SortState() (Sort, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.sort == nil {
		return Sort{}, false
	}
	return *l.sort, true
}

// SetLimit caps the number of rows shown. n <= 0 is the same as ShowAll.
func (l *Listing) SetLimit(n int) {
	if n < 0 {
		n = All
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = n
}

func (l *Listing) ShowAll() {
	l.SetLimit(All)
}

// View applies filter, then sort, then the display limit.
func (l *Listing) View() []model.Patient {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Patient, 0, len(l.records))
	for _, p := range l.records {
		if l.search == "" || strings.Contains(strings.ToLower(p.FullName), l.search) {
			out = append(out, p)
		}
	}

	if l.sort != nil {
		less := lessFunc(l.sort.Field)
		desc := l.sort.Direction == Descending
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return less(out[j], out[i])
			}
			return less(out[i], out[j])
		})
	}

	if l.limit > 0 && len(out) > l.limit {
		out = out[:l.limit]
	}
	return out
}

func lessFunc(f Field) func(a, b model.Patient) bool {
	switch f {
	case FieldID:
		return func(a, b model.Patient) bool { return a.ID < b.ID }
	case FieldAge:
		return func(a, b model.Patient) bool { return a.Age < b.Age }
	}
	key := textKey(f)
	return func(a, b model.Patient) bool {
		return strings.ToLower(key(a)) < strings.ToLower(key(b))
	}
}

func textKey(f Field) func(model.Patient) string {
	switch f {
	case FieldPhone:
		return func(p model.Patient) string { return p.Phone }
	case FieldGender:
		return func(p model.Patient) string { return string(p.Gender) }
	case FieldEmail:
		return func(p model.Patient) string { return p.Email }
	default:
		return func(p model.Patient) string { return p.FullName }
	}
}
