package search

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/picklecourt/courtdesk/remote"
)

var (
	// ErrUnknownFilter is returned when a value targets an undeclared filter.
	ErrUnknownFilter = errors.New("search: unknown filter")
	// ErrInvalidFilterValue is returned when a value does not fit its filter kind.
	ErrInvalidFilterValue = errors.New("search: invalid filter value")
	// ErrReservedFilter is returned when a filter is named page or size.
	ErrReservedFilter = errors.New("search: filter name is reserved for pagination")
)

// Kind is the input type of a filter.
type Kind int

const (
	Text Kind = iota
	Number
	Select
	Date
	DateRange
	Dropdown
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "input"
	case Number:
		return "number"
	case Select:
		return "select"
	case Date:
		return "date"
	case DateRange:
		return "range-date"
	case Dropdown:
		return "dropdown"
	default:
		return "unknown"
	}
}

// Option is one choice of a Select or Dropdown filter.
type Option struct {
	Label string
	Value any
}

// Filter declares one filter field.
type Filter struct {
	Name        string
	Kind        Kind
	Placeholder string
	Default     any
	// Options restricts Select and Dropdown values when non-empty.
	Options []Option
}

func (f Filter) check(v any) error {
	if v == nil {
		return nil
	}
	bad := func() error {
		return fmt.Errorf("%w: %s expects %s, got %T", ErrInvalidFilterValue, f.Name, f.Kind, v)
	}
	switch f.Kind {
	case Text:
		if _, ok := v.(string); !ok {
			return bad()
		}
	case Number:
		switch reflect.ValueOf(v).Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
		default:
			return bad()
		}
	case Date:
		if _, ok := v.(time.Time); !ok {
			return bad()
		}
	case DateRange:
		r, ok := v.(remote.DateRange)
		if !ok {
			return bad()
		}
		if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
			return fmt.Errorf("%w: %s range ends before it starts", ErrInvalidFilterValue, f.Name)
		}
	case Select, Dropdown:
		if len(f.Options) == 0 {
			return nil
		}
		if s, ok := v.(string); ok && s == "" {
			return nil
		}
		for _, o := range f.Options {
			if reflect.DeepEqual(o.Value, v) {
				return nil
			}
		}
		return fmt.Errorf("%w: %v is not an option of %s", ErrInvalidFilterValue, v, f.Name)
	}
	return nil
}
