package remote

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for dates in query strings.
const DateLayout = "2006-01-02"

// Params are query parameters. Values may be strings, numbers, bools, time.Time
// (sent as a date), DateRange (sent as <name>From/<name>To), or slices (comma-joined).
// Nil, empty and zero values are omitted.
type Params map[string]any

// DateRange is an inclusive date filter.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Encode flattens p into a query string with sorted keys.
func (p Params) Encode() string {
	return p.Values().Encode()
}

// Values flattens p into url.Values.
func (p Params) Values() url.Values {
	out := url.Values{}
	for name, v := range p {
		addParam(out, name, v)
	}
	return out
}

func addParam(out url.Values, name string, v any) {
	switch x := v.(type) {
	case nil:
		return
	case DateRange:
		if !x.From.IsZero() {
			out.Set(name+"From", x.From.Format(DateLayout))
		}
		if !x.To.IsZero() {
			out.Set(name+"To", x.To.Format(DateLayout))
		}
		return
	case *DateRange:
		if x != nil {
			addParam(out, name, *x)
		}
		return
	}
	if s, ok := scalar(v); ok {
		if s != "" {
			out.Set(name, s)
		}
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if !rv.IsNil() {
			addParam(out, name, rv.Elem().Interface())
		}
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if s, ok := scalar(rv.Index(i).Interface()); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			out.Set(name, strings.Join(parts, ","))
		}
	default:
		if s := fmt.Sprint(v); s != "" {
			out.Set(name, s)
		}
	}
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case time.Time:
		if x.IsZero() {
			return "", true
		}
		return x.Format(DateLayout), true
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}
