package aitime

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// Normalizer implements TimeNormalizer with a configurable clock and location.
type Normalizer struct {
	location *time.Location
	now      func() time.Time
	parser   *Parser
}

// NewNormalizer creates a normalizer that interprets zone-less strings in the given timezone.
func NewNormalizer(defaultTimezone string) *Normalizer {
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	return &Normalizer{
		location: loc,
		now:      time.Now,
		parser:   NewParser(loc),
	}
}

// WithClock returns a copy of the normalizer that reads "now" from clock.
func (n *Normalizer) WithClock(clock func() time.Time) *Normalizer {
	return &Normalizer{
		location: n.location,
		now:      clock,
		parser:   n.parser,
	}
}

// Location returns the normalizer's default timezone.
func (n *Normalizer) Location() *time.Location {
	return n.location
}

// Now returns the normalizer's current instant.
func (n *Normalizer) Now() time.Time {
	return n.now()
}

// Normalize converts raw into an instant, falling back to now.
func (n *Normalizer) Normalize(raw any) time.Time {
	t, ok := n.convert(raw)
	if !ok {
		return n.now()
	}
	return t
}

// TryNormalize reports whether raw had a recognized shape.
func (n *Normalizer) TryNormalize(raw any) (time.Time, bool) {
	return n.convert(raw)
}

func (n *Normalizer) convert(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case *timestamppb.Timestamp:
		if v == nil || v.CheckValid() != nil {
			return time.Time{}, false
		}
		return v.AsTime(), true
	case asTimer:
		if isNilPointer(v) {
			return time.Time{}, false
		}
		return v.AsTime(), true
	case string:
		t, err := n.parser.Parse(v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case map[string]any:
		return fromDocumentMap(v)
	case int64:
		return time.UnixMilli(v), true
	case int:
		return time.UnixMilli(int64(v)), true
	case int32:
		return time.UnixMilli(int64(v)), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)), true
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}

// fromDocumentMap handles the {seconds, nanoseconds} object produced by document stores.
func fromDocumentMap(m map[string]any) (time.Time, bool) {
	secRaw, ok := m["seconds"]
	if !ok {
		secRaw, ok = m["_seconds"]
	}
	if !ok {
		return time.Time{}, false
	}
	sec, ok := toInt64(secRaw)
	if !ok {
		return time.Time{}, false
	}
	nsRaw, ok := m["nanoseconds"]
	if !ok {
		nsRaw = m["_nanoseconds"]
	}
	ns, _ := toInt64(nsRaw)
	return time.Unix(sec, ns), true
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case json.Number:
		i, err := x.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

var defaultNormalizer = NewNormalizer("UTC")

// Normalize converts raw using a UTC normalizer backed by the wall clock.
func Normalize(raw any) time.Time {
	return defaultNormalizer.Normalize(raw)
}
