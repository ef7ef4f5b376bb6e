// Package sorting orders already-loaded records by an arbitrary, possibly
// nested, field. It backs column sorting of the page held in a view store.
package sorting

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/locvowork/conductores_admin/internal/domain"
)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Resolve walks a dotted path through maps and slices. The second return is
// false when any segment is missing or the final value is null.
func Resolve(record interface{}, path string) (interface{}, bool) {
	current := record
	if current == nil {
		return nil, false
	}
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
		if current == nil {
			return nil, false
		}
	}
	return current, true
}

// Compare orders two defined values: dates by timestamp, plain strings by
// collation, then numbers, then the collation of their string forms.
func Compare(col *collate.Collator, a, b interface{}) int {
	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	at, aIsDate := asTime(a)
	bt, bIsDate := asTime(b)

	if aIsString && bIsString && !(aIsDate && bIsDate) {
		return col.CompareString(as, bs)
	}
	if aIsDate && bIsDate {
		return at.Compare(bt)
	}

	af, aErr := cast.ToFloat64E(a)
	bf, bErr := cast.ToFloat64E(b)
	if aErr == nil && bErr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	return col.CompareString(stringForm(a), stringForm(b))
}

// NewCollator returns the collator used for text comparison.
// Collators are not safe for concurrent use; create one per sort.
func NewCollator() *collate.Collator {
	return collate.New(language.Spanish)
}

// SortRecords stably sorts generic records by the descriptor. Records whose
// field is undefined go last in both directions.
func SortRecords(records []map[string]interface{}, sd domain.SortDescriptor) {
	if sd.Field == "" || len(records) < 2 {
		return
	}
	type keyed struct {
		record  map[string]interface{}
		value   interface{}
		defined bool
	}
	items := make([]keyed, len(records))
	for i, r := range records {
		v, ok := Resolve(r, sd.Field)
		items[i] = keyed{record: r, value: v, defined: ok}
	}

	col := NewCollator()
	desc := sd.Direction == domain.SortDesc
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.defined || !b.defined {
			return a.defined && !b.defined
		}
		cmp := Compare(col, a.value, b.value)
		if desc {
			cmp = -cmp
		}
		return cmp < 0
	})

	for i := range items {
		records[i] = items[i].record
	}
}

// SortConductores returns a sorted copy of list.
func SortConductores(list []domain.Conductor, sd domain.SortDescriptor) ([]domain.Conductor, error) {
	out := make([]domain.Conductor, len(list))
	copy(out, list)
	if sd.Field == "" || len(out) < 2 {
		return out, nil
	}

	records := make([]map[string]interface{}, len(out))
	for i, c := range out {
		m, err := conductorMap(c)
		if err != nil {
			return nil, fmt.Errorf("sort conductor %d: %w", c.ID, err)
		}
		m["__idx"] = i
		records[i] = m
	}

	SortRecords(records, sd)

	sorted := make([]domain.Conductor, len(out))
	for i, r := range records {
		sorted[i] = out[r["__idx"].(int)]
	}
	return sorted, nil
}

// conductorMap is toMap plus the string fields omitempty dropped, so an empty
// string compares as a value rather than as undefined.
func conductorMap(c domain.Conductor) (map[string]interface{}, error) {
	m, err := toMap(c)
	if err != nil {
		return nil, err
	}
	v := reflect.ValueOf(c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type.Kind() != reflect.String {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		if _, ok := m[name]; !ok {
			m[name] = v.Field(i).String()
		}
	}
	return m, nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		if !isoDatePattern.MatchString(s) {
			return time.Time{}, false
		}
		for _, layout := range isoLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func stringForm(v interface{}) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
