package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Operator is a comparison primitive supported by the entity store.
type Operator int

const (
	OpEqual Operator = iota + 1
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpNotEqual
)

// Operators lists every operator in declaration order.
func Operators() []Operator {
	return []Operator{OpEqual, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual, OpNotEqual}
}

// ParseOperator accepts either the symbol ("=", ">=", ...) or the tag
// ("EQ", "GTEQ", ...) of an operator.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "=", "==", "EQ":
		return OpEqual, nil
	case ">", "GT":
		return OpGreaterThan, nil
	case ">=", "GTEQ":
		return OpGreaterOrEqual, nil
	case "<", "LT":
		return OpLessThan, nil
	case "<=", "LTEQ":
		return OpLessOrEqual, nil
	case "!=", "NE":
		return OpNotEqual, nil
	}
	return 0, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, s)
}

// Symbol returns the comparison symbol, also used verbatim in SQL.
func (o Operator) Symbol() string {
	switch o {
	case OpEqual:
		return "="
	case OpGreaterThan:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpNotEqual:
		return "!="
	}
	return ""
}

func (o Operator) String() string { return o.Symbol() }

// Valid reports whether o is one of the declared operators.
func (o Operator) Valid() bool { return o.Symbol() != "" }

// IsInequality reports whether o is a range (non-equality) constraint.
func (o Operator) IsInequality() bool { return o.Valid() && o != OpEqual }

// Holds reports whether a comparison result (-1, 0, 1 of stored vs. wanted)
// satisfies o.
func (o Operator) Holds(cmp int) bool {
	switch o {
	case OpEqual:
		return cmp == 0
	case OpGreaterThan:
		return cmp > 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLessThan:
		return cmp < 0
	case OpLessOrEqual:
		return cmp <= 0
	case OpNotEqual:
		return cmp != 0
	}
	return false
}

// FilterField is a conference property users may filter on.
type FilterField int

const (
	FieldCity FilterField = iota + 1
	FieldTopics
	FieldMonth
	FieldMaxAttendees
)

// FilterFields lists every filterable field in declaration order.
func FilterFields() []FilterField {
	return []FilterField{FieldCity, FieldTopics, FieldMonth, FieldMaxAttendees}
}

// ParseFilterField accepts the logical name ("maxAttendees") or the tag
// ("MAX_ATTENDEES") of a field.
func ParseFilterField(s string) (FilterField, error) {
	switch strings.TrimSpace(s) {
	case "city", "CITY":
		return FieldCity, nil
	case "topics", "TOPIC", "TOPICS":
		return FieldTopics, nil
	case "month", "MONTH":
		return FieldMonth, nil
	case "maxAttendees", "MAX_ATTENDEES":
		return FieldMaxAttendees, nil
	}
	return 0, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, s)
}

// String returns the logical field name.
func (f FilterField) String() string {
	switch f {
	case FieldCity:
		return "city"
	case FieldTopics:
		return "topics"
	case FieldMonth:
		return "month"
	case FieldMaxAttendees:
		return "maxAttendees"
	}
	return ""
}

// Property returns the stored property name backing f.
func (f FilterField) Property() string {
	switch f {
	case FieldCity:
		return "city"
	case FieldTopics:
		return "topics"
	case FieldMonth:
		return "month"
	case FieldMaxAttendees:
		return "max_attendees"
	}
	return ""
}

// Numeric reports whether values of f are integers.
func (f FilterField) Numeric() bool {
	return f == FieldMonth || f == FieldMaxAttendees
}

// Repeated reports whether f is a list property.
func (f FilterField) Repeated() bool {
	return f == FieldTopics
}

// FilterSpec is a raw, user-supplied (field, operator, value) triple.
type FilterSpec struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// PropertyFilter is a validated constraint on a stored property. Value is a
// string or an int64.
type PropertyFilter struct {
	Property string
	Op       Operator
	Value    any
	Repeated bool
}

// Order is a sort key.
type Order struct {
	Property   string
	Numeric    bool
	Repeated   bool
	Descending bool
}

// Query selects entities of one kind, optionally under an ancestor.
type Query struct {
	Kind     string
	Ancestor *Key
	Filters  []PropertyFilter
	Orders   []Order
	Limit    int
}

// Validate enforces the store rules: range constraints on at most one
// property, and that property must be the primary sort key.
func (q Query) Validate() error {
	if q.Kind == "" {
		return fmt.Errorf("%w: query kind is required", ErrInvalidInput)
	}
	ineq := ""
	for _, f := range q.Filters {
		if !f.Op.Valid() || f.Property == "" {
			return ErrInvalidFilter
		}
		if !f.Op.IsInequality() {
			continue
		}
		if ineq != "" && ineq != f.Property {
			return ErrUnsupportedInequality
		}
		ineq = f.Property
	}
	if ineq != "" && len(q.Orders) > 0 && q.Orders[0].Property != ineq {
		return fmt.Errorf("%w: first sort order must be %q", ErrUnsupportedInequality, ineq)
	}
	return nil
}

// Record is a stored entity as returned by the store.
type Record struct {
	Key     Key
	Version int64
	Data    json.RawMessage
}

// Decode unmarshals the record data into dst.
func (r Record) Decode(dst any) error {
	return json.Unmarshal(r.Data, dst)
}

// Properties decodes the record data into a generic property map.
func (r Record) Properties() (map[string]any, error) {
	props := map[string]any{}
	if len(r.Data) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(r.Data, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// Matches reports whether props satisfies every filter of q. Repeated
// properties match when any element matches.
func (q Query) Matches(props map[string]any) bool {
	for _, f := range q.Filters {
		if !filterMatches(f, props[f.Property]) {
			return false
		}
	}
	return true
}

func filterMatches(f PropertyFilter, stored any) bool {
	if list, ok := stored.([]any); ok {
		for _, el := range list {
			if cmp, ok := compareValues(el, f.Value); ok && f.Op.Holds(cmp) {
				return true
			}
		}
		return false
	}
	cmp, ok := compareValues(stored, f.Value)
	return ok && f.Op.Holds(cmp)
}

// compareValues compares a decoded JSON value with a filter value. Values of
// different types never compare.
func compareValues(stored, want any) (int, bool) {
	switch w := want.(type) {
	case string:
		s, ok := stored.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(s, w), true
	case int:
		return compareNumber(stored, float64(w))
	case int64:
		return compareNumber(stored, float64(w))
	case float64:
		return compareNumber(stored, w)
	case bool:
		b, ok := stored.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case b == w:
			return 0, true
		case w:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func compareNumber(stored any, w float64) (int, bool) {
	n, ok := stored.(float64)
	if !ok {
		return 0, false
	}
	switch {
	case n < w:
		return -1, true
	case n > w:
		return 1, true
	}
	return 0, true
}

// ApplyInProcess filters, sorts and limits records the way the store would.
// Backends without native secondary indexes use it after fetching by kind or
// ancestor.
func (q Query) ApplyInProcess(records []Record) ([]Record, error) {
	type row struct {
		rec   Record
		props map[string]any
	}
	rows := make([]row, 0, len(records))
	for _, rec := range records {
		props, err := rec.Properties()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", rec.Key, err)
		}
		if q.Matches(props) {
			rows = append(rows, row{rec: rec, props: props})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range q.Orders {
			c := compareSortValues(sortValue(rows[i].props[o.Property], o), sortValue(rows[j].props[o.Property], o))
			if c == 0 {
				continue
			}
			if o.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		out = append(out, r.rec)
	}
	return out, nil
}

// sortValue picks the value an entity sorts by: for list properties the
// smallest element ascending and the largest descending.
func sortValue(v any, o Order) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	var pick any
	for _, el := range list {
		if pick == nil {
			pick = el
			continue
		}
		c := compareSortValues(el, pick)
		if (!o.Descending && c < 0) || (o.Descending && c > 0) {
			pick = el
		}
	}
	return pick
}

// compareSortValues orders nil < numbers < strings.
func compareSortValues(a, b any) int {
	ra, rb := sortRank(a), sortRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case float64:
		c, _ := compareNumber(b, av)
		return -c
	case string:
		return strings.Compare(av, b.(string))
	}
	return 0
}

func sortRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	}
	return 4
}
