package services

import (
	"fmt"
	"strconv"
	"strings"

	"conferencecentral/internal/domain"
)

// CompileConferenceQuery turns user-supplied filters into a conference query.
// Filters are combined as a conjunction. At most one field may carry
// inequality operators; when one does, results are ordered by that field and
// then by name, otherwise by name alone.
func CompileConferenceQuery(filters []domain.FilterSpec) (domain.Query, error) {
	q := domain.Query{Kind: domain.KindConference}
	var inequality domain.FilterField

	for _, spec := range filters {
		field, err := domain.ParseFilterField(spec.Field)
		if err != nil {
			return domain.Query{}, err
		}
		op, err := domain.ParseOperator(spec.Operator)
		if err != nil {
			return domain.Query{}, err
		}
		if op.IsInequality() {
			if inequality != 0 && inequality != field {
				return domain.Query{}, fmt.Errorf("%w: %s and %s", domain.ErrUnsupportedInequality, inequality, field)
			}
			inequality = field
		}
		value, err := filterValue(field, spec.Value)
		if err != nil {
			return domain.Query{}, err
		}
		q.Filters = append(q.Filters, domain.PropertyFilter{
			Property: field.Property(),
			Op:       op,
			Value:    value,
			Repeated: field.Repeated(),
		})
	}

	if inequality != 0 {
		q.Orders = append(q.Orders, domain.Order{
			Property: inequality.Property(),
			Numeric:  inequality.Numeric(),
			Repeated: inequality.Repeated(),
		})
	}
	q.Orders = append(q.Orders, domain.Order{Property: "name"})
	return q, nil
}

func filterValue(field domain.FilterField, raw string) (any, error) {
	if !field.Numeric() {
		return raw, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s expects an integer, got %q", domain.ErrInvalidFilter, field, raw)
	}
	return n, nil
}
