package builder

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/locvowork/conductores_admin/internal/domain"
)

const dateLayout = "2006-01-02"

// Query parameter names understood by the listing endpoint.
const (
	ParamPage       = "page"
	ParamLimit      = "limit"
	ParamSort       = "sort"
	ParamOrder      = "order"
	ParamSearch     = "search"
	ParamFechaDesde = "fecha_desde"
	ParamFechaHasta = "fecha_hasta"
	ParamSalarioMin = "salario_min"
	ParamSalarioMax = "salario_max"
)

// ListQueryBuilder composes the query string of a conductor listing request.
type ListQueryBuilder struct {
	page       int
	limit      int
	search     string
	facetOrder []string
	facets     map[string][]string
	sortField  string
	sortDir    domain.SortDirection
	dateFrom   string
	dateTo     string
	salaryMin  *float64
	salaryMax  *float64
}

// NewListQueryBuilder creates a new instance of ListQueryBuilder.
func NewListQueryBuilder() *ListQueryBuilder {
	return &ListQueryBuilder{
		facets: make(map[string][]string),
	}
}

// Page sets the 1-based page number. Values below 1 are ignored.
func (b *ListQueryBuilder) Page(page int) *ListQueryBuilder {
	if page > 0 {
		b.page = page
	}
	return b
}

// Limit sets the page size. Values below 1 leave the backend default.
func (b *ListQueryBuilder) Limit(limit int) *ListQueryBuilder {
	if limit > 0 {
		b.limit = limit
	}
	return b
}

// Search sets the free-text term. Blank terms are omitted.
func (b *ListQueryBuilder) Search(term string) *ListQueryBuilder {
	b.search = strings.TrimSpace(term)
	return b
}

// Facet adds allowed values for one facet. Blank and duplicate values are dropped;
// a facet left with no values is not serialized at all.
func (b *ListQueryBuilder) Facet(name string, values ...string) *ListQueryBuilder {
	name = strings.TrimSpace(name)
	if name == "" {
		return b
	}
	if _, seen := b.facets[name]; !seen {
		b.facetOrder = append(b.facetOrder, name)
	}
	current := b.facets[name]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || contains(current, v) {
			continue
		}
		current = append(current, v)
	}
	b.facets[name] = current
	return b
}

// Sort sets the sort descriptor. The direction is case-normalized.
func (b *ListQueryBuilder) Sort(field string, direction string) *ListQueryBuilder {
	b.sortField = strings.TrimSpace(field)
	b.sortDir = domain.ParseSortDirection(direction)
	return b
}

// DateRange bounds fecha_ingreso; empty bounds are open.
func (b *ListQueryBuilder) DateRange(from, to string) *ListQueryBuilder {
	b.dateFrom = strings.TrimSpace(from)
	b.dateTo = strings.TrimSpace(to)
	return b
}

// SalaryRange bounds salario_base; nil bounds are open.
func (b *ListQueryBuilder) SalaryRange(min, max *float64) *ListQueryBuilder {
	b.salaryMin = min
	b.salaryMax = max
	return b
}

// FromParams loads a whole list request in one call.
func FromParams(p domain.ListParams) *ListQueryBuilder {
	b := NewListQueryBuilder().
		Page(p.Page).
		Limit(p.Limit).
		Search(p.Selection.Search).
		DateRange(p.Selection.Fechas.From, p.Selection.Fechas.To).
		SalaryRange(p.Selection.Salario.Min, p.Selection.Salario.Max)

	for _, name := range domain.Facets {
		if values, ok := p.Selection.Facets[name]; ok {
			b.Facet(name, values...)
		}
	}
	if p.Sort.Field != "" {
		b.Sort(p.Sort.Field, string(p.Sort.Direction))
	}
	return b
}

// BuildSafe constructs the query and rejects malformed or inverted ranges.
func (b *ListQueryBuilder) BuildSafe() (url.Values, error) {
	var from, to time.Time
	var err error
	if b.dateFrom != "" {
		if from, err = time.Parse(dateLayout, b.dateFrom); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", ParamFechaDesde, b.dateFrom, err)
		}
	}
	if b.dateTo != "" {
		if to, err = time.Parse(dateLayout, b.dateTo); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", ParamFechaHasta, b.dateTo, err)
		}
	}
	if b.dateFrom != "" && b.dateTo != "" && from.After(to) {
		return nil, fmt.Errorf("date range is inverted: %s > %s", b.dateFrom, b.dateTo)
	}
	if b.salaryMin != nil && b.salaryMax != nil && *b.salaryMin > *b.salaryMax {
		return nil, fmt.Errorf("salary range is inverted: %v > %v", *b.salaryMin, *b.salaryMax)
	}
	return b.Build(), nil
}

// Build constructs the final query values.
func (b *ListQueryBuilder) Build() url.Values {
	q := url.Values{}

	if b.page > 0 {
		q.Set(ParamPage, strconv.Itoa(b.page))
	}
	if b.limit > 0 {
		q.Set(ParamLimit, strconv.Itoa(b.limit))
	}
	if b.sortField != "" {
		q.Set(ParamSort, b.sortField)
		q.Set(ParamOrder, string(b.sortDir))
	}
	if b.search != "" {
		q.Set(ParamSearch, b.search)
	}

	for _, name := range b.facetOrder {
		for _, v := range b.facets[name] {
			q.Add(name, v)
		}
	}

	if b.dateFrom != "" {
		q.Set(ParamFechaDesde, b.dateFrom)
	}
	if b.dateTo != "" {
		q.Set(ParamFechaHasta, b.dateTo)
	}
	if b.salaryMin != nil {
		q.Set(ParamSalarioMin, strconv.FormatFloat(*b.salaryMin, 'f', -1, 64))
	}
	if b.salaryMax != nil {
		q.Set(ParamSalarioMax, strconv.FormatFloat(*b.salaryMax, 'f', -1, 64))
	}

	return q
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
