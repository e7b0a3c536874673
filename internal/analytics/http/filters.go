package analytichttp

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/plugtech/findash/internal/query"
)

const dateLayout = "2006-01-02"

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}

// parseFilters reads the report filters from the query string. ref is the
// optional reference day; it stays zero when absent.
func (h *Handler) parseFilters(r *http.Request) (query.Selection, time.Time, error) {
	q := r.URL.Query()
	var sel query.Selection
	var err error

	if sel.From, err = h.parseDate(q, "from"); err != nil {
		return sel, time.Time{}, err
	}
	if sel.To, err = h.parseDate(q, "to"); err != nil {
		return sel, time.Time{}, err
	}
	if sel.From.IsZero() != sel.To.IsZero() {
		return sel, time.Time{}, validationError{field: "from/to"}
	}
	if !sel.From.IsZero() && sel.To.Before(sel.From) {
		return sel, time.Time{}, validationError{field: "from/to"}
	}
	ref, err := h.parseDate(q, "ref")
	if err != nil {
		return sel, time.Time{}, err
	}

	for _, company := range multi(q, "company") {
		if strings.EqualFold(company, "all") {
			sel.Companies = nil
			break
		}
		sel.Companies = append(sel.Companies, company)
	}

	if raw := strings.TrimSpace(q.Get("legal")); raw != "" {
		if sel.Legal, err = query.ParseLegalStatus(raw); err != nil {
			return sel, time.Time{}, validationError{field: "legal"}
		}
	}

	for _, status := range multi(q, "status") {
		code := strings.ToUpper(status)
		if _, ok := query.ContractStatusLabels[code]; !ok {
			return sel, time.Time{}, validationError{field: "status"}
		}
		sel.ContractStatuses = append(sel.ContractStatuses, code)
	}

	for _, raw := range multi(q, "category") {
		c, err := query.ParseCategory(raw)
		if err != nil {
			return sel, time.Time{}, validationError{field: "category"}
		}
		sel.Categories = append(sel.Categories, c)
	}

	if sel.Year, err = parseInt(q, "year", 1900, 9999); err != nil {
		return sel, time.Time{}, err
	}
	if sel.Month, err = parseInt(q, "month", 0, 12); err != nil {
		return sel, time.Time{}, err
	}
	return sel, ref, nil
}

func (h *Handler) parseDate(q url.Values, field string) (time.Time, error) {
	raw := strings.TrimSpace(q.Get(field))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, h.loc)
	if err != nil {
		return time.Time{}, validationError{field: field}
	}
	return t, nil
}

func parseInt(q url.Values, field string, lo, hi int) (int, error) {
	raw := strings.TrimSpace(q.Get(field))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, validationError{field: field}
	}
	return v, nil
}

// multi collects a repeatable parameter, also accepting comma separated lists.
func multi(q url.Values, field string) []string {
	var out []string
	for _, raw := range q[field] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
