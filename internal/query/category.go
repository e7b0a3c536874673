package query

import (
	"fmt"
	"strings"
)

// Category is an equipment family derived from the product description.
type Category string

// Categories in precedence order. A description belongs to the first category
// whose patterns it contains; CategoryOther collects everything else.
const (
	CategoryColor    Category = "color"
	CategoryMono     Category = "mono"
	CategoryDesktop  Category = "desktop"
	CategoryMonitor  Category = "monitor"
	CategoryNotebook Category = "notebook"
	CategoryOther    Category = "other"
)

type categoryRule struct {
	category Category
	label    string
	patterns []string
}

var categoryRules = []categoryRule{
	{category: CategoryColor, label: "Impressoras Coloridas", patterns: []string{"COLOR"}},
	{category: CategoryMono, label: "Impressoras Monocromáticas", patterns: []string{"MONO"}},
	{category: CategoryDesktop, label: "Desktop", patterns: []string{"DESKTOP", "CPU"}},
	{category: CategoryMonitor, label: "Monitor", patterns: []string{"MONITOR"}},
	{category: CategoryNotebook, label: "Notebook", patterns: []string{"NOTEBOOK"}},
}

const otherLabel = "Outros"

// Categories lists every category in precedence order, CategoryOther last.
func Categories() []Category {
	out := make([]Category, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		out = append(out, rule.category)
	}
	return append(out, CategoryOther)
}

// Label returns the display name of the category.
func (c Category) Label() string {
	for _, rule := range categoryRules {
		if rule.category == c {
			return rule.label
		}
	}
	if c == CategoryOther {
		return otherLabel
	}
	return string(c)
}

// ParseCategory accepts a category code or its display label.
func ParseCategory(raw string) (Category, error) {
	value := strings.TrimSpace(raw)
	for _, c := range Categories() {
		if strings.EqualFold(value, string(c)) || strings.EqualFold(value, c.Label()) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: category %q", ErrInvalidSelection, raw)
}

// Classify applies the category rules to a product description.
func Classify(description string) Category {
	upper := strings.ToUpper(description)
	for _, rule := range categoryRules {
		for _, pattern := range rule.patterns {
			if strings.Contains(upper, pattern) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// CategoryPredicate renders the SQL condition selecting rows of category c
// from column col. Each category excludes every earlier one, so the
// predicates partition the rows.
func CategoryPredicate(c Category, col string) string {
	expr := normalizedColumn(col)
	if c == CategoryOther {
		return "NOT " + anyOf(expr, allPatterns(len(categoryRules)))
	}
	for i, rule := range categoryRules {
		if rule.category != c {
			continue
		}
		own := anyOf(expr, rule.patterns)
		if i == 0 {
			return own
		}
		return "(" + own + " AND NOT " + anyOf(expr, allPatterns(i)) + ")"
	}
	return ""
}

// CaseExpression renders a CASE expression that yields the category code of
// column col. It is meant for SELECT lists and GROUP BY clauses.
func CaseExpression(col string) string {
	expr := normalizedColumn(col)
	var b strings.Builder
	b.WriteString("CASE")
	for _, rule := range categoryRules {
		b.WriteString(" WHEN ")
		b.WriteString(anyOf(expr, rule.patterns))
		b.WriteString(" THEN '")
		b.WriteString(string(rule.category))
		b.WriteString("'")
	}
	b.WriteString(" ELSE '")
	b.WriteString(string(CategoryOther))
	b.WriteString("' END")
	return b.String()
}

// coversAll reports whether cats is empty or names every category.
func coversAll(cats []Category) bool {
	if len(cats) == 0 {
		return true
	}
	seen := make(map[Category]struct{}, len(cats))
	for _, c := range cats {
		seen[c] = struct{}{}
	}
	for _, c := range Categories() {
		if _, ok := seen[c]; !ok {
			return false
		}
	}
	return true
}

func normalizedColumn(col string) string {
	return "UPPER(COALESCE(" + col + ", ''))"
}

func allPatterns(n int) []string {
	var out []string
	for _, rule := range categoryRules[:n] {
		out = append(out, rule.patterns...)
	}
	return out
}

func anyOf(expr string, patterns []string) string {
	parts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		parts = append(parts, expr+" LIKE '%"+p+"%'")
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
