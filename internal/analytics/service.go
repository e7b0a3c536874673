// Package analytics assembles the report pages of the dashboard from
// parameterised queries over the shared accounting database.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plugtech/findash/internal/fetch"
	"github.com/plugtech/findash/internal/query"
	"github.com/plugtech/findash/internal/registry"
)

// User-facing section messages.
const (
	msgNoData      = "Sem dados para os filtros selecionados."
	msgQueryFailed = "Falha ao executar a consulta: %v"
	msgUnavailable = "Banco de dados indisponível. Os valores exibidos estão zerados."
)

// Config carries the business constants the reports depend on.
type Config struct {
	LegalCostCenter    int64
	OverdueGraceDays   int
	ExcludedAccountIDs []int64
	Location           *time.Location
}

// DefaultConfig mirrors the production constants.
func DefaultConfig() Config {
	return Config{
		LegalCostCenter:    query.DefaultLegalCode,
		OverdueGraceDays:   5,
		ExcludedAccountIDs: []int64{32, 33},
		Location:           time.UTC,
	}
}

// availability is implemented by fetchers that know whether a database is
// configured.
type availability interface {
	Available() bool
}

// Service builds report pages. It holds no per-request state.
type Service struct {
	registry *registry.Registry
	fetcher  fetch.Fetcher
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the registry and fetcher with the report constants.
func NewService(reg *registry.Registry, fetcher fetch.Fetcher, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LegalCostCenter == 0 {
		cfg.LegalCostCenter = query.DefaultLegalCode
	}
	return &Service{
		registry: reg,
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the reference clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Registry exposes the company registry.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Today returns the reference date in the configured zone.
func (s *Service) Today() time.Time {
	now := s.now().In(s.cfg.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
}

// civil keeps the calendar day of a DATE column in the report zone. Drivers
// hand DATE values back as midnight in UTC or the server zone.
func (s *Service) civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.cfg.Location)
}

// Location is the zone used for calendar bucketing.
func (s *Service) Location() *time.Location { return s.cfg.Location }

// Available reports whether the data source is configured.
func (s *Service) Available() bool {
	if a, ok := s.fetcher.(availability); ok {
		return a.Available()
	}
	return true
}

// SectionState is the outcome of one report section.
type SectionState string

const (
	SectionOK     SectionState = "ok"
	SectionEmpty  SectionState = "empty"
	SectionFailed SectionState = "failed"
)

// SectionStatus describes how a section rendered.
type SectionStatus struct {
	State   SectionState `json:"state"`
	Message string       `json:"message,omitempty"`
	Query   string       `json:"query,omitempty"`
}

// Sections maps section names to their status.
type Sections map[string]SectionStatus

// Failed lists the sections that failed.
func (s Sections) Failed() []string {
	var out []string
	for name, st := range s {
		if st.State == SectionFailed {
			out = append(out, name)
		}
	}
	return out
}

// Meta is shared by every page.
type Meta struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	Reference    time.Time       `json:"reference"`
	Selection    query.Selection `json:"selection"`
	Notice       string          `json:"notice,omitempty"`
	Unrestricted []string        `json:"unrestricted,omitempty"`
	Sections     Sections        `json:"sections"`
}

func (s *Service) newMeta(sel query.Selection, ref time.Time) Meta {
	m := Meta{
		GeneratedAt: s.now(),
		Reference:   ref,
		Selection:   sel,
		Sections:    Sections{},
	}
	if !s.Available() {
		m.Notice = msgUnavailable
	}
	return m
}

func (s *Service) builder(aliases query.Aliases) *query.Builder {
	return query.New(s.registry, aliases,
		query.WithLegalCode(s.cfg.LegalCostCenter),
		query.WithLogger(s.logger))
}

// load runs one section statement and records its status. The returned flag
// is false when the section has nothing usable.
func (s *Service) load(ctx context.Context, meta *Meta, section string, b *query.Builder, head string, headArgs []any, tail string) (fetch.Table, bool) {
	clause, err := b.Build()
	if err == nil {
		meta.noteUnrestricted(clause.Unrestricted)
		var stmt query.Statement
		stmt, err = clause.Statement(head, headArgs, tail)
		if err == nil {
			return s.run(ctx, meta, section, stmt)
		}
	}
	s.logger.Error("report statement rejected", slog.String("section", section), slog.Any("error", err))
	meta.Sections[section] = SectionStatus{State: SectionFailed, Message: fmt.Sprintf(msgQueryFailed, err)}
	return fetch.Table{}, false
}

func (s *Service) run(ctx context.Context, meta *Meta, section string, stmt query.Statement) (fetch.Table, bool) {
	table, err := s.fetcher.Fetch(ctx, stmt)
	if err != nil {
		status := SectionStatus{State: SectionFailed, Message: fmt.Sprintf(msgQueryFailed, err), Query: stmt.Text}
		var qerr *fetch.QueryError
		if errors.As(err, &qerr) {
			status.Message = fmt.Sprintf(msgQueryFailed, qerr.Err)
			status.Query = qerr.Query
		}
		meta.Sections[section] = status
		return fetch.Table{}, false
	}
	if table.Empty() {
		meta.Sections[section] = SectionStatus{State: SectionEmpty, Message: msgNoData}
		return table, false
	}
	meta.Sections[section] = SectionStatus{State: SectionOK}
	return table, true
}

func (m *Meta) noteUnrestricted(axes []string) {
	for _, axis := range axes {
		seen := false
		for _, existing := range m.Unrestricted {
			if existing == axis {
				seen = true
				break
			}
		}
		if !seen {
			m.Unrestricted = append(m.Unrestricted, axis)
		}
	}
}

func decimalOrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func receivableTypes() []any { return []any{"RE", "RP"} }

