// Package query turns a report Selection into SQL predicates, joins and the
// positional arguments that go with them.
package query

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plugtech/findash/internal/registry"
)

// Aliases of the equipment chain joined for category filters.
const (
	AliasContractEquipment = "ce"
	AliasEquipmentItem     = "ei"
	AliasProduct           = "pr"
)

// Aliases names the tables of the caller's base query that filters attach to.
type Aliases struct {
	// Ledger is the table carrying IDLOJA and COD_CENTRO_CUSTO.
	Ledger string
	// Account is the current-account table alias. Defaults to "cc".
	Account string
	// Contract is the contract table alias.
	Contract string
}

// Axis names reported in Clause.Unrestricted.
const (
	AxisCompanies  = "companies"
	AxisCategories = "categories"
)

// Clause is the output of a Builder. Args holds one value per placeholder in
// Predicates, in the order the predicates appear.
type Clause struct {
	Joins        []string
	Predicates   []string
	Args         []any
	Unrestricted []string
}

// Option customises a Builder.
type Option func(*Builder)

// WithLegalCode overrides the collections cost center code.
func WithLegalCode(code int64) Option {
	return func(b *Builder) { b.legalCode = code }
}

// WithLogger attaches a logger used to report degraded filter axes.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder accumulates predicates for a single statement. It is not safe for
// concurrent use.
type Builder struct {
	registry  *registry.Registry
	aliases   Aliases
	legalCode int64
	logger    *slog.Logger

	present      map[string]struct{}
	joins        []string
	predicates   []string
	args         []any
	unrestricted []string
	err          error
}

// New creates a Builder bound to the company registry and base query aliases.
func New(reg *registry.Registry, aliases Aliases, opts ...Option) *Builder {
	if aliases.Account == "" {
		aliases.Account = "cc"
	}
	b := &Builder{
		registry:  reg,
		aliases:   aliases,
		legalCode: DefaultLegalCode,
		logger:    slog.Default(),
		present:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Present declares aliases already joined by the base query so the builder
// never emits them again.
func (b *Builder) Present(aliases ...string) *Builder {
	for _, alias := range aliases {
		b.present[alias] = struct{}{}
	}
	return b
}

// Where appends a literal predicate with its arguments.
func (b *Builder) Where(fragment string, args ...any) *Builder {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return b
	}
	if n := CountPlaceholders(fragment); n != len(args) {
		b.fail(fmt.Errorf("%w: %q has %d placeholders, %d args", ErrPlaceholderMismatch, fragment, n, len(args)))
		return b
	}
	b.predicates = append(b.predicates, fragment)
	b.args = append(b.args, args...)
	return b
}

// In appends "col IN (?, ...)" for values. An empty list adds nothing.
func (b *Builder) In(col string, values ...any) *Builder {
	if len(values) == 0 {
		return b
	}
	return b.Where(fmt.Sprintf("%s IN (%s)", col, placeholders(len(values))), values...)
}

// NotIn appends "col NOT IN (?, ...)" for values. An empty list adds nothing.
func (b *Builder) NotIn(col string, values ...any) *Builder {
	if len(values) == 0 {
		return b
	}
	return b.Where(fmt.Sprintf("%s NOT IN (%s)", col, placeholders(len(values))), values...)
}

// DateRange restricts col to the calendar days from..to, both inclusive. The
// upper bound is exclusive on the following day so timestamps on the last
// day still match.
func (b *Builder) DateRange(col string, from, to time.Time) *Builder {
	return b.Where(fmt.Sprintf("%s >= ? AND %s < ?", col, col), civil(from), civil(to).AddDate(0, 0, 1))
}

// Before restricts col to values strictly earlier than the calendar day t.
func (b *Builder) Before(col string, t time.Time) *Builder {
	return b.Where(col+" < ?", civil(t))
}

// Year restricts the year part of col.
func (b *Builder) Year(col string, year int) *Builder {
	if year == 0 {
		return b
	}
	return b.Where("EXTRACT(YEAR FROM "+col+") = ?", year)
}

// Month restricts the month part of col. Zero means the whole year.
func (b *Builder) Month(col string, month int) *Builder {
	if month == 0 {
		return b
	}
	return b.Where("EXTRACT(MONTH FROM "+col+") = ?", month)
}

// Companies restricts rows to the current accounts of the named companies.
// No names means no restriction. Names that resolve to no account also
// leave the axis unrestricted and are reported in Clause.Unrestricted.
func (b *Builder) Companies(names []string) *Builder {
	if len(names) == 0 {
		return b
	}
	accounts := b.registry.Accounts(names...)
	if len(accounts) == 0 {
		b.unrestricted = append(b.unrestricted, AxisCompanies)
		b.logger.Warn("company selection matched no account, filter ignored", slog.Any("companies", names))
		return b
	}
	args := make([]any, len(accounts))
	for i, acct := range accounts {
		args[i] = acct
	}
	acctAlias := b.aliases.Account
	if _, ok := b.present[acctAlias]; ok {
		return b.In(acctAlias+".NOME_CONTA", args...)
	}
	if b.aliases.Ledger == "" {
		b.fail(fmt.Errorf("query: company filter needs a ledger alias"))
		return b
	}
	sub := fmt.Sprintf("%s.IDLOJA IN (SELECT %s.IDLOJA FROM CONTAS_CORRENTE %s WHERE %s.NOME_CONTA IN (%s))",
		b.aliases.Ledger, acctAlias, acctAlias, acctAlias, placeholders(len(args)))
	return b.Where(sub, args...)
}

// ExcludeAccounts drops the current accounts with the given ids. With the
// account alias joined it filters that alias; otherwise the ledger rows are
// limited to stores that keep at least one other account.
func (b *Builder) ExcludeAccounts(ids []int64) *Builder {
	if len(ids) == 0 {
		return b
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	acctAlias := b.aliases.Account
	if _, ok := b.present[acctAlias]; ok {
		return b.NotIn(acctAlias+".IDCONTA_CORRENTE", args...)
	}
	if b.aliases.Ledger == "" {
		b.fail(fmt.Errorf("query: account exclusion needs a ledger alias"))
		return b
	}
	sub := fmt.Sprintf("%s.IDLOJA IN (SELECT %s.IDLOJA FROM CONTAS_CORRENTE %s WHERE %s.IDCONTA_CORRENTE NOT IN (%s))",
		b.aliases.Ledger, acctAlias, acctAlias, acctAlias, placeholders(len(args)))
	return b.Where(sub, args...)
}

// Legal applies the collections cost center filter to the ledger alias.
func (b *Builder) Legal(status LegalStatus) *Builder {
	col := b.aliases.Ledger + ".COD_CENTRO_CUSTO"
	switch status {
	case LegalOnly:
		return b.Where(col+" = ?", b.legalCode)
	case LegalExclude:
		return b.Where(fmt.Sprintf("(%s IS NULL OR %s <> ?)", col, col), b.legalCode)
	}
	return b
}

// ContractStatuses restricts the contract status column.
func (b *Builder) ContractStatuses(codes []string) *Builder {
	if len(codes) == 0 {
		return b
	}
	args := make([]any, len(codes))
	for i, code := range codes {
		args[i] = code
	}
	return b.In(b.aliases.Contract+".SITUACAO", args...)
}

// Categories restricts rows to products of the given categories, joining
// contract, equipment and product tables as needed. An empty or complete
// list means no restriction.
func (b *Builder) Categories(cats []Category) *Builder {
	if coversAll(cats) {
		return b
	}
	var conds []string
	seen := make(map[Category]struct{}, len(cats))
	for _, c := range cats {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if pred := CategoryPredicate(c, AliasProduct+".DESCRICAO_PRODUTO"); pred != "" {
			conds = append(conds, pred)
		}
	}
	if len(conds) == 0 {
		b.unrestricted = append(b.unrestricted, AxisCategories)
		b.logger.Warn("category selection matched no rule, filter ignored", slog.Any("categories", cats))
		return b
	}
	if b.aliases.Contract == "" {
		b.fail(fmt.Errorf("query: category filter needs a contract alias"))
		return b
	}
	b.join(AliasContractEquipment, fmt.Sprintf("JOIN CONTRATOS_EQUIPAMENTO %s ON %s.IDCONTRATO = %s.IDCONTRATO", AliasContractEquipment, b.aliases.Contract, AliasContractEquipment))
	b.join(AliasEquipmentItem, fmt.Sprintf("JOIN EQUIPAMENTOS_ITENS %s ON %s.IDEQUIPAMENTO_ITEM = %s.IDEQUIPAMENTO_ITEM", AliasEquipmentItem, AliasContractEquipment, AliasEquipmentItem))
	b.join(AliasProduct, fmt.Sprintf("JOIN PRODUTOS %s ON %s.IDPRODUTO = %s.IDPRODUTO", AliasProduct, AliasEquipmentItem, AliasProduct))
	return b.Where("(" + strings.Join(conds, " OR ") + ")")
}

// Build returns the accumulated clause or the first error recorded.
func (b *Builder) Build() (Clause, error) {
	if b.err != nil {
		return Clause{}, b.err
	}
	clause := Clause{
		Joins:        append([]string(nil), b.joins...),
		Predicates:   append([]string(nil), b.predicates...),
		Args:         append([]any(nil), b.args...),
		Unrestricted: append([]string(nil), b.unrestricted...),
	}
	total := 0
	for _, pred := range clause.Predicates {
		total += CountPlaceholders(pred)
	}
	if total != len(clause.Args) {
		return Clause{}, fmt.Errorf("%w: %d placeholders, %d args", ErrPlaceholderMismatch, total, len(clause.Args))
	}
	return clause, nil
}

// Statement is a shortcut for Build followed by Clause.Statement.
func (b *Builder) Statement(head string, headArgs []any, tail string) (Statement, error) {
	clause, err := b.Build()
	if err != nil {
		return Statement{}, err
	}
	return clause.Statement(head, headArgs, tail)
}

func (b *Builder) join(alias, clause string) {
	if _, ok := b.present[alias]; ok {
		return
	}
	b.present[alias] = struct{}{}
	b.joins = append(b.joins, clause)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Where renders the predicates as a WHERE clause, or "" when there are none.
func (c Clause) Where() string {
	if len(c.Predicates) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(c.Predicates, " AND ")
}

// Statement composes head, joins, WHERE and tail. headArgs bind placeholders
// found in head and precede the clause arguments. tail must not carry
// placeholders.
func (c Clause) Statement(head string, headArgs []any, tail string) (Statement, error) {
	if n := CountPlaceholders(head); n != len(headArgs) {
		return Statement{}, fmt.Errorf("%w: head has %d placeholders, %d args", ErrPlaceholderMismatch, n, len(headArgs))
	}
	if CountPlaceholders(tail) != 0 {
		return Statement{}, fmt.Errorf("%w: tail must not bind arguments", ErrPlaceholderMismatch)
	}
	parts := []string{strings.TrimSpace(head)}
	parts = append(parts, c.Joins...)
	if where := c.Where(); where != "" {
		parts = append(parts, where)
	}
	if tail = strings.TrimSpace(tail); tail != "" {
		parts = append(parts, tail)
	}
	args := make([]any, 0, len(headArgs)+len(c.Args))
	args = append(args, headArgs...)
	args = append(args, c.Args...)
	return NewStatement(strings.Join(parts, "\n"), args...)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
