// Package registry maps each company of the shared ledger to its current accounts.
package registry

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmpty is returned when no company is configured.
	ErrEmpty = errors.New("registry: no companies configured")
	// ErrDuplicateCompany is returned when two companies share a name.
	ErrDuplicateCompany = errors.New("registry: duplicate company")
	// ErrNoAccounts is returned when a company lists no accounts.
	ErrNoAccounts = errors.New("registry: company without accounts")
)

// Company groups the current accounts owned by one legal entity.
type Company struct {
	Name     string   `yaml:"name" json:"name"`
	Accounts []string `yaml:"accounts" json:"accounts"`
}

// Registry is an immutable, ordered set of companies.
type Registry struct {
	companies []Company
	byName    map[string]int
	owners    map[string]string
}

type fileFormat struct {
	Companies []Company `yaml:"companies"`
}

// New validates and indexes the given companies, keeping declaration order.
func New(companies ...Company) (*Registry, error) {
	if len(companies) == 0 {
		return nil, ErrEmpty
	}
	r := &Registry{
		companies: make([]Company, 0, len(companies)),
		byName:    make(map[string]int, len(companies)),
		owners:    make(map[string]string),
	}
	for _, c := range companies {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("registry: company name required")
		}
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCompany, name)
		}
		accounts := dedupe(c.Accounts)
		if len(accounts) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoAccounts, name)
		}
		r.byName[name] = len(r.companies)
		r.companies = append(r.companies, Company{Name: name, Accounts: accounts})
		for _, acct := range accounts {
			if _, taken := r.owners[acct]; !taken {
				r.owners[acct] = name
			}
		}
	}
	return r, nil
}

// Parse decodes a YAML registry document.
func Parse(data []byte) (*Registry, error) {
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("registry: decode: %w", err)
	}
	return New(doc.Companies...)
}

// Load reads the registry from path, falling back to Default when path is empty.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	return Parse(data)
}

// Names lists company names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.companies))
	for _, c := range r.companies {
		names = append(names, c.Name)
	}
	return names
}

// Companies returns a copy of the configured companies.
func (r *Registry) Companies() []Company {
	out := make([]Company, len(r.companies))
	for i, c := range r.companies {
		out[i] = Company{Name: c.Name, Accounts: append([]string(nil), c.Accounts...)}
	}
	return out
}

// Lookup finds a company by name.
func (r *Registry) Lookup(name string) (Company, bool) {
	idx, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return Company{}, false
	}
	c := r.companies[idx]
	return Company{Name: c.Name, Accounts: append([]string(nil), c.Accounts...)}, true
}

// Has reports whether name is a registered company.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[strings.TrimSpace(name)]
	return ok
}

// Accounts concatenates the accounts of the named companies in the order the
// names are given. Unknown names contribute nothing and repeated names are
// counted once.
func (r *Registry) Accounts(names ...string) []string {
	var out []string
	seen := make(map[int]struct{}, len(names))
	for _, name := range names {
		idx, ok := r.byName[strings.TrimSpace(name)]
		if !ok {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, r.companies[idx].Accounts...)
	}
	return out
}

// Owner returns the company that owns account. When an account is listed by
// more than one company the first declaration wins.
func (r *Registry) Owner(account string) (string, bool) {
	name, ok := r.owners[strings.TrimSpace(account)]
	return name, ok
}

func dedupe(accounts []string) []string {
	seen := make(map[string]struct{}, len(accounts))
	out := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		acct = strings.TrimSpace(acct)
		if acct == "" {
			continue
		}
		if _, ok := seen[acct]; ok {
			continue
		}
		seen[acct] = struct{}{}
		out = append(out, acct)
	}
	return out
}
