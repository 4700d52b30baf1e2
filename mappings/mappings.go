// ABOUTME: Name dictionary plus domain, company and path context mappings
// ABOUTME: Loaded from YAML with embedded defaults and consumed by the resolver
package mappings

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
)

//go:embed defaults.yaml
var defaultMappingsYAML []byte

// DefaultPathDepth is the vault context depth used when a rule does not set one.
const DefaultPathDepth = 2

type DomainMapping struct {
	Category      string   `yaml:"category"`
	VaultContexts []string `yaml:"vault_contexts"`
}

type CompanyMapping struct {
	Domains       []string `yaml:"domains"`
	VaultContexts []string `yaml:"vault_contexts"`
}

type PathRule struct {
	Prefix   string `yaml:"prefix"`
	Category string `yaml:"category"`
	Depth    int    `yaml:"depth"`
}

type LabelRule struct {
	Match string `yaml:"match"`
	Label string `yaml:"label"`
}

// Mappings holds every lookup table the resolver consults. Keys of Names,
// Domains and Companies are compared case-insensitively.
type Mappings struct {
	Names                map[string]string         `yaml:"names"`
	Domains              map[string]DomainMapping  `yaml:"domains"`
	DomainAliases        map[string]string         `yaml:"domain_aliases"`
	Companies            map[string]CompanyMapping `yaml:"companies"`
	PersonalDomains      []string                  `yaml:"personal_domains"`
	PathCategories       []PathRule                `yaml:"path_categories"`
	DisambiguationLabels []LabelRule               `yaml:"disambiguation_labels"`
}

// Default returns the embedded mappings.
func Default() *Mappings {
	m, err := parse(defaultMappingsYAML, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded mappings are invalid: %v", err))
	}
	return m
}

// Load layers the YAML file at path over the embedded defaults. An empty path
// or a missing file yields the defaults.
func Load(path string) (*Mappings, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings: %w", err)
	}

	m, err := parse(data, base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mappings %s: %w", path, err)
	}
	return m, nil
}

func parse(data []byte, base *Mappings) (*Mappings, error) {
	m := base
	if m == nil {
		m = &Mappings{}
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, err
	}
	m.normalize()
	return m, nil
}

func (m *Mappings) normalize() {
	dict := make(map[string]string, len(m.Names))
	for k, v := range m.Names {
		dict[strings.ToLower(strings.TrimSpace(k))] = v
	}
	m.Names = dict

	domains := make(map[string]DomainMapping, len(m.Domains))
	for k, v := range m.Domains {
		v.VaultContexts = normalizePaths(v.VaultContexts)
		domains[strings.ToLower(k)] = v
	}
	m.Domains = domains

	aliases := make(map[string]string, len(m.DomainAliases))
	for k, v := range m.DomainAliases {
		aliases[strings.ToLower(k)] = strings.ToLower(v)
	}
	m.DomainAliases = aliases

	companies := make(map[string]CompanyMapping, len(m.Companies))
	for k, v := range m.Companies {
		v.VaultContexts = normalizePaths(v.VaultContexts)
		for i := range v.Domains {
			v.Domains[i] = strings.ToLower(v.Domains[i])
		}
		companies[strings.ToLower(strings.TrimSpace(k))] = v
	}
	m.Companies = companies

	for i := range m.PathCategories {
		m.PathCategories[i].Prefix = names.NormalizeContextPath(m.PathCategories[i].Prefix)
		if m.PathCategories[i].Depth <= 0 {
			m.PathCategories[i].Depth = DefaultPathDepth
		}
	}
}

func normalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if n := names.NormalizeContextPath(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// ResolvePersonName collapses a known alias spelling to its canonical form.
func (m *Mappings) ResolvePersonName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if canonical, ok := m.Names[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// NormalizeDomain extracts an email's domain and applies domain aliases.
func (m *Mappings) NormalizeDomain(email string) string {
	domain := names.EmailDomain(email)
	if domain == "" {
		return ""
	}
	if alias, ok := m.DomainAliases[domain]; ok {
		return alias
	}
	return domain
}

func (m *Mappings) VaultContextsForDomain(domain string) []string {
	return m.Domains[strings.ToLower(domain)].VaultContexts
}

// CategoryForDomain returns the mapped category, personal for consumer mail
// providers, or unknown.
func (m *Mappings) CategoryForDomain(domain string) string {
	domain = strings.ToLower(domain)
	if mapping, ok := m.Domains[domain]; ok && mapping.Category != "" {
		return mapping.Category
	}
	for _, personal := range m.PersonalDomains {
		if strings.EqualFold(personal, domain) {
			return models.CategoryPersonal
		}
	}
	return models.CategoryUnknown
}

func (m *Mappings) DomainsForCompany(company string) []string {
	return m.Companies[strings.ToLower(strings.TrimSpace(company))].Domains
}

func (m *Mappings) VaultContextsForCompany(company string) []string {
	return m.Companies[strings.ToLower(strings.TrimSpace(company))].VaultContexts
}

// CategoryForPath applies the first matching path rule and returns the category
// and the vault context prefix to record. Unmatched paths are unknown and keep
// a default-depth prefix.
func (m *Mappings) CategoryForPath(contextPath string) (string, string) {
	normalized := names.NormalizeContextPath(contextPath)
	if normalized == "" {
		return models.CategoryUnknown, ""
	}
	for _, rule := range m.PathCategories {
		if strings.HasPrefix(strings.ToLower(normalized), strings.ToLower(rule.Prefix)) {
			return rule.Category, names.ContextPrefix(normalized, rule.Depth)
		}
	}
	return models.CategoryUnknown, names.ContextPrefix(normalized, DefaultPathDepth)
}

// LabelForPath returns the disambiguation label for the first rule whose
// substring appears in the path.
func (m *Mappings) LabelForPath(contextPath string) string {
	normalized := names.NormalizeContextPath(contextPath)
	if normalized == "" {
		return ""
	}
	for _, rule := range m.DisambiguationLabels {
		if rule.Match != "" && strings.Contains(strings.ToLower(normalized), strings.ToLower(rule.Match)) {
			return rule.Label
		}
	}
	return ""
}
