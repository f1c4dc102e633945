// Package registry loads the account registry and customer definitions that
// network synthesis reads. Both are loaded once per process and treated as
// immutable afterwards.
package registry

import (
	"fmt"
	"net/netip"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// AccountRole classifies an account for cross-account sharing decisions.
type AccountRole string

const (
	RoleProductionHub    AccountRole = "production-hub"
	RoleNonProductionHub AccountRole = "nonproduction-hub"
	RoleSandboxHub       AccountRole = "sandbox-hub"
	RoleWorkload         AccountRole = "workload"
)

// Valid reports whether r is a known role.
func (r AccountRole) Valid() bool {
	switch r {
	case RoleProductionHub, RoleNonProductionHub, RoleSandboxHub, RoleWorkload:
		return true
	}
	return false
}

// CidrSlot names one of an account's CIDR allocations.
type CidrSlot string

const (
	SlotPrimary  CidrSlot = "primary"
	SlotRecovery CidrSlot = "recovery"
	SlotLegacy   CidrSlot = "legacy"
)

// CidrAllocations are the VPC CIDRs reserved for an account.
type CidrAllocations struct {
	Primary  string `yaml:"primary"`
	Recovery string `yaml:"recovery,omitempty"`
	Legacy   string `yaml:"legacy,omitempty"`
}

// Account is one named cloud account.
type Account struct {
	Name  string          `yaml:"name"`
	ID    string          `yaml:"id"`
	Role  AccountRole     `yaml:"role"`
	OU    string          `yaml:"ou"`
	Cidrs CidrAllocations `yaml:"cidrs"`
}

// Cidr returns the allocation for a slot.
func (a Account) Cidr(slot CidrSlot) (netip.Prefix, error) {
	var raw string
	switch slot {
	case SlotPrimary, "":
		raw = a.Cidrs.Primary
	case SlotRecovery:
		raw = a.Cidrs.Recovery
	case SlotLegacy:
		raw = a.Cidrs.Legacy
	default:
		return netip.Prefix{}, fmt.Errorf("account %s: unknown cidr slot %q", a.Name, slot)
	}
	if raw == "" {
		return netip.Prefix{}, fmt.Errorf("account %s: no %s cidr allocated", a.Name, slot)
	}
	p, err := netip.ParsePrefix(raw)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("account %s: %s cidr: %w", a.Name, slot, err)
	}
	return p, nil
}

// OrganizationalUnit is a named grouping of accounts usable as a sharing
// principal.
type OrganizationalUnit struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

// CrossTenantException names the single customer whose subnets are also
// shared with one additional account.
type CrossTenantException struct {
	Customer string `yaml:"customer"`
	Account  string `yaml:"account"`
}

// Registry is the account registry.
type Registry struct {
	OrganizationID      string               `yaml:"organizationId"`
	ManagementAccountID string               `yaml:"managementAccountId"`
	PrimaryRegion       string               `yaml:"primaryRegion"`
	RecoveryRegion      string               `yaml:"recoveryRegion,omitempty"`
	OUs                 []OrganizationalUnit `yaml:"organizationalUnits"`
	Accounts            []Account            `yaml:"accounts"`
	CrossTenant         CrossTenantException `yaml:"crossTenantException,omitempty"`

	byName map[string]Account
	byID   map[string]Account
	ous    map[string]OrganizationalUnit
}

var (
	accountIDPattern = regexp.MustCompile(`^[0-9]{12}$`)
	ouIDPattern      = regexp.MustCompile(`^ou-[0-9a-z]{4,32}-[0-9a-z]{8,32}$`)
)

// LoadRegistry reads and validates an account registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading account registry: %w", err)
	}
	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// ParseRegistry decodes and validates registry YAML.
func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing account registry: %w", err)
	}
	if err := reg.index(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// NewRegistry builds a registry from values, validating it as LoadRegistry
// does.
func NewRegistry(reg Registry) (*Registry, error) {
	if err := reg.index(); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Registry) index() error {
	if r.PrimaryRegion == "" {
		return fmt.Errorf("primaryRegion is required")
	}

	r.byName = make(map[string]Account, len(r.Accounts))
	r.byID = make(map[string]Account, len(r.Accounts))
	r.ous = make(map[string]OrganizationalUnit, len(r.OUs))

	for _, ou := range r.OUs {
		if ou.Name == "" {
			return fmt.Errorf("organizational unit with id %q has no name", ou.ID)
		}
		if !ouIDPattern.MatchString(ou.ID) {
			return fmt.Errorf("organizational unit %s: invalid id %q", ou.Name, ou.ID)
		}
		if _, dup := r.ous[ou.Name]; dup {
			return fmt.Errorf("duplicate organizational unit %q", ou.Name)
		}
		r.ous[ou.Name] = ou
	}

	for i := range r.Accounts {
		a := &r.Accounts[i]
		if a.Name == "" {
			return fmt.Errorf("account with id %q has no name", a.ID)
		}
		if !accountIDPattern.MatchString(a.ID) {
			return fmt.Errorf("account %s: invalid id %q", a.Name, a.ID)
		}
		if a.Role == "" {
			a.Role = RoleWorkload
		}
		if !a.Role.Valid() {
			return fmt.Errorf("account %s: unknown role %q", a.Name, a.Role)
		}
		if a.OU != "" {
			if _, ok := r.ous[a.OU]; !ok {
				return fmt.Errorf("account %s: unknown organizational unit %q", a.Name, a.OU)
			}
		}
		if _, dup := r.byName[a.Name]; dup {
			return fmt.Errorf("duplicate account name %q", a.Name)
		}
		if _, dup := r.byID[a.ID]; dup {
			return fmt.Errorf("duplicate account id %q", a.ID)
		}
		r.byName[a.Name] = *a
		r.byID[a.ID] = *a
	}
	return nil
}

// Account looks up an account by name.
func (r *Registry) Account(name string) (Account, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// AccountByID looks up an account by its numeric id.
func (r *Registry) AccountByID(id string) (Account, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// OU looks up an organizational unit by name.
func (r *Registry) OU(name string) (OrganizationalUnit, bool) {
	ou, ok := r.ous[name]
	return ou, ok
}

// OUArn returns the ARN RAM expects for an organizational unit principal.
func (r *Registry) OUArn(ou OrganizationalUnit) string {
	return fmt.Sprintf("arn:aws:organizations::%s:ou/%s/%s", r.ManagementAccountID, r.OrganizationID, ou.ID)
}

// AccountNames returns all account names, sorted.
func (r *Registry) AccountNames() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
