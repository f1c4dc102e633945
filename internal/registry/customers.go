package registry

import (
	"fmt"
	"net/netip"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-network-go/internal/descriptor"
)

// CidrKey selects one customer reservation: a region plus an account type
// such as "production" or "nonproduction".
type CidrKey struct {
	Region      string
	AccountType string
}

func (k CidrKey) String() string {
	return k.Region + "/" + k.AccountType
}

// ParseCidrKey parses "region/accountType".
func ParseCidrKey(s string) (CidrKey, error) {
	region, accountType, ok := strings.Cut(s, "/")
	if !ok || region == "" || accountType == "" {
		return CidrKey{}, fmt.Errorf("invalid customer cidr key %q (want region/accountType)", s)
	}
	return CidrKey{Region: region, AccountType: accountType}, nil
}

// CustomerDefinition describes one customer: which accounts may consume its
// subnets and the per-AZ CIDRs reserved for it.
type CustomerDefinition struct {
	Name     string   `yaml:"name"`
	Accounts []string `yaml:"accounts"`
	// Reservations maps "region/accountType" to CIDRs in AZ order.
	Reservations map[string][]string `yaml:"reservations"`
}

// Reservation returns the per-AZ CIDRs for key, in AZ order.
func (c CustomerDefinition) Reservation(key CidrKey) ([]netip.Prefix, bool, error) {
	raw, ok := c.Reservations[key.String()]
	if !ok || len(raw) == 0 {
		return nil, false, nil
	}
	out := make([]netip.Prefix, len(raw))
	for i, s := range raw {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, true, fmt.Errorf("customer %s: reservation %s[%d]: %w", c.Name, key, i, err)
		}
		out[i] = p.Masked()
	}
	return out, true, nil
}

// Customers is the loaded set of customer definitions.
type Customers struct {
	Definitions []CustomerDefinition `yaml:"customers"`
}

// LoadCustomers reads and validates a customer definitions file.
func LoadCustomers(path string) (*Customers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading customer definitions: %w", err)
	}
	c, err := ParseCustomers(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCustomers decodes and validates customer definitions YAML.
func ParseCustomers(data []byte) (*Customers, error) {
	var c Customers
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing customer definitions: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks names, account ids and reservation keys. Names must stay
// distinct once folded into logical ids, so "acme-co" and "acme_co" cannot
// both be defined.
func (c *Customers) Validate() error {
	seen := make(map[string]string, len(c.Definitions))
	for _, def := range c.Definitions {
		if def.Name == "" {
			return fmt.Errorf("customer definition without a name")
		}
		id := descriptor.PascalCase(def.Name)
		if id == "" {
			return fmt.Errorf("customer %q: name has no letters or digits", def.Name)
		}
		if prev, dup := seen[id]; dup {
			if prev == def.Name {
				return fmt.Errorf("duplicate customer %q", def.Name)
			}
			return fmt.Errorf("customers %q and %q both map to logical id %s", prev, def.Name, id)
		}
		seen[id] = def.Name

		for _, id := range def.Accounts {
			if !accountIDPattern.MatchString(id) {
				return fmt.Errorf("customer %s: invalid account id %q", def.Name, id)
			}
		}
		for key := range def.Reservations {
			k, err := ParseCidrKey(key)
			if err != nil {
				return fmt.Errorf("customer %s: %w", def.Name, err)
			}
			if _, _, err := def.Reservation(k); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckCrossTenant rejects a cross-tenant exception whose account is already
// one of the named customer's accounts. Unknown customers and accounts are
// left to synthesis, which reports them per VPC.
func (c *Customers) CheckCrossTenant(reg *Registry) error {
	ex := reg.CrossTenant
	def, ok := c.Get(ex.Customer)
	if !ok {
		return nil
	}
	acct, ok := reg.Account(ex.Account)
	if !ok {
		return nil
	}
	for _, id := range def.Accounts {
		if id == acct.ID {
			return fmt.Errorf("crossTenantException: account %s (%s) is already an account of customer %s", acct.Name, acct.ID, def.Name)
		}
	}
	return nil
}

// Sorted returns the definitions ordered by customer name.
func (c *Customers) Sorted() []CustomerDefinition {
	if c == nil {
		return nil
	}
	out := append([]CustomerDefinition(nil), c.Definitions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get looks up a customer by name.
func (c *Customers) Get(name string) (CustomerDefinition, bool) {
	if c == nil {
		return CustomerDefinition{}, false
	}
	for _, def := range c.Definitions {
		if def.Name == name {
			return def, true
		}
	}
	return CustomerDefinition{}, false
}
