// Package config loads the environment file that names the VPCs to
// synthesize and the registry and customer files they are checked against.
package config

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-network-go/internal/azs"
	"github.com/lex00/wetwire-network-go/internal/registry"
	"github.com/lex00/wetwire-network-go/internal/topology"
)

// DefaultAZCount is the number of availability zones resolved for a VPC that
// lists none.
const DefaultAZCount = 3

// VPC is one environment entry.
type VPC struct {
	Name    string `yaml:"name"`
	Account string `yaml:"account"`
	Region  string `yaml:"region,omitempty"`
	Role    string `yaml:"role"`

	// Cidr and CidrSlot are mutually exclusive; an entry with neither uses
	// the account's primary allocation.
	Cidr           string   `yaml:"cidr,omitempty"`
	CidrSlot       string   `yaml:"cidrSlot,omitempty"`
	SecondaryCidrs []string `yaml:"secondaryCidrs,omitempty"`

	AZs     []string `yaml:"azs,omitempty"`
	AZCount int      `yaml:"azCount,omitempty"`

	SubdivisionBits  int    `yaml:"subdivisionBits,omitempty"`
	TransitGatewayID string `yaml:"transitGatewayId,omitempty"`
	AccountType      string `yaml:"accountType,omitempty"`
}

// Environment is a parsed environment file.
type Environment struct {
	Registry  string `yaml:"registry"`
	Customers string `yaml:"customers,omitempty"`
	VPCs      []VPC  `yaml:"vpcs"`

	// dir resolves relative registry and customer paths.
	dir string
}

// Load reads and validates an environment file. Relative paths inside it
// are resolved against the file's directory.
func Load(path string) (*Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	env, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

// Parse decodes and validates environment YAML. dir is the base for relative
// paths.
func Parse(data []byte, dir string) (*Environment, error) {
	var env Environment
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	env.dir = dir
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Validate checks the entries without consulting the registry.
func (e *Environment) Validate() error {
	if e.Registry == "" {
		return fmt.Errorf("registry is required")
	}
	if len(e.VPCs) == 0 {
		return fmt.Errorf("no vpcs defined")
	}

	seen := make(map[string]bool, len(e.VPCs))
	for _, v := range e.VPCs {
		if v.Name == "" {
			return fmt.Errorf("vpc entry for account %q has no name", v.Account)
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate vpc %q", v.Name)
		}
		seen[v.Name] = true

		if v.Account == "" {
			return fmt.Errorf("vpc %s: account is required", v.Name)
		}
		if _, err := topology.RoleByName(v.Role); err != nil {
			return fmt.Errorf("vpc %s: %w", v.Name, err)
		}
		if v.Cidr != "" && v.CidrSlot != "" {
			return fmt.Errorf("vpc %s: cidr and cidrSlot are mutually exclusive", v.Name)
		}
		if v.Cidr != "" {
			if _, err := netip.ParsePrefix(v.Cidr); err != nil {
				return fmt.Errorf("vpc %s: cidr: %w", v.Name, err)
			}
		}
		switch registry.CidrSlot(v.CidrSlot) {
		case "", registry.SlotPrimary, registry.SlotRecovery, registry.SlotLegacy:
		default:
			return fmt.Errorf("vpc %s: unknown cidrSlot %q", v.Name, v.CidrSlot)
		}
		for _, s := range v.SecondaryCidrs {
			if _, err := netip.ParsePrefix(s); err != nil {
				return fmt.Errorf("vpc %s: secondary cidr: %w", v.Name, err)
			}
		}
		if v.AZCount < 0 {
			return fmt.Errorf("vpc %s: azCount must not be negative", v.Name)
		}
		if len(v.AZs) > 0 && v.AZCount > 0 && v.AZCount != len(v.AZs) {
			return fmt.Errorf("vpc %s: azCount %d does not match %d listed azs", v.Name, v.AZCount, len(v.AZs))
		}
		if v.SubdivisionBits < 0 {
			return fmt.Errorf("vpc %s: subdivisionBits must not be negative", v.Name)
		}
	}
	return nil
}

// RegistryPath returns the registry file path.
func (e *Environment) RegistryPath() string {
	return e.resolve(e.Registry)
}

// CustomersPath returns the customer file path, or "" when none is set.
func (e *Environment) CustomersPath() string {
	if e.Customers == "" {
		return ""
	}
	return e.resolve(e.Customers)
}

func (e *Environment) resolve(p string) string {
	if filepath.IsAbs(p) || e.dir == "" {
		return p
	}
	return filepath.Join(e.dir, p)
}

// Files returns every file the environment reads, for watching.
func (e *Environment) Files() []string {
	files := []string{e.RegistryPath()}
	if c := e.CustomersPath(); c != "" {
		files = append(files, c)
	}
	return files
}

// VPC looks up an entry by name.
func (e *Environment) VPC(name string) (VPC, bool) {
	for _, v := range e.VPCs {
		if v.Name == name {
			return v, true
		}
	}
	return VPC{}, false
}

// Names returns the VPC names in file order.
func (e *Environment) Names() []string {
	names := make([]string, len(e.VPCs))
	for i, v := range e.VPCs {
		names[i] = v.Name
	}
	return names
}

// LoadSources loads the registry and customer files the environment names.
// A missing customers entry yields an empty customer set.
func (e *Environment) LoadSources() (*registry.Registry, *registry.Customers, error) {
	reg, err := registry.LoadRegistry(e.RegistryPath())
	if err != nil {
		return nil, nil, err
	}
	customers := &registry.Customers{}
	if path := e.CustomersPath(); path != "" {
		customers, err = registry.LoadCustomers(path)
		if err != nil {
			return nil, nil, err
		}
		if err := customers.CheckCrossTenant(reg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return reg, customers, nil
}

// Inputs converts the entries to synthesis inputs. CIDR slots are looked up
// in reg; entries without azs are resolved through resolver, which defaults
// to the static table.
func (e *Environment) Inputs(ctx context.Context, reg *registry.Registry, resolver azs.Resolver) ([]topology.Input, error) {
	if resolver == nil {
		resolver = azs.DefaultStatic()
	}

	inputs := make([]topology.Input, 0, len(e.VPCs))
	for _, v := range e.VPCs {
		in, err := v.input(ctx, reg, resolver)
		if err != nil {
			return nil, fmt.Errorf("vpc %s: %w", v.Name, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func (v VPC) input(ctx context.Context, reg *registry.Registry, resolver azs.Resolver) (topology.Input, error) {
	role, err := topology.RoleByName(v.Role)
	if err != nil {
		return topology.Input{}, err
	}
	account, ok := reg.Account(v.Account)
	if !ok {
		return topology.Input{}, fmt.Errorf("account %q is not in the registry", v.Account)
	}

	region := v.Region
	if region == "" {
		region = reg.PrimaryRegion
	}

	var cidr netip.Prefix
	if v.Cidr != "" {
		cidr, err = netip.ParsePrefix(v.Cidr)
	} else {
		cidr, err = account.Cidr(registry.CidrSlot(v.CidrSlot))
	}
	if err != nil {
		return topology.Input{}, err
	}

	secondary := make([]netip.Prefix, 0, len(v.SecondaryCidrs))
	for _, s := range v.SecondaryCidrs {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return topology.Input{}, err
		}
		secondary = append(secondary, p)
	}

	zones := v.AZs
	if len(zones) == 0 {
		count := v.AZCount
		if count == 0 {
			count = DefaultAZCount
		}
		zones, err = resolver.Resolve(ctx, region, count)
		if err != nil {
			return topology.Input{}, err
		}
	}

	return topology.Input{
		Name:             v.Name,
		Account:          account.Name,
		Region:           region,
		Role:             role,
		Cidr:             cidr,
		SecondaryCidrs:   secondary,
		AZs:              zones,
		SubdivisionBits:  v.SubdivisionBits,
		TransitGatewayID: v.TransitGatewayID,
		AccountType:      v.AccountType,
	}, nil
}
