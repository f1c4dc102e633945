package topology

import (
	"fmt"

	"github.com/lex00/wetwire-network-go/internal/cidr"
)

// InvalidTopologyError reports address space that cannot hold the requested
// subnets. It is the same type the cidr package returns, so errors.As works
// for failures raised by either package.
type InvalidTopologyError = cidr.InvalidTopologyError

// IncompleteTopologyError reports a topology that cannot be fully wired: an
// empty AZ set, a private route table without a NAT gateway in its AZ, or a
// missing egress target.
type IncompleteTopologyError struct {
	VPC    string
	Reason string
}

func (e *IncompleteTopologyError) Error() string {
	return fmt.Sprintf("incomplete topology for %s: %s", e.VPC, e.Reason)
}

func incomplete(vpc, format string, args ...any) error {
	return &IncompleteTopologyError{VPC: vpc, Reason: fmt.Sprintf(format, args...)}
}

func invalidTopology(format string, args ...any) error {
	return &InvalidTopologyError{Reason: fmt.Sprintf(format, args...)}
}

// UnknownPrincipalError reports a sharing grant to an account or
// organizational unit that is not in the account registry.
type UnknownPrincipalError struct {
	Share     string
	Principal string
}

func (e *UnknownPrincipalError) Error() string {
	return fmt.Sprintf("share %s: unknown principal %q", e.Share, e.Principal)
}

// DuplicateRuleNumberError reports two NACL rules with the same number and
// direction.
type DuplicateRuleNumberError struct {
	Acl        string
	RuleNumber int
	Egress     bool
}

func (e *DuplicateRuleNumberError) Error() string {
	dir := "ingress"
	if e.Egress {
		dir = "egress"
	}
	return fmt.Sprintf("network acl %s: duplicate %s rule number %d", e.Acl, dir, e.RuleNumber)
}

// MissingCustomerDefinitionError reports a role that wants customer subnets
// when no customer definition reserves CIDRs for its region and account type.
type MissingCustomerDefinitionError struct {
	VPC string
	Key string
}

func (e *MissingCustomerDefinitionError) Error() string {
	return fmt.Sprintf("%s: customer subnets requested for %s but no customer definition reserves cidrs for it", e.VPC, e.Key)
}
