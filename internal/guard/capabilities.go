package guard

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/dearher/bagstore/internal/readmodel"
)

// Capability names an admin operation as "<object>:<action>".
type Capability string

const (
	CatalogWrite     Capability = "catalog:write"
	CatalogUpload    Capability = "catalog:upload"
	CatalogReadAdmin Capability = "catalog:read-admin"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Capabilities answers whether a role may perform a capability.
type Capabilities struct {
	enforcer *casbin.Enforcer
}

// NewCapabilities builds the in-memory policy: admins hold every catalog
// capability, nobody else holds any.
func NewCapabilities() (*Capabilities, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load capability model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	for _, c := range []Capability{CatalogWrite, CatalogUpload, CatalogReadAdmin} {
		obj, act := c.split()
		if _, err := enforcer.AddPolicy(readmodel.RoleAdmin, obj, act); err != nil {
			return nil, fmt.Errorf("add policy %s: %w", c, err)
		}
	}
	return &Capabilities{enforcer: enforcer}, nil
}

func (c *Capabilities) Allowed(role string, capability Capability) (bool, error) {
	obj, act := capability.split()
	return c.enforcer.Enforce(role, obj, act)
}

func (c Capability) split() (string, string) {
	obj, act, _ := strings.Cut(string(c), ":")
	return obj, act
}
