// Package rbac is the declarative role gate: each protected operation names the role set
// allowed to call it, and a Rego policy decides against the caller's role claims.
package rbac

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	userdomain "mentorhub/backend/internal/user/domain"
)

// Operations guarded by the gate.
const (
	OpFacultyList         = "faculty.list"
	OpFacultyGet          = "faculty.get"
	OpFacultyCreate       = "faculty.create"
	OpFacultyUpdate       = "faculty.update"
	OpFacultyDelete       = "faculty.delete"
	OpFacultyMentorGroups = "faculty.mentor_groups"

	OpMentorList   = "mentor.list"
	OpMentorGet    = "mentor.get"
	OpMentorCreate = "mentor.create"
	OpMentorUpdate = "mentor.update"
	OpMentorDelete = "mentor.delete"

	OpGroupList   = "group.list"
	OpGroupGet    = "group.get"
	OpGroupCreate = "group.create"
	OpGroupUpdate = "group.update"
	OpGroupDelete = "group.delete"

	OpSessionListOwn   = "session.list_own"
	OpSessionRevokeOwn = "session.revoke_own"
	OpSessionRevokeAll = "session.revoke_all"
	OpUserRead         = "user.read"
	OpUserAssignRole   = "user.assign_role"
	OpAuditRead        = "audit.read"
)

// Rules maps an operation to the roles allowed to perform it.
// An empty role set admits any authenticated caller. Operations absent from Rules are denied.
type Rules map[string][]string

// DefaultRules returns the built-in operation rules.
func DefaultRules() Rules {
	sysAdmin := []string{userdomain.RoleSysAdmin}
	coordinator := []string{userdomain.RoleCoordinator}
	mentor := []string{userdomain.RoleMentor}
	return Rules{
		OpFacultyList:         {userdomain.RoleSysAdmin, userdomain.RoleCoordinator},
		OpFacultyGet:          sysAdmin,
		OpFacultyCreate:       sysAdmin,
		OpFacultyUpdate:       sysAdmin,
		OpFacultyDelete:       sysAdmin,
		OpFacultyMentorGroups: sysAdmin,

		OpMentorList:   coordinator,
		OpMentorGet:    coordinator,
		OpMentorCreate: coordinator,
		OpMentorUpdate: coordinator,
		OpMentorDelete: coordinator,

		OpGroupList:   mentor,
		OpGroupGet:    mentor,
		OpGroupCreate: mentor,
		OpGroupUpdate: mentor,
		OpGroupDelete: mentor,

		OpSessionListOwn:   {},
		OpSessionRevokeOwn: {},
		OpSessionRevokeAll: sysAdmin,
		OpUserRead:         sysAdmin,
		OpUserAssignRole:   sysAdmin,
		OpAuditRead:        sysAdmin,
	}
}

// rulesFile is the YAML shape accepted by LoadRules:
//
//	operations:
//	  group.list: [Mentor, Coordinator]
//	  session.list_own: []
type rulesFile struct {
	Operations map[string][]string `yaml:"operations"`
}

// LoadRules reads a YAML rules file and overlays it on DefaultRules.
// An entry in the file replaces the default role set for that operation.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rbac rules: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rbac rules %s: %w", path, err)
	}
	rules := DefaultRules()
	for op, roles := range f.Operations {
		if roles == nil {
			roles = []string{}
		}
		rules[op] = roles
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate rejects blank operation or role names.
func (r Rules) Validate() error {
	for _, op := range slices.Sorted(maps.Keys(r)) {
		if strings.TrimSpace(op) == "" {
			return errors.New("rbac: blank operation name")
		}
		for _, role := range r[op] {
			if strings.TrimSpace(role) == "" {
				return fmt.Errorf("rbac: blank role in operation %q", op)
			}
		}
	}
	return nil
}

// data converts the rules into the JSON-compatible document stored under data.rbac.rules.
func (r Rules) data() map[string]any {
	rules := make(map[string]any, len(r))
	for op, roles := range r {
		set := make([]any, 0, len(roles))
		for _, role := range roles {
			set = append(set, role)
		}
		rules[op] = set
	}
	return map[string]any{"rbac": map[string]any{"rules": rules}}
}
