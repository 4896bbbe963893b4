package role

import (
	"fmt"
	"slices"
)

// Role is a member of the closed, totally ordered role set.
// The numeric value is the rank: higher is more privileged.
type Role int

const (
	Invalid Role = 0
	Agent   Role = 1
	Staff   Role = 2
	Admin   Role = 3
)

// All lists the valid roles from most to least privileged.
var All = []Role{Admin, Staff, Agent}

var names = map[Role]string{
	Admin: "Admin",
	Staff: "Staff",
	Agent: "Agent",
}

// Parse converts a wire name ("Admin", "Staff", "Agent") into a Role.
func Parse(s string) (Role, error) {
	for r, name := range names {
		if name == s {
			return r, nil
		}
	}
	return Invalid, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	if name, ok := names[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Valid reports whether r is one of Admin, Staff or Agent.
func (r Role) Valid() bool {
	_, ok := names[r]
	return ok
}

// Level returns the rank of r, or 0 for an unknown role.
func (r Role) Level() int {
	if !r.Valid() {
		return 0
	}
	return int(r)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid role %d", int(r))
	}
	return []byte(names[r]), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// addressable is the chat adjacency table. It is deliberately not derived
// from rank: Agents reach upward only, Staff never reach Agents.
var addressable = map[Role][]Role{
	Admin: {Admin, Staff, Agent},
	Staff: {Admin, Staff},
	Agent: {Admin, Staff},
}

// CanAddress reports whether a user with role sender may message a user
// with role receiver. Unknown roles are denied.
func CanAddress(sender, receiver Role) bool {
	return slices.Contains(addressable[sender], receiver)
}

// CanManage reports whether manager strictly outranks target.
func CanManage(manager, target Role) bool {
	return manager.Level() > target.Level()
}

// Description returns a short human summary of what the role may do.
func (r Role) Description() string {
	switch r {
	case Admin:
		return "Full system access with user management and product selling capabilities"
	case Staff:
		return "Can chat with Admin and other Staff members"
	case Agent:
		return "Can chat with Admin and Staff members"
	default:
		return "Limited access"
	}
}
