package enums

import "fmt"

// MemberRole is the role a user holds inside an organization.
type MemberRole string

const (
	MemberRoleOwner     MemberRole = "owner"
	MemberRoleManager   MemberRole = "manager"
	MemberRoleMarketer  MemberRole = "marketer"
	MemberRoleBudtender MemberRole = "budtender"
	MemberRoleViewer    MemberRole = "viewer"
)

var validMemberRoles = []MemberRole{
	MemberRoleOwner,
	MemberRoleManager,
	MemberRoleMarketer,
	MemberRoleBudtender,
	MemberRoleViewer,
}

// String implements fmt.Stringer.
func (r MemberRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known MemberRole.
func (r MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
