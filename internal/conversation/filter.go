package conversation

import (
	"strings"

	"github.com/matheus3301/rolechat/internal/directory"
	"golang.org/x/text/cases"
)

// AllRoles is the role filter that matches every user.
const AllRoles = "all"

// FilterUsers narrows users for a contact picker. It drops currentID,
// keeps users whose name or email contains search (case-insensitively)
// and whose role name equals roleFilter unless roleFilter is AllRoles or
// empty. Input order is kept.
func FilterUsers(currentID int64, users []directory.User, search, roleFilter string) []directory.User {
	fold := cases.Fold()
	needle := fold.String(search)

	out := make([]directory.User, 0, len(users))
	for _, u := range users {
		if u.ID == currentID {
			continue
		}
		matches := strings.Contains(fold.String(u.Name), needle) ||
			strings.Contains(fold.String(u.Email), needle)
		if !matches {
			continue
		}
		if roleFilter != "" && roleFilter != AllRoles && u.Role.String() != roleFilter {
			continue
		}
		out = append(out, u)
	}
	return out
}
