package role

// Permission is an administrative capability flag.
type Permission string

const (
	Broadcast      Permission = "broadcast"
	SellProducts   Permission = "sell_products"
	DeleteMessages Permission = "delete_messages"
	ManageUsers    Permission = "manage_users"
	ViewAllChats   Permission = "view_all_chats"
)

var grants = map[Role]map[Permission]bool{
	Admin: {
		Broadcast:      true,
		SellProducts:   true,
		DeleteMessages: true,
		ManageUsers:    true,
		ViewAllChats:   true,
	},
	Staff: {},
	Agent: {},
}

// Has reports whether r holds permission p. Unknown roles hold nothing.
func Has(r Role, p Permission) bool {
	return grants[r][p]
}

// Permissions returns every permission held by r.
func Permissions(r Role) []Permission {
	var out []Permission
	for _, p := range []Permission{Broadcast, SellProducts, DeleteMessages, ManageUsers, ViewAllChats} {
		if Has(r, p) {
			out = append(out, p)
		}
	}
	return out
}
