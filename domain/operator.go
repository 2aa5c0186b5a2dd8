package domain

// Role flags carried by operator identities.
const (
	RoleDriver          = "driver"
	RoleDispatchManager = "dispatch-manager"
)

// Operator is the acting identity: a field driver and/or a dispatcher.
type Operator struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
}

// HasRole reports whether the operator carries the given role flag.
func (o Operator) HasRole(role string) bool {
	for _, r := range o.Roles {
		if r == role {
			return true
		}
	}
	return false
}
