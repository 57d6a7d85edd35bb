package services

import "github.com/ciclus/rd-dashboard/models"

type View string

const (
	ViewDashboard View = "dashboard"
	ViewNewReport View = "new"
	ViewAnalytics View = "analytics"
	ViewAdmin     View = "admin"
	ViewUsers     View = "users"
)

// ViewDecision is the outcome of a navigation request. When Allowed is false
// the caller shows Redirect instead.
type ViewDecision struct {
	Requested View `json:"requested"`
	Allowed   bool `json:"allowed"`
	View      View `json:"view"`
	Redirect  View `json:"redirect,omitempty"`
}

var viewRoles = map[View][]models.UserRole{
	ViewDashboard: {models.RoleEncarregado, models.RoleSupervisor, models.RoleCCO},
	ViewNewReport: {models.RoleEncarregado, models.RoleSupervisor},
	ViewAnalytics: {models.RoleCCO},
	ViewAdmin:     {models.RoleSupervisor, models.RoleCCO},
	ViewUsers:     {models.RoleCCO},
}

// ResolveView maps (role, requested view) to the view that may be shown.
// Unknown views and forbidden ones fall back to the dashboard.
func ResolveView(role models.UserRole, requested View) ViewDecision {
	d := ViewDecision{Requested: requested}
	if RoleAllowed(role, viewRoles[requested]...) {
		d.Allowed = true
		d.View = requested
		return d
	}
	d.View = ViewDashboard
	d.Redirect = ViewDashboard
	return d
}

// NavigableViews lists the views a role can open, in menu order.
func NavigableViews(role models.UserRole) []View {
	var out []View
	for _, v := range []View{ViewDashboard, ViewNewReport, ViewAnalytics, ViewAdmin, ViewUsers} {
		if RoleAllowed(role, viewRoles[v]...) {
			out = append(out, v)
		}
	}
	return out
}

func RoleAllowed(role models.UserRole, allowed ...models.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
