package session

import "strings"

// Role is the participant role of the user who mounted the page.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// DefaultUserID identifies users whose page did not supply one.
const DefaultUserID = "default-user"

// Navigation routes.
const (
	RouteHome             = "/"
	RouteDoctorDashboard  = "/doctor-dashboard"
	RoutePatientDashboard = "/patient-dashboard"
)

// ParseRole maps a raw role to a Role; anything but doctor is a patient.
func ParseRole(s string) Role {
	if Role(strings.ToLower(strings.TrimSpace(s))) == RoleDoctor {
		return RoleDoctor
	}
	return RolePatient
}

// DisplayName is the name shown for the local participant in the widget.
func (r Role) DisplayName() string {
	if r == RoleDoctor {
		return "Dr. Healthcare Provider"
	}
	return "Patient"
}

// IsModerator reports whether the role gets moderator rights in the widget.
func (r Role) IsModerator() bool {
	return r == RoleDoctor
}

// DashboardRoute is where the page goes once the call has ended.
func (r Role) DashboardRoute() string {
	if r == RoleDoctor {
		return RouteDoctorDashboard
	}
	return RoutePatientDashboard
}

// Identity is who mounted the page. It is fixed for the controller's lifetime.
type Identity struct {
	Role   Role   `json:"role"`
	UserID string `json:"user_id"`
}

// NewIdentity builds an identity, applying the defaults for missing values.
func NewIdentity(role, userID string) Identity {
	if strings.TrimSpace(userID) == "" {
		userID = DefaultUserID
	}
	return Identity{Role: ParseRole(role), UserID: userID}
}
