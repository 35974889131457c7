package model

// AdminStats is the platform overview shown on the admin dashboard
type AdminStats struct {
	Users               int `json:"users"`
	Memorials           int `json:"memorials"`
	Meetups             int `json:"meetups"`
	OpenReports         int `json:"open_reports"`
	PendingApplications int `json:"pending_applications"`
	ActiveSponsors      int `json:"active_sponsors"`
	PaidOrders          int `json:"paid_orders"`
}

// AdminUser is a user row in the admin user list
type AdminUser struct {
	User    *User    `json:"user"`
	Profile *Profile `json:"profile,omitempty"`
}

// SetVerificationRequest sets a user's verification status directly
type SetVerificationRequest struct {
	Status string `json:"status"`
}

// SetRoleRequest changes a user's role
type SetRoleRequest struct {
	Role string `json:"role"`
}
