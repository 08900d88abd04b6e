package permission

var (
	adminManager = []Role{RoleAdmin, RoleManager}
	adminOnly    = []Role{RoleAdmin}
	managerOnly  = []Role{RoleManager}
	staffOnly    = []Role{RoleStaff}
)

// ConsoleRoles are the roles allowed into the admin console shell at all.
var ConsoleRoles = []Role{RoleAdmin, RoleManager, RoleStaff}

// DefaultAdminRules returns the admin console's navigation and route table.
func DefaultAdminRules() *RuleSet {
	return MustRuleSet(ConsoleRoles,
		Rule{
			Key: "dashboard", Label: "Dashboard", Roles: adminManager,
			Children: []Rule{
				{Key: "statistic", Label: "Statistic", Paths: []string{"/"}},
				{Key: "analysis", Label: "Analysis", Paths: []string{"/analysis"}},
				{Key: "orders", Label: "Orders", Paths: []string{"/orders"}},
				{Key: "transactions", Label: "Transactions", Paths: []string{"/transactions"}},
			},
		},
		Rule{
			Key: "partners", Label: "Partners", Roles: adminOnly,
			Paths: []string{"/partners", "/partners/add", "/partners/edit/:id", "/partners/:id"},
		},
		Rule{
			Key: "court-prices", Label: "Court prices", Roles: adminOnly,
			Paths: []string{"/court-prices", "/court-prices/add", "/court-prices/edit/:id", "/court-prices/:id"},
		},
		Rule{Key: "role", Label: "Roles", Roles: adminOnly, Paths: []string{"/role"}},
		Rule{
			Key: "staff", Label: "Staff", Roles: managerOnly,
			Paths: []string{"/staff", "/staff/add", "/staff/edit/:id", "/staff/:id"},
		},
		Rule{
			Key: "courts", Label: "Courts", Roles: adminManager,
			Children: []Rule{
				{Key: "court-status", Label: "Court status", Paths: []string{"/court-status"}},
				{Key: "court-services", Label: "Court services", Paths: []string{"/court-services"}},
				{Key: "court-images", Label: "Court images", Paths: []string{"/court-images"}},
				{Key: "rackets", Label: "Rackets", Paths: []string{"/rackets"}},
			},
		},
		Rule{
			Key: "counter", Label: "Counter", Roles: staffOnly,
			Children: []Rule{
				{Key: "sells", Label: "Sells", Paths: []string{"/sells"}},
				{Key: "booking", Label: "Booking", Paths: []string{"/booking"}},
				{Key: "staff-order-booking-date", Label: "Bookings by date", Paths: []string{"/staff-order-booking-date"}},
				{Key: "staff-order-service", Label: "Service orders", Paths: []string{"/staff-order-service"}},
			},
		},
	)
}
