// Package roles defines the platform role vocabulary and membership helpers.
// Both the query side (available-roles lookup) and the mutation side
// (role switching) go through Contains so the two can never drift.
package roles

// Platform roles. ECP is an eyecare practitioner, the default clinical role.
const (
	ECP           = "ecp"
	Admin         = "admin"
	LabTech       = "lab_tech"
	Supplier      = "supplier"
	PlatformAdmin = "platform_admin"
	CompanyAdmin  = "company_admin"
	Dispenser     = "dispenser"
)

// All lists every role the platform recognizes.
var All = []string{
	ECP,
	Admin,
	LabTech,
	Supplier,
	PlatformAdmin,
	CompanyAdmin,
	Dispenser,
}

// IsValid reports whether the given role name is recognized.
func IsValid(role string) bool {
	return Contains(All, role)
}

// Contains reports whether role is a member of the given role set.
func Contains(set []string, role string) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}

// Union merges role sets, removing duplicates and preserving order of
// first appearance.
func Union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, r := range set {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
