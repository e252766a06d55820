// Package roles holds the platform's fixed role→capability table.
//
// The mapping is part of the product contract and is deliberately a static
// table, not something derived from server data: the administrative role may
// create, edit, delete, and view back-office resources; the instructional
// role may only view; students and guests get nothing. View gating in any
// front end must agree with this table.
package roles

// Role names as reported by the identity endpoint.
const (
	Admin     = "Admin"
	Professor = "Professor"
	Student   = "Student"
)

// Capability is one gated back-office action.
type Capability uint8

const (
	// CapCreate gates resource creation.
	CapCreate Capability = iota
	// CapEdit gates resource modification.
	CapEdit
	// CapDelete gates resource removal.
	CapDelete
	// CapView gates read access to back-office listings.
	CapView
)

// capabilityTable is the authoritative mapping. Roles absent from the table
// (including the empty role of an unauthenticated caller) have no
// capabilities.
var capabilityTable = map[string]map[Capability]bool{
	Admin: {
		CapCreate: true,
		CapEdit:   true,
		CapDelete: true,
		CapView:   true,
	},
	Professor: {
		CapView: true,
	},
	Student: {},
}

// Can reports whether the named role holds the capability.
func Can(roleName string, cap Capability) bool {
	caps, ok := capabilityTable[roleName]
	if !ok {
		return false
	}
	return caps[cap]
}

// Known reports whether roleName appears in the capability table.
func Known(roleName string) bool {
	_, ok := capabilityTable[roleName]
	return ok
}
