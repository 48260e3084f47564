package models

import (
	id "lingkod/pkg/domain"
)

// Role classifies the acting user for transition guards.
type Role string

const (
	RoleResident      Role = "resident"
	RoleBarangayStaff Role = "barangay_staff"
	RoleMunicipalStaff Role = "municipal_staff"
)

// Actor is the explicit acting-user value passed into every orchestrator
// call. It is built at the transport edge from the identity provider's
// claims and never fetched from ambient state inside services.
type Actor struct {
	UserID         string
	Role           Role
	MunicipalityID id.MunicipalityID
	BarangayID     id.BarangayID
}

// BarangayScoped reports whether the actor acts with barangay-level
// authority only.
func (a Actor) BarangayScoped() bool { return a.Role == RoleBarangayStaff }

// Staff reports whether the actor is office staff of either level.
func (a Actor) Staff() bool {
	return a.Role == RoleBarangayStaff || a.Role == RoleMunicipalStaff
}
