package entity

import "github.com/google/uuid"

type Role string

const (
	RoleDriver     Role = "driver"
	RoleOwner      Role = "owner"
	RoleTechnician Role = "technician"
	RoleConsultant Role = "consultant"
	RoleAdmin      Role = "admin"
)

// Actor is the authenticated caller, passed explicitly into every service call.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Roles []Role    `json:"roles"`
}

// SystemActor is used by schedulers and queue consumers.
var SystemActor = Actor{ID: uuid.Nil, Roles: []Role{RoleAdmin}}

func NewActor(id uuid.UUID, roles ...Role) Actor {
	return Actor{ID: id, Roles: roles}
}

func (a Actor) Has(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsDriver() bool     { return a.Has(RoleDriver) }
func (a Actor) IsOwner() bool      { return a.Has(RoleOwner) }
func (a Actor) IsTechnician() bool { return a.Has(RoleTechnician) }
func (a Actor) IsConsultant() bool { return a.Has(RoleConsultant) }
func (a Actor) IsAdmin() bool      { return a.Has(RoleAdmin) }
