package domain

import "time"

// Role identifica el tipo de cuenta.
type Role string

const (
	RoleResident Role = "resident"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Valid indica si el rol es uno de los soportados.
func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Address agrupa los componentes de domicilio del residente.
type Address struct {
	HouseNumber string `json:"house_number,omitempty"`
	Street      string `json:"street,omitempty"`
	Purok       string `json:"purok,omitempty"`
	Barangay    string `json:"barangay,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
}

type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role"`
	IsApproved      bool       `json:"is_approved"`
	FirstName       string     `json:"first_name,omitempty"`
	MiddleName      string     `json:"middle_name,omitempty"`
	LastName        string     `json:"last_name,omitempty"`
	MobileNumber    string     `json:"mobile_number,omitempty"`
	Address         Address    `json:"address"`
	ClearanceFile   string     `json:"clearance_file,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Profile son los campos editables por el propio usuario.
type Profile struct {
	FirstName    string
	MiddleName   string
	LastName     string
	MobileNumber string
	Address      Address
}
