package model

// Organization type constants
const (
	OrganizationHospital = "hospital"
	OrganizationClinic   = "clinic"
	OrganizationLab      = "lab"
)

// Identity is the authenticated account as returned by auth/users/me/.
// It is read-only on the client.
type Identity struct {
	ID                  int     `json:"id"`
	Username            string  `json:"username"`
	Email               string  `json:"email"`
	IsAdmin             bool    `json:"is_admin"`
	IsOrganization      bool    `json:"is_organization"`
	OrganizationName    string  `json:"organization_name"`
	OrganizationType    string  `json:"organization_type"`
	OrganizationAddress string  `json:"organization_address"`
	OrganizationLogoURL *string `json:"organization_logo"`
	Phone               string  `json:"phone"`
}

// DisplayName picks the most specific human label for the account.
func (i *Identity) DisplayName() string {
	switch {
	case i == nil:
		return ""
	case i.OrganizationName != "":
		return i.OrganizationName
	case i.Username != "":
		return i.Username
	default:
		return i.Email
	}
}

// Account is the server-side view of a user: the public identity plus the
// credential hash. Only the backend emulator handles accounts.
type Account struct {
	Identity
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}
