package principal

import (
	"time"

	dErrors "landregistry/pkg/domain-errors"
)

// Classification is the registry's view of what a principal may do.
//
// Transitions:
//   - Unregistered -> PendingOwner: automatic on first registration submission
//     or owner onboarding (idempotent, never downgrades)
//   - PendingOwner -> VerifiedOwner: registration request approved by an admin
//   - any -> any: explicit admin correction via SetClassification
type Classification string

const (
	Unregistered  Classification = "unregistered"
	PendingOwner  Classification = "pending_owner"
	VerifiedOwner Classification = "verified_owner"
	Admin         Classification = "admin"
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	switch c {
	case Unregistered, PendingOwner, VerifiedOwner, Admin:
		return true
	}
	return false
}

// OwnerProfile is the identity detail captured at owner onboarding. The ID
// document itself lives behind the asset reference.
type OwnerProfile struct {
	FullName           string `json:"full_name"`
	Nationality        string `json:"nationality"`
	IDType             string `json:"id_type"`
	IDNumber           string `json:"id_number"`
	ResidentialAddress string `json:"residential_address"`
	AssetReferenceID   string `json:"asset_reference_id"`
}

// Validate checks the onboarding fields a profile must carry.
func (p OwnerProfile) Validate() error {
	if p.FullName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "full name is required")
	}
	if p.IDNumber == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identity number is required")
	}
	if p.AssetReferenceID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identification document reference is required")
	}
	return nil
}

// Record is the directory entry for one principal. The principal ID is an
// opaque, pre-authenticated identifier supplied by the identity boundary.
type Record struct {
	PrincipalID    string         `json:"principal_id"`
	Classification Classification `json:"classification"`
	Profile        OwnerProfile   `json:"profile"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
