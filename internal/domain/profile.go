package domain

import (
	"context"
	"fmt"
	"strings"
)

// TeeShirtSize is the enumerated shirt size of a profile.
type TeeShirtSize string

const (
	TeeShirtNotSpecified TeeShirtSize = "NOT_SPECIFIED"
	TeeShirtXSM          TeeShirtSize = "XS_M"
	TeeShirtXSW          TeeShirtSize = "XS_W"
	TeeShirtSM           TeeShirtSize = "S_M"
	TeeShirtSW           TeeShirtSize = "S_W"
	TeeShirtMM           TeeShirtSize = "M_M"
	TeeShirtMW           TeeShirtSize = "M_W"
	TeeShirtLM           TeeShirtSize = "L_M"
	TeeShirtLW           TeeShirtSize = "L_W"
	TeeShirtXLM          TeeShirtSize = "XL_M"
	TeeShirtXLW          TeeShirtSize = "XL_W"
	TeeShirtXXLM         TeeShirtSize = "XXL_M"
	TeeShirtXXLW         TeeShirtSize = "XXL_W"
	TeeShirtXXXLM        TeeShirtSize = "XXXL_M"
	TeeShirtXXXLW        TeeShirtSize = "XXXL_W"
)

var teeShirtSizes = []TeeShirtSize{
	TeeShirtNotSpecified,
	TeeShirtXSM, TeeShirtXSW, TeeShirtSM, TeeShirtSW, TeeShirtMM, TeeShirtMW,
	TeeShirtLM, TeeShirtLW, TeeShirtXLM, TeeShirtXLW, TeeShirtXXLM, TeeShirtXXLW,
	TeeShirtXXXLM, TeeShirtXXXLW,
}

// ParseTeeShirtSize validates s against the known sizes.
func ParseTeeShirtSize(s string) (TeeShirtSize, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, size := range teeShirtSizes {
		if string(size) == s {
			return size, nil
		}
	}
	return "", fmt.Errorf("%w: unknown tee shirt size %q", ErrInvalidInput, s)
}

// Profile is keyed by the caller's user id. Keys are stored as websafe
// strings, in insertion order, without duplicates.
// swagger:model Profile
type Profile struct {
	Key                    Key          `json:"-"`
	DisplayName            string       `json:"display_name"`
	MainEmail              string       `json:"main_email"`
	TeeShirtSize           TeeShirtSize `json:"tee_shirt_size"`
	ConferenceKeysToAttend []string     `json:"conference_keys_to_attend"`
	SessionKeysOnWishlist  []string     `json:"session_keys_on_wishlist"`
}

// NewProfile returns the profile created on first access.
func NewProfile(caller Identity) *Profile {
	name := caller.Name
	if name == "" {
		name, _, _ = strings.Cut(caller.Email, "@")
	}
	return &Profile{
		Key:                    ProfileKey(caller.UserID),
		DisplayName:            name,
		MainEmail:              caller.Email,
		TeeShirtSize:           TeeShirtNotSpecified,
		ConferenceKeysToAttend: []string{},
		SessionKeysOnWishlist:  []string{},
	}
}

// ProfileUpdate is a partial update of the editable profile fields.
type ProfileUpdate struct {
	DisplayName  *string
	TeeShirtSize *string
}

// ProfileService defines the caller's own profile operations.
type ProfileService interface {
	GetProfile(ctx context.Context, caller Identity) (*Profile, error)
	SaveProfile(ctx context.Context, caller Identity, upd ProfileUpdate) (*Profile, error)
}
