package model

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Government, intergovernmental, academic, DOI
	TierSecondary AuthorityTier = 2 // Wire services, major publishers, encyclopedias
	TierTertiary  AuthorityTier = 3 // Blogs, social posts, everything else
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// MarshalText encodes the tier by name
func (t AuthorityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name; unrecognized names map to TierUnknown
func (t *AuthorityTier) UnmarshalText(b []byte) error {
	*t = ParseAuthorityTier(string(b))
	return nil
}

// ParseAuthorityTier maps a tier name to its value
func ParseAuthorityTier(s string) AuthorityTier {
	switch s {
	case "primary":
		return TierPrimary
	case "secondary":
		return TierSecondary
	case "tertiary":
		return TierTertiary
	default:
		return TierUnknown
	}
}
