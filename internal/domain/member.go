package domain

// Member is an identity's referral membership. The upstream referer is
// chosen once at registration and never changes, so the referral graph
// is a forest: at most one parent per identity, no cycles.
type Member struct {
	Authority Address
	// Referer is the single upstream referer, nil when none was given.
	Referer *Address
}

// RecordAddress returns the membership record's derived address.
func (m *Member) RecordAddress() Address {
	return MemberAddress(m.Authority)
}
