package domain

import "time"

// Token is the fixed-length integrity token stored in every record. It holds
// the weak digest of a trust source (e.g. a package manifest), or is
// zero-filled when no trust source is configured.
type Token [TokenLength]byte

// TokenFromDigest builds a Token from a weak hash digest string. Digests are
// exactly TokenLength characters; shorter input leaves the tail zero-filled.
func TokenFromDigest(digest string) Token {
	var t Token
	copy(t[:], digest)
	return t
}

// IsZero reports whether the token carries no trust source digest.
func (t Token) IsZero() bool {
	return t == Token{}
}

// MemberRecord is one member entry of an encoded group record.
type MemberRecord struct {
	Key    string
	Source []byte
}

// ResolveRecord is one captured resolution result of an encoded group record.
type ResolveRecord struct {
	Key   string
	Value string
}

// GroupRecord is the codec-facing snapshot of a group. It carries exactly the
// fields of the on-disk layout; the Group entity is reconstructed from it on
// restore and reduced to it on persist.
type GroupRecord struct {
	Version        int32
	CreatedAt      float64 // unix seconds, fractional
	LifetimeMS     int32
	Name           string
	IntegrityToken Token
	Members        []MemberRecord
	CombinedSource []byte
	Artifact       []byte
	Resolved       []ResolveRecord
}

// CreatedTime converts the record's timestamp back to wall-clock time.
func (r *GroupRecord) CreatedTime() time.Time {
	return time.UnixMilli(int64(r.CreatedAt * 1000))
}

// UnixSeconds converts a wall-clock time to the record's timestamp encoding.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}
