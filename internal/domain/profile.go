package domain

import "time"

// ============================================================
// Support-match profiles, exclusions, and partnerships
// ============================================================

// GenderPreference controls who a profile is willing to be paired with.
type GenderPreference string

const (
	GenderPrefSameGender GenderPreference = "same_gender"
	GenderPrefAny        GenderPreference = "any"
)

// TimezonePreference controls which timezones a profile accepts for a partner.
type TimezonePreference string

const (
	TimezonePrefSame TimezonePreference = "same_timezone"
	TimezonePrefAny  TimezonePreference = "any_timezone"
)

// Profile is a user's support-match profile. One per user; immutable once
// a partnership exists except for deactivation.
type Profile struct {
	ID                 string             `json:"id" db:"id"`
	UserID             string             `json:"user_id" db:"user_id"`
	IsActive           bool               `json:"is_active" db:"is_active"`
	Gender             string             `json:"gender,omitempty" db:"gender"`
	GenderPreference   GenderPreference   `json:"gender_preference" db:"gender_preference"`
	Timezone           string             `json:"timezone,omitempty" db:"timezone"`
	TimezonePreference TimezonePreference `json:"timezone_preference" db:"timezone_preference"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
}

// Exclusion is a user-declared veto against being paired with another user.
// Storage is directed; the matcher treats it symmetrically.
type Exclusion struct {
	UserID         string `json:"user_id" db:"user_id"`
	ExcludedUserID string `json:"excluded_user_id" db:"excluded_user_id"`
	Reason         string `json:"reason,omitempty" db:"reason"`
}

// PartnershipStatus is the lifecycle state of a partnership.
type PartnershipStatus string

const (
	PartnershipActive     PartnershipStatus = "active"
	PartnershipCompleted  PartnershipStatus = "completed"
	PartnershipEndedEarly PartnershipStatus = "ended_early"
	PartnershipCancelled  PartnershipStatus = "cancelled"
)

// IsTerminal reports whether the status ends a partnership.
func (s PartnershipStatus) IsTerminal() bool {
	switch s {
	case PartnershipCompleted, PartnershipEndedEarly, PartnershipCancelled:
		return true
	}
	return false
}

// Partnership pairs two users for a support-match relationship.
// Invariant: at most one active partnership per user at any time.
type Partnership struct {
	ID        string            `json:"id" db:"id"`
	User1ID   string            `json:"user1_id" db:"user1_id"`
	User2ID   string            `json:"user2_id" db:"user2_id"`
	StartDate time.Time         `json:"start_date" db:"start_date"`
	EndDate   *time.Time        `json:"end_date,omitempty" db:"end_date"`
	Status    PartnershipStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// HasUser reports whether userID is one of the two partners.
func (p *Partnership) HasUser(userID string) bool {
	return p.User1ID == userID || p.User2ID == userID
}

// OtherUserID returns the partner of userID, if userID is in the pair.
func (p *Partnership) OtherUserID(userID string) (string, bool) {
	if p.User1ID == userID {
		return p.User2ID, true
	}
	if p.User2ID == userID {
		return p.User1ID, true
	}
	return "", false
}

// MatchRunResult summarizes one algorithmic matching pass.
type MatchRunResult struct {
	Candidates   int           `json:"candidates"`
	MatchedPairs int           `json:"matched_pairs"`
	Unmatched    int           `json:"unmatched"`
	Partnerships []Partnership `json:"partnerships"`
	RanAt        time.Time     `json:"ran_at"`
}
