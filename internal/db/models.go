package db

import (
	"time"

	"github.com/veiledapp/veiled-backend/internal/features"
)

// User is a registered account. Real identity fields (RealName,
// PhoneNumber) are never exposed to other users unless a match reveals
// them; AnonymousID and Nickname are the public face.
type User struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	AnonymousID    string    `gorm:"size:36;not null;uniqueIndex" json:"anonymous_id"`
	Nickname       string    `gorm:"size:100;not null" json:"nickname"`
	RealName       string    `gorm:"size:100" json:"real_name,omitempty"`
	PhoneNumber    string    `gorm:"size:32" json:"phone_number,omitempty"`
	Gender         string    `gorm:"size:10" json:"gender"`
	Age            int       `json:"age"`
	HeightCM       int       `json:"height_cm"`
	AppearanceTags []string  `gorm:"serializer:json" json:"appearance_tags,omitempty"`
	LocationZone   string    `gorm:"size:64" json:"location_zone,omitempty"`
	IsPremium      bool      `gorm:"not null;default:false" json:"is_premium"`
	Credits        int64     `gorm:"not null;default:0" json:"credits"`
	PasswordHash   string    `gorm:"size:100" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Like is one user's directed expression of interest in another within
// a group. The composite key makes a repeat expression a no-op at the
// storage layer.
type Like struct {
	ActorID     uint64    `gorm:"primaryKey;autoIncrement:false" json:"actor_id"`
	RecipientID uint64    `gorm:"primaryKey;autoIncrement:false" json:"recipient_id"`
	GroupID     uint64    `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	IsSuper     bool      `gorm:"not null;default:false" json:"is_super"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Match records mutual interest between two users in a group. The pair
// is stored in canonical order (UserLoID < UserHiID) so the unique
// index admits at most one row per pair regardless of which side's
// like completed it.
type Match struct {
	ID            uint64     `gorm:"primaryKey" json:"id"`
	UserLoID      uint64     `gorm:"not null;uniqueIndex:uidx_match_pair,priority:1" json:"user_lo_id"`
	UserHiID      uint64     `gorm:"not null;uniqueIndex:uidx_match_pair,priority:2" json:"user_hi_id"`
	GroupID       uint64     `gorm:"not null;uniqueIndex:uidx_match_pair,priority:3" json:"group_id"`
	ChatChannelID string     `gorm:"size:64" json:"chat_channel_id,omitempty"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	UnmatchedAt   *time.Time `json:"unmatched_at,omitempty"`
	UnmatchReason string     `gorm:"size:255" json:"unmatch_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasUser reports whether the given user is one side of the match.
func (m Match) HasUser(userID uint64) bool {
	return m.UserLoID == userID || m.UserHiID == userID
}

// OtherUserID returns the counterpart of userID in the match, or 0 if
// userID is not part of it.
func (m Match) OtherUserID(userID uint64) uint64 {
	switch userID {
	case m.UserLoID:
		return m.UserHiID
	case m.UserHiID:
		return m.UserLoID
	default:
		return 0
	}
}

// InstantMeeting is a short-lived feature-matching session. Joiners
// enter by Code; after ExpiresAt the meeting accepts no further joins
// or declarations.
type InstantMeeting struct {
	ID                uint64          `gorm:"primaryKey" json:"id"`
	Code              string          `gorm:"size:12;not null;uniqueIndex" json:"code"`
	HostUserID        uint64          `gorm:"not null;index" json:"host_user_id"`
	Title             string          `gorm:"size:100" json:"title,omitempty"`
	FeatureCategories []features.Kind `gorm:"serializer:json" json:"feature_categories"`
	ExpiresAt         time.Time       `gorm:"not null" json:"expires_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Expired reports whether the meeting no longer accepts activity at
// the given instant.
func (m InstantMeeting) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// Participant is a user's presence in a meeting together with the
// self-declared attributes other participants' criteria are evaluated
// against. Leaving flips IsActive instead of deleting the row so a
// rejoin keeps the same participant identity.
type Participant struct {
	ID         uint64              `gorm:"primaryKey" json:"id"`
	MeetingID  uint64              `gorm:"not null;uniqueIndex:uidx_meeting_user,priority:1" json:"meeting_id"`
	UserID     uint64              `gorm:"not null;uniqueIndex:uidx_meeting_user,priority:2" json:"user_id"`
	Nickname   string              `gorm:"size:100;not null" json:"nickname"`
	Attributes features.Attributes `gorm:"serializer:json" json:"attributes"`
	IsActive   bool                `gorm:"not null;default:true" json:"is_active"`
	JoinedAt   time.Time           `gorm:"not null" json:"joined_at"`
	LeftAt     *time.Time          `json:"left_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Interest is a participant's declared criteria within a meeting. Each
// participant holds at most one declaration; re-declaring replaces it.
type Interest struct {
	MeetingID     uint64            `gorm:"primaryKey;autoIncrement:false" json:"meeting_id"`
	ParticipantID uint64            `gorm:"primaryKey;autoIncrement:false" json:"participant_id"`
	Criteria      features.Criteria `gorm:"serializer:json" json:"criteria"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// InstantMatch records a reciprocal criteria hit between two
// participants of a meeting, stored in canonical order like Match.
type InstantMatch struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	MeetingID       uint64    `gorm:"not null;uniqueIndex:uidx_instant_pair,priority:1" json:"meeting_id"`
	ParticipantLoID uint64    `gorm:"not null;uniqueIndex:uidx_instant_pair,priority:2" json:"participant_lo_id"`
	ParticipantHiID uint64    `gorm:"not null;uniqueIndex:uidx_instant_pair,priority:3" json:"participant_hi_id"`
	ChatChannelID   string    `gorm:"size:64" json:"chat_channel_id,omitempty"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasParticipant reports whether the given participant is one side of
// the instant match.
func (m InstantMatch) HasParticipant(participantID uint64) bool {
	return m.ParticipantLoID == participantID || m.ParticipantHiID == participantID
}

// OtherParticipantID returns the counterpart of participantID, or 0 if
// participantID is not part of the match.
func (m InstantMatch) OtherParticipantID(participantID uint64) uint64 {
	switch participantID {
	case m.ParticipantLoID:
		return m.ParticipantHiID
	case m.ParticipantHiID:
		return m.ParticipantLoID
	default:
		return 0
	}
}

// CanonicalPair orders two ids so (lo, hi) is stable regardless of
// argument order. Both match tables key on this ordering.
func CanonicalPair(a, b uint64) (lo, hi uint64) {
	if a < b {
		return a, b
	}
	return b, a
}
