// Package anonymity decides how much of a user's identity a given
// viewer is allowed to see. Resolution is a pure function of the
// subject, the viewer and the matches between them, so the policy can
// be tested without storage.
package anonymity

import (
	"github.com/veiledapp/veiled-backend/internal/db"
)

// DisplayIdentity is the viewer-specific projection of a user.
// RealName is populated only for the subject themselves or a matched
// viewer; PhoneNumber only for the subject themselves.
type DisplayIdentity struct {
	AnonymousID string `json:"anonymous_id"`
	DisplayName string `json:"display_name"`
	Nickname    string `json:"nickname"`
	RealName    string `json:"real_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Gender      string `json:"gender"`
	Age         int    `json:"age"`
	IsMatched   bool   `json:"is_matched"`
	IsSelf      bool   `json:"is_self"`
}

// Resolve projects subject for viewerID. matches should hold the
// candidate matches involving the two users; only an active match
// between exactly this pair lifts the veil.
func Resolve(subject db.User, viewerID uint64, matches []db.Match) DisplayIdentity {
	id := DisplayIdentity{
		AnonymousID: subject.AnonymousID,
		DisplayName: subject.Nickname,
		Nickname:    subject.Nickname,
		Gender:      subject.Gender,
		Age:         subject.Age,
	}

	if viewerID == subject.ID {
		id.IsSelf = true
		id.RealName = subject.RealName
		id.PhoneNumber = subject.PhoneNumber
		if subject.RealName != "" {
			id.DisplayName = subject.RealName
		}
		return id
	}

	for _, m := range matches {
		if m.IsActive && m.HasUser(viewerID) && m.HasUser(subject.ID) {
			id.IsMatched = true
			id.RealName = subject.RealName
			if subject.RealName != "" {
				id.DisplayName = subject.RealName
			}
			break
		}
	}
	return id
}
