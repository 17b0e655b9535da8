// Package meeting runs instant meetings: short-lived sessions where
// participants describe themselves, declare what they are looking for,
// and get matched the moment two declarations satisfy each other both
// ways.
package meeting

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/veiledapp/veiled-backend/internal/app"
	"github.com/veiledapp/veiled-backend/internal/db"
	svcErr "github.com/veiledapp/veiled-backend/internal/errors"
	"github.com/veiledapp/veiled-backend/internal/features"
	"github.com/veiledapp/veiled-backend/internal/repository"
)

const (
	// codeAlphabet avoids characters that read ambiguously when the
	// code is shouted across a room.
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 8

	maxCodeAttempts = 5

	defaultMeetingTTL = time.Hour
	maxMeetingTTL     = 24 * time.Hour

	maxTitleLen = 100
)

// Registry is the slice of the match service meetings drive.
type Registry interface {
	CreateInstantIfAbsent(ctx context.Context, meetingID uint64, partA, partB db.Participant) (db.InstantMatch, bool, error)
	ListInstant(ctx context.Context, meetingID, participantID uint64) ([]db.InstantMatch, error)
}

type Service struct {
	meetings *repository.MeetingRepo
	users    *repository.UserRepo
	registry Registry
	log      *slog.Logger
}

func NewService(appCtx *app.AppContext, registry Registry) *Service {
	return &Service{
		meetings: repository.NewMeetingRepo(appCtx.DB),
		users:    repository.NewUserRepo(appCtx.DB),
		registry: registry,
		log:      appCtx.Logger,
	}
}

// CreateMeeting opens a meeting owned by host. An empty category list
// allows every criterion kind; a zero ttl gets the default. The join
// code is minted at random and retried on the rare collision.
func (s *Service) CreateMeeting(ctx context.Context, hostID uint64, title string, ttl time.Duration, categories []features.Kind) (db.InstantMeeting, error) {
	title = strings.TrimSpace(title)
	if len(title) > maxTitleLen {
		return db.InstantMeeting{}, svcErr.ValidationFailed("title", fmt.Sprintf("title exceeds %d characters", maxTitleLen))
	}
	if ttl < 0 || ttl > maxMeetingTTL {
		return db.InstantMeeting{}, svcErr.ValidationFailed("ttl", fmt.Sprintf("ttl must be between 0 and %s", maxMeetingTTL))
	}
	if ttl == 0 {
		ttl = defaultMeetingTTL
	}
	for _, k := range categories {
		if !k.Valid() {
			return db.InstantMeeting{}, svcErr.ValidationFailed("categories", fmt.Sprintf("unknown feature category %q", k))
		}
	}

	if _, err := s.users.GetByID(ctx, hostID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.InstantMeeting{}, svcErr.NotFound("user", hostID)
		}
		return db.InstantMeeting{}, err
	}

	var meeting db.InstantMeeting
	for attempt := 0; ; attempt++ {
		code, err := randomCode()
		if err != nil {
			return db.InstantMeeting{}, err
		}
		meeting = db.InstantMeeting{
			Code:              code,
			HostUserID:        hostID,
			Title:             title,
			FeatureCategories: categories,
			ExpiresAt:         time.Now().UTC().Add(ttl),
		}
		err = s.meetings.CreateMeeting(ctx, &meeting)
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < maxCodeAttempts-1 {
			continue
		}
		return db.InstantMeeting{}, err
	}

	s.log.Info("meeting created",
		"meeting_id", meeting.ID, "code", meeting.Code, "host_user_id", hostID, "expires_at", meeting.ExpiresAt)
	return meeting, nil
}

// JoinMeeting enters the user into the meeting found by code. A
// returning user gets their original participant row back, refreshed
// with the new nickname and attributes.
func (s *Service) JoinMeeting(ctx context.Context, code string, userID uint64, nickname string, attrs features.Attributes) (db.Participant, db.InstantMeeting, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	meeting, err := s.meetings.GetMeetingByCode(ctx, code)
	if err != nil {
		return db.Participant{}, db.InstantMeeting{}, err
	}
	if meeting.Expired(time.Now().UTC()) {
		return db.Participant{}, db.InstantMeeting{}, svcErr.MeetingExpired(meeting.ID)
	}
	if err := attrs.Validate(); err != nil {
		return db.Participant{}, db.InstantMeeting{}, svcErr.ValidationFailed("attributes", err.Error())
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return db.Participant{}, db.InstantMeeting{}, err
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = user.Nickname
	}

	participant, err := s.meetings.UpsertParticipant(ctx, db.Participant{
		MeetingID:  meeting.ID,
		UserID:     userID,
		Nickname:   nickname,
		Attributes: attrs,
		IsActive:   true,
		JoinedAt:   time.Now().UTC(),
	})
	if err != nil {
		return db.Participant{}, db.InstantMeeting{}, err
	}

	s.log.Info("participant joined",
		"meeting_id", meeting.ID, "participant_id", participant.ID, "user_id", userID)
	return participant, meeting, nil
}

// LeaveMeeting takes the user out of the candidate pool. Their
// participant row and any instant matches survive. Leaving twice is a
// no-op.
func (s *Service) LeaveMeeting(ctx context.Context, meetingID, userID uint64) error {
	participant, err := s.meetings.GetParticipant(ctx, meetingID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.ParticipantNotFound(meetingID)
		}
		return err
	}
	if !participant.IsActive {
		return nil
	}
	if _, err := s.meetings.DeactivateParticipant(ctx, meetingID, userID); err != nil {
		return err
	}
	s.log.Info("participant left",
		"meeting_id", meetingID, "participant_id", participant.ID, "user_id", userID)
	return nil
}

// DeclareInterest replaces the caller's declaration and evaluates it
// against every other active participant, both directions: we match
// when my criteria accept your attributes and yours accept mine. All
// pairs that newly satisfy each other match at once; the count of
// those is returned.
func (s *Service) DeclareInterest(ctx context.Context, meetingID, userID uint64, criteria features.Criteria) (int, error) {
	meeting, err := s.meetings.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return 0, err
	}
	if meeting.Expired(time.Now().UTC()) {
		return 0, svcErr.MeetingExpired(meeting.ID)
	}
	if err := criteria.Validate(meeting.FeatureCategories); err != nil {
		return 0, svcErr.ValidationFailed("criteria", err.Error())
	}

	me, err := s.meetings.GetParticipant(ctx, meetingID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, svcErr.ParticipantNotFound(meetingID)
		}
		return 0, err
	}
	if !me.IsActive {
		return 0, svcErr.ParticipantNotFound(meetingID)
	}

	if err := s.meetings.UpsertInterest(ctx, db.Interest{
		MeetingID:     meetingID,
		ParticipantID: me.ID,
		Criteria:      criteria,
	}); err != nil {
		return 0, err
	}

	candidates, err := s.meetings.ListActiveParticipantsWithInterests(ctx, meetingID)
	if err != nil {
		return 0, err
	}

	newMatches := 0
	for _, cand := range candidates {
		if cand.Participant.ID == me.ID || !cand.HasInterest {
			continue
		}
		if !criteria.SatisfiedBy(cand.Participant.Attributes) {
			continue
		}
		if !cand.Criteria.SatisfiedBy(me.Attributes) {
			continue
		}
		_, created, err := s.registry.CreateInstantIfAbsent(ctx, meetingID, me, cand.Participant)
		if err != nil {
			return newMatches, err
		}
		if created {
			newMatches++
		}
	}

	s.log.Info("interest declared",
		"meeting_id", meetingID, "participant_id", me.ID, "criteria", len(criteria), "new_matches", newMatches)
	return newMatches, nil
}

// Counterpart identifies the other side of an instant match the way
// participants know each other in the room.
type Counterpart struct {
	ParticipantID uint64              `json:"participant_id"`
	Nickname      string              `json:"nickname"`
	Attributes    features.Attributes `json:"attributes"`
}

// MatchView is one instant match from the caller's perspective.
type MatchView struct {
	InstantMatchID uint64      `json:"instant_match_id"`
	ChatChannelID  string      `json:"chat_channel_id,omitempty"`
	MatchedAt      time.Time   `json:"matched_at"`
	Counterpart    Counterpart `json:"counterpart"`
}

// ListInstantMatches returns the caller's instant matches in the
// meeting. A participant who left can still see theirs.
func (s *Service) ListInstantMatches(ctx context.Context, meetingID, userID uint64) ([]MatchView, error) {
	me, err := s.meetings.GetParticipant(ctx, meetingID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.ParticipantNotFound(meetingID)
		}
		return nil, err
	}

	matches, err := s.registry.ListInstant(ctx, meetingID, me.ID)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		otherIDs = append(otherIDs, m.OtherParticipantID(me.ID))
	}
	others, err := s.meetings.GetParticipantsByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		other, ok := others[m.OtherParticipantID(me.ID)]
		if !ok {
			continue
		}
		views = append(views, MatchView{
			InstantMatchID: m.ID,
			ChatChannelID:  m.ChatChannelID,
			MatchedAt:      m.CreatedAt,
			Counterpart: Counterpart{
				ParticipantID: other.ID,
				Nickname:      other.Nickname,
				Attributes:    other.Attributes,
			},
		})
	}
	return views, nil
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate meeting code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
