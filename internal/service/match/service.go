// Package match is the registry of mutual-interest matches, both the
// group-scoped kind and the meeting-scoped instant kind. It owns chat
// channel provisioning and the notification fan-out; callers only ever
// ask it to materialize a match for a pair.
package match

import (
	"context"
	"log/slog"

	"github.com/veiledapp/veiled-backend/internal/app"
	"github.com/veiledapp/veiled-backend/internal/chat"
	"github.com/veiledapp/veiled-backend/internal/db"
	svcErr "github.com/veiledapp/veiled-backend/internal/errors"
	"github.com/veiledapp/veiled-backend/internal/notify"
	"github.com/veiledapp/veiled-backend/internal/repository"
)

type Service struct {
	matches  *repository.MatchRepo
	chat     chat.Provisioner
	notifier notify.Notifier
	log      *slog.Logger
}

func NewService(appCtx *app.AppContext, provisioner chat.Provisioner, notifier notify.Notifier) *Service {
	return &Service{
		matches:  repository.NewMatchRepo(appCtx.DB),
		chat:     provisioner,
		notifier: notifier,
		log:      appCtx.Logger,
	}
}

// CreateIfAbsent materializes the match for a user pair in a group.
// The chat channel is provisioned first so a match row is never
// visible without one; provisioning failure aborts the whole call.
// When the pair already has a row it is returned untouched, active or
// not, with created=false.
func (s *Service) CreateIfAbsent(ctx context.Context, userA, userB, groupID uint64) (db.Match, bool, error) {
	if userA == userB {
		return db.Match{}, false, svcErr.ValidationFailed("user_id", "a user cannot match with themselves")
	}

	channelID, err := s.chat.CreateChannel(ctx, userA, userB)
	if err != nil {
		return db.Match{}, false, svcErr.Provisioning(err)
	}

	lo, hi := db.CanonicalPair(userA, userB)
	m, created, err := s.matches.CreateIfAbsent(ctx, db.Match{
		UserLoID:      lo,
		UserHiID:      hi,
		GroupID:       groupID,
		ChatChannelID: channelID,
		IsActive:      true,
	})
	if err != nil {
		return db.Match{}, false, err
	}

	if created {
		s.log.Info("match created",
			"match_id", m.ID, "group_id", groupID, "user_lo_id", lo, "user_hi_id", hi)
		s.notifyPair(ctx, m.ID, m.UserLoID, m.UserHiID)
	}
	return m, created, nil
}

// Unmatch deactivates the match on behalf of one of its members. The
// row survives with the audit fields set; the pair will not silently
// re-match. A match the caller is not part of reads as absent.
func (s *Service) Unmatch(ctx context.Context, matchID, byUserID uint64, reason string) (db.Match, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return db.Match{}, err
	}
	if !m.HasUser(byUserID) {
		return db.Match{}, svcErr.NotFound("match", matchID)
	}

	deactivated, err := s.matches.Deactivate(ctx, matchID, reason)
	if err != nil {
		return db.Match{}, err
	}
	s.log.Info("match deactivated", "match_id", matchID, "by_user_id", byUserID)
	return deactivated, nil
}

// ListActive returns the user's active matches, newest first.
func (s *Service) ListActive(ctx context.Context, userID uint64) ([]db.Match, error) {
	return s.matches.ListActiveForUser(ctx, userID)
}

// FindBetween exposes the pair lookup for callers deciding whether a
// pair is already matched.
func (s *Service) FindBetween(ctx context.Context, userA, userB, groupID uint64) (db.Match, bool, error) {
	return s.matches.FindBetween(ctx, userA, userB, groupID)
}

// CreateInstantIfAbsent is the meeting-scoped counterpart of
// CreateIfAbsent. The chat channel is shared with any group match of
// the same user pair; the provisioner hands back the existing one.
func (s *Service) CreateInstantIfAbsent(ctx context.Context, meetingID uint64, partA, partB db.Participant) (db.InstantMatch, bool, error) {
	if partA.ID == partB.ID {
		return db.InstantMatch{}, false, svcErr.ValidationFailed("participant_id", "a participant cannot match with themselves")
	}

	channelID, err := s.chat.CreateChannel(ctx, partA.UserID, partB.UserID)
	if err != nil {
		return db.InstantMatch{}, false, svcErr.Provisioning(err)
	}

	lo, hi := db.CanonicalPair(partA.ID, partB.ID)
	im, created, err := s.matches.CreateInstantIfAbsent(ctx, db.InstantMatch{
		MeetingID:       meetingID,
		ParticipantLoID: lo,
		ParticipantHiID: hi,
		ChatChannelID:   channelID,
		IsActive:        true,
	})
	if err != nil {
		return db.InstantMatch{}, false, err
	}

	if created {
		s.log.Info("instant match created",
			"instant_match_id", im.ID, "meeting_id", meetingID,
			"participant_lo_id", lo, "participant_hi_id", hi)
		s.notifyPair(ctx, im.ID, partA.UserID, partB.UserID)
	}
	return im, created, nil
}

// ListInstant returns the participant's active instant matches in the
// meeting.
func (s *Service) ListInstant(ctx context.Context, meetingID, participantID uint64) ([]db.InstantMatch, error) {
	return s.matches.ListInstantForParticipant(ctx, meetingID, participantID)
}

// notifyPair fires the match notifications. Delivery problems are
// logged and swallowed; a match is never rolled back over them.
func (s *Service) notifyPair(ctx context.Context, matchID uint64, userIDs ...uint64) {
	for _, uid := range userIDs {
		if err := s.notifier.NotifyMatch(ctx, uid, matchID); err != nil {
			s.log.Warn("match notification failed",
				"user_id", uid, "match_id", matchID, "error", err)
		}
	}
}
