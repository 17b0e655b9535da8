package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veiledapp/veiled-backend/internal/db"
)

type MatchRepo struct {
	db *gorm.DB
}

func NewMatchRepo(gdb *gorm.DB) *MatchRepo {
	return &MatchRepo{db: gdb}
}

// CreateIfAbsent inserts the match unless the pair already has a row
// in the group, in which case the existing row is returned untouched.
// The unique index on the canonical pair arbitrates races: both racing
// writers end up seeing the same single row, one with created=true.
func (r *MatchRepo) CreateIfAbsent(ctx context.Context, match db.Match) (db.Match, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&match)
	if res.Error != nil {
		return db.Match{}, false, res.Error
	}
	if res.RowsAffected > 0 {
		return match, true, nil
	}

	existing, found, err := r.FindBetween(ctx, match.UserLoID, match.UserHiID, match.GroupID)
	if err != nil {
		return db.Match{}, false, err
	}
	if !found {
		return db.Match{}, false, fmt.Errorf("match for pair (%d,%d) in group %d missing after conflict", match.UserLoID, match.UserHiID, match.GroupID)
	}
	return existing, false, nil
}

// FindBetween looks the pair up in canonical order, active or not.
func (r *MatchRepo) FindBetween(ctx context.Context, userA, userB, groupID uint64) (db.Match, bool, error) {
	lo, hi := db.CanonicalPair(userA, userB)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_lo_id = ? AND user_hi_id = ? AND group_id = ?", lo, hi, groupID).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Match{}, false, nil
	}
	if err != nil {
		return db.Match{}, false, err
	}
	return m, true, nil
}

func (r *MatchRepo) GetByID(ctx context.Context, matchID uint64) (db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).Take(&m, matchID).Error; err != nil {
		return db.Match{}, err
	}
	return m, nil
}

// Deactivate flips the match inactive and records the audit fields.
// Deactivating an already-inactive match is a no-op that keeps the
// original audit values.
func (r *MatchRepo) Deactivate(ctx context.Context, matchID uint64, reason string) (db.Match, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&db.Match{}).
		Where("id = ? AND is_active = ?", matchID, true).
		Updates(map[string]any{
			"is_active":      false,
			"unmatched_at":   now,
			"unmatch_reason": reason,
		})
	if res.Error != nil {
		return db.Match{}, res.Error
	}
	return r.GetByID(ctx, matchID)
}

// ListActiveForUser returns the user's active matches across all
// groups, newest first.
func (r *MatchRepo) ListActiveForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user_lo_id = ? OR user_hi_id = ?) AND is_active = ?", userID, userID, true).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// ListBetweenUsers returns every match row involving both users, any
// group, any state. The identity resolver feeds on this.
func (r *MatchRepo) ListBetweenUsers(ctx context.Context, userA, userB uint64) ([]db.Match, error) {
	lo, hi := db.CanonicalPair(userA, userB)
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_lo_id = ? AND user_hi_id = ?", lo, hi).
		Find(&matches).Error
	return matches, err
}

// CreateInstantIfAbsent is CreateIfAbsent for meeting-scoped instant
// matches.
func (r *MatchRepo) CreateInstantIfAbsent(ctx context.Context, im db.InstantMatch) (db.InstantMatch, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&im)
	if res.Error != nil {
		return db.InstantMatch{}, false, res.Error
	}
	if res.RowsAffected > 0 {
		return im, true, nil
	}

	existing, found, err := r.FindInstantBetween(ctx, im.MeetingID, im.ParticipantLoID, im.ParticipantHiID)
	if err != nil {
		return db.InstantMatch{}, false, err
	}
	if !found {
		return db.InstantMatch{}, false, fmt.Errorf("instant match for pair (%d,%d) in meeting %d missing after conflict", im.ParticipantLoID, im.ParticipantHiID, im.MeetingID)
	}
	return existing, false, nil
}

func (r *MatchRepo) FindInstantBetween(ctx context.Context, meetingID, partA, partB uint64) (db.InstantMatch, bool, error) {
	lo, hi := db.CanonicalPair(partA, partB)
	var m db.InstantMatch
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND participant_lo_id = ? AND participant_hi_id = ?", meetingID, lo, hi).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.InstantMatch{}, false, nil
	}
	if err != nil {
		return db.InstantMatch{}, false, err
	}
	return m, true, nil
}

// ListInstantForParticipant returns the participant's active instant
// matches in the meeting, newest first.
func (r *MatchRepo) ListInstantForParticipant(ctx context.Context, meetingID, participantID uint64) ([]db.InstantMatch, error) {
	var matches []db.InstantMatch
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND (participant_lo_id = ? OR participant_hi_id = ?) AND is_active = ?",
			meetingID, participantID, participantID, true).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}
