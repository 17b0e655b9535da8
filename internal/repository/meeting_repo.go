package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veiledapp/veiled-backend/internal/db"
	"github.com/veiledapp/veiled-backend/internal/features"
)

type MeetingRepo struct {
	db *gorm.DB
}

func NewMeetingRepo(gdb *gorm.DB) *MeetingRepo {
	return &MeetingRepo{db: gdb}
}

// CreateMeeting inserts the meeting. A code collision surfaces as
// gorm.ErrDuplicatedKey; the service retries with a fresh code.
func (r *MeetingRepo) CreateMeeting(ctx context.Context, m *db.InstantMeeting) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MeetingRepo) GetMeetingByID(ctx context.Context, id uint64) (db.InstantMeeting, error) {
	var m db.InstantMeeting
	if err := r.db.WithContext(ctx).Take(&m, id).Error; err != nil {
		return db.InstantMeeting{}, err
	}
	return m, nil
}

func (r *MeetingRepo) GetMeetingByCode(ctx context.Context, code string) (db.InstantMeeting, error) {
	var m db.InstantMeeting
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&m).Error; err != nil {
		return db.InstantMeeting{}, err
	}
	return m, nil
}

// UpsertParticipant inserts the participant or, when the user already
// has a row in the meeting, refreshes nickname, attributes and the
// activity fields. A rejoin therefore reactivates the original row and
// keeps its participant id.
func (r *MeetingRepo) UpsertParticipant(ctx context.Context, p db.Participant) (db.Participant, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "meeting_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"nickname", "attributes", "is_active", "joined_at", "left_at", "updated_at",
			}),
		}).
		Create(&p).Error
	if err != nil {
		return db.Participant{}, err
	}
	return r.GetParticipant(ctx, p.MeetingID, p.UserID)
}

func (r *MeetingRepo) GetParticipant(ctx context.Context, meetingID, userID uint64) (db.Participant, error) {
	var p db.Participant
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND user_id = ?", meetingID, userID).
		Take(&p).Error
	if err != nil {
		return db.Participant{}, err
	}
	return p, nil
}

// GetParticipantsByIDs returns the found participants keyed by id.
func (r *MeetingRepo) GetParticipantsByIDs(ctx context.Context, ids []uint64) (map[uint64]db.Participant, error) {
	out := make(map[uint64]db.Participant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var parts []db.Participant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&parts).Error; err != nil {
		return nil, err
	}
	for _, p := range parts {
		out[p.ID] = p
	}
	return out, nil
}

// DeactivateParticipant marks the participant as left. Reports whether
// an active row was flipped.
func (r *MeetingRepo) DeactivateParticipant(ctx context.Context, meetingID, userID uint64) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&db.Participant{}).
		Where("meeting_id = ? AND user_id = ? AND is_active = ?", meetingID, userID, true).
		Updates(map[string]any{"is_active": false, "left_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpsertInterest writes the participant's declaration, replacing any
// previous one.
func (r *MeetingRepo) UpsertInterest(ctx context.Context, in db.Interest) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "participant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"criteria", "updated_at"}),
		}).
		Create(&in).Error
}

func (r *MeetingRepo) GetInterest(ctx context.Context, meetingID, participantID uint64) (db.Interest, bool, error) {
	var in db.Interest
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND participant_id = ?", meetingID, participantID).
		Take(&in).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Interest{}, false, nil
	}
	if err != nil {
		return db.Interest{}, false, err
	}
	return in, true, nil
}

// ParticipantWithInterest pairs a participant with their current
// declaration, if any.
type ParticipantWithInterest struct {
	Participant db.Participant
	Criteria    features.Criteria
	HasInterest bool
}

// ListActiveParticipantsWithInterests loads the meeting's active
// participants and their declarations in two fixed queries, so
// evaluating a declaration against all candidates never goes back to
// the database per candidate.
func (r *MeetingRepo) ListActiveParticipantsWithInterests(ctx context.Context, meetingID uint64) ([]ParticipantWithInterest, error) {
	var parts []db.Participant
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND is_active = ?", meetingID, true).
		Order("id ASC").
		Find(&parts).Error
	if err != nil {
		return nil, err
	}

	var interests []db.Interest
	err = r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Find(&interests).Error
	if err != nil {
		return nil, err
	}
	byParticipant := make(map[uint64]db.Interest, len(interests))
	for _, in := range interests {
		byParticipant[in.ParticipantID] = in
	}

	out := make([]ParticipantWithInterest, 0, len(parts))
	for _, p := range parts {
		entry := ParticipantWithInterest{Participant: p}
		if in, ok := byParticipant[p.ID]; ok {
			entry.Criteria = in.Criteria
			entry.HasInterest = true
		}
		out = append(out, entry)
	}
	return out, nil
}
