package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veiledapp/veiled-backend/internal/billing"
	"github.com/veiledapp/veiled-backend/internal/db"
	"github.com/veiledapp/veiled-backend/internal/utils/pagination"
)

type LikeRepo struct {
	db *gorm.DB
}

func NewLikeRepo(gdb *gorm.DB) *LikeRepo {
	return &LikeRepo{db: gdb}
}

// RecordInterest inserts the like and charges the actor in one
// transaction. A duplicate insert is reported as inserted=false with
// no charge; any charge failure rolls the like back too.
func (r *LikeRepo) RecordInterest(ctx context.Context, like db.Like, charge int64) (bool, error) {
	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		if charge > 0 {
			return billing.DeductWithin(tx, like.ActorID, charge)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// HasLiked reports whether actor already expressed interest in
// recipient within the group.
func (r *LikeRepo) HasLiked(ctx context.Context, actorID, recipientID, groupID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("actor_id = ? AND recipient_id = ? AND group_id = ?", actorID, recipientID, groupID).
		Count(&n).Error
	return n > 0, err
}

// WithdrawInterest deletes the like and, when the like is younger than
// window, refunds the charge in the same transaction. Withdrawing a
// like that does not exist is a no-op.
func (r *LikeRepo) WithdrawInterest(ctx context.Context, actorID, recipientID, groupID uint64, refund int64, window time.Duration) (removed, refunded bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var like db.Like
		findErr := tx.
			Where("actor_id = ? AND recipient_id = ? AND group_id = ?", actorID, recipientID, groupID).
			Take(&like).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if findErr != nil {
			return findErr
		}

		res := tx.Delete(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true

		if refund > 0 && time.Since(like.CreatedAt) <= window {
			if refundErr := billing.RefundWithin(tx, actorID, refund); refundErr != nil {
				return refundErr
			}
			refunded = true
		}
		return nil
	})
	if err != nil {
		return false, false, err
	}
	return removed, refunded, nil
}

// GetAdmirers pages through the likes received by recipient in the
// group, newest first. Returns one page and the token for the next, or
// an empty token on the last page.
func (r *LikeRepo) GetAdmirers(ctx context.Context, groupID, recipientID uint64, cursor pagination.Cursor, limit int) ([]db.Like, string, error) {
	q := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("recipient_id = ? AND group_id = ?", recipientID, groupID)
	q = applyAdmirerCursor(q, cursor)

	var likes []db.Like
	err := q.Order("updated_at DESC, actor_id DESC").
		Limit(limit + 1).
		Find(&likes).Error
	if err != nil {
		return nil, "", err
	}
	return pageAdmirers(likes, limit)
}

// GetNewAdmirers is GetAdmirers restricted to actors the recipient has
// not expressed interest back in yet.
func (r *LikeRepo) GetNewAdmirers(ctx context.Context, groupID, recipientID uint64, cursor pagination.Cursor, limit int) ([]db.Like, string, error) {
	q := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("recipient_id = ? AND group_id = ?", recipientID, groupID).
		Where(`NOT EXISTS (
			SELECT 1 FROM likes mine
			WHERE mine.actor_id = ?
			  AND mine.recipient_id = likes.actor_id
			  AND mine.group_id = likes.group_id
		)`, recipientID)
	q = applyAdmirerCursor(q, cursor)

	var likes []db.Like
	err := q.Order("updated_at DESC, actor_id DESC").
		Limit(limit + 1).
		Find(&likes).Error
	if err != nil {
		return nil, "", err
	}
	return pageAdmirers(likes, limit)
}

// CountAdmirers counts all likes received by recipient in the group.
// Serves as the rebuild source for the cached counter.
func (r *LikeRepo) CountAdmirers(ctx context.Context, groupID, recipientID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("recipient_id = ? AND group_id = ?", recipientID, groupID).
		Count(&n).Error
	return n, err
}

func applyAdmirerCursor(q *gorm.DB, cursor pagination.Cursor) *gorm.DB {
	if cursor.IsZero() {
		return q
	}
	ts := time.UnixMilli(cursor.UpdatedUnixMs).UTC()
	return q.Where("updated_at < ? OR (updated_at = ? AND actor_id < ?)", ts, ts, cursor.ActorID)
}

func pageAdmirers(likes []db.Like, limit int) ([]db.Like, string, error) {
	if len(likes) <= limit {
		return likes, "", nil
	}
	likes = likes[:limit]
	last := likes[len(likes)-1]
	next := pagination.Cursor{
		ActorID:       last.ActorID,
		UpdatedUnixMs: last.UpdatedAt.UnixMilli(),
	}
	return likes, next.Encode(), nil
}
