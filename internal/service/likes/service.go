// Package likes is the ledger of expressed interest. It gates
// expressions on group activation and credits, keeps expressions
// idempotent, detects mirror likes, and hands mutual pairs to the
// match registry.
package likes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/veiledapp/veiled-backend/internal/anonymity"
	"github.com/veiledapp/veiled-backend/internal/app"
	"github.com/veiledapp/veiled-backend/internal/billing"
	"github.com/veiledapp/veiled-backend/internal/cache"
	"github.com/veiledapp/veiled-backend/internal/db"
	svcErr "github.com/veiledapp/veiled-backend/internal/errors"
	"github.com/veiledapp/veiled-backend/internal/groups"
	"github.com/veiledapp/veiled-backend/internal/repository"
	"github.com/veiledapp/veiled-backend/internal/utils/pagination"
)

const (
	// expressCost is what a non-premium user pays per expression.
	// Premium users express for free.
	expressCost = 1

	// refundWindow bounds how old a like may be for its withdrawal to
	// refund the credit.
	refundWindow = time.Hour

	defaultPageSize = 20
	maxPageSize     = 100
)

// Registry is the slice of the match service the ledger drives.
type Registry interface {
	CreateIfAbsent(ctx context.Context, userA, userB, groupID uint64) (db.Match, bool, error)
}

type Service struct {
	likes    *repository.LikeRepo
	users    *repository.UserRepo
	registry Registry
	groups   groups.Directory
	ledger   billing.CreditLedger
	cache    *cache.RedisCache
	log      *slog.Logger
}

func NewService(appCtx *app.AppContext, registry Registry, directory groups.Directory) *Service {
	return &Service{
		likes:    repository.NewLikeRepo(appCtx.DB),
		users:    repository.NewUserRepo(appCtx.DB),
		registry: registry,
		groups:   directory,
		ledger:   billing.NewLedger(appCtx.DB),
		cache:    appCtx.RedisCache,
		log:      appCtx.Logger,
	}
}

// ExpressResult reports what an expression led to. Match is set only
// when the pair holds an active match after the call.
type ExpressResult struct {
	Matched bool
	Match   *db.Match
}

// ExpressInterest records the actor's interest in the recipient within
// a group. The credit charge and the like insert commit together. A
// repeated expression costs nothing and fails with AlreadyExpressed;
// it still re-runs the mutual check so a pair whose match creation
// failed earlier converges on retry.
func (s *Service) ExpressInterest(ctx context.Context, actorID, recipientID, groupID uint64, isSuper bool) (ExpressResult, error) {
	if actorID == recipientID {
		return ExpressResult{}, svcErr.ValidationFailed("recipient_id", "cannot express interest in yourself")
	}

	active, err := s.groups.IsMatchingActive(ctx, groupID)
	if err != nil {
		return ExpressResult{}, err
	}
	if !active {
		return ExpressResult{}, svcErr.MatchingInactive(groupID)
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return ExpressResult{}, err
	}
	if _, err := s.users.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExpressResult{}, svcErr.NotFound("user", recipientID)
		}
		return ExpressResult{}, err
	}

	charge := int64(expressCost)
	if actor.IsPremium {
		charge = 0
	}

	inserted, err := s.likes.RecordInterest(ctx, db.Like{
		ActorID:     actorID,
		RecipientID: recipientID,
		GroupID:     groupID,
		IsSuper:     isSuper,
	}, charge)
	if errors.Is(err, billing.ErrInsufficientFunds) {
		balance := actor.Credits
		if fresh, berr := s.ledger.Balance(ctx, actorID); berr == nil {
			balance = fresh
		}
		return ExpressResult{}, svcErr.InsufficientCredits(balance)
	}
	if err != nil {
		return ExpressResult{}, err
	}

	if !inserted {
		// The duplicate path also repairs a pair that is mutual but,
		// through an earlier provisioning failure, has no match yet.
		if _, healErr := s.matchIfMutual(ctx, actorID, recipientID, groupID); healErr != nil {
			s.log.Warn("mutual repair on duplicate expression failed",
				"actor_id", actorID, "recipient_id", recipientID, "group_id", groupID, "error", healErr)
		}
		return ExpressResult{}, svcErr.AlreadyExpressed(recipientID)
	}

	s.bumpAdmirerCount(ctx, groupID, recipientID, 1)

	return s.matchIfMutual(ctx, actorID, recipientID, groupID)
}

// matchIfMutual checks for the mirror like and, when present, asks the
// registry for the pair's match. Checking after our own insert is what
// makes the concurrent A-likes-B / B-likes-A interleaving safe: at
// least one side observes both rows.
func (s *Service) matchIfMutual(ctx context.Context, actorID, recipientID, groupID uint64) (ExpressResult, error) {
	mutual, err := s.likes.HasLiked(ctx, recipientID, actorID, groupID)
	if err != nil {
		return ExpressResult{}, err
	}
	if !mutual {
		return ExpressResult{}, nil
	}

	m, _, err := s.registry.CreateIfAbsent(ctx, actorID, recipientID, groupID)
	if err != nil {
		return ExpressResult{}, err
	}
	if !m.IsActive {
		// The pair unmatched before; their history stands.
		return ExpressResult{}, nil
	}
	return ExpressResult{Matched: true, Match: &m}, nil
}

// WithdrawInterest removes the actor's like. Likes younger than the
// refund window give the credit back; premium actors were never
// charged so never refunded. Withdrawing an unexpressed like is a
// no-op. An existing match is left alone.
func (s *Service) WithdrawInterest(ctx context.Context, actorID, recipientID, groupID uint64) (removed, refunded bool, err error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return false, false, err
	}
	refund := int64(expressCost)
	if actor.IsPremium {
		refund = 0
	}

	removed, refunded, err = s.likes.WithdrawInterest(ctx, actorID, recipientID, groupID, refund, refundWindow)
	if err != nil {
		return false, false, err
	}
	if removed {
		s.bumpAdmirerCount(ctx, groupID, recipientID, -1)
	}
	return removed, refunded, nil
}

// AdmirerCard is the veiled projection of one admirer.
type AdmirerCard struct {
	AnonymousID string    `json:"anonymous_id"`
	Nickname    string    `json:"nickname"`
	IsSuper     bool      `json:"is_super"`
	LikedAt     time.Time `json:"liked_at"`
}

// AdmirersPage is one page of admirers plus the continuation token,
// empty on the last page.
type AdmirersPage struct {
	Admirers  []AdmirerCard `json:"admirers"`
	NextToken string        `json:"next_token,omitempty"`
}

// ListAdmirers pages through everyone who expressed interest in the
// user within the group, newest first. Cards are always veiled;
// matched admirers reveal themselves in the matches listing instead.
func (s *Service) ListAdmirers(ctx context.Context, groupID, userID uint64, token string, limit int) (AdmirersPage, error) {
	cursor, limit, err := s.pageArgs(token, limit)
	if err != nil {
		return AdmirersPage{}, err
	}
	likes, next, err := s.likes.GetAdmirers(ctx, groupID, userID, cursor, limit)
	if err != nil {
		return AdmirersPage{}, err
	}
	return s.buildPage(ctx, userID, likes, next)
}

// ListNewAdmirers is ListAdmirers restricted to admirers the user has
// not expressed interest back in.
func (s *Service) ListNewAdmirers(ctx context.Context, groupID, userID uint64, token string, limit int) (AdmirersPage, error) {
	cursor, limit, err := s.pageArgs(token, limit)
	if err != nil {
		return AdmirersPage{}, err
	}
	likes, next, err := s.likes.GetNewAdmirers(ctx, groupID, userID, cursor, limit)
	if err != nil {
		return AdmirersPage{}, err
	}
	return s.buildPage(ctx, userID, likes, next)
}

// CountAdmirers serves the badge number. Cache first; a miss rebuilds
// the counter from the database and installs it with a TTL.
func (s *Service) CountAdmirers(ctx context.Context, groupID, userID uint64) (int64, error) {
	key := cache.KeyForAdmirerCount(groupID, userID)

	n, hit, err := s.cache.GetAdmirerCount(ctx, key)
	if err != nil {
		s.log.Warn("admirer count cache read failed", "key", key, "error", err)
	} else if hit {
		return n, nil
	}

	n, err = s.likes.CountAdmirers(ctx, groupID, userID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.SetAdmirerCount(ctx, key, n); err != nil {
		s.log.Warn("admirer count cache write failed", "key", key, "error", err)
	}
	return n, nil
}

func (s *Service) pageArgs(token string, limit int) (pagination.Cursor, int, error) {
	cursor, err := pagination.Decode(token)
	if err != nil {
		return pagination.Cursor{}, 0, svcErr.ValidationFailed("token", "malformed pagination token")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return cursor, limit, nil
}

func (s *Service) buildPage(ctx context.Context, viewerID uint64, likes []db.Like, next string) (AdmirersPage, error) {
	ids := make([]uint64, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.ActorID)
	}
	admirers, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return AdmirersPage{}, err
	}

	page := AdmirersPage{Admirers: make([]AdmirerCard, 0, len(likes)), NextToken: next}
	for _, l := range likes {
		u, ok := admirers[l.ActorID]
		if !ok {
			// Admirer account is gone; their like carries no card.
			continue
		}
		id := anonymity.Resolve(u, viewerID, nil)
		page.Admirers = append(page.Admirers, AdmirerCard{
			AnonymousID: id.AnonymousID,
			Nickname:    id.Nickname,
			IsSuper:     l.IsSuper,
			LikedAt:     l.UpdatedAt,
		})
	}
	return page, nil
}

// bumpAdmirerCount keeps the cached badge in step with writes. Cache
// trouble only costs freshness, never the write.
func (s *Service) bumpAdmirerCount(ctx context.Context, groupID, recipientID uint64, delta int64) {
	key := cache.KeyForAdmirerCount(groupID, recipientID)
	if err := s.cache.BumpAdmirerCount(ctx, key, delta); err != nil {
		s.log.Warn("admirer count cache bump failed", "key", key, "error", err)
	}
}
