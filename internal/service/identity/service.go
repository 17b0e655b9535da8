// Package identity answers "who is this user allowed to appear as to
// this viewer". It is the only path from a stored user to anything a
// client renders.
package identity

import (
	"context"
	"log/slog"

	"github.com/veiledapp/veiled-backend/internal/anonymity"
	"github.com/veiledapp/veiled-backend/internal/app"
	"github.com/veiledapp/veiled-backend/internal/db"
	"github.com/veiledapp/veiled-backend/internal/repository"
)

type Service struct {
	users   *repository.UserRepo
	matches *repository.MatchRepo
	log     *slog.Logger
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		users:   repository.NewUserRepo(appCtx.DB),
		matches: repository.NewMatchRepo(appCtx.DB),
		log:     appCtx.Logger,
	}
}

// ResolveIdentity projects the subject for the viewer. Whether the
// veil lifts depends solely on an active match between the two.
func (s *Service) ResolveIdentity(ctx context.Context, subjectID, viewerID uint64) (anonymity.DisplayIdentity, error) {
	subject, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		return anonymity.DisplayIdentity{}, err
	}

	var between []db.Match
	if viewerID != subjectID {
		between, err = s.matches.ListBetweenUsers(ctx, viewerID, subjectID)
		if err != nil {
			return anonymity.DisplayIdentity{}, err
		}
	}
	return anonymity.Resolve(subject, viewerID, between), nil
}

// ResolveMatchedCounterpart projects the other side of a match the
// viewer holds. The caller guarantees the match involves the viewer.
func (s *Service) ResolveMatchedCounterpart(ctx context.Context, m db.Match, viewerID uint64) (anonymity.DisplayIdentity, error) {
	return s.ResolveIdentity(ctx, m.OtherUserID(viewerID), viewerID)
}
