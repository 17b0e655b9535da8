// Package repository holds the data access layer. Repositories own
// their SQL; services compose them and never touch gorm directly.
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/veiledapp/veiled-backend/internal/db"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(gdb *gorm.DB) *UserRepo {
	return &UserRepo{db: gdb}
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Take(&u, id).Error; err != nil {
		return db.User{}, err
	}
	return u, nil
}

// GetByIDs returns the found users keyed by id. Missing ids are simply
// absent from the map.
func (r *UserRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]db.User, error) {
	out := make(map[uint64]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
