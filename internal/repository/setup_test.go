package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veiledapp/veiled-backend/internal/db"
)

// setupRepoDB opens a per-test in-memory database. The single
// connection makes concurrent transactions queue instead of failing
// with busy errors.
func setupRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(db.Models()...))
	return gdb
}

func mustCreateUser(t *testing.T, gdb *gorm.DB, id uint64, credits int64) db.User {
	t.Helper()
	u := db.User{
		ID:          id,
		AnonymousID: fmt.Sprintf("anon-%d", id),
		Nickname:    fmt.Sprintf("user%d", id),
		RealName:    fmt.Sprintf("Real User %d", id),
		Credits:     credits,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func mustCreateLike(t *testing.T, gdb *gorm.DB, actorID, recipientID, groupID uint64) db.Like {
	t.Helper()
	like := db.Like{ActorID: actorID, RecipientID: recipientID, GroupID: groupID}
	require.NoError(t, gdb.Create(&like).Error)
	return like
}

// backdateLike rewrites the like's timestamps without touching
// updated_at bookkeeping.
func backdateLike(t *testing.T, gdb *gorm.DB, like db.Like, to time.Time) {
	t.Helper()
	err := gdb.Model(&db.Like{ActorID: like.ActorID, RecipientID: like.RecipientID, GroupID: like.GroupID}).
		UpdateColumns(map[string]any{"created_at": to, "updated_at": to}).Error
	require.NoError(t, err)
}

func balanceOf(t *testing.T, gdb *gorm.DB, userID uint64) int64 {
	t.Helper()
	var u db.User
	require.NoError(t, gdb.Take(&u, userID).Error)
	return u.Credits
}
