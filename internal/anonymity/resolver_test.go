package anonymity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veiledapp/veiled-backend/internal/db"
)

func subjectFixture() db.User {
	return db.User{
		ID:          7,
		AnonymousID: "9f2c1d34-0000-4000-8000-000000000007",
		Nickname:    "NightOwl",
		RealName:    "Dana Reyes",
		PhoneNumber: "+15550100007",
		Gender:      "female",
		Age:         29,
	}
}

func TestResolveStranger(t *testing.T) {
	got := Resolve(subjectFixture(), 3, nil)

	assert.False(t, got.IsMatched)
	assert.False(t, got.IsSelf)
	assert.Equal(t, "NightOwl", got.DisplayName)
	assert.Equal(t, "NightOwl", got.Nickname)
	assert.Equal(t, "9f2c1d34-0000-4000-8000-000000000007", got.AnonymousID)
	assert.Empty(t, got.RealName, "real name stays veiled for strangers")
	assert.Empty(t, got.PhoneNumber)
	assert.Equal(t, 29, got.Age)
}

func TestResolveMatchedViewer(t *testing.T) {
	matches := []db.Match{
		{UserLoID: 3, UserHiID: 7, GroupID: 1, IsActive: true},
	}

	got := Resolve(subjectFixture(), 3, matches)

	assert.True(t, got.IsMatched)
	assert.Equal(t, "Dana Reyes", got.RealName)
	assert.Equal(t, "Dana Reyes", got.DisplayName)
	assert.Empty(t, got.PhoneNumber, "phone number is never shared, match or not")
}

func TestResolveInactiveMatchKeepsVeil(t *testing.T) {
	matches := []db.Match{
		{UserLoID: 3, UserHiID: 7, GroupID: 1, IsActive: false},
	}

	got := Resolve(subjectFixture(), 3, matches)

	assert.False(t, got.IsMatched)
	assert.Empty(t, got.RealName)
	assert.Equal(t, "NightOwl", got.DisplayName)
}

func TestResolveMatchWithThirdPartyKeepsVeil(t *testing.T) {
	// Viewer 3 is matched with someone else entirely; subject 7 is not
	// part of that pair.
	matches := []db.Match{
		{UserLoID: 3, UserHiID: 11, GroupID: 1, IsActive: true},
	}

	got := Resolve(subjectFixture(), 3, matches)

	assert.False(t, got.IsMatched)
	assert.Empty(t, got.RealName)
}

func TestResolveSelf(t *testing.T) {
	got := Resolve(subjectFixture(), 7, nil)

	assert.True(t, got.IsSelf)
	assert.Equal(t, "Dana Reyes", got.RealName)
	assert.Equal(t, "+15550100007", got.PhoneNumber)
	assert.Equal(t, "Dana Reyes", got.DisplayName)
}

func TestResolveSelfWithoutRealName(t *testing.T) {
	subject := subjectFixture()
	subject.RealName = ""

	got := Resolve(subject, 7, nil)

	assert.True(t, got.IsSelf)
	assert.Equal(t, "NightOwl", got.DisplayName, "nickname stands in when no real name is set")
}
