package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veiledapp/veiled-backend/internal/app"
	"github.com/veiledapp/veiled-backend/internal/auth"
	"github.com/veiledapp/veiled-backend/internal/cache"
	"github.com/veiledapp/veiled-backend/internal/chat"
	"github.com/veiledapp/veiled-backend/internal/db"
	"github.com/veiledapp/veiled-backend/internal/groups"
	"github.com/veiledapp/veiled-backend/internal/handler"
	"github.com/veiledapp/veiled-backend/internal/notify"
	"github.com/veiledapp/veiled-backend/internal/server"
	"github.com/veiledapp/veiled-backend/internal/service/identity"
	"github.com/veiledapp/veiled-backend/internal/service/likes"
	"github.com/veiledapp/veiled-backend/internal/service/match"
	"github.com/veiledapp/veiled-backend/internal/service/meeting"
)

// apiFixture runs the real router over the real service stack, with
// sqlite and miniredis underneath.
type apiFixture struct {
	router http.Handler
	tokens *auth.TokenService
	gdb    *gorm.DB
}

func setupAPI(t *testing.T) *apiFixture {
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

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rc := cache.NewFromClient(client)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.NewAppContext(gdb, rc, logger)

	matchSvc := match.NewService(appCtx, chat.NewRedisProvisioner(rc), notify.NewSlogNotifier(logger))
	likesSvc := likes.NewService(appCtx, matchSvc, groups.Static{})
	identitySvc := identity.NewService(appCtx)
	meetingSvc := meeting.NewService(appCtx, matchSvc)

	tokens := auth.NewTokenService("test-secret", "veiled")
	router := server.NewRouter(logger, tokens, server.Handlers{
		Likes:    handler.NewLikesHandler(likesSvc, logger),
		Matches:  handler.NewMatchesHandler(matchSvc, identitySvc, logger),
		Identity: handler.NewIdentityHandler(identitySvc, logger),
		Meetings: handler.NewMeetingsHandler(meetingSvc, logger),
	}, nil)

	return &apiFixture{router: router, tokens: tokens, gdb: gdb}
}

func (f *apiFixture) mustUser(t *testing.T, id uint64, credits int64) {
	t.Helper()
	u := db.User{
		ID:          id,
		AnonymousID: fmt.Sprintf("anon-%d", id),
		Nickname:    fmt.Sprintf("user%d", id),
		RealName:    fmt.Sprintf("Real %d", id),
		Credits:     credits,
	}
	require.NoError(t, f.gdb.Create(&u).Error)
}

// do sends an authenticated request and decodes the JSON response into
// out when it is non-nil.
func (f *apiFixture) do(t *testing.T, asUser uint64, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if asUser != 0 {
		signed, err := f.tokens.Issue(asUser, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestHealthzNeedsNoToken(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, 0, http.MethodGet, "/healthz", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestAPIRequiresToken(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, 0, http.MethodGet, "/api/matches", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpressInterestRoundTrip(t *testing.T) {
	f := setupAPI(t)
	f.mustUser(t, 1, 5)
	f.mustUser(t, 2, 5)

	var first struct {
		Matched bool `json:"matched"`
	}
	rec := f.do(t, 1, http.MethodPost, "/api/groups/10/likes",
		map[string]any{"recipient_id": 2, "super": false}, &first)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.False(t, first.Matched)

	var second struct {
		Matched       bool   `json:"matched"`
		MatchID       uint64 `json:"match_id"`
		ChatChannelID string `json:"chat_channel_id"`
	}
	rec = f.do(t, 2, http.MethodPost, "/api/groups/10/likes",
		map[string]any{"recipient_id": 1, "super": true}, &second)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, second.Matched)
	assert.NotZero(t, second.MatchID)
	assert.NotEmpty(t, second.ChatChannelID)

	// Repeating the expression conflicts.
	rec = f.do(t, 1, http.MethodPost, "/api/groups/10/likes",
		map[string]any{"recipient_id": 2, "super": false}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_expressed")
}

func TestExpressInterestPaymentRequired(t *testing.T) {
	f := setupAPI(t)
	f.mustUser(t, 1, 0)
	f.mustUser(t, 2, 5)

	rec := f.do(t, 1, http.MethodPost, "/api/groups/10/likes",
		map[string]any{"recipient_id": 2, "super": false}, nil)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_credits")
}

func TestExpressInterestRejectsMalformedBody(t *testing.T) {
	f := setupAPI(t)
	f.mustUser(t, 1, 5)

	signed, err := f.tokens.Issue(1, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/groups/10/likes",
		bytes.NewReader([]byte(`{"recipient_id": `)))
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")
}

func TestAdmirersStayVeiledOverHTTP(t *testing.T) {
	f := setupAPI(t)
	f.mustUser(t, 1, 5)
	f.mustUser(t, 2, 5)

	rec := f.do(t, 1, http.MethodPost, "/api/groups/10/likes",
		map[string]any{"recipient_id": 2, "super": true}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var page struct {
		Admirers []struct {
			AnonymousID string `json:"anonymous_id"`
			Nickname    string `json:"nickname"`
			IsSuper     bool   `json:"is_super"`
		} `json:"admirers"`
	}
	rec = f.do(t, 2, http.MethodGet, "/api/groups/10/admirers", nil, &page)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, page.Admirers, 1)
	assert.Equal(t, "anon-1", page.Admirers[0].AnonymousID)
	assert.Equal(t, "user1", page.Admirers[0].Nickname)
	assert.True(t, page.Admirers[0].IsSuper)
	assert.NotContains(t, rec.Body.String(), "Real 1")

	var count struct {
		Count int64 `json:"count"`
	}
	rec = f.do(t, 2, http.MethodGet, "/api/groups/10/admirers/count", nil, &count)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), count.Count)
}

func TestMatchesRevealCounterpart(t *testing.T) {
	f := setupAPI(t)
	f.mustUser(t, 1, 5)
	f.mustUser(t, 2, 5)

	f.do(t, 1, http.MethodPost, "/api/groups/10/likes", map[string]any{"recipient_id": 2}, nil)
	rec := f.do(t, 2, http.MethodPost, "/api/groups/10/likes", map[string]any{"recipient_id": 1}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Matches []struct {
			MatchID     uint64 `json:"match_id"`
			Counterpart struct {
				RealName  string `json:"real_name"`
				IsMatched bool   `json:"is_matched"`
			} `json:"counterpart"`
		} `json:"matches"`
	}
	rec = f.do(t, 1, http.MethodGet, "/api/matches", nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "Real 2", resp.Matches[0].Counterpart.RealName)
	assert.True(t, resp.Matches[0].Counterpart.IsMatched)

	// Unmatch; the listing empties and the profile veils again.
	rec = f.do(t, 1, http.MethodDelete, fmt.Sprintf("/api/matches/%d", resp.Matches[0].MatchID),
		map[string]any{"reason": "changed my mind"}, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, 1, http.MethodGet, "/api/matches", nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Matches)

	var display struct {
		RealName  string `json:"real_name"`
		IsMatched bool   `json:"is_matched"`
	}
	rec = f.do(t, 1, http.MethodGet, "/api/users/2", nil, &display)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, display.IsMatched)
	assert.Empty(t, display.RealName)
}

func TestUnmatchByOutsiderReadsAsMissing(t *testing.T) {
	f := setupAPI(t)
	f.mustUser(t, 1, 5)
	f.mustUser(t, 2, 5)
	f.mustUser(t, 3, 5)

	f.do(t, 1, http.MethodPost, "/api/groups/10/likes", map[string]any{"recipient_id": 2}, nil)
	var express struct {
		MatchID uint64 `json:"match_id"`
	}
	f.do(t, 2, http.MethodPost, "/api/groups/10/likes", map[string]any{"recipient_id": 1}, &express)
	require.NotZero(t, express.MatchID)

	rec := f.do(t, 3, http.MethodDelete, fmt.Sprintf("/api/matches/%d", express.MatchID), nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMeetingFlowOverHTTP(t *testing.T) {
	f := setupAPI(t)
	f.mustUser(t, 1, 5)
	f.mustUser(t, 2, 5)
	f.mustUser(t, 3, 5)

	var created struct {
		MeetingID uint64 `json:"meeting_id"`
		Code      string `json:"code"`
	}
	rec := f.do(t, 1, http.MethodPost, "/api/meetings",
		map[string]any{"title": "rooftop mixer", "ttl_minutes": 90, "categories": []string{"age_range", "appearance_tag"}}, &created)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotZero(t, created.MeetingID)
	require.Len(t, created.Code, 8)

	var joined struct {
		ParticipantID uint64 `json:"participant_id"`
		Nickname      string `json:"nickname"`
	}
	rec = f.do(t, 2, http.MethodPost, "/api/meetings/join",
		map[string]any{"code": created.Code, "nickname": "Blue Scarf",
			"attributes": map[string]any{"age": 27, "tags": []string{"blue_scarf"}}}, &joined)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Blue Scarf", joined.Nickname)

	rec = f.do(t, 3, http.MethodPost, "/api/meetings/join",
		map[string]any{"code": created.Code, "nickname": "Red Jacket",
			"attributes": map[string]any{"age": 31, "tags": []string{"red_jacket"}}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	interestPath := fmt.Sprintf("/api/meetings/%d/interest", created.MeetingID)

	var declared struct {
		NewMatches int `json:"new_matches"`
	}
	rec = f.do(t, 2, http.MethodPut, interestPath,
		map[string]any{"criteria": []map[string]any{{"kind": "appearance_tag", "tag": "red_jacket"}}}, &declared)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, declared.NewMatches, "counterpart has not declared yet")

	rec = f.do(t, 3, http.MethodPut, interestPath,
		map[string]any{"criteria": []map[string]any{{"kind": "age_range", "age_range": map[string]int{"min": 20, "max": 30}}}}, &declared)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, declared.NewMatches)

	var listed struct {
		Matches []struct {
			ChatChannelID string `json:"chat_channel_id"`
			Counterpart   struct {
				Nickname string `json:"nickname"`
			} `json:"counterpart"`
		} `json:"matches"`
	}
	rec = f.do(t, 2, http.MethodGet, fmt.Sprintf("/api/meetings/%d/matches", created.MeetingID), nil, &listed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, listed.Matches, 1)
	assert.Equal(t, "Red Jacket", listed.Matches[0].Counterpart.Nickname)
	assert.NotEmpty(t, listed.Matches[0].ChatChannelID)

	// A criterion kind the meeting does not enable is rejected.
	rec = f.do(t, 2, http.MethodPut, interestPath,
		map[string]any{"criteria": []map[string]any{{"kind": "location_zone", "zone": "bar"}}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Leaving is idempotent at the HTTP level too.
	leavePath := fmt.Sprintf("/api/meetings/%d/participation", created.MeetingID)
	rec = f.do(t, 2, http.MethodDelete, leavePath, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, 2, http.MethodDelete, leavePath, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The host never joined, so their leave reads as missing.
	rec = f.do(t, 1, http.MethodDelete, leavePath, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "participant_not_found")
}

func TestJoinUnknownCodeIsNotFound(t *testing.T) {
	f := setupAPI(t)
	f.mustUser(t, 1, 5)

	rec := f.do(t, 1, http.MethodPost, "/api/meetings/join",
		map[string]any{"code": "NOPE9999", "nickname": "", "attributes": map[string]any{}}, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
