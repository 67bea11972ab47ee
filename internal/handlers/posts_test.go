package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/git-forum/backend/internal/database/dbtest"
	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

type voteResponse struct {
	Message    string  `json:"message"`
	VoteType   *string `json:"vote_type"`
	LikesCount int64   `json:"likes_count"`
}

type listResponse struct {
	Count    int64          `json:"count"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Results  []postResponse `json:"results"`
}

func TestVotePost_ToggleSwitchAndRescore(t *testing.T) {
	e := newTestEnv(t)
	author := dbtest.CreateUser(t, e.db, "author")
	voter := dbtest.CreateUser(t, e.db, "voter")
	post := dbtest.CreatePost(t, e.db, author.ID, "p", time.Now().UTC())
	path := fmt.Sprintf("/api/posts/%d/vote", post.ID)

	steps := []struct {
		vote    string
		message string
		current *string
		likes   int64
	}{
		{models.VoteLike, "Vote recorded", ptr(models.VoteLike), 1},
		{models.VoteLike, "Vote removed", nil, 0},
		{models.VoteDislike, "Vote recorded", ptr(models.VoteDislike), 0},
		{models.VoteLike, "Vote updated", ptr(models.VoteLike), 1},
	}
	for i, step := range steps {
		w := e.do(t, http.MethodPost, path, voteBody(step.vote), &voter)
		require.Equal(t, http.StatusOK, w.Code, "step %d: %s", i, w.Body.String())

		got := decode[voteResponse](t, w)
		assert.Equal(t, step.message, got.Message, "step %d", i)
		assert.Equal(t, step.current, got.VoteType, "step %d", i)
		assert.Equal(t, step.likes, got.LikesCount, "step %d", i)
	}

	assert.Equal(t, []int{post.ID, post.ID, post.ID, post.ID}, e.rescorer.scheduled(), "every vote schedules a recompute")

	var votes int64
	e.db.Model(&models.Vote{}).Where("post_id = ?", post.ID).Count(&votes)
	assert.Equal(t, int64(1), votes)

	notes := e.notifications(t, author.ID)
	require.Len(t, notes, 2, "only likes notify")
	assert.Equal(t, models.VerbLiked, notes[0].Verb)
	assert.Equal(t, voter.ID, notes[0].ActorID)
	assert.Equal(t, fmt.Sprintf("/posts/%d", post.ID), notes[0].TargetLink)
}

func TestVotePost_SelfLikeDoesNotNotify(t *testing.T) {
	e := newTestEnv(t)
	author := dbtest.CreateUser(t, e.db, "author")
	post := dbtest.CreatePost(t, e.db, author.ID, "p", time.Now().UTC())

	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", post.ID), voteBody(models.VoteLike), &author)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, e.notifications(t, author.ID))
	assert.Equal(t, []int{post.ID}, e.rescorer.scheduled())
}

func TestVotePost_Rejections(t *testing.T) {
	e := newTestEnv(t)
	user := dbtest.CreateUser(t, e.db, "user")
	post := dbtest.CreatePost(t, e.db, user.ID, "p", time.Now().UTC())
	path := fmt.Sprintf("/api/posts/%d/vote", post.ID)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, path, voteBody(models.VoteLike), nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, path, voteBody("upvote"), &user).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/api/posts/999/vote", voteBody(models.VoteLike), &user).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/posts/abc/vote", voteBody(models.VoteLike), &user).Code)
	assert.Empty(t, e.rescorer.scheduled())
}

func TestForkPost(t *testing.T) {
	e := newTestEnv(t)
	author := dbtest.CreateUser(t, e.db, "author")
	forker := dbtest.CreateUser(t, e.db, "forker")
	original := dbtest.CreatePost(t, e.db, author.ID, "original", time.Now().UTC())

	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/fork", original.ID), nil, &forker)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	fork := decode[postResponse](t, w)
	assert.Equal(t, "original", fork.Title)
	assert.Equal(t, forker.ID, fork.Author.ID)
	require.NotNil(t, fork.ForkedFromID)
	assert.Equal(t, original.ID, *fork.ForkedFromID)

	var reloaded models.Post
	require.NoError(t, e.db.First(&reloaded, original.ID).Error)
	assert.Equal(t, 1, reloaded.ForkCount)
	assert.Equal(t, []int{original.ID}, e.rescorer.scheduled(), "the original is rescored")

	notes := e.notifications(t, author.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.VerbForked, notes[0].Verb)
}

func TestCreatePost_DefaultsAndTags(t *testing.T) {
	e := newTestEnv(t)
	user := dbtest.CreateUser(t, e.db, "user")

	w := e.do(t, http.MethodPost, "/api/posts", map[string]any{
		"title":       "Why does my goroutine leak?",
		"description": "details",
		"tags":        []string{"Go", " concurrency", "go", ""},
	}, &user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decode[postResponse](t, w)
	assert.Equal(t, "text", got.Language)
	assert.Equal(t, []string{"go", "concurrency"}, got.Tags)
	assert.Zero(t, got.TrendingScore)
	assert.Equal(t, "user", got.Author.Username)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "no body"}, &user).Code)
}

func TestCreatePost_IgnoresClientTrendingScore(t *testing.T) {
	e := newTestEnv(t)
	user := dbtest.CreateUser(t, e.db, "user")

	w := e.do(t, http.MethodPost, "/api/posts", map[string]any{
		"title":          "t",
		"description":    "d",
		"trending_score": 9000,
	}, &user)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Zero(t, decode[postResponse](t, w).TrendingScore)
}

func TestUpdatePost_OwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	owner := dbtest.CreateUser(t, e.db, "owner")
	other := dbtest.CreateUser(t, e.db, "other")
	post := dbtest.CreatePost(t, e.db, owner.ID, "before", time.Now().UTC())
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPut, path, map[string]any{"title": "hijack"}, &other).Code)

	w := e.do(t, http.MethodPut, path, map[string]any{"title": "after", "is_solved": true}, &owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[postResponse](t, w)
	assert.Equal(t, "after", got.Title)
	assert.True(t, got.IsSolved)
}

func TestDeletePost_RemovesDependents(t *testing.T) {
	e := newTestEnv(t)
	owner := dbtest.CreateUser(t, e.db, "owner")
	fan := dbtest.CreateUser(t, e.db, "fan")
	post := dbtest.CreatePost(t, e.db, owner.ID, "doomed", time.Now().UTC())
	dbtest.Like(t, e.db, fan.ID, post.ID)
	dbtest.Comment(t, e.db, fan.ID, post.ID, nil)
	require.NoError(t, e.db.Create(&models.Bookmark{UserID: fan.ID, PostID: post.ID}).Error)

	path := fmt.Sprintf("/api/posts/%d", post.ID)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodDelete, path, nil, &fan).Code)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, path, nil, &owner).Code)

	for _, model := range []any{&models.Post{}, &models.Vote{}, &models.Comment{}, &models.Bookmark{}} {
		var n int64
		e.db.Model(model).Count(&n)
		assert.Zero(t, n, "%T", model)
	}
}

func TestGetPost_CountsViewAndViewerState(t *testing.T) {
	e := newTestEnv(t)
	author := dbtest.CreateUser(t, e.db, "author")
	viewer := dbtest.CreateUser(t, e.db, "viewer")
	post := dbtest.CreatePost(t, e.db, author.ID, "p", time.Now().UTC())
	dbtest.Like(t, e.db, viewer.ID, post.ID)
	dbtest.Comment(t, e.db, author.ID, post.ID, nil)

	path := fmt.Sprintf("/api/posts/%d", post.ID)
	anon := decode[postResponse](t, e.do(t, http.MethodGet, path, nil, nil))
	assert.Equal(t, 1, anon.Views)
	assert.Equal(t, int64(1), anon.LikesCount)
	assert.Equal(t, int64(1), anon.CommentsCount)
	assert.Empty(t, anon.UserVote)

	mine := decode[postResponse](t, e.do(t, http.MethodGet, path, nil, &viewer))
	assert.Equal(t, 2, mine.Views)
	assert.Equal(t, models.VoteLike, mine.UserVote)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/posts/404", nil, nil).Code)
	assert.Empty(t, e.rescorer.scheduled(), "views do not affect the score")
}

func TestGetPosts_PagingSearchAndOrdering(t *testing.T) {
	e := newTestEnv(t)
	author := dbtest.CreateUser(t, e.db, "author")
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	var ids []int
	for i, title := range []string{"Channel deadlock", "Mutex contention", "Channel buffering"} {
		p := dbtest.CreatePost(t, e.db, author.ID, title, base.Add(time.Duration(i)*time.Hour))
		ids = append(ids, p.ID)
	}
	require.NoError(t, e.db.Model(&models.Post{}).Where("id = ?", ids[0]).UpdateColumn("trending_score", 12.5).Error)
	require.NoError(t, e.db.Model(&models.Post{}).Where("id = ?", ids[1]).UpdateColumn("trending_score", 3.0).Error)

	newest := decode[listResponse](t, e.do(t, http.MethodGet, "/api/posts?page_size=2", nil, nil))
	assert.Equal(t, int64(3), newest.Count)
	assert.Equal(t, 2, newest.PageSize)
	require.Len(t, newest.Results, 2)
	assert.Equal(t, ids[2], newest.Results[0].ID)

	second := decode[listResponse](t, e.do(t, http.MethodGet, "/api/posts?page_size=2&page=2", nil, nil))
	require.Len(t, second.Results, 1)
	assert.Equal(t, ids[0], second.Results[0].ID)

	search := decode[listResponse](t, e.do(t, http.MethodGet, "/api/posts?search=CHANNEL", nil, nil))
	assert.Equal(t, int64(2), search.Count)

	hot := decode[listResponse](t, e.do(t, http.MethodGet, "/api/posts?ordering=-trending_score", nil, nil))
	require.Len(t, hot.Results, 3)
	assert.Equal(t, []int{ids[0], ids[1], ids[2]}, []int{hot.Results[0].ID, hot.Results[1].ID, hot.Results[2].ID})

	capped := decode[listResponse](t, e.do(t, http.MethodGet, "/api/posts?page_size=1000", nil, nil))
	assert.Equal(t, maxPageSize, capped.PageSize)
}

func TestGetTrending(t *testing.T) {
	e := newTestEnv(t)
	author := dbtest.CreateUser(t, e.db, "author")
	now := time.Now().UTC()
	cold := dbtest.CreatePost(t, e.db, author.ID, "cold", now)
	hot := dbtest.CreatePost(t, e.db, author.ID, "hot", now.Add(-time.Hour))
	warm := dbtest.CreatePost(t, e.db, author.ID, "warm", now.Add(-2*time.Hour))
	e.db.Model(&models.Post{}).Where("id = ?", hot.ID).UpdateColumn("trending_score", 40.0)
	e.db.Model(&models.Post{}).Where("id = ?", warm.ID).UpdateColumn("trending_score", 7.25)

	w := e.do(t, http.MethodGet, "/api/posts/trending?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[[]postResponse](t, w)
	require.Len(t, got, 2)
	assert.Equal(t, hot.ID, got[0].ID)
	assert.Equal(t, 40.0, got[0].TrendingScore)
	assert.Equal(t, warm.ID, got[1].ID)
	assert.NotEqual(t, cold.ID, got[1].ID)
}

func TestTags(t *testing.T) {
	assert.Equal(t, "go,http", joinTags([]string{"Go", "go ", "HTTP", ""}))
	assert.Equal(t, []string{}, splitTags(""))
	assert.Equal(t, []string{"a", "b"}, splitTags("a, b,,A"))
}

func voteBody(vote string) map[string]string {
	return map[string]string{"vote_type": vote}
}

func ptr[T any](v T) *T {
	return &v
}
