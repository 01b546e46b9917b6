package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/testutil"
	"github.com/votipian/council/backend/internal/verify"
)

func TestToggleLike(t *testing.T) {
	app := newTestApp(t, verify.NoopSender{})
	author := testutil.CreateUser(t, app.db, models.RoleVoter, models.DepartmentCCS)
	reader := testutil.CreateUser(t, app.db, models.RoleVoter, models.DepartmentCBA)

	discussion := models.Discussion{Title: "Debate night", Content: "Thursday 6pm", AuthorID: author.ID, Category: models.CategoryGeneral}
	require.NoError(t, app.db.Omit("Author").Create(&discussion).Error)
	comment := models.DiscussionComment{DiscussionID: discussion.ID, AuthorID: author.ID, Content: "See you there"}
	require.NoError(t, app.db.Omit("Author").Create(&comment).Error)

	path := "/api/discussions/" + discussion.ID + "/comments/" + comment.ID + "/like"

	status, body := app.do(t, http.MethodPut, path, app.token(t, reader), nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["liked"])
	assert.EqualValues(t, 1, body["likes"])

	status, body = app.do(t, http.MethodPut, path, app.token(t, author), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["likes"])

	status, body = app.do(t, http.MethodPut, path, app.token(t, reader), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["liked"])
	assert.EqualValues(t, 1, body["likes"])

	status, _ = app.do(t, http.MethodPut, "/api/discussions/"+discussion.ID+"/comments/missing/like", app.token(t, reader), nil)
	assert.Equal(t, http.StatusNotFound, status)
}
