package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

const unknownID = "2b1c7b1e-96a8-4c11-9f5e-8a0a5d3e4f01"

func TestTagAPI_create(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	john := env.createUser("John Poe", "john")
	janeToken := env.getToken(jane)

	reading := env.createCategory(janeToken, "Reading")
	johnsCat := env.createCategory(env.getToken(john), "Cooking")

	var created tag.Tag
	env.doJSON(http.MethodPost, "/tags", janeToken, tag.NewTag{
		Label:              "Fiction",
		AllowedCategoryIDs: []string{reading.ID, reading.ID},
	}, http.StatusCreated, &created)
	assert.Equal(t, "Fiction", created.Label)
	assert.Equal(t, tag.DefaultColor, created.Color)
	require.Len(t, created.AllowedCategories, 1)
	assert.Equal(t, reading.ID, created.AllowedCategories[0].ID)
	assert.Equal(t, 0, created.Usages)

	env.runTests([]httpTest{
		{
			name:     "missing label",
			method:   http.MethodPost,
			path:     "/tags",
			token:    janeToken,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"label": "this field is required"}`),
		},
		{
			name:     "duplicate label",
			method:   http.MethodPost,
			path:     "/tags",
			token:    janeToken,
			body:     []byte(`{"label": "fiction"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"label": "a tag with this label already exists"}`),
		},
		{
			name:     "category of another user",
			method:   http.MethodPost,
			path:     "/tags",
			token:    janeToken,
			body:     marchallObj(t, tag.NewTag{Label: "Pasta", AllowedCategoryIDs: []string{johnsCat.ID}}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"allowed_category_ids": "category not found"}`),
		},
	})
}

func TestTagAPI_query(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))

	reading := env.createCategory(token, "Reading")
	coding := env.createCategory(token, "Coding")
	env.createTag(token, "fiction", reading.ID)
	env.createTag(token, "Golang", coding.ID)
	env.createTag(token, "Focus")

	labels := func(tags []tag.Tag) []string {
		res := make([]string, 0, len(tags))
		for _, t := range tags {
			res = append(res, t.Label)
		}
		return res
	}

	var tags []tag.Tag
	env.doJSON(http.MethodGet, "/tags", token, nil, http.StatusOK, &tags)
	assert.Equal(t, []string{"fiction", "Focus", "Golang"}, labels(tags))

	env.doJSON(http.MethodGet, "/tags?label=F", token, nil, http.StatusOK, &tags)
	assert.Equal(t, []string{"fiction", "Focus"}, labels(tags))

	// tags without allowed categories are usable everywhere
	env.doJSON(http.MethodGet, "/tags?category_id="+coding.ID, token, nil, http.StatusOK, &tags)
	assert.Equal(t, []string{"Focus", "Golang"}, labels(tags))
}

func TestTagAPI_detail(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	janeToken := env.getToken(jane)
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	reading := env.createCategory(janeToken, "Reading")
	coding := env.createCategory(janeToken, "Coding")
	fiction := env.createTag(janeToken, "Fiction", reading.ID)
	env.createTag(janeToken, "Poetry")
	path := "/tags/" + fiction.ID

	env.runTests([]httpTest{
		{name: "retrieve", path: path, token: janeToken, wantCode: http.StatusOK, wantData: marchallObj(t, fiction)},
		{name: "not owner", path: path, token: johnToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "tag not found"})},
		{name: "unknown", path: "/tags/" + unknownID, token: janeToken, wantCode: http.StatusNotFound},
		{
			name:     "rename to taken label",
			method:   http.MethodPut,
			path:     path,
			token:    janeToken,
			body:     []byte(`{"label": "POETRY"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"label": "a tag with this label already exists"}`),
		},
		{
			name:     "remove unlisted category",
			method:   http.MethodDelete,
			path:     path + "/categories/" + coding.ID,
			token:    janeToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"category_id": "category is not allowed for this tag"}`),
		},
		{
			name:     "allow unknown category",
			method:   http.MethodPost,
			path:     path + "/categories",
			token:    janeToken,
			body:     marchallObj(t, tag.AllowCategory{CategoryID: unknownID}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"category_id": "category not found"}`),
		},
	})

	var updated tag.Tag
	env.doJSON(http.MethodPut, path, janeToken, tag.UpdateTag{Label: "Novels", Color: "#abcdef"}, http.StatusOK, &updated)
	assert.Equal(t, "Novels", updated.Label)
	assert.Equal(t, "#abcdef", updated.Color)
	require.Len(t, updated.AllowedCategories, 1)

	env.doJSON(http.MethodPost, path+"/categories", janeToken, tag.AllowCategory{CategoryID: coding.ID}, http.StatusOK, &updated)
	require.Len(t, updated.AllowedCategories, 2)
	assert.Equal(t, coding.ID, updated.AllowedCategories[0].ID)

	// adding twice is a no-op
	env.doJSON(http.MethodPost, path+"/categories", janeToken, tag.AllowCategory{CategoryID: coding.ID}, http.StatusOK, &updated)
	assert.Len(t, updated.AllowedCategories, 2)

	env.doJSON(http.MethodDelete, path+"/categories/"+reading.ID, janeToken, nil, http.StatusOK, &updated)
	require.Len(t, updated.AllowedCategories, 1)
	assert.Equal(t, coding.ID, updated.AllowedCategories[0].ID)

	// an empty list makes the tag usable with any category
	env.doJSON(http.MethodPut, path, janeToken, tag.UpdateTag{AllowedCategoryIDs: []string{}}, http.StatusOK, &updated)
	assert.Empty(t, updated.AllowedCategories)
	assert.Equal(t, "Novels", updated.Label)
}

func TestTagAPI_delete(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))

	reading := env.createCategory(token, "Reading")
	fiction := env.createTag(token, "Fiction")
	fs := env.createFixed(token, reading.ID, time.Now().UTC().Add(-2*time.Hour), time.Hour, fiction.ID)
	require.Len(t, fs.Tags, 1)

	var got tag.Tag
	env.doJSON(http.MethodGet, "/tags/"+fiction.ID, token, nil, http.StatusOK, &got)
	assert.Equal(t, 1, got.Usages)

	// deleting a tag detaches it from its sessions
	env.doJSON(http.MethodDelete, "/tags/"+fiction.ID, token, nil, http.StatusNoContent, nil)
	var detached session.FixedSession
	env.doJSON(http.MethodGet, "/sessions/fixed/"+fs.ID, token, nil, http.StatusOK, &detached)
	assert.Empty(t, detached.Tags)
}
