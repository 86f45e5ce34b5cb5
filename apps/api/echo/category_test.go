package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
)

func TestCategoryAPI_create(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	john := env.createUser("John Poe", "john")
	janeToken := env.getToken(jane)

	var cat category.Category
	env.doJSON(http.MethodPost, "/categories", janeToken, category.NewCategory{Name: " Reading ", Color: "#FF8800"}, http.StatusCreated, &cat)
	assert.NotEmpty(t, cat.ID)
	assert.Equal(t, jane.ID, cat.UserID)
	assert.Equal(t, "Reading", cat.Name)
	assert.Equal(t, "#ff8800", cat.Color)

	var defColor category.Category
	env.doJSON(http.MethodPost, "/categories", janeToken, category.NewCategory{Name: "Coding"}, http.StatusCreated, &defColor)
	assert.Equal(t, category.DefaultColor, defColor.Color)

	env.runTests([]httpTest{
		{
			name:     "blank name",
			method:   http.MethodPost,
			path:     "/categories",
			token:    janeToken,
			body:     []byte(`{"name": "   "}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad color",
			method:   http.MethodPost,
			path:     "/categories",
			token:    janeToken,
			body:     []byte(`{"name": "Gym", "color": "red"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"color": "must be a color in the #RRGGBB format"}`),
		},
		{
			name:     "duplicate name, any case",
			method:   http.MethodPost,
			path:     "/categories",
			token:    janeToken,
			body:     []byte(`{"name": "READING"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "a category with this name already exists"}`),
		},
	})

	// names are unique per user only
	env.doJSON(http.MethodPost, "/categories", env.getToken(john), category.NewCategory{Name: "Reading"}, http.StatusCreated, nil)
}

func TestCategoryAPI_upsert(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))

	var created, found category.Category
	env.doJSON(http.MethodPost, "/categories/upsert", token, category.NewCategory{Name: "Reading"}, http.StatusCreated, &created)
	env.doJSON(http.MethodPost, "/categories/upsert", token, category.NewCategory{Name: "reading"}, http.StatusOK, &found)
	assert.Equal(t, created.ID, found.ID)

	var cats []category.Category
	env.doJSON(http.MethodGet, "/categories", token, nil, http.StatusOK, &cats)
	assert.Len(t, cats, 1)
}

func TestCategoryAPI_query(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	john := env.createUser("John Poe", "john")
	janeToken := env.getToken(jane)

	env.runTests([]httpTest{
		{name: "empty", path: "/categories", token: janeToken, wantCode: http.StatusOK, wantData: marchallList(t)},
	})

	for _, name := range []string{"Reading", "Coding", "Running"} {
		env.createCategory(janeToken, name)
	}
	env.createCategory(env.getToken(john), "Cooking")

	names := func(cats []category.Category) []string {
		res := make([]string, 0, len(cats))
		for _, cat := range cats {
			res = append(res, cat.Name)
		}
		return res
	}

	var cats []category.Category
	env.doJSON(http.MethodGet, "/categories", janeToken, nil, http.StatusOK, &cats)
	assert.Equal(t, []string{"Coding", "Reading", "Running"}, names(cats))

	env.doJSON(http.MethodGet, "/categories?ordering=-name", janeToken, nil, http.StatusOK, &cats)
	assert.Equal(t, []string{"Running", "Reading", "Coding"}, names(cats))

	env.doJSON(http.MethodGet, "/categories?name=IN", janeToken, nil, http.StatusOK, &cats)
	assert.Equal(t, []string{"Coding", "Reading", "Running"}, names(cats))

	env.doJSON(http.MethodGet, "/categories?name=run", janeToken, nil, http.StatusOK, &cats)
	assert.Equal(t, []string{"Running"}, names(cats))
}

func TestCategoryAPI_detail(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	john := env.createUser("John Poe", "john")
	janeToken := env.getToken(jane)
	johnToken := env.getToken(john)

	reading := env.createCategory(janeToken, "Reading")
	env.createCategory(janeToken, "Coding")
	path := "/categories/" + reading.ID

	env.runTests([]httpTest{
		{name: "retrieve", path: path, token: janeToken, wantCode: http.StatusOK, wantData: marchallObj(t, reading)},
		{
			name:     "not owner",
			path:     path,
			token:    johnToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "category not found"}),
		},
		{name: "unknown", path: "/categories/2b1c7b1e-96a8-4c11-9f5e-8a0a5d3e4f01", token: janeToken, wantCode: http.StatusNotFound},
		{
			name:     "rename to taken name",
			method:   http.MethodPut,
			path:     path,
			token:    janeToken,
			body:     []byte(`{"name": "coding"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "a category with this name already exists"}`),
		},
		{name: "delete as other user", method: http.MethodDelete, path: path, token: johnToken, wantCode: http.StatusNotFound},
	})

	var updated category.Category
	env.doJSON(http.MethodPut, path, janeToken, category.UpdateCategory{Name: "Books", Color: "#123456"}, http.StatusOK, &updated)
	assert.Equal(t, reading.ID, updated.ID)
	assert.Equal(t, "Books", updated.Name)
	assert.Equal(t, "#123456", updated.Color)

	// empty fields are left unchanged
	env.doJSON(http.MethodPut, path, janeToken, category.UpdateCategory{Color: "#654321"}, http.StatusOK, &updated)
	assert.Equal(t, "Books", updated.Name)
	assert.Equal(t, "#654321", updated.Color)

	env.doJSON(http.MethodDelete, path, janeToken, nil, http.StatusNoContent, nil)
	env.runTests([]httpTest{
		{name: "deleted", path: path, token: janeToken, wantCode: http.StatusNotFound},
	})
}

func TestCategoryAPI_deleteInUse(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))

	cat := env.createCategory(token, "Reading")
	fs := env.createFixed(token, cat.ID, time.Now().UTC().Add(-2*time.Hour), time.Hour)

	env.runTests([]httpTest{
		{
			name:     "has sessions",
			method:   http.MethodDelete,
			path:     "/categories/" + cat.ID,
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "category has sessions"}),
		},
	})

	env.doJSON(http.MethodDelete, "/sessions/fixed/"+fs.ID, token, nil, http.StatusNoContent, nil)
	env.doJSON(http.MethodDelete, "/categories/"+cat.ID, token, nil, http.StatusNoContent, nil)

	var cats []category.Category
	env.doJSON(http.MethodGet, "/categories", token, nil, http.StatusOK, &cats)
	require.Empty(t, cats)
}
