package handler

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/recipe-app-api/internal/model"
	"github.com/iliyamo/recipe-app-api/internal/service"
)

// RecipeHandler serves /v1/recipes.  Every route runs behind JWTAuth and
// only ever sees the caller's own recipes.
type RecipeHandler struct {
	Recipes *service.RecipeService
	Log     *slog.Logger
}

func NewRecipeHandler(s *service.RecipeService, log *slog.Logger) *RecipeHandler {
	return &RecipeHandler{Recipes: s, Log: log}
}

type nameIn struct {
	Name string `json:"name"`
}

// recipeReq distinguishes absent keys (nil) from present ones.  An owner
// field in the body is not part of the struct and is therefore ignored.
type recipeReq struct {
	Title       *string          `json:"title" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	TimeMinutes *int             `json:"time_minutes" validate:"omitempty,gte=0,lte=2147483647"`
	Price       *decimal.Decimal `json:"price"`
	Link        *string          `json:"link" validate:"omitempty,max=255"`
	Tags        *[]nameIn        `json:"tags"`
	Ingredients *[]nameIn        `json:"ingredients"`
}

func (r recipeReq) input() service.RecipeInput {
	return service.RecipeInput{
		Title:       r.Title,
		Description: r.Description,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        namesOf(r.Tags),
		Ingredients: namesOf(r.Ingredients),
	}
}

func namesOf(in *[]nameIn) *[]string {
	if in == nil {
		return nil
	}
	out := make([]string, len(*in))
	for i, n := range *in {
		out[i] = n.Name
	}
	return &out
}

type recipeListItem struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	TimeMinutes int        `json:"time_minutes"`
	Price       string     `json:"price"`
	Link        string     `json:"link"`
	Tags        []attrResp `json:"tags"`
	Ingredients []attrResp `json:"ingredients"`
}

type recipeDetail struct {
	recipeListItem
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

type imageResp struct {
	ID    uint64 `json:"id"`
	Image string `json:"image"`
}

func toListItem(rc *model.Recipe) recipeListItem {
	return recipeListItem{
		ID:          rc.ID,
		Title:       rc.Title,
		TimeMinutes: rc.TimeMinutes,
		Price:       rc.Price.StringFixed(2),
		Link:        rc.Link,
		Tags:        toAttrResp(rc.Tags),
		Ingredients: toAttrResp(rc.Ingredients),
	}
}

func (h *RecipeHandler) toDetail(rc *model.Recipe) recipeDetail {
	d := recipeDetail{recipeListItem: toListItem(rc), Description: rc.Description}
	if rc.Image != nil {
		url := h.Recipes.ImageURL(*rc.Image)
		d.Image = &url
	}
	return d
}

// List handles GET /v1/recipes?tags=1,2&ingredients=3.
func (h *RecipeHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	list, err := h.Recipes.ListRecipes(c.Request().Context(), uid, c.QueryParam("tags"), c.QueryParam("ingredients"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]recipeListItem, len(list))
	for i, rc := range list {
		out[i] = toListItem(rc)
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/recipes.
func (h *RecipeHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req recipeReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	rc, err := h.Recipes.Create(c.Request().Context(), uid, req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, h.toDetail(rc))
}

// Get handles GET /v1/recipes/:id.
func (h *RecipeHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	rc, err := h.Recipes.Get(c.Request().Context(), uid, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, h.toDetail(rc))
}

// Update handles PUT (all required fields) and PATCH (partial).
func (h *RecipeHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	var req recipeReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	partial := c.Request().Method == http.MethodPatch
	rc, err := h.Recipes.Update(c.Request().Context(), uid, id, req.input(), partial)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, h.toDetail(rc))
}

// Delete handles DELETE /v1/recipes/:id.
func (h *RecipeHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	if err := h.Recipes.Delete(c.Request().Context(), uid, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadImage handles POST /v1/recipes/:id/upload-image with a multipart
// "image" field.
func (h *RecipeHandler) UploadImage(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}

	var r io.Reader
	var file multipart.File
	if fh, err := c.FormFile("image"); err == nil {
		file, err = fh.Open()
		if err != nil {
			return writeError(c, h.Log, err)
		}
		defer file.Close()
		r = file
	}

	rc, err := h.Recipes.UploadImage(c.Request().Context(), uid, id, r)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, imageResp{ID: rc.ID, Image: h.Recipes.ImageURL(*rc.Image)})
}
