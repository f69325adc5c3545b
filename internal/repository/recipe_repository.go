package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/recipe-app-api/internal/database"
	"github.com/iliyamo/recipe-app-api/internal/model"
)

const recipeColumns = "r.id, r.user_id, r.title, r.description, r.time_minutes, r.price, r.link, r.image"

// RecipeRepo provides owner-scoped access to recipes and their tag and
// ingredient links.
type RecipeRepo struct {
	db database.Querier
}

func NewRecipeRepo(db database.Querier) *RecipeRepo { return &RecipeRepo{db: db} }

// RecipeFilter narrows List.  Within TagIDs (or IngredientIDs) a recipe
// matches when it carries any of the ids; the two lists are combined with
// AND.  Empty lists do not filter.
type RecipeFilter struct {
	UserID        uint64
	TagIDs        []uint64
	IngredientIDs []uint64
}

// Create inserts rc (owned by rc.UserID) and populates rc.ID.
func (r *RecipeRepo) Create(ctx context.Context, rc *model.Recipe) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recipes (user_id, title, description, time_minutes, price, link, image)
		 VALUES (?,?,?,?,?,?,?)`,
		rc.UserID, rc.Title, rc.Description, rc.TimeMinutes, rc.Price, rc.Link, rc.Image)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rc.ID = uint64(id)
	return nil
}

// GetByIDAndOwner loads a recipe with its tags and ingredients.  A recipe
// owned by another user is reported as ErrNotFound.
func (r *RecipeRepo) GetByIDAndOwner(ctx context.Context, id, userID uint64) (*model.Recipe, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recipeColumns+" FROM recipes r WHERE r.id = ? AND r.user_id = ?", id, userID)
	rc, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	list := []*model.Recipe{rc}
	if err := r.loadMembers(ctx, list); err != nil {
		return nil, err
	}
	return rc, nil
}

// List returns the owner's recipes matching f, newest id first, each
// recipe once.
func (r *RecipeRepo) List(ctx context.Context, f RecipeFilter) ([]*model.Recipe, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + recipeColumns + " FROM recipes r WHERE r.user_id = ?")
	args := []any{f.UserID}
	if len(f.TagIDs) > 0 {
		sb.WriteString(" AND r.id IN (SELECT recipe_id FROM recipe_tags WHERE tag_id IN (" + placeholders(len(f.TagIDs)) + "))")
		args = appendIDs(args, f.TagIDs)
	}
	if len(f.IngredientIDs) > 0 {
		sb.WriteString(" AND r.id IN (SELECT recipe_id FROM recipe_ingredients WHERE ingredient_id IN (" + placeholders(len(f.IngredientIDs)) + "))")
		args = appendIDs(args, f.IngredientIDs)
	}
	sb.WriteString(" ORDER BY r.id DESC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Recipe{}
	for rows.Next() {
		rc, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.loadMembers(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the scalar fields of rc.  The owner column is never part
// of the statement, so a recipe cannot change hands.
func (r *RecipeRepo) Update(ctx context.Context, rc *model.Recipe) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recipes
		 SET title = ?, description = ?, time_minutes = ?, price = ?, link = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		rc.Title, rc.Description, rc.TimeMinutes, rc.Price, rc.Link, rc.ID, rc.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetImage stores the image reference of an owned recipe.
func (r *RecipeRepo) SetImage(ctx context.Context, id, userID uint64, image string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE recipes SET image = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?",
		image, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDAndOwner deletes an owned recipe.  Link rows cascade; tags and
// ingredients stay.
func (r *RecipeRepo) DeleteByIDAndOwner(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recipes WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLink associates attrID with the recipe.  Adding an existing link is a
// no-op.
func (r *RecipeRepo) AddLink(ctx context.Context, kind model.AttrKind, recipeID, attrID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO "+kind.LinkTable()+" (recipe_id, "+kind.LinkColumn()+") VALUES (?, ?)", recipeID, attrID)
	if err != nil && database.IsDuplicateKey(err) {
		return nil
	}
	return err
}

// AddLinks inserts all links in one statement.  ids must not already be
// linked to the recipe; duplicates inside ids are collapsed.
func (r *RecipeRepo) AddLinks(ctx context.Context, kind model.AttrKind, recipeID uint64, ids []uint64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + kind.LinkTable() + " (recipe_id, " + kind.LinkColumn() + ") VALUES ")
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?)")
		args = append(args, recipeID, id)
	}
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// RemoveLink drops one association.  Removing a missing link is a no-op.
func (r *RecipeRepo) RemoveLink(ctx context.Context, kind model.AttrKind, recipeID, attrID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM "+kind.LinkTable()+" WHERE recipe_id = ? AND "+kind.LinkColumn()+" = ?", recipeID, attrID)
	return err
}

// ClearLinks removes every association of kind from the recipe.
func (r *RecipeRepo) ClearLinks(ctx context.Context, kind model.AttrKind, recipeID uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM "+kind.LinkTable()+" WHERE recipe_id = ?", recipeID)
	return err
}

// Members returns the records of kind currently linked to the recipe.
func (r *RecipeRepo) Members(ctx context.Context, kind model.AttrKind, recipeID uint64) ([]model.Attr, error) {
	byRecipe, err := r.members(ctx, kind, []uint64{recipeID})
	if err != nil {
		return nil, err
	}
	out := byRecipe[recipeID]
	if out == nil {
		out = []model.Attr{}
	}
	return out, nil
}

// loadMembers fills Tags and Ingredients for every recipe in list with two
// queries in total.
func (r *RecipeRepo) loadMembers(ctx context.Context, list []*model.Recipe) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint64, len(list))
	for i, rc := range list {
		ids[i] = rc.ID
	}
	tags, err := r.members(ctx, model.KindTag, ids)
	if err != nil {
		return err
	}
	ingredients, err := r.members(ctx, model.KindIngredient, ids)
	if err != nil {
		return err
	}
	for _, rc := range list {
		rc.Tags = tags[rc.ID]
		if rc.Tags == nil {
			rc.Tags = []model.Attr{}
		}
		rc.Ingredients = ingredients[rc.ID]
		if rc.Ingredients == nil {
			rc.Ingredients = []model.Attr{}
		}
	}
	return nil
}

func (r *RecipeRepo) members(ctx context.Context, kind model.AttrKind, recipeIDs []uint64) (map[uint64][]model.Attr, error) {
	q := "SELECT l.recipe_id, a.id, a.user_id, a.name FROM " + kind.LinkTable() + " l JOIN " + kind.Table() +
		" a ON a.id = l." + kind.LinkColumn() +
		" WHERE l.recipe_id IN (" + placeholders(len(recipeIDs)) + ") ORDER BY l.recipe_id, a.id"
	rows, err := r.db.QueryContext(ctx, q, appendIDs(nil, recipeIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64][]model.Attr)
	for rows.Next() {
		var recipeID uint64
		a := model.Attr{Kind: kind}
		if err := rows.Scan(&recipeID, &a.ID, &a.UserID, &a.Name); err != nil {
			return nil, err
		}
		out[recipeID] = append(out[recipeID], a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(s rowScanner) (*model.Recipe, error) {
	var (
		rc    model.Recipe
		image sql.NullString
	)
	if err := s.Scan(&rc.ID, &rc.UserID, &rc.Title, &rc.Description, &rc.TimeMinutes, &rc.Price, &rc.Link, &image); err != nil {
		return nil, err
	}
	if image.Valid {
		rc.Image = &image.String
	}
	return &rc, nil
}

// placeholders returns "?,?,?" for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func appendIDs(args []any, ids []uint64) []any {
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
