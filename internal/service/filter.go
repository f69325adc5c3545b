package service

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/recipe-app-api/internal/database"
	"github.com/iliyamo/recipe-app-api/internal/model"
	"github.com/iliyamo/recipe-app-api/internal/repository"
)

// ParseIDList parses a comma separated list of ids such as "1,3".  An
// empty string means no filter and yields nil.  Any element that is not a
// positive integer makes the whole list invalid.
func ParseIDList(param, raw string) ([]uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil || id == 0 {
			return nil, NewValidationError(param, "must be a comma separated list of ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseAssignedOnly reads the assigned_only flag.  Empty means false; any
// other value must be an integer and is true when non-zero.
func ParseAssignedOnly(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return false, NewValidationError("assigned_only", "must be 0 or 1")
	}
	return n != 0, nil
}

// ListRecipes returns the user's recipes filtered by the raw tags and
// ingredients query values, newest first.
func (s *RecipeService) ListRecipes(ctx context.Context, userID uint64, tagsRaw, ingredientsRaw string) ([]*model.Recipe, error) {
	tagIDs, err := ParseIDList("tags", tagsRaw)
	if err != nil {
		return nil, err
	}
	ingredientIDs, err := ParseIDList("ingredients", ingredientsRaw)
	if err != nil {
		return nil, err
	}
	return repository.NewRecipeRepo(s.db).List(ctx, repository.RecipeFilter{
		UserID:        userID,
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
}

// AttrService manages a user's tags and ingredients outside of recipe
// writes.
type AttrService struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewAttrService(db *sql.DB, d database.Dialect) *AttrService {
	return &AttrService{db: db, dialect: d}
}

// List returns the user's records of kind ordered by name descending,
// restricted to records used by a recipe when assignedRaw is truthy.
func (s *AttrService) List(ctx context.Context, userID uint64, kind model.AttrKind, assignedRaw string) ([]model.Attr, error) {
	assignedOnly, err := ParseAssignedOnly(assignedRaw)
	if err != nil {
		return nil, err
	}
	return repository.NewAttrRepo(s.db, s.dialect).ListByOwner(ctx, kind, userID, assignedOnly)
}

// Rename changes the name of an owned record.
func (s *AttrService) Rename(ctx context.Context, userID uint64, kind model.AttrKind, id uint64, name string) (*model.Attr, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "may not be blank")
	}
	if utf8.RuneCountInString(name) > maxAttrNameLen {
		return nil, NewValidationError("name", "must not exceed 255 characters")
	}
	var a *model.Attr
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewAttrRepo(tx, s.dialect)
		if err := repo.UpdateName(ctx, kind, id, userID, name); err != nil {
			return err
		}
		var err error
		a, err = repo.GetByIDAndOwner(ctx, kind, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an owned record and its recipe links.
func (s *AttrService) Delete(ctx context.Context, userID uint64, kind model.AttrKind, id uint64) error {
	return repository.NewAttrRepo(s.db, s.dialect).DeleteByIDAndOwner(ctx, kind, id, userID)
}
