package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/recipe-app-api/internal/model"
	"github.com/iliyamo/recipe-app-api/internal/repository"
)

const maxAttrNameLen = 255

// reconciler makes a recipe's tags or ingredients match a list of names.
// Both repositories must share the caller's transaction.
type reconciler struct {
	attrs   *repository.AttrRepo
	recipes *repository.RecipeRepo
}

// Reconcile applies names to the kind associations of rc.
//
// A nil names leaves the associations untouched.  Otherwise every name is
// resolved through FindOrCreate under rc's owner, the existing links of
// that kind are cleared and the resolved set is linked, so the final set
// equals the distinct names given (an empty list clears).  rc.Tags or
// rc.Ingredients is refreshed to the new membership.
func (r *reconciler) Reconcile(ctx context.Context, rc *model.Recipe, names *[]string, kind model.AttrKind) error {
	if names == nil {
		return nil
	}
	clean, err := cleanNames(*names, kind)
	if err != nil {
		return err
	}

	ids := make([]uint64, 0, len(clean))
	for _, name := range clean {
		a, err := r.attrs.FindOrCreate(ctx, kind, rc.UserID, name)
		if err != nil {
			return err
		}
		ids = append(ids, a.ID)
	}

	if err := r.recipes.ClearLinks(ctx, kind, rc.ID); err != nil {
		return err
	}
	if err := r.recipes.AddLinks(ctx, kind, rc.ID, ids); err != nil {
		return err
	}

	members, err := r.recipes.Members(ctx, kind, rc.ID)
	if err != nil {
		return err
	}
	if kind == model.KindTag {
		rc.Tags = members
	} else {
		rc.Ingredients = members
	}
	return nil
}

// cleanNames trims names, rejects blank or overlong ones and drops
// repeats while keeping first-seen order.
func cleanNames(names []string, kind model.AttrKind) ([]string, error) {
	field := kind.Table()
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, NewValidationError(field, "names may not be blank")
		}
		if utf8.RuneCountInString(n) > maxAttrNameLen {
			return nil, NewValidationError(field, "names must not exceed 255 characters")
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}
