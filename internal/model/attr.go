package model

// AttrKind selects one of the two per-user vocabularies a recipe can be
// associated with.  Tags and ingredients share the same shape and the same
// (user, name) natural key, so the storage layer handles them through one
// code path parameterised by kind.
type AttrKind int

const (
    KindTag AttrKind = iota
    KindIngredient
)

func (k AttrKind) String() string {
    if k == KindIngredient {
        return "ingredient"
    }
    return "tag"
}

// Table is the table holding the records.
func (k AttrKind) Table() string {
    if k == KindIngredient {
        return "ingredients"
    }
    return "tags"
}

// LinkTable is the recipe association table.
func (k AttrKind) LinkTable() string {
    if k == KindIngredient {
        return "recipe_ingredients"
    }
    return "recipe_tags"
}

// LinkColumn is the association table's foreign key to Table.
func (k AttrKind) LinkColumn() string {
    if k == KindIngredient {
        return "ingredient_id"
    }
    return "tag_id"
}

// Attr is a Tag or an Ingredient.
type Attr struct {
    ID     uint64   // tags.id / ingredients.id
    UserID uint64   // owner
    Name   string
    Kind   AttrKind
}
