package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestAttrKindTables(t *testing.T) {
    assert.Equal(t, "tags", KindTag.Table())
    assert.Equal(t, "recipe_tags", KindTag.LinkTable())
    assert.Equal(t, "tag_id", KindTag.LinkColumn())
    assert.Equal(t, "tag", KindTag.String())

    assert.Equal(t, "ingredients", KindIngredient.Table())
    assert.Equal(t, "recipe_ingredients", KindIngredient.LinkTable())
    assert.Equal(t, "ingredient_id", KindIngredient.LinkColumn())
    assert.Equal(t, "ingredient", KindIngredient.String())
}
