package queue

import (
    "encoding/json"
    "io"
    "log/slog"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestFormatEvent(t *testing.T) {
    line := FormatEvent(RecipeEvent{
        Type:       EventRecipeCreated,
        RecipeID:   7,
        UserID:     3,
        Title:      "Soup",
        Tags:       []string{"Vegan", "Quick"},
        OccurredAt: "2024-01-02T03:04:05Z",
    })
    assert.Equal(t, "[2024-01-02T03:04:05Z] recipe.created | recipe_id=7 | user_id=3 | title=\"Soup\" | tags=[Vegan,Quick]\n", line)
}

func TestHandleMessageAppends(t *testing.T) {
    path := filepath.Join(t.TempDir(), "logs", "recipe.log")
    c := &Consumer{LogPath: path, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

    for _, typ := range []string{EventRecipeCreated, EventRecipeDeleted} {
        body, err := json.Marshal(RecipeEvent{Type: typ, RecipeID: 1, UserID: 2})
        require.NoError(t, err)
        require.NoError(t, c.HandleMessage(body))
    }

    data, err := os.ReadFile(path)
    require.NoError(t, err)
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    require.Len(t, lines, 2)
    assert.Contains(t, lines[0], "recipe.created")
    assert.Contains(t, lines[1], "recipe.deleted")
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
    c := &Consumer{LogPath: filepath.Join(t.TempDir(), "recipe.log")}
    assert.Error(t, c.HandleMessage([]byte("not json")))
    assert.Error(t, c.HandleMessage([]byte(`{"recipe_id":1}`)))
}
