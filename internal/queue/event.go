// Package queue defines message payloads exchanged over the message broker.
package queue

// RecipeQueueName is the durable queue carrying recipe activity.
const RecipeQueueName = "recipe.events"

// Recipe event types.
const (
    EventRecipeCreated       = "recipe.created"
    EventRecipeUpdated       = "recipe.updated"
    EventRecipeDeleted       = "recipe.deleted"
    EventRecipeImageUploaded = "recipe.image_uploaded"
)

// RecipeEvent is published after a recipe write commits.  It carries
// enough for downstream consumers to log or notify without querying the
// primary database.
type RecipeEvent struct {
    Type        string   `json:"type"`
    RecipeID    uint64   `json:"recipe_id"`
    UserID      uint64   `json:"user_id"`
    Title       string   `json:"title,omitempty"`
    Tags        []string `json:"tags,omitempty"`
    Ingredients []string `json:"ingredients,omitempty"`
    Image       string   `json:"image,omitempty"`
    OccurredAt  string   `json:"occurred_at"` // RFC3339, UTC
}
