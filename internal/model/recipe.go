package model

import "github.com/shopspring/decimal"

// Recipe is a row of the `recipes` table together with its resolved tag
// and ingredient memberships.  UserID is the owner and never changes after
// creation.
type Recipe struct {
    ID          uint64          // recipes.id
    UserID      uint64          // recipes.user_id
    Title       string          // recipes.title
    Description string          // recipes.description
    TimeMinutes int             // recipes.time_minutes
    Price       decimal.Decimal // recipes.price, DECIMAL(5,2)
    Link        string          // recipes.link
    // Image is the storage reference of the uploaded image, nil when the
    // recipe has none.
    Image       *string         // recipes.image (nullable)
    Tags        []Attr
    Ingredients []Attr
}
