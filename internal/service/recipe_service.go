package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/recipe-app-api/internal/database"
	"github.com/iliyamo/recipe-app-api/internal/model"
	"github.com/iliyamo/recipe-app-api/internal/queue"
	"github.com/iliyamo/recipe-app-api/internal/repository"
	"github.com/iliyamo/recipe-app-api/internal/storage"
)

var maxPrice = decimal.NewFromInt(1000)

// MaxTimeMinutes is the largest value the INT time_minutes column holds.
const MaxTimeMinutes = math.MaxInt32

// RecipeInput carries the writable recipe fields.  A nil pointer means the
// field was not supplied.  For Tags and Ingredients that distinction is
// what separates "leave as is" (nil) from "clear" (pointer to empty).
type RecipeInput struct {
	Title       *string
	Description *string
	TimeMinutes *int
	Price       *decimal.Decimal
	Link        *string
	Tags        *[]string
	Ingredients *[]string
}

// RecipeService runs every recipe write in one transaction, reconciling
// tags and ingredients alongside the recipe row, and publishes an activity
// event once the transaction has committed.
type RecipeService struct {
	db      *sql.DB
	dialect database.Dialect
	images  *storage.ImageStore
	events  Publisher
	logger  *slog.Logger
}

func NewRecipeService(db *sql.DB, d database.Dialect, images *storage.ImageStore, events Publisher, logger *slog.Logger) *RecipeService {
	if events == nil {
		events = NopPublisher{}
	}
	return &RecipeService{db: db, dialect: d, images: images, events: events, logger: logger}
}

// Create stores a recipe owned by userID.  The recipe row is written first
// so the associations have something to point at.
func (s *RecipeService) Create(ctx context.Context, userID uint64, in RecipeInput) (*model.Recipe, error) {
	if err := validateRecipe(in, true); err != nil {
		return nil, err
	}
	rc := &model.Recipe{UserID: userID, Tags: []model.Attr{}, Ingredients: []model.Attr{}}
	applyInput(rc, in)

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		recipes := repository.NewRecipeRepo(tx)
		if err := recipes.Create(ctx, rc); err != nil {
			return err
		}
		return s.reconcileAll(ctx, tx, rc, in)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventRecipeCreated, rc)
	return rc, nil
}

// Update changes an owned recipe.  With partial unset the required fields
// must all be present, as for Create.  The owner is never changed.
func (s *RecipeService) Update(ctx context.Context, userID, id uint64, in RecipeInput, partial bool) (*model.Recipe, error) {
	if err := validateRecipe(in, !partial); err != nil {
		return nil, err
	}
	var rc *model.Recipe
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		recipes := repository.NewRecipeRepo(tx)
		var err error
		rc, err = recipes.GetByIDAndOwner(ctx, id, userID)
		if err != nil {
			return err
		}
		applyInput(rc, in)
		if err := recipes.Update(ctx, rc); err != nil {
			return err
		}
		return s.reconcileAll(ctx, tx, rc, in)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventRecipeUpdated, rc)
	return rc, nil
}

// Get returns an owned recipe with its tags and ingredients.
func (s *RecipeService) Get(ctx context.Context, userID, id uint64) (*model.Recipe, error) {
	return repository.NewRecipeRepo(s.db).GetByIDAndOwner(ctx, id, userID)
}

// Delete removes an owned recipe and its image file.  Tags and
// ingredients are kept.
func (s *RecipeService) Delete(ctx context.Context, userID, id uint64) error {
	var rc *model.Recipe
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		recipes := repository.NewRecipeRepo(tx)
		var err error
		rc, err = recipes.GetByIDAndOwner(ctx, id, userID)
		if err != nil {
			return err
		}
		return recipes.DeleteByIDAndOwner(ctx, id, userID)
	})
	if err != nil {
		return err
	}
	if rc.Image != nil {
		s.removeImage(*rc.Image)
	}
	s.publish(ctx, queue.EventRecipeDeleted, rc)
	return nil
}

// UploadImage stores r as the recipe's image, replacing and removing any
// previous one.  A nil reader is a validation error: this path never
// clears an image.
func (s *RecipeService) UploadImage(ctx context.Context, userID, id uint64, r io.Reader) (*model.Recipe, error) {
	if r == nil {
		return nil, NewValidationError("image", "no file was submitted")
	}
	var (
		rc       *model.Recipe
		newName  string
		oldImage *string
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		recipes := repository.NewRecipeRepo(tx)
		var err error
		rc, err = recipes.GetByIDAndOwner(ctx, id, userID)
		if err != nil {
			return err
		}
		newName, err = s.images.Save(r)
		if err != nil {
			return imageError(err)
		}
		if err := recipes.SetImage(ctx, id, userID, newName); err != nil {
			return err
		}
		oldImage = rc.Image
		rc.Image = &newName
		return nil
	})
	if err != nil {
		if newName != "" {
			s.removeImage(newName)
		}
		return nil, err
	}
	if oldImage != nil && *oldImage != newName {
		s.removeImage(*oldImage)
	}
	s.publish(ctx, queue.EventRecipeImageUploaded, rc)
	return rc, nil
}

// ImageURL maps a stored reference to its public URL.
func (s *RecipeService) ImageURL(name string) string { return s.images.URL(name) }

func (s *RecipeService) reconcileAll(ctx context.Context, tx *sql.Tx, rc *model.Recipe, in RecipeInput) error {
	rec := &reconciler{attrs: repository.NewAttrRepo(tx, s.dialect), recipes: repository.NewRecipeRepo(tx)}
	if err := rec.Reconcile(ctx, rc, in.Tags, model.KindTag); err != nil {
		return err
	}
	return rec.Reconcile(ctx, rc, in.Ingredients, model.KindIngredient)
}

func (s *RecipeService) removeImage(name string) {
	if err := s.images.Delete(name); err != nil {
		s.logger.Warn("remove image failed", "image", name, "error", err)
	}
}

func (s *RecipeService) publish(ctx context.Context, typ string, rc *model.Recipe) {
	ev := queue.RecipeEvent{
		Type:        typ,
		RecipeID:    rc.ID,
		UserID:      rc.UserID,
		Title:       rc.Title,
		Tags:        names(rc.Tags),
		Ingredients: names(rc.Ingredients),
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if rc.Image != nil {
		ev.Image = *rc.Image
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish recipe event failed", "event", typ, "recipe_id", rc.ID, "error", err)
	}
}

func names(list []model.Attr) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Name
	}
	return out
}

func applyInput(rc *model.Recipe, in RecipeInput) {
	if in.Title != nil {
		rc.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		rc.Description = *in.Description
	}
	if in.TimeMinutes != nil {
		rc.TimeMinutes = *in.TimeMinutes
	}
	if in.Price != nil {
		rc.Price = *in.Price
	}
	if in.Link != nil {
		rc.Link = strings.TrimSpace(*in.Link)
	}
}

// validateRecipe checks field values.  With requireAll set, title,
// time_minutes and price must be present.
func validateRecipe(in RecipeInput, requireAll bool) error {
	ve := &ValidationError{}
	if in.Title == nil {
		if requireAll {
			ve.Add("title", "is required")
		}
	} else if t := strings.TrimSpace(*in.Title); t == "" {
		ve.Add("title", "may not be blank")
	} else if utf8.RuneCountInString(t) > 255 {
		ve.Add("title", "must not exceed 255 characters")
	}

	if in.TimeMinutes == nil {
		if requireAll {
			ve.Add("time_minutes", "is required")
		}
	} else if *in.TimeMinutes < 0 {
		ve.Add("time_minutes", "must be greater than or equal to 0")
	} else if *in.TimeMinutes > MaxTimeMinutes {
		ve.Add("time_minutes", "must be less than or equal to "+strconv.Itoa(MaxTimeMinutes))
	}

	if in.Price == nil {
		if requireAll {
			ve.Add("price", "is required")
		}
	} else if msg := checkPrice(*in.Price); msg != "" {
		ve.Add("price", msg)
	}

	if in.Link != nil && utf8.RuneCountInString(strings.TrimSpace(*in.Link)) > 255 {
		ve.Add("link", "must not exceed 255 characters")
	}

	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// checkPrice enforces DECIMAL(5,2): non-negative, below 1000, at most two
// decimal places.
func checkPrice(p decimal.Decimal) string {
	switch {
	case p.IsNegative():
		return "must be greater than or equal to 0"
	case p.GreaterThanOrEqual(maxPrice):
		return "must have no more than 3 digits before the decimal point"
	case !p.Equal(p.Round(2)):
		return "must have no more than 2 decimal places"
	}
	return ""
}

func imageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotImage):
		return NewValidationError("image", "upload a valid image")
	case errors.Is(err, storage.ErrEmpty):
		return NewValidationError("image", "the submitted file is empty")
	case errors.Is(err, storage.ErrTooLarge):
		return NewValidationError("image", "file too large")
	}
	return err
}
