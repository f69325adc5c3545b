package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/recipe-app-api/internal/database"
	"github.com/iliyamo/recipe-app-api/internal/model"
)

// AttrRepo stores tags and ingredients.  Both live in tables with the same
// shape, selected by model.AttrKind, and every query is scoped to an owner.
type AttrRepo struct {
	db      database.Querier
	dialect database.Dialect
}

// NewAttrRepo binds the repository to a connection pool or a transaction.
func NewAttrRepo(db database.Querier, d database.Dialect) *AttrRepo {
	return &AttrRepo{db: db, dialect: d}
}

// FindOrCreate returns the (userID, name) record of the given kind,
// inserting it first when it does not exist.  The lookup and the insert are
// a single statement so concurrent callers converge on one row.
func (r *AttrRepo) FindOrCreate(ctx context.Context, kind model.AttrKind, userID uint64, name string) (*model.Attr, error) {
	q, returning := r.dialect.UpsertOwnedName(kind.Table())
	a := &model.Attr{UserID: userID, Name: name, Kind: kind}
	if returning {
		if err := r.db.QueryRowContext(ctx, q, userID, name).Scan(&a.ID); err != nil {
			return nil, fmt.Errorf("find or create %s: %w", kind, err)
		}
		return a, nil
	}
	res, err := r.db.ExecContext(ctx, q, userID, name)
	if err != nil {
		return nil, fmt.Errorf("find or create %s: %w", kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	a.ID = uint64(id)
	return a, nil
}

// GetByIDAndOwner returns ErrNotFound when the record is missing or owned
// by someone else.
func (r *AttrRepo) GetByIDAndOwner(ctx context.Context, kind model.AttrKind, id, userID uint64) (*model.Attr, error) {
	q := "SELECT id, user_id, name FROM " + kind.Table() + " WHERE id = ? AND user_id = ?"
	a := model.Attr{Kind: kind}
	if err := r.db.QueryRowContext(ctx, q, id, userID).Scan(&a.ID, &a.UserID, &a.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListByOwner lists a user's records ordered by name descending.  With
// assignedOnly set, only records linked to at least one of the same user's
// recipes are returned.  EXISTS keeps each record once however many
// recipes use it.
func (r *AttrRepo) ListByOwner(ctx context.Context, kind model.AttrKind, userID uint64, assignedOnly bool) ([]model.Attr, error) {
	q := "SELECT a.id, a.user_id, a.name FROM " + kind.Table() + " a WHERE a.user_id = ?"
	if assignedOnly {
		q += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM %s l JOIN recipes rc ON rc.id = l.recipe_id
			WHERE l.%s = a.id AND rc.user_id = a.user_id)`, kind.LinkTable(), kind.LinkColumn())
	}
	q += " ORDER BY a.name DESC, a.id DESC"

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Attr{}
	for rows.Next() {
		a := model.Attr{Kind: kind}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateName renames an owned record.  Renaming onto a name the owner
// already uses yields ErrConflict.
func (r *AttrRepo) UpdateName(ctx context.Context, kind model.AttrKind, id, userID uint64, name string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+kind.Table()+" SET name = ? WHERE id = ? AND user_id = ?", name, id, userID)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDAndOwner removes an owned record.  Its recipe links go with it
// through the foreign key cascade; recipes are never touched.
func (r *AttrRepo) DeleteByIDAndOwner(ctx context.Context, kind model.AttrKind, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM "+kind.Table()+" WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
