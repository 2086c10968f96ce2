package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smartbundles/bundles-server/internal/domain"
	"github.com/smartbundles/bundles-server/internal/store"
)

// bundleColumns must match the scan order in scanBundle.
const bundleColumns = `id, shop_domain, title, description, status, created_at, updated_at`

// itemColumns must match the scan order in scanItem.
const itemColumns = `id, bundle_id, product_id, variant_id, quantity, position`

func scanBundle(scanner interface{ Scan(dest ...any) error }) (*domain.Bundle, error) {
	var (
		b         domain.Bundle
		status    string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&b.ID,
		&b.ShopDomain,
		&b.Title,
		&b.Description,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = domain.BundleStatus(status)
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	b.Items = []domain.BundleDefinitionItem{}
	return &b, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (domain.BundleDefinitionItem, error) {
	var (
		item      domain.BundleDefinitionItem
		variantID sql.NullString
	)
	err := scanner.Scan(
		&item.ID,
		&item.BundleID,
		&item.ProductID,
		&variantID,
		&item.Quantity,
		&item.Position,
	)
	item.VariantID = variantID.String
	return item, err
}

// CreateBundle inserts a bundle and its items in one transaction.
// Returns store.ErrAlreadyExists on a duplicate bundle or item ID.
func (s *Store) CreateBundle(ctx context.Context, b *domain.Bundle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bundles (`+bundleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.ShopDomain,
		b.Title,
		b.Description,
		string(b.Status),
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert bundle: %w", err)
	}

	if err := insertItems(ctx, tx, b.ID, b.Items); err != nil {
		return err
	}

	return tx.Commit()
}

func insertItems(ctx context.Context, tx *sql.Tx, bundleID string, items []domain.BundleDefinitionItem) error {
	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bundle_items (`+itemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID,
			bundleID,
			item.ProductID,
			nullString(item.VariantID),
			item.Quantity,
			item.Position,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrAlreadyExists.WithMessage("bundle item already exists")
			}
			return fmt.Errorf("insert bundle item: %w", err)
		}
	}
	return nil
}

// GetBundle retrieves a bundle with its items ordered by position.
// Returns store.ErrNotFound if the bundle does not exist.
func (s *Store) GetBundle(ctx context.Context, id string) (*domain.Bundle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bundleColumns+` FROM bundles WHERE id = ?`, id)

	b, err := scanBundle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, []*domain.Bundle{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBundle replaces a bundle's fields and items.
// Returns store.ErrNotFound if the bundle does not exist.
func (s *Store) UpdateBundle(ctx context.Context, b *domain.Bundle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE bundles
		SET title = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		b.Title,
		b.Description,
		string(b.Status),
		formatTime(b.UpdatedAt),
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("update bundle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bundle_items WHERE bundle_id = ?`, b.ID); err != nil {
		return fmt.Errorf("delete bundle items: %w", err)
	}
	if err := insertItems(ctx, tx, b.ID, b.Items); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteBundle removes a bundle; its items go with it.
// Returns store.ErrNotFound if the bundle does not exist.
func (s *Store) DeleteBundle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bundles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bundle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListBundlesByShop returns a shop's bundles, newest first.
func (s *Store) ListBundlesByShop(ctx context.Context, shopDomain string) ([]*domain.Bundle, error) {
	return s.listBundles(ctx,
		`SELECT `+bundleColumns+` FROM bundles WHERE shop_domain = ? ORDER BY created_at DESC, id DESC`,
		shopDomain)
}

// ListAllBundles returns every bundle, newest first.
func (s *Store) ListAllBundles(ctx context.Context) ([]*domain.Bundle, error) {
	return s.listBundles(ctx,
		`SELECT `+bundleColumns+` FROM bundles ORDER BY created_at DESC, id DESC`)
}

func (s *Store) listBundles(ctx context.Context, query string, args ...any) ([]*domain.Bundle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bundles := []*domain.Bundle{}
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, bundles); err != nil {
		return nil, err
	}
	return bundles, nil
}

// attachItems loads the items of all given bundles with one query.
func (s *Store) attachItems(ctx context.Context, bundles []*domain.Bundle) error {
	if len(bundles) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Bundle, len(bundles))
	args := make([]any, 0, len(bundles))
	for _, b := range bundles {
		byID[b.ID] = b
		args = append(args, b.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM bundle_items
		WHERE bundle_id IN (`+placeholders(len(args))+`)
		ORDER BY bundle_id, position, id`,
		args...)
	if err != nil {
		return fmt.Errorf("query bundle items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return err
		}
		if b := byID[item.BundleID]; b != nil {
			b.Items = append(b.Items, item)
		}
	}
	return rows.Err()
}
