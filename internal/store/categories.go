package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const categoryColumns = `id, name, color, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) CreateCategory(ctx context.Context, name, color string) (*Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("category name is empty: %w", ErrInvalidInput)
	}
	if color == "" {
		color = DefaultCategoryColor
	}

	var id int64
	err := s.withTx(ctx, "insert category", func(tx *sql.Tx) error {
		taken, err := nameTaken(ctx, tx, name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("category %q: %w", name, ErrDuplicateCategory)
		}

		now := time.Now().UTC().Format(time.RFC3339)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, color, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			name, color, now, now,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q: %w", name, ErrDuplicateCategory)
		}
		if err != nil {
			return unavailable("insert category", err)
		}
		id, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, id)
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get category %d", id), err)
	}
	return c, nil
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = ?`, name)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get category %q", name), err)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, unavailable("list categories", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, unavailable("list categories", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list categories", err)
	}
	return categories, nil
}

// RenameCategory changes the display name. The id and every interval
// referencing it are untouched.
func (s *Store) RenameCategory(ctx context.Context, id int64, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return fmt.Errorf("category name is empty: %w", ErrInvalidInput)
	}

	return s.withTx(ctx, "rename category", func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return unavailable("rename category", err)
		}
		if current == newName {
			return nil
		}

		taken, err := nameTaken(ctx, tx, newName)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("category %q: %w", newName, ErrDuplicateCategory)
		}

		now := time.Now().UTC().Format(time.RFC3339)
		_, err = tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, updated_at = ? WHERE id = ?`, newName, now, id,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q: %w", newName, ErrDuplicateCategory)
		}
		if err != nil {
			return unavailable("rename category", err)
		}
		return nil
	})
}

func (s *Store) SetCategoryColor(ctx context.Context, id int64, color string) error {
	if color == "" {
		color = DefaultCategoryColor
	}
	return s.withTx(ctx, "set category color", func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339)
		res, err := tx.ExecContext(ctx,
			`UPDATE categories SET color = ?, updated_at = ? WHERE id = ?`, color, now, id,
		)
		if err != nil {
			return unavailable("set category color", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// DeleteCategory removes a category according to policy and returns the
// number of interval records removed along with it.
func (s *Store) DeleteCategory(ctx context.Context, id int64, policy DeletePolicy) (int64, error) {
	var removed int64
	err := s.withTx(ctx, "delete category", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return unavailable("delete category", err)
		}
		if exists == 0 {
			return fmt.Errorf("category %d: %w", id, ErrNotFound)
		}

		var refs int64
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM intervals WHERE category_id = ?`, id).Scan(&refs)
		if err != nil {
			return unavailable("delete category", err)
		}

		if refs > 0 {
			switch policy {
			case CascadeDeleteSessions:
				res, err := tx.ExecContext(ctx, `DELETE FROM intervals WHERE category_id = ?`, id)
				if err != nil {
					return unavailable("delete category intervals", err)
				}
				removed, _ = res.RowsAffected()
			default:
				return fmt.Errorf("category %d has %d intervals: %w", id, refs, ErrCategoryInUse)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("category %d: %w", id, ErrCategoryInUse)
			}
			return unavailable("delete category", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) seedCategories() error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range defaultCategories {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO categories (name, color, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			c.Name, c.Color, now, now,
		)
		if err != nil {
			return err
		}
	}
	s.logger.Info("seeded default categories", "count", len(defaultCategories))
	return nil
}

func nameTaken(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, unavailable("check category name", err)
	}
	return n > 0, nil
}

func scanCategory(row rowScanner) (*Category, error) {
	c := &Category{}
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return c, nil
}
