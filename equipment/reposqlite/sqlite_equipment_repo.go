// Package sqliteequipmentrepo provides a SQLite-backed equipment store.
package sqliteequipmentrepo

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/labtrack/labtrack-auth/equipment"
	"github.com/labtrack/labtrack-auth/equipment/reposqlite/migrations"
	"github.com/labtrack/labtrack-auth/internal/sqlitemigrate"

	_ "modernc.org/sqlite"
)

var _ equipment.Repo = (*SQLiteEquipmentRepo)(nil)

// SQLiteEquipmentRepo persists equipment records in SQLite.
type SQLiteEquipmentRepo struct {
	sqlDB *sql.DB
}

// NewWithDB wraps an already-open handle, applying this repo's migrations.
func NewWithDB(sqlDB *sql.DB) (*SQLiteEquipmentRepo, error) {
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		return nil, fmt.Errorf("run equipment migrations: %w", err)
	}
	return &SQLiteEquipmentRepo{sqlDB: sqlDB}, nil
}

func (r *SQLiteEquipmentRepo) Upsert(item *equipment.Equipment) error {
	if item == nil {
		return fmt.Errorf("equipment is required")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = equipment.StatusAvailable
	}
	_, err := r.sqlDB.Exec(`
INSERT INTO equipment (id, name, code, category, lab, total_qty, available_qty, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    code = excluded.code,
    category = excluded.category,
    lab = excluded.lab,
    total_qty = excluded.total_qty,
    available_qty = excluded.available_qty,
    status = excluded.status
`, item.ID, item.Name, item.Code, item.Category, item.Lab, item.TotalQty, item.AvailableQty, item.Status)
	if err != nil {
		return fmt.Errorf("upsert equipment: %w", err)
	}
	return nil
}

func (r *SQLiteEquipmentRepo) Delete(id string) error {
	res, err := r.sqlDB.Exec(`DELETE FROM equipment WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete equipment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete equipment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SQLiteEquipmentRepo) GetByID(id string) (*equipment.Equipment, error) {
	row := r.sqlDB.QueryRow(`
SELECT id, name, code, category, lab, total_qty, available_qty, status
FROM equipment WHERE id = ?`, id)
	return scanEquipment(row)
}

func (r *SQLiteEquipmentRepo) List() ([]*equipment.Equipment, error) {
	rows, err := r.sqlDB.Query(`
SELECT id, name, code, category, lab, total_qty, available_qty, status
FROM equipment ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var list []*equipment.Equipment
	for rows.Next() {
		item, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row scanner) (*equipment.Equipment, error) {
	var item equipment.Equipment
	err := row.Scan(&item.ID, &item.Name, &item.Code, &item.Category,
		&item.Lab, &item.TotalQty, &item.AvailableQty, &item.Status)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
