/*
directory.go - directory.Directory on the same SQLite database

PURPOSE:
  Registry records share the database with the ledger so one backup file
  captures everything. Station product price lists are stored as a JSON
  column; they are read whole and written whole, never queried into.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/frotagov/fuel-ledger/directory"
)

// =============================================================================
// ORGANIZATIONS
// =============================================================================

func (s *Store) GetOrganization(ctx context.Context, id string) (*directory.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, tax_id, address, contact_name, balance_due, status
		FROM organizations WHERE id = ?`, id)

	var org directory.Organization
	var balanceDue, status string
	err := row.Scan(&org.ID, &org.Name, &org.TaxID, &org.Address,
		&org.ContactName, &balanceDue, &status)
	if err == sql.ErrNoRows {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	org.BalanceDue = mustDecimal(balanceDue)
	org.Status = directory.RecordStatus(status)
	return &org, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]directory.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tax_id, address, contact_name, balance_due, status
		FROM organizations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.Organization
	for rows.Next() {
		var org directory.Organization
		var balanceDue, status string
		if err := rows.Scan(&org.ID, &org.Name, &org.TaxID, &org.Address,
			&org.ContactName, &balanceDue, &status); err != nil {
			return nil, err
		}
		org.BalanceDue = mustDecimal(balanceDue)
		org.Status = directory.RecordStatus(status)
		out = append(out, org)
	}
	return out, rows.Err()
}

func (s *Store) SaveOrganization(ctx context.Context, org directory.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, tax_id, address, contact_name, balance_due, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			tax_id = excluded.tax_id,
			address = excluded.address,
			contact_name = excluded.contact_name,
			balance_due = excluded.balance_due,
			status = excluded.status`,
		org.ID, org.Name, org.TaxID, org.Address, org.ContactName,
		org.BalanceDue.String(), string(org.Status))
	return err
}

// =============================================================================
// STATIONS
// =============================================================================

func (s *Store) GetStation(ctx context.Context, id string) (*directory.FuelStation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, tax_id, address, contact_name,
		       base_fee_percent, advance_fee_percent, products_json, status
		FROM stations WHERE id = ?`, id)
	return scanStation(row)
}

func (s *Store) ListStations(ctx context.Context) ([]directory.FuelStation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tax_id, address, contact_name,
		       base_fee_percent, advance_fee_percent, products_json, status
		FROM stations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.FuelStation
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func scanStation(row rowScanner) (*directory.FuelStation, error) {
	var st directory.FuelStation
	var base, advance, productsJSON, status string
	err := row.Scan(&st.ID, &st.Name, &st.TaxID, &st.Address, &st.ContactName,
		&base, &advance, &productsJSON, &status)
	if err == sql.ErrNoRows {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	st.Fees.BaseFeePercent = mustDecimal(base)
	st.Fees.AdvanceFeePercent = mustDecimal(advance)
	if err := json.Unmarshal([]byte(productsJSON), &st.Products); err != nil {
		return nil, fmt.Errorf("station %s products: %w", st.ID, err)
	}
	st.Status = directory.RecordStatus(status)
	return &st, nil
}

func (s *Store) SaveStation(ctx context.Context, st directory.FuelStation) error {
	if err := st.ValidateFees(); err != nil {
		return err
	}
	productsJSON, err := json.Marshal(st.Products)
	if err != nil {
		return err
	}
	if st.Products == nil {
		productsJSON = []byte("[]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stations (id, name, tax_id, address, contact_name,
			base_fee_percent, advance_fee_percent, products_json, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			tax_id = excluded.tax_id,
			address = excluded.address,
			contact_name = excluded.contact_name,
			base_fee_percent = excluded.base_fee_percent,
			advance_fee_percent = excluded.advance_fee_percent,
			products_json = excluded.products_json,
			status = excluded.status`,
		st.ID, st.Name, st.TaxID, st.Address, st.ContactName,
		st.Fees.BaseFeePercent.String(), st.Fees.AdvanceFeePercent.String(),
		string(productsJSON), string(st.Status))
	return err
}

// =============================================================================
// VEHICLES
// =============================================================================

func (s *Store) GetVehicle(ctx context.Context, id string) (*directory.Vehicle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, plate, model, department, class, current_odometer, avg_consumption
		FROM vehicles WHERE id = ?`, id)

	var v directory.Vehicle
	var class, avgConsumption string
	err := row.Scan(&v.ID, &v.OrgID, &v.Plate, &v.Model, &v.Department,
		&class, &v.CurrentOdometer, &avgConsumption)
	if err == sql.ErrNoRows {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.Class = directory.VehicleClass(class)
	v.AvgConsumption = mustDecimal(avgConsumption)
	return &v, nil
}

func (s *Store) ListVehicles(ctx context.Context, orgID string) ([]directory.Vehicle, error) {
	query := `SELECT id, org_id, plate, model, department, class, current_odometer, avg_consumption
		FROM vehicles`
	var args []any
	if orgID != "" {
		query += " WHERE org_id = ?"
		args = append(args, orgID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.Vehicle
	for rows.Next() {
		var v directory.Vehicle
		var class, avgConsumption string
		if err := rows.Scan(&v.ID, &v.OrgID, &v.Plate, &v.Model, &v.Department,
			&class, &v.CurrentOdometer, &avgConsumption); err != nil {
			return nil, err
		}
		v.Class = directory.VehicleClass(class)
		v.AvgConsumption = mustDecimal(avgConsumption)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) SaveVehicle(ctx context.Context, v directory.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vehicles (id, org_id, plate, model, department, class, current_odometer, avg_consumption)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			org_id = excluded.org_id,
			plate = excluded.plate,
			model = excluded.model,
			department = excluded.department,
			class = excluded.class,
			current_odometer = excluded.current_odometer,
			avg_consumption = excluded.avg_consumption`,
		v.ID, v.OrgID, v.Plate, v.Model, v.Department, string(v.Class),
		v.CurrentOdometer, v.AvgConsumption.String())
	return err
}

func (s *Store) DeleteVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	return err
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*directory.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, username, password_hash, role, org_id, station_id, created_at
		FROM users WHERE username = ?`, username)

	var u directory.User
	var role, createdAt string
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &role,
		&u.OrgID, &u.StationID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = directory.Role(role)
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]directory.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, username, password_hash, role, org_id, station_id, created_at
		FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.User
	for rows.Next() {
		var u directory.User
		var role, createdAt string
		if err := rows.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &role,
			&u.OrgID, &u.StationID, &createdAt); err != nil {
			return nil, err
		}
		u.Role = directory.Role(role)
		u.CreatedAt = parseTime(createdAt)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u directory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, username, password_hash, role, org_id, station_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Username, u.PasswordHash, string(u.Role),
		u.OrgID, u.StationID, formatTime(u.CreatedAt))
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return directory.ErrDuplicate
	}
	return err
}

func (s *Store) UpsertUser(ctx context.Context, u directory.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, username, password_hash, role, org_id, station_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO NOTHING`,
		u.ID, u.Name, u.Username, u.PasswordHash, string(u.Role),
		u.OrgID, u.StationID, formatTime(u.CreatedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}
