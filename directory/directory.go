/*
directory.go - Registry interface and the ledger adapter

PURPOSE:
  Directory is the persistence contract for registry records. The sqlite
  store implements it alongside the ledger store; Memory below backs
  tests and development.

  LedgerView adapts a Directory to the narrow read-only interface the
  ledger consumes, so the ledger package never learns about addresses,
  price lists or users.
*/
package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/frotagov/fuel-ledger/ledger"
)

// Directory persists registry records.
type Directory interface {
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	SaveOrganization(ctx context.Context, org Organization) error

	GetStation(ctx context.Context, id string) (*FuelStation, error)
	ListStations(ctx context.Context) ([]FuelStation, error)
	SaveStation(ctx context.Context, st FuelStation) error

	GetVehicle(ctx context.Context, id string) (*Vehicle, error)
	ListVehicles(ctx context.Context, orgID string) ([]Vehicle, error)
	SaveVehicle(ctx context.Context, v Vehicle) error
	DeleteVehicle(ctx context.Context, id string) error

	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// CreateUser fails with ErrDuplicate when the username is taken.
	CreateUser(ctx context.Context, u User) error
	// UpsertUser inserts or leaves an existing username untouched, reporting
	// whether an insert happened. Used by the bootstrap seed.
	UpsertUser(ctx context.Context, u User) (bool, error)
	DeleteUser(ctx context.Context, id string) error
}

// =============================================================================
// LEDGER ADAPTER
// =============================================================================

// LedgerView exposes a Directory as the lookup interface the ledger wants.
type LedgerView struct {
	Dir Directory
}

func (lv LedgerView) Station(ctx context.Context, id string) (*ledger.StationRef, error) {
	st, err := lv.Dir.GetStation(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &ledger.StationRef{ID: st.ID, Fees: st.Fees}, nil
}

func (lv LedgerView) Vehicle(ctx context.Context, id string) (*ledger.VehicleRef, error) {
	v, err := lv.Dir.GetVehicle(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &ledger.VehicleRef{ID: v.ID, OrgID: v.OrgID}, nil
}

// translateNotFound maps directory misses onto the ledger's sentinel so the
// ledger's callers branch on one error family.
func translateNotFound(err error) error {
	if err == ErrNotFound {
		return ledger.ErrNotFound
	}
	return err
}

func (lv LedgerView) OrganizationExists(ctx context.Context, id string) (bool, error) {
	_, err := lv.Dir.GetOrganization(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// MEMORY DIRECTORY
// =============================================================================

// Memory is an in-memory Directory for tests and development.
type Memory struct {
	mu       sync.RWMutex
	orgs     map[string]Organization
	stations map[string]FuelStation
	vehicles map[string]Vehicle
	users    map[string]User // keyed by id
}

func NewMemory() *Memory {
	return &Memory{
		orgs:     make(map[string]Organization),
		stations: make(map[string]FuelStation),
		vehicles: make(map[string]Vehicle),
		users:    make(map[string]User),
	}
}

func (m *Memory) GetOrganization(_ context.Context, id string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

func (m *Memory) ListOrganizations(_ context.Context) ([]Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Organization, 0, len(m.orgs))
	for _, o := range m.orgs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveOrganization(_ context.Context, org Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgs[org.ID] = org
	return nil
}

func (m *Memory) GetStation(_ context.Context, id string) (*FuelStation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[id]
	if !ok {
		return nil, ErrNotFound
	}
	st.Products = append([]Product(nil), st.Products...)
	return &st, nil
}

func (m *Memory) ListStations(_ context.Context) ([]FuelStation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FuelStation, 0, len(m.stations))
	for _, s := range m.stations {
		s.Products = append([]Product(nil), s.Products...)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveStation(_ context.Context, st FuelStation) error {
	if err := st.ValidateFees(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[st.ID] = st
	return nil
}

func (m *Memory) GetVehicle(_ context.Context, id string) (*Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (m *Memory) ListVehicles(_ context.Context, orgID string) ([]Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Vehicle
	for _, v := range m.vehicles {
		if orgID == "" || v.OrgID == orgID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveVehicle(_ context.Context, v Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
	return nil
}

func (m *Memory) DeleteVehicle(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vehicles, id)
	return nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListUsers(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return ErrDuplicate
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) UpsertUser(_ context.Context, u User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return false, nil
		}
	}
	m.users[u.ID] = u
	return true, nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}
