/*
Package backup exports and imports the full platform state as JSON.

PURPOSE:
  One snapshot file carries the ledger (transactions, invoices, station
  counters) and the directory (organizations, stations, vehicles, users).
  Import is a wholesale replace of the ledger plus an upsert of directory
  records, so a snapshot taken on one deployment reproduces its exact
  ledger state on another.

FIDELITY:
  Counters are exported and re-imported verbatim, never recomputed, so a
  snapshot of a drifted deployment still shows the drift to an audit
  after import. Recomputation is the audit's job, not the backup's.
*/
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/frotagov/fuel-ledger/directory"
	"github.com/frotagov/fuel-ledger/ledger"
)

const snapshotVersion = 1

// Snapshot is the serialized form of everything the platform persists.
type Snapshot struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`

	Transactions []ledger.Transaction    `json:"transactions"`
	Invoices     []ledger.Invoice        `json:"invoices"`
	Balances     []ledger.StationBalance `json:"balances"`

	Organizations []directory.Organization `json:"organizations"`
	Stations      []directory.FuelStation  `json:"stations"`
	Vehicles      []directory.Vehicle      `json:"vehicles"`
	Users         []directory.User         `json:"users"`
}

// Export writes a snapshot of the store and directory to w.
func Export(ctx context.Context, store ledger.Store, dir directory.Directory, w io.Writer) error {
	snap := Snapshot{
		Version:    snapshotVersion,
		ExportedAt: time.Now().UTC(),
	}

	var err error
	if snap.Transactions, err = store.ListTransactions(ctx, ledger.TransactionFilter{}); err != nil {
		return fmt.Errorf("export transactions: %w", err)
	}
	if snap.Invoices, err = store.ListInvoices(ctx, ledger.InvoiceFilter{}); err != nil {
		return fmt.Errorf("export invoices: %w", err)
	}
	if snap.Organizations, err = dir.ListOrganizations(ctx); err != nil {
		return fmt.Errorf("export organizations: %w", err)
	}
	if snap.Stations, err = dir.ListStations(ctx); err != nil {
		return fmt.Errorf("export stations: %w", err)
	}
	if snap.Vehicles, err = dir.ListVehicles(ctx, ""); err != nil {
		return fmt.Errorf("export vehicles: %w", err)
	}
	if snap.Users, err = dir.ListUsers(ctx); err != nil {
		return fmt.Errorf("export users: %w", err)
	}

	// Counters exist per station; collect them off the station registry.
	for _, st := range snap.Stations {
		b, err := store.StationBalance(ctx, st.ID)
		if err != nil {
			return fmt.Errorf("export balance %s: %w", st.ID, err)
		}
		snap.Balances = append(snap.Balances, b)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Import reads a snapshot from r and loads it. The ledger state is
// replaced wholesale; directory records are upserted (users only where
// the username is free, so the bootstrap admin survives an import).
func Import(ctx context.Context, store ledger.Restorer, dir directory.Directory, r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	for _, org := range snap.Organizations {
		if err := dir.SaveOrganization(ctx, org); err != nil {
			return nil, fmt.Errorf("import organization %s: %w", org.ID, err)
		}
	}
	for _, st := range snap.Stations {
		if err := dir.SaveStation(ctx, st); err != nil {
			return nil, fmt.Errorf("import station %s: %w", st.ID, err)
		}
	}
	for _, v := range snap.Vehicles {
		if err := dir.SaveVehicle(ctx, v); err != nil {
			return nil, fmt.Errorf("import vehicle %s: %w", v.ID, err)
		}
	}
	for _, u := range snap.Users {
		if _, err := dir.UpsertUser(ctx, u); err != nil {
			return nil, fmt.Errorf("import user %s: %w", u.Username, err)
		}
	}

	if err := store.Restore(ctx, snap.Transactions, snap.Invoices, snap.Balances); err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	return &snap, nil
}
