package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frotagov/fuel-ledger/directory"
	"github.com/frotagov/fuel-ledger/ledger"
	"github.com/frotagov/fuel-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// newTestService seeds the directory tables and wires a ledger service
// over the same store.
func newTestService(t *testing.T) (*ledger.Service, *sqlite.Store) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveStation(ctx, directory.FuelStation{
		ID:   "st-1",
		Name: "Posto Central",
		Fees: ledger.FeeSchedule{
			BaseFeePercent:    ledger.MustMoney("5"),
			AdvanceFeePercent: ledger.MustMoney("2.5"),
		},
		Status: directory.StatusActive,
	}))
	require.NoError(t, store.SaveOrganization(ctx, directory.Organization{
		ID: "org-1", Name: "Prefeitura A", Status: directory.StatusActive,
	}))
	require.NoError(t, store.SaveVehicle(ctx, directory.Vehicle{
		ID: "veh-1", OrgID: "org-1", Plate: "ABC1D23", Class: directory.VehicleLight,
	}))

	svc := ledger.NewService(store, directory.LedgerView{Dir: store})
	return svc, store
}

// =============================================================================
// LEDGER PERSISTENCE
// =============================================================================

func TestSQLite_TransactionRoundTrip(t *testing.T) {
	// GIVEN: a transaction with every field populated
	// WHEN: writing and re-reading it
	// THEN: all fields, including decimals and optional timestamps,
	//       survive exactly

	store := newTestStore(t)
	ctx := context.Background()

	validated := time.Date(2025, time.June, 10, 14, 30, 0, 0, time.UTC)
	paid := validated.Add(48 * time.Hour)
	tx := ledger.Transaction{
		ID:                   "tx-1",
		VoucherCode:          "FG-ABCDEFGH",
		OrgID:                "org-1",
		StationID:            "st-1",
		VehicleID:            "veh-1",
		DriverName:           "Maria Souza",
		FuelType:             ledger.FuelDiesel,
		Status:               ledger.StatusPaid,
		RequestDate:          validated.Add(-time.Hour),
		RequestedLiters:      ledger.MustMoney("40"),
		ValidationDate:       &validated,
		FilledLiters:         ledger.MustMoney("38.5"),
		PricePerLiter:        ledger.MustMoney("5.79"),
		TotalValue:           ledger.MustMoney("222.92"),
		Odometer:             42000,
		InvoiceID:            "inv-1",
		FeePercentageApplied: ledger.MustMoney("5"),
		FeeAmount:            ledger.MustMoney("11.15"),
		NetValue:             ledger.MustMoney("211.77"),
		IsAdvanced:           true,
		PaymentDate:          &paid,
	}

	err := store.Mutate(ctx, "st-1", func(v ledger.MutationView) error {
		return v.PutTransaction(tx)
	})
	require.NoError(t, err)

	got, err := store.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, tx.VoucherCode, got.VoucherCode)
	assert.Equal(t, tx.Status, got.Status)
	assert.True(t, got.TotalValue.Equal(tx.TotalValue))
	assert.True(t, got.FeeAmount.Equal(tx.FeeAmount))
	assert.True(t, got.IsAdvanced)
	require.NotNil(t, got.ValidationDate)
	assert.True(t, got.ValidationDate.Equal(validated))
	require.NotNil(t, got.PaymentDate)
	assert.True(t, got.PaymentDate.Equal(paid))

	exists, err := store.VoucherExists(ctx, "FG-ABCDEFGH")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLite_InvoiceRoundTrip(t *testing.T) {
	// GIVEN: an invoice with a member list
	// WHEN: writing and re-reading it
	// THEN: the member id order survives the JSON column

	store := newTestStore(t)
	ctx := context.Background()

	inv := ledger.Invoice{
		ID:             "inv-1",
		StationID:      "st-1",
		OrgID:          "org-1",
		DocumentNumber: "NF-100",
		Status:         ledger.InvoicePendingManager,
		IssueDate:      time.Date(2025, time.June, 12, 9, 0, 0, 0, time.UTC),
		TotalValue:     ledger.MustMoney("180.00"),
		FeeAmount:      ledger.MustMoney("9.00"),
		NetValue:       ledger.MustMoney("171.00"),
		TransactionIDs: []string{"tx-2", "tx-1", "tx-3"},
	}

	err := store.Mutate(ctx, "st-1", func(v ledger.MutationView) error {
		return v.PutInvoice(inv)
	})
	require.NoError(t, err)

	got, err := store.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-2", "tx-1", "tx-3"}, got.TransactionIDs)
	assert.True(t, got.NetValue.Equal(inv.NetValue))
	assert.Nil(t, got.AttestedAt)
}

func TestSQLite_UnknownIDsReturnNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetTransaction(ctx, "nope")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = store.GetInvoice(ctx, "nope")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSQLite_BalanceDefaultsToZeroAndVersions(t *testing.T) {
	// GIVEN: a station that was never written
	// WHEN: reading and then mutating its balance twice
	// THEN: the first read is all zeros and the version stamp climbs
	//       with each committed mutation

	store := newTestStore(t)
	ctx := context.Background()

	b, err := store.StationBalance(ctx, "st-9")
	require.NoError(t, err)
	assert.True(t, b.Pending.IsZero())
	assert.Zero(t, b.Version)

	for i := 1; i <= 2; i++ {
		err = store.Mutate(ctx, "st-9", func(v ledger.MutationView) error {
			bal, err := v.Balance()
			if err != nil {
				return err
			}
			bal.Pending = bal.Pending.Add(ledger.MustMoney("10.00"))
			return v.PutBalance(bal)
		})
		require.NoError(t, err)

		b, err = store.StationBalance(ctx, "st-9")
		require.NoError(t, err)
		assert.Equal(t, int64(i), b.Version)
	}
	assert.True(t, b.Pending.Equal(ledger.MustMoney("20.00")))
}

func TestSQLite_MutateRollsBackOnError(t *testing.T) {
	// GIVEN: a mutation that writes and then fails
	// WHEN: Mutate returns the error
	// THEN: nothing landed

	store := newTestStore(t)
	ctx := context.Background()

	err := store.Mutate(ctx, "st-1", func(v ledger.MutationView) error {
		if err := v.PutTransaction(ledger.Transaction{
			ID: "tx-rollback", VoucherCode: "FG-ROLLBACK", OrgID: "o", StationID: "st-1",
			VehicleID: "v", DriverName: "d", FuelType: ledger.FuelDiesel,
			Status: ledger.StatusRequested, RequestDate: time.Now(),
			RequestedLiters: ledger.MustMoney("1"),
			FilledLiters:    ledger.MustMoney("0"), PricePerLiter: ledger.MustMoney("0"),
			TotalValue: ledger.MustMoney("0"), FeePercentageApplied: ledger.MustMoney("0"),
			FeeAmount: ledger.MustMoney("0"), NetValue: ledger.MustMoney("0"),
		}); err != nil {
			return err
		}
		return ledger.ErrIntegrity
	})
	assert.ErrorIs(t, err, ledger.ErrIntegrity)

	_, err = store.GetTransaction(ctx, "tx-rollback")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSQLite_FullLifecycleThroughService(t *testing.T) {
	// GIVEN: a ledger service backed by SQLite
	// WHEN: running request -> validate -> invoice -> attest -> settle
	// THEN: every step persists and the final audit over the SQL state
	//       is clean

	svc, _ := newTestService(t)
	ctx := context.Background()

	tx, err := svc.RequestFuel(ctx, ledger.RequestFuelInput{
		OrgID: "org-1", StationID: "st-1", VehicleID: "veh-1",
		DriverName: "Maria Souza", FuelType: ledger.FuelGasoline,
		EstimatedLiters: ledger.MustMoney("40"),
	})
	require.NoError(t, err)

	_, err = svc.ValidateFill(ctx, ledger.ValidateFillInput{
		TransactionID: tx.ID,
		FilledLiters:  ledger.MustMoney("30"),
		PricePerLiter: ledger.MustMoney("5.00"),
		Odometer:      42000,
	})
	require.NoError(t, err)

	inv, err := svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-1",
	})
	require.NoError(t, err)
	_, err = svc.Attest(ctx, inv.ID)
	require.NoError(t, err)
	_, err = svc.Settle(ctx, inv.ID)
	require.NoError(t, err)

	b, err := svc.Balance(ctx, "st-1")
	require.NoError(t, err)
	assert.True(t, b.Paid.Equal(ledger.MustMoney("142.50")))

	audit, err := svc.AuditBalances(ctx, "st-1")
	require.NoError(t, err)
	assert.True(t, audit.Clean)
}

func TestSQLite_ListFilters(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tx, err := svc.RequestFuel(ctx, ledger.RequestFuelInput{
		OrgID: "org-1", StationID: "st-1", VehicleID: "veh-1",
		DriverName: "Maria Souza", FuelType: ledger.FuelGasoline,
		EstimatedLiters: ledger.MustMoney("40"),
	})
	require.NoError(t, err)
	_, err = svc.CancelRequest(ctx, tx.ID)
	require.NoError(t, err)

	cancelled, err := store.ListTransactions(ctx, ledger.TransactionFilter{
		StationID: "st-1", Status: ledger.StatusCancelled,
	})
	require.NoError(t, err)
	assert.Len(t, cancelled, 1)

	requested, err := store.ListTransactions(ctx, ledger.TransactionFilter{
		Status: ledger.StatusRequested,
	})
	require.NoError(t, err)
	assert.Empty(t, requested)
}

func TestSQLite_Restore(t *testing.T) {
	// GIVEN: ledger state built through the service
	// WHEN: restoring it wholesale into a fresh store
	// THEN: transactions, invoices and counters match verbatim

	svc, store := newTestService(t)
	ctx := context.Background()

	tx, err := svc.RequestFuel(ctx, ledger.RequestFuelInput{
		OrgID: "org-1", StationID: "st-1", VehicleID: "veh-1",
		DriverName: "Maria Souza", FuelType: ledger.FuelDiesel,
		EstimatedLiters: ledger.MustMoney("40"),
	})
	require.NoError(t, err)
	_, err = svc.ValidateFill(ctx, ledger.ValidateFillInput{
		TransactionID: tx.ID,
		FilledLiters:  ledger.MustMoney("10"),
		PricePerLiter: ledger.MustMoney("6.00"),
		Odometer:      1000,
	})
	require.NoError(t, err)

	txs, err := store.ListTransactions(ctx, ledger.TransactionFilter{})
	require.NoError(t, err)
	invs, err := store.ListInvoices(ctx, ledger.InvoiceFilter{})
	require.NoError(t, err)
	bal, err := store.StationBalance(ctx, "st-1")
	require.NoError(t, err)

	fresh := newTestStore(t)
	require.NoError(t, fresh.Restore(ctx, txs, invs, []ledger.StationBalance{bal}))

	gotTxs, err := fresh.ListTransactions(ctx, ledger.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, gotTxs, 1)
	assert.True(t, gotTxs[0].TotalValue.Equal(ledger.MustMoney("60.00")))

	gotBal, err := fresh.StationBalance(ctx, "st-1")
	require.NoError(t, err)
	assert.True(t, gotBal.Pending.Equal(bal.Pending))
	assert.Equal(t, bal.Version, gotBal.Version)
}

// =============================================================================
// DIRECTORY PERSISTENCE
// =============================================================================

func TestSQLite_StationFeeBoundsEnforcedOnSave(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveStation(ctx, directory.FuelStation{
		ID: "st-bad", Name: "x",
		Fees: ledger.FeeSchedule{
			BaseFeePercent:    ledger.MustMoney("0.5"),
			AdvanceFeePercent: ledger.MustMoney("0"),
		},
		Status: directory.StatusActive,
	})
	assert.ErrorIs(t, err, directory.ErrFeeOutOfBounds)
}

func TestSQLite_StationProductsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	updated := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveStation(ctx, directory.FuelStation{
		ID: "st-1", Name: "Posto Central",
		Fees: ledger.FeeSchedule{
			BaseFeePercent:    ledger.MustMoney("5"),
			AdvanceFeePercent: ledger.MustMoney("0"),
		},
		Products: []directory.Product{
			{FuelType: ledger.FuelGasoline, Price: ledger.MustMoney("5.79"), LastUpdated: updated},
			{FuelType: ledger.FuelEthanol, Price: ledger.MustMoney("3.99"), LastUpdated: updated},
		},
		Status: directory.StatusActive,
	}))

	got, err := store.GetStation(ctx, "st-1")
	require.NoError(t, err)
	require.Len(t, got.Products, 2)
	assert.True(t, got.Products[0].Price.Equal(ledger.MustMoney("5.79")))
	assert.Equal(t, ledger.FuelEthanol, got.Products[1].FuelType)
}

func TestSQLite_UserUniquenessAndUpsert(t *testing.T) {
	// GIVEN: an existing username (stored with different casing)
	// WHEN: creating a duplicate and upserting the same username
	// THEN: CreateUser fails with ErrDuplicate; UpsertUser reports no
	//       insert and leaves the original untouched

	store := newTestStore(t)
	ctx := context.Background()

	original := directory.User{
		ID: "u-1", Name: "Admin", Username: "Admin",
		PasswordHash: "hash-1", Role: directory.RoleSuperAdmin,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateUser(ctx, original))

	err := store.CreateUser(ctx, directory.User{
		ID: "u-2", Name: "Clone", Username: "admin",
		PasswordHash: "hash-2", Role: directory.RoleSuperAdmin,
		CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, directory.ErrDuplicate)

	inserted, err := store.UpsertUser(ctx, directory.User{
		ID: "u-3", Name: "Clone", Username: "ADMIN",
		PasswordHash: "hash-3", Role: directory.RoleSuperAdmin,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := store.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "hash-1", got.PasswordHash)
}

func TestSQLite_VehicleCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := directory.Vehicle{
		ID: "veh-1", OrgID: "org-1", Plate: "ABC1D23", Model: "Strada",
		Class: directory.VehicleLight, CurrentOdometer: 42000,
		AvgConsumption: ledger.MustMoney("11.5"),
	}
	require.NoError(t, store.SaveVehicle(ctx, v))

	got, err := store.GetVehicle(ctx, "veh-1")
	require.NoError(t, err)
	assert.True(t, got.AvgConsumption.Equal(ledger.MustMoney("11.5")))

	byOrg, err := store.ListVehicles(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, byOrg, 1)
	other, err := store.ListVehicles(ctx, "org-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.DeleteVehicle(ctx, "veh-1"))
	_, err = store.GetVehicle(ctx, "veh-1")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}
