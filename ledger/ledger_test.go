package ledger_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frotagov/fuel-ledger/directory"
	"github.com/frotagov/fuel-ledger/ledger"
	store "github.com/frotagov/fuel-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	svc   *ledger.Service
	store *store.Memory
	dir   *directory.Memory
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	dir := directory.NewMemory()
	require.NoError(t, dir.SaveStation(ctx, directory.FuelStation{
		ID:     "st-1",
		Name:   "Posto Central",
		Fees:   feeSchedule("5", "2.5"),
		Status: directory.StatusActive,
	}))
	require.NoError(t, dir.SaveStation(ctx, directory.FuelStation{
		ID:     "st-2",
		Name:   "Posto Norte",
		Fees:   feeSchedule("3", "1"),
		Status: directory.StatusActive,
	}))
	require.NoError(t, dir.SaveOrganization(ctx, directory.Organization{
		ID: "org-1", Name: "Prefeitura A", Status: directory.StatusActive,
	}))
	require.NoError(t, dir.SaveOrganization(ctx, directory.Organization{
		ID: "org-2", Name: "Prefeitura B", Status: directory.StatusActive,
	}))
	require.NoError(t, dir.SaveVehicle(ctx, directory.Vehicle{
		ID: "veh-1", OrgID: "org-1", Plate: "ABC1D23", Class: directory.VehicleLight,
	}))
	require.NoError(t, dir.SaveVehicle(ctx, directory.Vehicle{
		ID: "veh-2", OrgID: "org-2", Plate: "XYZ9W87", Class: directory.VehicleHeavy,
	}))

	mem := store.NewMemory()
	f := &fixture{
		store: mem,
		dir:   dir,
		now:   time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
	}

	var idSeq int
	var idMu sync.Mutex
	f.svc = ledger.NewService(mem, directory.LedgerView{Dir: dir},
		ledger.WithClock(func() time.Time { return f.now }),
		ledger.WithIDSource(func() string {
			idMu.Lock()
			defer idMu.Unlock()
			idSeq++
			return fmt.Sprintf("id-%04d", idSeq)
		}),
	)
	return f
}

func feeSchedule(base, advance string) ledger.FeeSchedule {
	return ledger.FeeSchedule{
		BaseFeePercent:    ledger.MustMoney(base),
		AdvanceFeePercent: ledger.MustMoney(advance),
	}
}

// requestFuel creates a REQUESTED transaction for org-1/veh-1 at st-1.
func (f *fixture) requestFuel(t *testing.T) *ledger.Transaction {
	t.Helper()
	tx, err := f.svc.RequestFuel(context.Background(), ledger.RequestFuelInput{
		OrgID:           "org-1",
		StationID:       "st-1",
		VehicleID:       "veh-1",
		DriverName:      "Maria Souza",
		FuelType:        ledger.FuelGasoline,
		EstimatedLiters: ledger.MustMoney("40"),
	})
	require.NoError(t, err)
	return tx
}

// validatedFill requests and validates one fill of the given liters/price.
func (f *fixture) validatedFill(t *testing.T, liters, price string) *ledger.Transaction {
	t.Helper()
	tx := f.requestFuel(t)
	out, err := f.svc.ValidateFill(context.Background(), ledger.ValidateFillInput{
		TransactionID: tx.ID,
		FilledLiters:  ledger.MustMoney(liters),
		PricePerLiter: ledger.MustMoney(price),
		Odometer:      42000,
	})
	require.NoError(t, err)
	return out
}

// requireCleanAudit asserts the stored counters match a recomputation.
func (f *fixture) requireCleanAudit(t *testing.T, stationID string) {
	t.Helper()
	audit, err := f.svc.AuditBalances(context.Background(), stationID)
	require.NoError(t, err, "audit found drift: stored %+v computed %+v", audit.Stored, audit.Computed)
	require.True(t, audit.Clean)
}

// =============================================================================
// FUEL REQUESTS
// =============================================================================

func TestRequestFuel_CreatesRequestedTransaction(t *testing.T) {
	// GIVEN: a registered station, organization and vehicle
	// WHEN: requesting fuel
	// THEN: a REQUESTED transaction exists with a voucher code and no
	//       balance counter has moved

	f := newFixture(t)
	ctx := context.Background()

	tx := f.requestFuel(t)

	assert.Equal(t, ledger.StatusRequested, tx.Status)
	assert.True(t, strings.HasPrefix(tx.VoucherCode, "FG-"), "voucher was %q", tx.VoucherCode)
	assert.Len(t, tx.VoucherCode, 11)
	assert.True(t, tx.TotalValue.IsZero())

	b, err := f.svc.Balance(ctx, "st-1")
	require.NoError(t, err)
	assert.True(t, b.Pending.IsZero())
	assert.True(t, b.Invoiced.IsZero())
	assert.True(t, b.Paid.IsZero())
	f.requireCleanAudit(t, "st-1")
}

func TestRequestFuel_VoucherCodesAreUnique(t *testing.T) {
	// GIVEN: many requests
	// WHEN: collecting their voucher codes
	// THEN: no two collide

	f := newFixture(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tx := f.requestFuel(t)
		assert.False(t, seen[tx.VoucherCode], "voucher %s repeated", tx.VoucherCode)
		seen[tx.VoucherCode] = true
	}
}

func TestRequestFuel_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ledger.RequestFuelInput
		want error
	}{
		{
			name: "zero liters",
			in: ledger.RequestFuelInput{
				OrgID: "org-1", StationID: "st-1", VehicleID: "veh-1",
				DriverName: "x", FuelType: ledger.FuelDiesel,
			},
			want: ledger.ErrValidation,
		},
		{
			name: "missing driver",
			in: ledger.RequestFuelInput{
				OrgID: "org-1", StationID: "st-1", VehicleID: "veh-1",
				FuelType: ledger.FuelDiesel, EstimatedLiters: ledger.MustMoney("10"),
			},
			want: ledger.ErrValidation,
		},
		{
			name: "vehicle of another organization",
			in: ledger.RequestFuelInput{
				OrgID: "org-1", StationID: "st-1", VehicleID: "veh-2",
				DriverName: "x", FuelType: ledger.FuelDiesel, EstimatedLiters: ledger.MustMoney("10"),
			},
			want: ledger.ErrValidation,
		},
		{
			name: "unknown station",
			in: ledger.RequestFuelInput{
				OrgID: "org-1", StationID: "st-nope", VehicleID: "veh-1",
				DriverName: "x", FuelType: ledger.FuelDiesel, EstimatedLiters: ledger.MustMoney("10"),
			},
			want: ledger.ErrNotFound,
		},
		{
			name: "unknown organization",
			in: ledger.RequestFuelInput{
				OrgID: "org-nope", StationID: "st-1", VehicleID: "veh-1",
				DriverName: "x", FuelType: ledger.FuelDiesel, EstimatedLiters: ledger.MustMoney("10"),
			},
			want: ledger.ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RequestFuel(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// =============================================================================
// FILL VALIDATION
// =============================================================================

func TestValidateFill_MovesPendingCounter(t *testing.T) {
	// GIVEN: a REQUESTED transaction
	// WHEN: the station validates 38.5 liters at 5.79
	// THEN: the transaction is VALIDATED with total 222.92 (rounded
	//       half-up) and the pending counter carries exactly that amount

	f := newFixture(t)
	ctx := context.Background()

	tx := f.validatedFill(t, "38.5", "5.79")

	assert.Equal(t, ledger.StatusValidated, tx.Status)
	assert.True(t, tx.TotalValue.Equal(ledger.MustMoney("222.92")), "total was %s", tx.TotalValue)
	require.NotNil(t, tx.ValidationDate)
	assert.Equal(t, int64(42000), tx.Odometer)

	b, err := f.svc.Balance(ctx, "st-1")
	require.NoError(t, err)
	assert.True(t, b.Pending.Equal(ledger.MustMoney("222.92")))
	f.requireCleanAudit(t, "st-1")
}

func TestValidateFill_SecondAttemptFails(t *testing.T) {
	// GIVEN: an already VALIDATED transaction
	// WHEN: validating it again
	// THEN: ErrInvalidState, and the pending counter is unchanged

	f := newFixture(t)
	ctx := context.Background()

	tx := f.validatedFill(t, "10", "5.00")

	_, err := f.svc.ValidateFill(ctx, ledger.ValidateFillInput{
		TransactionID: tx.ID,
		FilledLiters:  ledger.MustMoney("10"),
		PricePerLiter: ledger.MustMoney("5.00"),
		Odometer:      42001,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	b, _ := f.svc.Balance(ctx, "st-1")
	assert.True(t, b.Pending.Equal(ledger.MustMoney("50.00")))
	f.requireCleanAudit(t, "st-1")
}

func TestValidateFill_ConcurrentRace_ExactlyOneWins(t *testing.T) {
	// GIVEN: one REQUESTED transaction and two racing validators
	// WHEN: both validate concurrently
	// THEN: exactly one succeeds; the loser sees ErrInvalidState or
	//       ErrConflict; counters stay consistent

	f := newFixture(t)
	ctx := context.Background()
	tx := f.requestFuel(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ValidateFill(ctx, ledger.ValidateFillInput{
				TransactionID: tx.ID,
				FilledLiters:  ledger.MustMoney("20"),
				PricePerLiter: ledger.MustMoney("6.00"),
				Odometer:      50000,
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, ledger.IsRetryable(err) || ledger.IsClientError(err),
			"unexpected error class: %v", err)
	}
	require.Equal(t, 1, successes)

	b, _ := f.svc.Balance(ctx, "st-1")
	assert.True(t, b.Pending.Equal(ledger.MustMoney("120.00")), "pending was %s", b.Pending)
	f.requireCleanAudit(t, "st-1")
}

func TestCancelRequest_OnlyFromRequested(t *testing.T) {
	// GIVEN: one REQUESTED and one VALIDATED transaction
	// WHEN: cancelling each
	// THEN: the REQUESTED one becomes CANCELLED with no balance effect;
	//       the VALIDATED one is refused

	f := newFixture(t)
	ctx := context.Background()

	requested := f.requestFuel(t)
	validated := f.validatedFill(t, "10", "5.00")

	out, err := f.svc.CancelRequest(ctx, requested.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCancelled, out.Status)

	_, err = f.svc.CancelRequest(ctx, validated.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	b, _ := f.svc.Balance(ctx, "st-1")
	assert.True(t, b.Pending.Equal(ledger.MustMoney("50.00")))
	f.requireCleanAudit(t, "st-1")
}

// =============================================================================
// INVOICE GENERATION
// =============================================================================

func TestGenerateInvoice_SweepsAllValidatedForPair(t *testing.T) {
	// GIVEN: two validated fills for org-1 and one for org-2, all at st-1
	// WHEN: invoicing the (st-1, org-1) pair
	// THEN: exactly the org-1 fills become members; org-2's fill stays
	//       VALIDATED and its gross stays pending

	f := newFixture(t)
	ctx := context.Background()

	a := f.validatedFill(t, "10", "6.00") // 60.00
	b := f.validatedFill(t, "20", "6.00") // 120.00

	// org-2 fill at the same station
	other, err := f.svc.RequestFuel(ctx, ledger.RequestFuelInput{
		OrgID: "org-2", StationID: "st-1", VehicleID: "veh-2",
		DriverName: "Jo", FuelType: ledger.FuelDiesel, EstimatedLiters: ledger.MustMoney("30"),
	})
	require.NoError(t, err)
	_, err = f.svc.ValidateFill(ctx, ledger.ValidateFillInput{
		TransactionID: other.ID,
		FilledLiters:  ledger.MustMoney("30"),
		PricePerLiter: ledger.MustMoney("6.00"),
		Odometer:      90000,
	})
	require.NoError(t, err)

	inv, err := f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-100",
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.InvoicePendingManager, inv.Status)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, inv.TransactionIDs)
	assert.True(t, inv.TotalValue.Equal(ledger.MustMoney("180.00")))
	assert.True(t, inv.FeeAmount.Equal(ledger.MustMoney("9.00"))) // 5% of 180
	assert.True(t, inv.NetValue.Equal(ledger.MustMoney("171.00")))

	untouched, err := f.svc.Transaction(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusValidated, untouched.Status)

	bal, _ := f.svc.Balance(ctx, "st-1")
	assert.True(t, bal.Pending.Equal(ledger.MustMoney("180.00")), "org-2 gross stays pending, was %s", bal.Pending)
	assert.True(t, bal.Invoiced.Equal(ledger.MustMoney("171.00")))
	f.requireCleanAudit(t, "st-1")
}

func TestGenerateInvoice_NothingToInvoice(t *testing.T) {
	// GIVEN: only a REQUESTED transaction for the pair
	// WHEN: invoicing
	// THEN: ErrNothingToInvoice and nothing is written

	f := newFixture(t)
	f.requestFuel(t)

	_, err := f.svc.GenerateInvoice(context.Background(), ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-1",
	})
	assert.ErrorIs(t, err, ledger.ErrNothingToInvoice)
}

func TestGenerateInvoice_RequiresDocumentNumber(t *testing.T) {
	f := newFixture(t)
	f.validatedFill(t, "10", "5.00")

	_, err := f.svc.GenerateInvoice(context.Background(), ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1",
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestGenerateInvoice_AggregateFeeWithRoundingRemainder(t *testing.T) {
	// GIVEN: three fills of 33.33 each (aggregate 99.99, 5% fee 5.00,
	//        naive per-member fees 1.67 x 3 = 5.01)
	// WHEN: invoicing
	// THEN: the invoice fee is the aggregate 5.00 and member fees sum to
	//       it exactly, with the remainder on the last member

	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.validatedFill(t, "33.33", "1.00")
	}

	inv, err := f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-200",
	})
	require.NoError(t, err)

	assert.True(t, inv.TotalValue.Equal(ledger.MustMoney("99.99")))
	assert.True(t, inv.FeeAmount.Equal(ledger.MustMoney("5.00")), "fee was %s", inv.FeeAmount)
	assert.True(t, inv.NetValue.Equal(ledger.MustMoney("94.99")))

	members, err := f.svc.Transactions(ctx, ledger.TransactionFilter{InvoiceID: inv.ID})
	require.NoError(t, err)
	require.Len(t, members, 3)

	feeSum := ledger.MustMoney("0")
	for _, m := range members {
		assert.Equal(t, ledger.StatusInvoiced, m.Status)
		assert.True(t, m.FeeAmount.Add(m.NetValue).Equal(m.TotalValue))
		feeSum = feeSum.Add(m.FeeAmount)
	}
	assert.True(t, feeSum.Equal(inv.FeeAmount), "member fees sum to %s", feeSum)
	f.requireCleanAudit(t, "st-1")
}

func TestGenerateInvoice_AdvanceUsesSurcharge(t *testing.T) {
	// GIVEN: a validated fill of 1000.00 at a 5 + 2.5 schedule
	// WHEN: invoicing with the advance flag
	// THEN: the frozen percentage is 7.5 on invoice and member alike

	f := newFixture(t)
	ctx := context.Background()
	f.validatedFill(t, "200", "5.00")

	inv, err := f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", IsAdvance: true, DocumentNumber: "NF-300",
	})
	require.NoError(t, err)

	assert.True(t, inv.IsAdvance)
	assert.True(t, inv.FeeAmount.Equal(ledger.MustMoney("75.00")))

	members, _ := f.svc.Transactions(ctx, ledger.TransactionFilter{InvoiceID: inv.ID})
	require.Len(t, members, 1)
	assert.True(t, members[0].FeePercentageApplied.Equal(ledger.MustMoney("7.5")))
	assert.True(t, members[0].IsAdvanced)
}

func TestGenerateInvoice_ConcurrentPair_OneWins(t *testing.T) {
	// GIVEN: validated fills for one (station, org) pair
	// WHEN: two invoice generations race
	// THEN: one sweeps everything; the other finds nothing to invoice

	f := newFixture(t)
	ctx := context.Background()
	f.validatedFill(t, "10", "5.00")
	f.validatedFill(t, "20", "5.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
				StationID: "st-1", OrgID: "org-1",
				DocumentNumber: fmt.Sprintf("NF-%d", i),
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ledger.ErrNothingToInvoice)
		}
	}
	require.Equal(t, 1, successes)
	f.requireCleanAudit(t, "st-1")
}

// =============================================================================
// APPROVAL CHAIN
// =============================================================================

func TestInvoiceLifecycle_AttestThenSettle(t *testing.T) {
	// GIVEN: a PENDING_MANAGER invoice of gross 150.00 (fee 7.50)
	// WHEN: the manager attests and the admin settles
	// THEN: invoice and members are PAID, and the money has moved
	//       pending -> invoiced -> paid through the counters

	f := newFixture(t)
	ctx := context.Background()
	f.validatedFill(t, "30", "5.00") // 150.00

	inv, err := f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-400",
	})
	require.NoError(t, err)

	attested, err := f.svc.Attest(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoicePendingAdmin, attested.Status)
	require.NotNil(t, attested.AttestedAt)

	// Attestation moves no money.
	b, _ := f.svc.Balance(ctx, "st-1")
	assert.True(t, b.Invoiced.Equal(ledger.MustMoney("142.50")))
	assert.True(t, b.Paid.IsZero())

	settled, err := f.svc.Settle(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoicePaid, settled.Status)
	require.NotNil(t, settled.PaidAt)

	members, _ := f.svc.Transactions(ctx, ledger.TransactionFilter{InvoiceID: inv.ID})
	for _, m := range members {
		assert.Equal(t, ledger.StatusPaid, m.Status)
		require.NotNil(t, m.PaymentDate)
	}

	b, _ = f.svc.Balance(ctx, "st-1")
	assert.True(t, b.Pending.IsZero())
	assert.True(t, b.Invoiced.IsZero())
	assert.True(t, b.Paid.Equal(ledger.MustMoney("142.50")))
	f.requireCleanAudit(t, "st-1")
}

func TestRejectInvoice_RevertsMembersToGross(t *testing.T) {
	// GIVEN: a PENDING_MANAGER invoice
	// WHEN: the manager rejects it
	// THEN: members return to VALIDATED with cleared fee snapshots, the
	//       station is again owed the gross as pending, and the pair can
	//       be re-invoiced under a new document

	f := newFixture(t)
	ctx := context.Background()
	f.validatedFill(t, "30", "5.00") // 150.00

	inv, err := f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-500",
	})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, inv.ID, "wrong document number")
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoiceRejected, rejected.Status)
	assert.Equal(t, "wrong document number", rejected.RejectReason)

	members, _ := f.svc.Transactions(ctx, ledger.TransactionFilter{StationID: "st-1", OrgID: "org-1"})
	require.Len(t, members, 1)
	m := members[0]
	assert.Equal(t, ledger.StatusValidated, m.Status)
	assert.Empty(t, m.InvoiceID)
	assert.True(t, m.FeeAmount.IsZero())
	assert.True(t, m.NetValue.IsZero())
	assert.True(t, m.FeePercentageApplied.IsZero())
	assert.False(t, m.IsAdvanced)

	b, _ := f.svc.Balance(ctx, "st-1")
	assert.True(t, b.Pending.Equal(ledger.MustMoney("150.00")))
	assert.True(t, b.Invoiced.IsZero())
	f.requireCleanAudit(t, "st-1")

	// Re-invoice works.
	again, err := f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-501",
	})
	require.NoError(t, err)
	assert.True(t, again.TotalValue.Equal(ledger.MustMoney("150.00")))
	f.requireCleanAudit(t, "st-1")
}

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.validatedFill(t, "10", "5.00")
	inv, err := f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-600",
	})
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, inv.ID, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestApprovalChain_EnforcesSourceStates(t *testing.T) {
	// GIVEN: an invoice progressing through the chain
	// WHEN: operations run out of order or twice
	// THEN: every wrong-state call fails with ErrInvalidState

	f := newFixture(t)
	ctx := context.Background()
	f.validatedFill(t, "10", "5.00")
	inv, err := f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-700",
	})
	require.NoError(t, err)

	// Settling before attestation.
	_, err = f.svc.Settle(ctx, inv.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = f.svc.Attest(ctx, inv.ID)
	require.NoError(t, err)

	// Double attestation, late rejection.
	_, err = f.svc.Attest(ctx, inv.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	_, err = f.svc.Reject(ctx, inv.ID, "too late")
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = f.svc.Settle(ctx, inv.ID)
	require.NoError(t, err)

	// Double settlement.
	_, err = f.svc.Settle(ctx, inv.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	f.requireCleanAudit(t, "st-1")
}

// =============================================================================
// REVENUE
// =============================================================================

func TestRevenue_CountsFeesAtSettlement(t *testing.T) {
	// GIVEN: one settled invoice (fee 7.50) and one still pending fill
	// WHEN: summarizing revenue
	// THEN: fee revenue counts only the settled fee; volume counts both

	f := newFixture(t)
	ctx := context.Background()

	f.validatedFill(t, "30", "5.00") // 150.00, to be settled
	inv, err := f.svc.GenerateInvoice(ctx, ledger.GenerateInvoiceInput{
		StationID: "st-1", OrgID: "org-1", DocumentNumber: "NF-800",
	})
	require.NoError(t, err)
	_, err = f.svc.Attest(ctx, inv.ID)
	require.NoError(t, err)
	_, err = f.svc.Settle(ctx, inv.ID)
	require.NoError(t, err)

	f.validatedFill(t, "10", "5.00") // 50.00, stays VALIDATED

	sum, err := f.svc.Revenue(ctx)
	require.NoError(t, err)
	assert.True(t, sum.TotalFeeRevenue.Equal(ledger.MustMoney("7.50")), "fee revenue was %s", sum.TotalFeeRevenue)
	assert.True(t, sum.TotalVolume.Equal(ledger.MustMoney("200.00")))
	assert.Equal(t, 1, sum.CountByStatus[ledger.StatusPaid])
	assert.Equal(t, 1, sum.CountByStatus[ledger.StatusValidated])
}
