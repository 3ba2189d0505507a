/*
fee.go - Platform fee computation

PURPOSE:
  Pure arithmetic: given a gross amount, a station's fee schedule and the
  advance flag, produce the applied percentage, the platform's cut and the
  station's net payout. Deterministic and side-effect free.

  The percentage returned here is what gets frozen onto transactions at
  invoicing time. Later edits to a station's schedule never retroactively
  change amounts that were already invoiced.
*/
package ledger

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// FeeResult is the outcome of applying a fee schedule to an amount.
// Invariant: FeeAmount + NetValue == the input amount, exactly.
type FeeResult struct {
	FeePercent decimal.Decimal
	FeeAmount  decimal.Decimal
	NetValue   decimal.Decimal
}

// ApplyFee computes the platform fee for amount under the given schedule.
// Advance settlements pay the base percentage plus the advance surcharge.
// The fee is rounded half-up to the minor unit; the net is the exact
// remainder, so the sum identity holds without drift.
func ApplyFee(amount decimal.Decimal, schedule FeeSchedule, isAdvance bool) FeeResult {
	percent := schedule.BaseFeePercent
	if isAdvance {
		percent = percent.Add(schedule.AdvanceFeePercent)
	}

	fee := RoundMoney(amount.Mul(percent).Div(oneHundred))
	return FeeResult{
		FeePercent: percent,
		FeeAmount:  fee,
		NetValue:   amount.Sub(fee),
	}
}

// distributeFees stamps each member transaction with a fee derived from the
// same percentage that produced the aggregate result, then reconciles any
// one-minor-unit rounding remainder onto the last member so the member sums
// equal the invoice totals exactly.
func distributeFees(members []Transaction, agg FeeResult) []Transaction {
	if len(members) == 0 {
		return members
	}

	feeSum := decimal.Zero
	for i := range members {
		fee := RoundMoney(members[i].TotalValue.Mul(agg.FeePercent).Div(oneHundred))
		members[i].FeePercentageApplied = agg.FeePercent
		members[i].FeeAmount = fee
		members[i].NetValue = members[i].TotalValue.Sub(fee)
		feeSum = feeSum.Add(fee)
	}

	// Rounding remainder lands on the last member.
	if diff := agg.FeeAmount.Sub(feeSum); !diff.IsZero() {
		last := &members[len(members)-1]
		last.FeeAmount = last.FeeAmount.Add(diff)
		last.NetValue = last.TotalValue.Sub(last.FeeAmount)
	}
	return members
}
