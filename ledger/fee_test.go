package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schedule(base, advance string) FeeSchedule {
	return FeeSchedule{
		BaseFeePercent:    MustMoney(base),
		AdvanceFeePercent: MustMoney(advance),
	}
}

// =============================================================================
// APPLY FEE
// =============================================================================

func TestApplyFee_BasePercentage(t *testing.T) {
	// GIVEN: a 5% base schedule
	// WHEN: applying to 1000.00 without advance
	// THEN: fee is 50.00 and net is 950.00

	res := ApplyFee(MustMoney("1000.00"), schedule("5", "2.5"), false)

	assert.True(t, res.FeePercent.Equal(MustMoney("5")))
	assert.True(t, res.FeeAmount.Equal(MustMoney("50.00")), "fee was %s", res.FeeAmount)
	assert.True(t, res.NetValue.Equal(MustMoney("950.00")), "net was %s", res.NetValue)
}

func TestApplyFee_AdvanceSurcharge(t *testing.T) {
	// GIVEN: a 5% base schedule with a 2.5% advance surcharge
	// WHEN: applying to 1000.00 with the advance flag
	// THEN: the applied percentage is 7.5

	res := ApplyFee(MustMoney("1000.00"), schedule("5", "2.5"), true)

	assert.True(t, res.FeePercent.Equal(MustMoney("7.5")))
	assert.True(t, res.FeeAmount.Equal(MustMoney("75.00")))
	assert.True(t, res.NetValue.Equal(MustMoney("925.00")))
}

func TestApplyFee_RoundsHalfUp(t *testing.T) {
	// GIVEN: an amount whose exact fee lands on a half centavo
	// WHEN: applying 5% to 100.10 (exact fee 5.005)
	// THEN: the fee rounds up to 5.01

	res := ApplyFee(MustMoney("100.10"), schedule("5", "0"), false)

	assert.True(t, res.FeeAmount.Equal(MustMoney("5.01")), "fee was %s", res.FeeAmount)
	assert.True(t, res.NetValue.Equal(MustMoney("95.09")))
}

func TestApplyFee_SumIdentity(t *testing.T) {
	// GIVEN: awkward amounts and percentages
	// WHEN: applying fees
	// THEN: fee + net always reproduces the input exactly

	amounts := []string{"0.01", "0.03", "33.33", "99.99", "1234.56", "100000.01"}
	percents := []string{"1.5", "3.33", "5", "7.77", "15"}

	for _, a := range amounts {
		for _, p := range percents {
			res := ApplyFee(MustMoney(a), schedule(p, "0"), false)
			assert.True(t, res.FeeAmount.Add(res.NetValue).Equal(MustMoney(a)),
				"amount %s at %s%%: fee %s + net %s", a, p, res.FeeAmount, res.NetValue)
		}
	}
}

// =============================================================================
// FEE DISTRIBUTION
// =============================================================================

func memberWithTotal(id, total string) Transaction {
	return Transaction{
		ID:         id,
		Status:     StatusValidated,
		TotalValue: MustMoney(total),
	}
}

func TestDistributeFees_RemainderLandsOnLastMember(t *testing.T) {
	// GIVEN: three members of 33.33 at 5%; per-member fees round to 1.67
	//        each (5.01 total) while the aggregate fee on 99.99 is 5.00
	// WHEN: distributing
	// THEN: the last member absorbs the 0.01 difference and member fee
	//       sums equal the aggregate exactly

	members := []Transaction{
		memberWithTotal("t1", "33.33"),
		memberWithTotal("t2", "33.33"),
		memberWithTotal("t3", "33.33"),
	}
	agg := ApplyFee(MustMoney("99.99"), schedule("5", "0"), false)
	require.True(t, agg.FeeAmount.Equal(MustMoney("5.00")), "aggregate fee was %s", agg.FeeAmount)

	members = distributeFees(members, agg)

	assert.True(t, members[0].FeeAmount.Equal(MustMoney("1.67")))
	assert.True(t, members[1].FeeAmount.Equal(MustMoney("1.67")))
	assert.True(t, members[2].FeeAmount.Equal(MustMoney("1.66")), "last fee was %s", members[2].FeeAmount)

	feeSum, netSum := decimal.Zero, decimal.Zero
	for _, m := range members {
		feeSum = feeSum.Add(m.FeeAmount)
		netSum = netSum.Add(m.NetValue)
		assert.True(t, m.FeeAmount.Add(m.NetValue).Equal(m.TotalValue),
			"member %s: fee+net != total", m.ID)
		assert.True(t, m.FeePercentageApplied.Equal(agg.FeePercent))
	}
	assert.True(t, feeSum.Equal(agg.FeeAmount), "member fees sum to %s, aggregate %s", feeSum, agg.FeeAmount)
	assert.True(t, netSum.Equal(agg.NetValue))
}

func TestDistributeFees_SingleMemberMatchesAggregate(t *testing.T) {
	// GIVEN: a single member
	// WHEN: distributing the aggregate fee
	// THEN: the member carries exactly the aggregate amounts

	members := []Transaction{memberWithTotal("t1", "250.50")}
	agg := ApplyFee(MustMoney("250.50"), schedule("7.5", "0"), false)

	members = distributeFees(members, agg)

	assert.True(t, members[0].FeeAmount.Equal(agg.FeeAmount))
	assert.True(t, members[0].NetValue.Equal(agg.NetValue))
}
