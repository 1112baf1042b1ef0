package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func units(n int64) Amount { return NewAmount(n) }

func TestLedger_BeginHold_Boundaries(t *testing.T) {
	l := Ledger{Total: units(100), Hold: units(20), Paid: units(30)}

	cases := []struct {
		name    string
		amount  Amount
		wantErr error
	}{
		{name: "zero", amount: 0, wantErr: ErrInvalidAmount},
		{name: "negative", amount: units(-1), wantErr: ErrInvalidAmount},
		{name: "above available", amount: units(51), wantErr: ErrAmountUnavailable},
		{name: "exactly available", amount: units(50)},
		{name: "smallest unit", amount: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := l.BeginHold(tc.amount)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, l, got, "ledger must not change on rejection")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.amount, got.Hold)
			assert.Equal(t, l.Paid, got.Paid)
		})
	}
}

func TestLedger_PartialHoldThenCommit(t *testing.T) {
	l := Ledger{Total: units(500), Hold: units(200)}
	require.Equal(t, units(300), l.Available())

	held, err := l.BeginHold(units(150))
	require.NoError(t, err)
	assert.Equal(t, units(150), held.Hold)

	committed, err := held.Commit(units(150))
	require.NoError(t, err)
	assert.Equal(t, units(150), committed.Paid)
	assert.Equal(t, Amount(0), committed.Hold)
	assert.Equal(t, RedeemStatusQueuedPartiallyPaid, committed.PaymentStatus())
}

func TestLedger_CommitRejectsMoreThanHeld(t *testing.T) {
	l := Ledger{Total: units(100), Hold: units(10)}
	_, err := l.Commit(units(11))
	require.ErrorIs(t, err, ErrExceedsHeld)
	assert.EqualError(t, err, "Cannot process more than the held amount")
}

func TestLedger_CommitFullAmountCompletes(t *testing.T) {
	l := Ledger{Total: units(100), Hold: units(40), Paid: units(60)}
	got, err := l.Commit(units(40))
	require.NoError(t, err)
	assert.Equal(t, RedeemStatusCompleted, got.PaymentStatus())
	assert.Equal(t, Amount(0), got.Available())
}

func TestLedger_AddHold(t *testing.T) {
	t.Run("full match", func(t *testing.T) {
		l := Ledger{Total: units(100)}
		got, err := l.AddHold(units(100))
		require.NoError(t, err)
		assert.Equal(t, units(100), got.Hold)
		assert.Equal(t, RedeemStatusQueuedFullyAssigned, got.AssignStatus())
	})

	t.Run("over hold rejected", func(t *testing.T) {
		l := Ledger{Total: units(100), Hold: units(80)}
		got, err := l.AddHold(units(30))
		require.ErrorIs(t, err, ErrExceedsTotal)
		assert.EqualError(t, err, "Cannot exceed total withdrawal amount")
		assert.Equal(t, l, got)
	})

	t.Run("counts paid amount", func(t *testing.T) {
		l := Ledger{Total: units(100), Paid: units(90)}
		_, err := l.AddHold(units(20))
		require.ErrorIs(t, err, ErrExceedsTotal)
	})

	t.Run("partial", func(t *testing.T) {
		l := Ledger{Total: units(100)}
		got, err := l.AddHold(units(25))
		require.NoError(t, err)
		assert.Equal(t, RedeemStatusQueuedPartiallyAssigned, got.AssignStatus())
	})
}

func TestLedger_CancelHold(t *testing.T) {
	l := Ledger{Total: units(100), Hold: units(50)}
	got := l.CancelHold()
	assert.Equal(t, Amount(0), got.Hold)
	assert.Equal(t, RedeemStatusQueued, got.CancelStatus())

	paid := Ledger{Total: units(100), Hold: units(50), Paid: units(10)}.CancelHold()
	assert.Equal(t, RedeemStatusQueuedPartiallyPaid, paid.CancelStatus())
}

func TestLedger_ReleaseHoldFloorsAtZero(t *testing.T) {
	l := Ledger{Total: units(100), Hold: units(10)}
	assert.Equal(t, Amount(0), l.ReleaseHold(units(30)).Hold)
	assert.Equal(t, units(5), l.ReleaseHold(units(5)).Hold)
}

func TestLedger_SettleHold(t *testing.T) {
	l := Ledger{Total: units(500), Hold: units(200)}
	got, err := l.SettleHold(units(200))
	require.NoError(t, err)
	assert.Equal(t, Ledger{Total: units(500), Paid: units(200)}, got)

	// the assigned hold was already replaced by a scoped payment hold
	replaced := Ledger{Total: units(500), Paid: units(150)}
	got, err = replaced.SettleHold(units(200))
	require.NoError(t, err)
	assert.Equal(t, Amount(0), got.Hold)
	assert.Equal(t, units(350), got.Paid)

	_, err = Ledger{Total: units(100), Paid: units(90)}.SettleHold(units(20))
	require.ErrorIs(t, err, ErrExceedsTotal)
}

func TestLedger_ReverseCommit(t *testing.T) {
	before := Ledger{Total: units(100), Hold: units(40), Paid: units(10)}
	committed, err := before.Commit(units(40))
	require.NoError(t, err)

	reversed, err := committed.ReverseCommit(units(40))
	require.NoError(t, err)
	assert.Equal(t, before.Paid, reversed.Paid)
	assert.Equal(t, Amount(0), reversed.Hold)
	assert.Equal(t, RedeemStatusQueuedPartiallyPaid, reversed.CancelStatus())

	_, err = Ledger{Total: units(100), Paid: units(10)}.ReverseCommit(units(40))
	require.ErrorIs(t, err, ErrLedgerInvariant)
}

func TestLedger_Validate(t *testing.T) {
	require.NoError(t, Ledger{Total: units(10), Hold: units(5), Paid: units(5)}.Validate())
	require.ErrorIs(t, Ledger{Total: units(10), Hold: units(6), Paid: units(5)}.Validate(), ErrLedgerInvariant)
	require.ErrorIs(t, Ledger{Total: units(10), Hold: units(-1)}.Validate(), ErrLedgerInvariant)
}

func TestLedger_InvariantHoldsAcrossOperations(t *testing.T) {
	l := Ledger{Total: units(1000)}
	steps := []func(Ledger) (Ledger, error){
		func(l Ledger) (Ledger, error) { return l.AddHold(units(300)) },
		func(l Ledger) (Ledger, error) { return l.SettleHold(units(300)) },
		func(l Ledger) (Ledger, error) { return l.BeginHold(units(500)) },
		func(l Ledger) (Ledger, error) { return l.Commit(units(200)) },
		func(l Ledger) (Ledger, error) { return l.CancelHold(), nil },
		func(l Ledger) (Ledger, error) { return l.AddHold(units(500)) },
		func(l Ledger) (Ledger, error) { return l.AddHold(units(1)) },
	}
	for i, step := range steps {
		next, err := step(l)
		if err == nil {
			l = next
		}
		require.NoError(t, l.Validate(), "step %d", i)
		assert.GreaterOrEqual(t, int64(l.Available()), int64(0), "step %d", i)
	}
	assert.Equal(t, RedeemStatusQueuedFullyAssigned, l.QueueStatus())
}

func TestLedger_QueueStatus(t *testing.T) {
	cases := []struct {
		l    Ledger
		want string
	}{
		{Ledger{Total: units(10)}, RedeemStatusQueued},
		{Ledger{Total: units(10), Paid: units(4)}, RedeemStatusQueuedPartiallyPaid},
		{Ledger{Total: units(10), Hold: units(4)}, RedeemStatusQueuedPartiallyAssigned},
		{Ledger{Total: units(10), Hold: units(4), Paid: units(6)}, RedeemStatusQueuedFullyAssigned},
		{Ledger{Total: units(10), Paid: units(10)}, RedeemStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.l.QueueStatus())
		})
	}
}

func TestConfirmationMatches(t *testing.T) {
	assert.True(t, ConfirmationMatches("process"))
	assert.True(t, ConfirmationMatches("  PROCESS "))
	assert.True(t, ConfirmationMatches("Process"))
	assert.False(t, ConfirmationMatches(""))
	assert.False(t, ConfirmationMatches("proces"))
	assert.False(t, ConfirmationMatches("process payment"))
	require.ErrorIs(t, RequireConfirmation("nope"), ErrConfirmationMismatch)
}
