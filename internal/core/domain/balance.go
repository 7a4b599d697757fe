package domain

import "math"

// Balance is a native-currency accumulator. Every operation is checked, so
// no negative intermediate state is representable.
type Balance uint64

// Deposit adds amount to the balance. The add is checked: on overflow the
// balance is left untouched and ErrBalanceOverflow is returned.
func (b *Balance) Deposit(amount uint64) error {
	if amount > math.MaxUint64-uint64(*b) {
		return ErrBalanceOverflow
	}
	*b += Balance(amount)
	return nil
}

// Withdraw removes amount from the balance. The subtract is checked: when
// amount exceeds the balance nothing is removed and ErrInsufficientPayment
// is returned. Used to restore a committed balance when a downstream
// transfer fails.
func (b *Balance) Withdraw(amount uint64) error {
	if amount > uint64(*b) {
		return ErrInsufficientPayment
	}
	*b -= Balance(amount)
	return nil
}

// WithdrawAll empties the balance and returns the amount withdrawn.
func (b *Balance) WithdrawAll() uint64 {
	amount := uint64(*b)
	*b = 0
	return amount
}

func (b Balance) Value() uint64 {
	return uint64(b)
}
