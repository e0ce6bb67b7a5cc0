package akash

import (
	"math"

	"github.com/akashx/akashx/pkg/db/models"
	"github.com/shopspring/decimal"
)

// NeverClosed is the predicted closure of leases billing at a zero rate.
const NeverClosed = math.MaxInt64

// openRate sums the per-block price of the leases still open.
func openRate(leases []*models.Lease) decimal.Decimal {
	rate := decimal.Zero
	for _, l := range leases {
		if l.ClosedHeight == nil {
			rate = rate.Add(l.Price)
		}
	}
	return rate
}

// blocksCovered is ceil(balance / rate), the number of blocks a balance pays
// for at a fixed rate.
func blocksCovered(balance, rate decimal.Decimal) int64 {
	if !rate.IsPositive() {
		return NeverClosed
	}
	if !balance.IsPositive() {
		return 0
	}
	q, r := balance.QuoRem(rate, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	if !q.LessThan(decimal.NewFromInt(math.MaxInt64)) {
		return NeverClosed
	}
	return q.IntPart()
}

// settle charges the deployment for the blocks elapsed since its last
// settlement at the rate of the leases open during that span, never more than
// the remaining balance. A deployment whose balance runs out is closed, along
// with its open leases, at the height the balance was exhausted.
func settle(d *models.Deployment, leases []*models.Lease, height int64) {
	if d.IsClosed() {
		return
	}
	elapsed := height - d.LastWithdrawHeight
	if elapsed <= 0 {
		return
	}
	rate := openRate(leases)
	if !rate.IsPositive() {
		d.LastWithdrawHeight = height
		return
	}

	owed := rate.Mul(decimal.NewFromInt(elapsed))
	amount := decimal.Min(owed, d.Balance)
	exhausted := !owed.LessThan(d.Balance)
	covered := blocksCovered(d.Balance, rate)

	for _, l := range leases {
		if l.ClosedHeight != nil {
			continue
		}
		share := l.Price.Mul(decimal.NewFromInt(elapsed))
		if exhausted {
			share = amount.Mul(l.Price).Div(rate)
		}
		l.WithdrawnAmount = l.WithdrawnAmount.Add(share)
	}

	closeAt := d.LastWithdrawHeight + covered
	d.Balance = d.Balance.Sub(amount)
	d.WithdrawnAmount = d.WithdrawnAmount.Add(amount)
	d.LastWithdrawHeight = height

	if exhausted {
		if closeAt > height {
			closeAt = height
		}
		closeDeployment(d, leases, closeAt)
	}
}

// closeDeployment marks the deployment and every open lease closed at height.
func closeDeployment(d *models.Deployment, leases []*models.Lease, height int64) {
	if d.ClosedHeight == nil {
		h := height
		d.ClosedHeight = &h
	}
	for _, l := range leases {
		closeLease(l, height)
	}
}

func closeLease(l *models.Lease, height int64) {
	if l.ClosedHeight != nil {
		return
	}
	h := height
	l.ClosedHeight = &h
	if l.PredictedClosedHeight > height {
		l.PredictedClosedHeight = height
	}
}

// predict recomputes the closure estimate of every open lease from the
// settled balance and the current aggregate rate. It must run right after
// settle so LastWithdrawHeight is the settlement height.
func predict(d *models.Deployment, leases []*models.Lease) {
	if d.IsClosed() {
		return
	}
	covered := blocksCovered(d.Balance, openRate(leases))
	predicted := int64(NeverClosed)
	if covered != NeverClosed {
		predicted = d.LastWithdrawHeight + covered
	}
	for _, l := range leases {
		if l.ClosedHeight == nil {
			l.PredictedClosedHeight = predicted
		}
	}
}
