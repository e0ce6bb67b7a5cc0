package akash

import (
	"fmt"
	"testing"

	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func TestBlocksCovered(t *testing.T) {
	d := decimal.NewFromInt
	tests := []struct {
		balance, rate decimal.Decimal
		want          int64
	}{
		{d(5000000), d(100), 50000},
		{d(1000000), d(80), 12500},
		{d(992000), d(30), 33067},
		{d(1), d(3), 1},
		{d(0), d(3), 0},
		{d(10), d(0), NeverClosed},
		{decimal.RequireFromString("0.5"), decimal.RequireFromString("0.2"), 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.balance, tt.rate), func(t *testing.T) {
			assert.Equal(t, tt.want, blocksCovered(tt.balance, tt.rate))
		})
	}
}

func TestSettleWithoutOpenLeasesOnlyMovesCursor(t *testing.T) {
	d := &models.Deployment{Balance: decimal.NewFromInt(100), WithdrawnAmount: decimal.Zero, LastWithdrawHeight: 10}
	settle(d, nil, 50)
	assert.Equal(t, int64(50), d.LastWithdrawHeight)
	assert.Equal(t, "100", d.Balance.String())
}

type op struct {
	kind   int
	gap    int64
	amount int64
	target int
	split  bool
}

func drawOps(t *rapid.T) []op {
	return rapid.SliceOfN(rapid.Custom(func(t *rapid.T) op {
		return op{
			kind:   rapid.IntRange(0, 4).Draw(t, "kind"),
			gap:    rapid.Int64Range(0, 500).Draw(t, "gap"),
			amount: rapid.Int64Range(1, 200).Draw(t, "amount"),
			target: rapid.IntRange(0, 7).Draw(t, "target"),
			split:  rapid.Bool().Draw(t, "split"),
		}
	}), 1, 40).Draw(t, "ops")
}

type outcome struct {
	balance, withdrawn, closed string
	leases                     map[models.BidKey]string
}

// replay runs ops against one deployment with three groups. With splits set
// the indexer is rebuilt from the store wherever an op asks for it, as
// happens between processing windows.
func replay(t *rapid.T, ops []op, splits bool) outcome {
	h := newHarnessWithLogger(t, zap.NewNop())
	height := int64(100)
	h.apply(height, createDeployment(1, 50000, 3))

	var opened []msgs.BidID
	prev := h.deployment(1).Balance
	for i, o := range ops {
		height += o.gap
		deposit := false
		switch o.kind {
		case 0:
			h.apply(height, msgs.MsgDepositDeployment{ID: msgs.DeploymentID{Owner: owner, DSeq: 1}, Amount: uakt(o.amount * 100)})
			deposit = true
		case 1:
			id := msgs.BidID{Owner: owner, DSeq: 1, GSeq: uint32(o.target%3) + 1, OSeq: uint32(i + 1), Provider: fmt.Sprintf("akash1p%d", i)}
			h.openLease(height, id, o.amount)
			opened = append(opened, id)
		case 2:
			if len(opened) > 0 {
				h.apply(height, msgs.MsgCloseLease{ID: opened[o.target%len(opened)]})
			}
		case 3:
			if len(opened) > 0 {
				h.apply(height, msgs.MsgWithdrawLease{ID: opened[o.target%len(opened)]})
			}
		case 4:
			h.apply(height, msgs.MsgCloseGroup{ID: msgs.GroupID{Owner: owner, DSeq: 1, GSeq: uint32(o.target%3) + 1}})
		}

		d := h.deployment(1)
		if d.Balance.IsNegative() {
			t.Fatalf("negative balance %s after op %d", d.Balance, i)
		}
		if !deposit && d.Balance.GreaterThan(prev) {
			t.Fatalf("balance grew from %s to %s without a deposit", prev, d.Balance)
		}
		prev = d.Balance

		if splits && o.split {
			h.restart()
		}
	}

	d := h.deployment(1)
	out := outcome{
		balance:   d.Balance.String(),
		withdrawn: d.WithdrawnAmount.String(),
		closed:    heightString(d.ClosedHeight),
		leases:    map[models.BidKey]string{},
	}
	for _, l := range h.store.Leases() {
		out.leases[l.Key()] = fmt.Sprintf("%s %d %s", l.WithdrawnAmount.String(), l.PredictedClosedHeight, heightString(l.ClosedHeight))
	}
	return out
}

func TestSettlementProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ops := drawOps(t)
		whole := replay(t, ops, false)
		split := replay(t, ops, true)
		if whole.balance != split.balance || whole.withdrawn != split.withdrawn {
			t.Fatalf("balance %s/%s differs from split run %s/%s", whole.balance, whole.withdrawn, split.balance, split.withdrawn)
		}
		if whole.closed != split.closed {
			t.Fatalf("closed at %s, split run closed at %s", whole.closed, split.closed)
		}
		if len(whole.leases) != len(split.leases) {
			t.Fatalf("lease count %d != %d", len(whole.leases), len(split.leases))
		}
		for k, v := range whole.leases {
			if split.leases[k] != v {
				t.Fatalf("lease %+v: %q != %q", k, v, split.leases[k])
			}
		}
	})
}

func heightString(h *int64) string {
	if h == nil {
		return "open"
	}
	return fmt.Sprint(*h)
}
