package txtest

import "strconv"

// Type urls of the messages built below.
const (
	URLSend             = "/cosmos.bank.v1beta1.MsgSend"
	URLCreateDeployment = "/akash.deployment.v1beta3.MsgCreateDeployment"
	URLCreateBid        = "/akash.market.v1beta4.MsgCreateBid"
	URLCreateLease      = "/akash.market.v1beta4.MsgCreateLease"
	URLCloseLease       = "/akash.market.v1beta4.MsgCloseLease"
)

// dec scales an integer amount to the 18 decimal sdk.Dec wire form.
func dec(amount int64) string {
	return strconv.FormatInt(amount, 10) + "000000000000000000"
}

// Send is an Any wrapped MsgSend of amount uakt.
func Send(from, to string, amount int64) P {
	msg := P{}.Str(1, from).Str(2, to).Msg(3, Coin("uakt", strconv.FormatInt(amount, 10)))
	return Any(URLSend, msg)
}

// CreateDeployment is an Any wrapped v1beta3 MsgCreateDeployment with one
// group holding a single 1 cpu unit.
func CreateDeployment(owner string, dseq uint64, deposit int64) P {
	rv := func(v string) P { return P{}.Str(1, v) }
	resources := P{}.
		Uint(1, 1).
		Msg(2, P{}.Msg(1, rv("1000"))).
		Msg(3, P{}.Msg(1, rv("536870912"))).
		Msg(4, P{}.Str(1, "default").Msg(2, rv("1073741824")))
	unit := P{}.Msg(1, resources).Uint(2, 1).Msg(3, Coin("uakt", dec(100)))
	group := P{}.Str(1, "dcloud").Msg(3, unit)
	msg := P{}.
		Msg(1, P{}.Str(1, owner).Uint(2, dseq)).
		Msg(2, group).
		Msg(4, Coin("uakt", strconv.FormatInt(deposit, 10))).
		Str(5, owner)
	return Any(URLCreateDeployment, msg)
}

func bidID(owner string, dseq uint64, provider string) P {
	id := P{}.Str(1, owner).Uint(2, dseq).Uint(3, 1).Uint(4, 1)
	if provider != "" {
		id = id.Str(5, provider)
	}
	return id
}

// CreateBid is an Any wrapped MsgCreateBid on group 1, order 1.
func CreateBid(owner string, dseq uint64, provider string, price int64) P {
	msg := P{}.
		Msg(1, bidID(owner, dseq, "")).
		Str(2, provider).
		Msg(3, Coin("uakt", dec(price))).
		Msg(4, Coin("uakt", "5000000"))
	return Any(URLCreateBid, msg)
}

// CreateLease accepts the bid built by CreateBid.
func CreateLease(owner string, dseq uint64, provider string) P {
	return Any(URLCreateLease, P{}.Msg(1, bidID(owner, dseq, provider)))
}

// CloseLease closes the lease created by CreateLease.
func CloseLease(owner string, dseq uint64, provider string) P {
	return Any(URLCloseLease, P{}.Msg(1, bidID(owner, dseq, provider)))
}
