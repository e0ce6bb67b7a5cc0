package msgs

import (
	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/shopspring/decimal"
)

type Description struct {
	Moniker         string
	Identity        string
	Website         string
	SecurityContact string
	Details         string
}

type CommissionRates struct {
	Rate          decimal.Decimal
	MaxRate       decimal.Decimal
	MaxChangeRate decimal.Decimal
}

type MsgCreateValidator struct {
	Description       Description
	Commission        CommissionRates
	MinSelfDelegation decimal.Decimal
	DelegatorAddress  string
	ValidatorAddress  string
	PubKey            txdecode.Any
	Value             txdecode.Coin
}

type MsgEditValidator struct {
	Description       Description
	ValidatorAddress  string
	CommissionRate    *decimal.Decimal
	MinSelfDelegation *decimal.Decimal
}

type MsgSend struct {
	From   string
	To     string
	Amount []txdecode.Coin
}

type Transfer struct {
	Address string
	Coins   []txdecode.Coin
}

type MsgMultiSend struct {
	Inputs  []Transfer
	Outputs []Transfer
}

type ParamChange struct {
	Subspace string
	Key      string
	Value    string
}

// Proposal content types.
const (
	ProposalText               = "/cosmos.gov.v1beta1.TextProposal"
	ProposalParameterChange    = "/cosmos.params.v1beta1.ParameterChangeProposal"
	ProposalSoftwareUpgrade    = "/cosmos.upgrade.v1beta1.SoftwareUpgradeProposal"
	ProposalCommunityPoolSpend = "/cosmos.distribution.v1beta1.CommunityPoolSpendProposal"
)

// ProposalContent is the decoded content of a governance proposal. Only the
// fields of the matching content type are populated.
type ProposalContent struct {
	TypeURL     string
	Title       string
	Description string

	Changes []ParamChange

	PlanName   string
	PlanHeight int64
	PlanInfo   string

	Recipient string
	Amount    []txdecode.Coin
}

type MsgSubmitProposal struct {
	Content        ProposalContent
	InitialDeposit []txdecode.Coin
	Proposer       string
}

func (MsgCreateValidator) Kind() Kind { return KindCreateValidator }
func (MsgEditValidator) Kind() Kind   { return KindEditValidator }
func (MsgSend) Kind() Kind            { return KindSend }
func (MsgMultiSend) Kind() Kind       { return KindMultiSend }
func (MsgSubmitProposal) Kind() Kind  { return KindSubmitProposal }

func decodeDescription(b []byte) (Description, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return Description{}, err
	}
	var d Description
	for _, f := range fs {
		switch f.Num {
		case 1:
			d.Moniker = f.Str()
		case 2:
			d.Identity = f.Str()
		case 3:
			d.Website = f.Str()
		case 4:
			d.SecurityContact = f.Str()
		case 5:
			d.Details = f.Str()
		}
	}
	return d, nil
}

func decodeCommission(b []byte) (CommissionRates, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return CommissionRates{}, err
	}
	c := CommissionRates{Rate: decimal.Zero, MaxRate: decimal.Zero, MaxChangeRate: decimal.Zero}
	for _, f := range fs {
		switch f.Num {
		case 1:
			c.Rate, err = txdecode.ParseDec(f.Str())
		case 2:
			c.MaxRate, err = txdecode.ParseDec(f.Str())
		case 3:
			c.MaxChangeRate, err = txdecode.ParseDec(f.Str())
		}
		if err != nil {
			return CommissionRates{}, err
		}
	}
	return c, nil
}

func decodeCreateValidator(b []byte) (MsgCreateValidator, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgCreateValidator{}, err
	}
	m := MsgCreateValidator{MinSelfDelegation: decimal.Zero, Value: txdecode.Coin{Amount: decimal.Zero}}
	for _, f := range fs {
		switch f.Num {
		case 1:
			m.Description, err = decodeDescription(f.Bytes)
		case 2:
			m.Commission, err = decodeCommission(f.Bytes)
		case 3:
			m.MinSelfDelegation, err = txdecode.ParseInt(f.Str())
		case 4:
			m.DelegatorAddress = f.Str()
		case 5:
			m.ValidatorAddress = f.Str()
		case 6:
			m.PubKey, err = txdecode.DecodeAny(f.Bytes)
		case 7:
			m.Value, err = txdecode.DecodeCoin(f.Bytes)
		}
		if err != nil {
			return MsgCreateValidator{}, err
		}
	}
	return m, nil
}

func decodeEditValidator(b []byte) (MsgEditValidator, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgEditValidator{}, err
	}
	var m MsgEditValidator
	for _, f := range fs {
		switch f.Num {
		case 1:
			m.Description, err = decodeDescription(f.Bytes)
		case 2:
			m.ValidatorAddress = f.Str()
		case 3:
			if s := f.Str(); s != "" {
				var d decimal.Decimal
				if d, err = txdecode.ParseDec(s); err == nil {
					m.CommissionRate = &d
				}
			}
		case 4:
			if s := f.Str(); s != "" {
				var d decimal.Decimal
				if d, err = txdecode.ParseInt(s); err == nil {
					m.MinSelfDelegation = &d
				}
			}
		}
		if err != nil {
			return MsgEditValidator{}, err
		}
	}
	return m, nil
}

func decodeSend(b []byte) (MsgSend, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgSend{}, err
	}
	var m MsgSend
	if m.Amount, err = txdecode.DecodeCoins(fs, 3); err != nil {
		return MsgSend{}, err
	}
	for _, f := range fs {
		switch f.Num {
		case 1:
			m.From = f.Str()
		case 2:
			m.To = f.Str()
		}
	}
	return m, nil
}

func decodeTransfer(b []byte) (Transfer, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return Transfer{}, err
	}
	var t Transfer
	if t.Coins, err = txdecode.DecodeCoins(fs, 2); err != nil {
		return Transfer{}, err
	}
	for _, f := range fs {
		if f.Num == 1 {
			t.Address = f.Str()
		}
	}
	return t, nil
}

func decodeMultiSend(b []byte) (MsgMultiSend, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgMultiSend{}, err
	}
	var m MsgMultiSend
	for _, f := range fs {
		if f.Num != 1 && f.Num != 2 {
			continue
		}
		t, err := decodeTransfer(f.Bytes)
		if err != nil {
			return MsgMultiSend{}, err
		}
		if f.Num == 1 {
			m.Inputs = append(m.Inputs, t)
		} else {
			m.Outputs = append(m.Outputs, t)
		}
	}
	return m, nil
}

func decodeProposalContent(a txdecode.Any) (ProposalContent, error) {
	fs, err := txdecode.Fields(a.Value)
	if err != nil {
		return ProposalContent{}, err
	}
	c := ProposalContent{TypeURL: a.TypeURL}
	for _, f := range fs {
		switch f.Num {
		case 1:
			c.Title = f.Str()
		case 2:
			c.Description = f.Str()
		}
	}
	switch a.TypeURL {
	case ProposalParameterChange:
		for _, f := range fs {
			if f.Num != 3 {
				continue
			}
			pcs, err := txdecode.Fields(f.Bytes)
			if err != nil {
				return ProposalContent{}, err
			}
			var pc ParamChange
			for _, p := range pcs {
				switch p.Num {
				case 1:
					pc.Subspace = p.Str()
				case 2:
					pc.Key = p.Str()
				case 3:
					pc.Value = p.Str()
				}
			}
			c.Changes = append(c.Changes, pc)
		}
	case ProposalSoftwareUpgrade:
		for _, f := range fs {
			if f.Num != 3 {
				continue
			}
			plan, err := txdecode.Fields(f.Bytes)
			if err != nil {
				return ProposalContent{}, err
			}
			for _, p := range plan {
				switch p.Num {
				case 1:
					c.PlanName = p.Str()
				case 3:
					c.PlanHeight = int64(p.Varint)
				case 4:
					c.PlanInfo = p.Str()
				}
			}
		}
	case ProposalCommunityPoolSpend:
		for _, f := range fs {
			if f.Num == 3 {
				c.Recipient = f.Str()
			}
		}
		if c.Amount, err = txdecode.DecodeCoins(fs, 4); err != nil {
			return ProposalContent{}, err
		}
	}
	return c, nil
}

func decodeSubmitProposal(b []byte) (MsgSubmitProposal, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgSubmitProposal{}, err
	}
	var m MsgSubmitProposal
	if m.InitialDeposit, err = txdecode.DecodeCoins(fs, 2); err != nil {
		return MsgSubmitProposal{}, err
	}
	for _, f := range fs {
		switch f.Num {
		case 1:
			a, err := txdecode.DecodeAny(f.Bytes)
			if err != nil {
				return MsgSubmitProposal{}, err
			}
			if m.Content, err = decodeProposalContent(a); err != nil {
				return MsgSubmitProposal{}, err
			}
		case 3:
			m.Proposer = f.Str()
		}
	}
	return m, nil
}
