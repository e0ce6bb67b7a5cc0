package validator

import (
	"encoding/json"
	"fmt"

	"github.com/akashx/akashx/pkg/msgs"
	"github.com/shopspring/decimal"
)

type genesisState struct {
	Genutil struct {
		GenTxs []genTx `json:"gen_txs"`
	} `json:"genutil"`
	Staking struct {
		Validators []stakingValidator `json:"validators"`
	} `json:"staking"`
}

type genTx struct {
	Body struct {
		Messages []json.RawMessage `json:"messages"`
	} `json:"body"`
}

type jsonPubKey struct {
	Type string `json:"@type"`
	Key  []byte `json:"key"`
}

type jsonDescription struct {
	Moniker         string `json:"moniker"`
	Identity        string `json:"identity"`
	Website         string `json:"website"`
	SecurityContact string `json:"security_contact"`
	Details         string `json:"details"`
}

type jsonRates struct {
	Rate          decimal.Decimal `json:"rate"`
	MaxRate       decimal.Decimal `json:"max_rate"`
	MaxChangeRate decimal.Decimal `json:"max_change_rate"`
}

type jsonCreateValidator struct {
	Type              string           `json:"@type"`
	Description       jsonDescription  `json:"description"`
	Commission        jsonRates        `json:"commission"`
	MinSelfDelegation *decimal.Decimal `json:"min_self_delegation"`
	DelegatorAddress  string           `json:"delegator_address"`
	ValidatorAddress  string           `json:"validator_address"`
	PubKey            jsonPubKey       `json:"pubkey"`
}

type stakingValidator struct {
	OperatorAddress string          `json:"operator_address"`
	ConsensusPubKey jsonPubKey      `json:"consensus_pubkey"`
	Description     jsonDescription `json:"description"`
	Commission      struct {
		Rates jsonRates `json:"commission_rates"`
	} `json:"commission"`
	MinSelfDelegation *decimal.Decimal `json:"min_self_delegation"`
}

func (s stakingValidator) asCreate() jsonCreateValidator {
	return jsonCreateValidator{
		Description:       s.Description,
		Commission:        s.Commission.Rates,
		MinSelfDelegation: s.MinSelfDelegation,
		ValidatorAddress:  s.OperatorAddress,
		PubKey:            s.ConsensusPubKey,
	}
}

func parseGenesis(appState json.RawMessage) (*genesisState, error) {
	var st genesisState
	if len(appState) == 0 {
		return &st, nil
	}
	if err := json.Unmarshal(appState, &st); err != nil {
		return nil, fmt.Errorf("parse app_state: %w", err)
	}
	return &st, nil
}

// parseGenTxMessage decodes a gentx message, reporting false for anything
// other than MsgCreateValidator.
func parseGenTxMessage(raw json.RawMessage) (jsonCreateValidator, bool, error) {
	var msg jsonCreateValidator
	var head struct {
		Type string `json:"@type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return msg, false, fmt.Errorf("parse gentx message: %w", err)
	}
	if msgs.KindOf(head.Type) != msgs.KindCreateValidator {
		return msg, false, nil
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, false, fmt.Errorf("parse %s: %w", head.Type, err)
	}
	return msg, true, nil
}
