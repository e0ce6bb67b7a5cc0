package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Validator struct {
	OperatorAddress   string          `json:"operatorAddress"`
	AccountAddress    string          `json:"accountAddress"`
	HexAddress        string          `json:"hexAddress"`
	CreatedMsgID      *uuid.UUID      `json:"createdMsgId,omitempty"`
	CreatedHeight     int64           `json:"createdHeight"`
	Moniker           string          `json:"moniker"`
	Identity          string          `json:"identity"`
	Website           string          `json:"website"`
	Description       string          `json:"description"`
	SecurityContact   string          `json:"securityContact"`
	Rate              decimal.Decimal `json:"rate"`
	MaxRate           decimal.Decimal `json:"maxRate"`
	MaxChangeRate     decimal.Decimal `json:"maxChangeRate"`
	MinSelfDelegation decimal.Decimal `json:"minSelfDelegation"`
}

// Transfer is one bank send, MsgMultiSend fans out into one row per output.
type Transfer struct {
	ID        uuid.UUID       `json:"id"`
	MessageID *uuid.UUID      `json:"messageId,omitempty"`
	Height    int64           `json:"height"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Denom     string          `json:"denom"`
	Amount    decimal.Decimal `json:"amount"`
}

type Proposal struct {
	ID             int64           `json:"id"`
	MessageID      *uuid.UUID      `json:"messageId,omitempty"`
	Height         int64           `json:"height"`
	Proposer       string          `json:"proposer"`
	ContentType    string          `json:"contentType"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	InitialDeposit decimal.Decimal `json:"initialDeposit"`
	PlanName       string          `json:"planName,omitempty"`
	PlanHeight     int64           `json:"planHeight,omitempty"`
	Recipient      string          `json:"recipient,omitempty"`
	SpendAmount    decimal.Decimal `json:"spendAmount"`
}

type ProposalParameterChange struct {
	ProposalID int64  `json:"proposalId"`
	Index      int    `json:"index"`
	Subspace   string `json:"subspace"`
	Key        string `json:"key"`
	Value      string `json:"value"`
}
