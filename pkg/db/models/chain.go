// Package models holds the rows of the derived relational model.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BlockStats are the per-height aggregates written by the per-block hooks and
// copied forward from the previous block at insert time.
type BlockStats struct {
	TotalTxCount        int64           `json:"totalTxCount"`
	TotalUAktSpent      decimal.Decimal `json:"totalUAktSpent"`
	ActiveLeaseCount    int64           `json:"activeLeaseCount"`
	TotalLeaseCount     int64           `json:"totalLeaseCount"`
	ActiveCPU           int64           `json:"activeCPU"`
	ActiveMemory        int64           `json:"activeMemory"`
	ActiveStorage       int64           `json:"activeStorage"`
	ActiveProviderCount int64           `json:"activeProviderCount"`
}

type Block struct {
	Height      int64     `json:"height"`
	Hash        string    `json:"hash"`
	DateTime    time.Time `json:"datetime"`
	Proposer    string    `json:"proposer"`
	DayID       uuid.UUID `json:"dayId"`
	TxCount     int       `json:"txCount"`
	IsProcessed bool      `json:"isProcessed"`
	BlockStats

	// Transactions is only populated by UnprocessedBlocks.
	Transactions []*Transaction `json:"-"`
}

type Day struct {
	ID                 uuid.UUID `json:"id"`
	Date               time.Time `json:"date"`
	FirstBlockHeight   int64     `json:"firstBlockHeight"`
	LastBlockHeight    *int64    `json:"lastBlockHeight,omitempty"`
	LastBlockHeightYet int64     `json:"lastBlockHeightYet"`
	AktPrice           *float64  `json:"aktPrice,omitempty"`
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Transaction struct {
	ID                 uuid.UUID       `json:"id"`
	Hash               string          `json:"hash"`
	Height             int64           `json:"height"`
	Index              int             `json:"index"`
	MsgCount           int             `json:"msgCount"`
	Fee                decimal.Decimal `json:"fee"`
	Memo               string          `json:"memo"`
	GasWanted          int64           `json:"gasWanted"`
	GasUsed            int64           `json:"gasUsed"`
	Log                string          `json:"log,omitempty"`
	Downloaded         bool            `json:"downloaded"`
	HasDownloadError   bool            `json:"hasDownloadError"`
	HasProcessingError bool            `json:"hasProcessingError"`
	IsProcessed        bool            `json:"isProcessed"`

	// Messages is only populated by UnprocessedBlocks.
	Messages []*Message `json:"-"`
}

type Message struct {
	ID                  uuid.UUID  `json:"id"`
	TxID                uuid.UUID  `json:"txId"`
	Height              int64      `json:"height"`
	Type                string     `json:"type"`
	TypeGroup           string     `json:"typeGroup"`
	Index               int        `json:"index"`
	IndexInBlock        int        `json:"indexInBlock"`
	IsProcessed         bool       `json:"isProcessed"`
	RelatedDeploymentID *uuid.UUID `json:"relatedDeploymentId,omitempty"`
}
