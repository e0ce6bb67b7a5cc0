package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeploymentKey identifies a deployment on chain.
type DeploymentKey struct {
	Owner string
	DSeq  uint64
}

// GroupKey identifies a deployment group on chain.
type GroupKey struct {
	Owner string
	DSeq  uint64
	GSeq  uint32
}

// BidKey identifies a bid, and the lease created from it.
type BidKey struct {
	Owner    string
	DSeq     uint64
	GSeq     uint32
	OSeq     uint32
	Provider string
}

type Deployment struct {
	ID                 uuid.UUID       `json:"id"`
	Owner              string          `json:"owner"`
	DSeq               uint64          `json:"dseq"`
	Denom              string          `json:"denom"`
	Deposit            decimal.Decimal `json:"deposit"`
	Balance            decimal.Decimal `json:"balance"`
	WithdrawnAmount    decimal.Decimal `json:"withdrawnAmount"`
	LastWithdrawHeight int64           `json:"lastWithdrawHeight"`
	CreatedHeight      int64           `json:"createdHeight"`
	ClosedHeight       *int64          `json:"closedHeight,omitempty"`
}

func (d *Deployment) Key() DeploymentKey {
	return DeploymentKey{Owner: d.Owner, DSeq: d.DSeq}
}

func (d *Deployment) IsClosed() bool {
	return d.ClosedHeight != nil
}

type DeploymentGroup struct {
	ID           uuid.UUID `json:"id"`
	DeploymentID uuid.UUID `json:"deploymentId"`
	Owner        string    `json:"owner"`
	DSeq         uint64    `json:"dseq"`
	GSeq         uint32    `json:"gseq"`
	Name         string    `json:"name"`
}

func (g *DeploymentGroup) Key() GroupKey {
	return GroupKey{Owner: g.Owner, DSeq: g.DSeq, GSeq: g.GSeq}
}

type DeploymentGroupResource struct {
	ID                uuid.UUID       `json:"id"`
	DeploymentGroupID uuid.UUID       `json:"deploymentGroupId"`
	CPUUnits          int64           `json:"cpuUnits"`
	MemoryQuantity    int64           `json:"memoryQuantity"`
	StorageQuantity   int64           `json:"storageQuantity"`
	GPUUnits          int64           `json:"gpuUnits"`
	Count             int64           `json:"count"`
	Price             decimal.Decimal `json:"price"`
}

type Lease struct {
	ID                    uuid.UUID       `json:"id"`
	DeploymentID          uuid.UUID       `json:"deploymentId"`
	DeploymentGroupID     uuid.UUID       `json:"deploymentGroupId"`
	Owner                 string          `json:"owner"`
	DSeq                  uint64          `json:"dseq"`
	GSeq                  uint32          `json:"gseq"`
	OSeq                  uint32          `json:"oseq"`
	ProviderAddress       string          `json:"providerAddress"`
	Denom                 string          `json:"denom"`
	Price                 decimal.Decimal `json:"price"`
	WithdrawnAmount       decimal.Decimal `json:"withdrawnAmount"`
	CreatedHeight         int64           `json:"createdHeight"`
	ClosedHeight          *int64          `json:"closedHeight,omitempty"`
	PredictedClosedHeight int64           `json:"predictedClosedHeight"`
	CPUUnits              int64           `json:"cpuUnits"`
	MemoryQuantity        int64           `json:"memoryQuantity"`
	StorageQuantity       int64           `json:"storageQuantity"`
	GPUUnits              int64           `json:"gpuUnits"`
}

func (l *Lease) Key() BidKey {
	return BidKey{Owner: l.Owner, DSeq: l.DSeq, GSeq: l.GSeq, OSeq: l.OSeq, Provider: l.ProviderAddress}
}

// IsActiveAt reports whether the lease is billing at height h.
func (l *Lease) IsActiveAt(h int64) bool {
	if l.CreatedHeight > h {
		return false
	}
	if l.ClosedHeight != nil && *l.ClosedHeight <= h {
		return false
	}
	return l.PredictedClosedHeight > h
}

type Bid struct {
	Owner         string          `json:"owner"`
	DSeq          uint64          `json:"dseq"`
	GSeq          uint32          `json:"gseq"`
	OSeq          uint32          `json:"oseq"`
	Provider      string          `json:"provider"`
	Denom         string          `json:"denom"`
	Price         decimal.Decimal `json:"price"`
	Deposit       decimal.Decimal `json:"deposit"`
	CreatedHeight int64           `json:"createdHeight"`
}

func (b *Bid) Key() BidKey {
	return BidKey{Owner: b.Owner, DSeq: b.DSeq, GSeq: b.GSeq, OSeq: b.OSeq, Provider: b.Provider}
}

type Provider struct {
	Owner         string `json:"owner"`
	HostURI       string `json:"hostUri"`
	Email         string `json:"email"`
	Website       string `json:"website"`
	CreatedHeight int64  `json:"createdHeight"`
	UpdatedHeight int64  `json:"updatedHeight"`
	DeletedHeight *int64 `json:"deletedHeight,omitempty"`
}

type ProviderAttribute struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

type ProviderAttributeSignature struct {
	Provider string `json:"provider"`
	Auditor  string `json:"auditor"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// LeaseStats aggregates the leases billing at one height.
type LeaseStats struct {
	ActiveCount   int64
	TotalCount    int64
	CPU           int64
	Memory        int64
	Storage       int64
	ProviderCount int64
	PriceSum      decimal.Decimal
}
