package db

import (
	"context"
	"errors"

	"github.com/akashx/akashx/pkg/db/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Table names, shared by every Store implementation.
const (
	TableDays                        = "days"
	TableBlocks                      = "blocks"
	TableTransactions                = "transactions"
	TableMessages                    = "messages"
	TableDeployments                 = "deployments"
	TableDeploymentGroups            = "deployment_groups"
	TableDeploymentGroupResources    = "deployment_group_resources"
	TableLeases                      = "leases"
	TableBids                        = "bids"
	TableProviders                   = "providers"
	TableProviderAttributes          = "provider_attributes"
	TableProviderAttributeSignatures = "provider_attribute_signatures"
	TableValidators                  = "validators"
	TableTransfers                   = "transfers"
	TableProposals                   = "proposals"
	TableProposalParameterChanges    = "proposal_parameter_changes"
)

// Store is the relational store. Operations called on the Store itself run
// outside any transaction; InTx scopes a batch or window.
type Store interface {
	Tx

	// InitializeDB creates the database and every table if missing.
	InitializeDB(ctx context.Context) error
	// InTx runs fn in one transaction, committing only when fn returns nil.
	InTx(ctx context.Context, fn func(Tx) error) error
	// RecreateTables drops and recreates the named tables, emptying them.
	RecreateTables(ctx context.Context, tables ...string) error
	Close() error
}

// Tx is every read and write the pipeline performs.
type Tx interface {
	ChainTx
	AkashTx
	ValidatorTx
	BankTx
	ProposalTx
}

// ChainTx covers the raw chain tables written by the insert and download stages.
type ChainTx interface {
	LatestBlock(ctx context.Context) (*models.Block, error)
	GetBlock(ctx context.Context, height int64) (*models.Block, error)
	LatestDay(ctx context.Context) (*models.Day, error)
	UpsertDays(ctx context.Context, days []*models.Day) error
	InsertBlocks(ctx context.Context, blocks []*models.Block) error
	InsertTransactions(ctx context.Context, txs []*models.Transaction) error
	InsertMessages(ctx context.Context, msgs []*models.Message) error

	// PendingTransactions lists transactions not downloaded yet, ordered by
	// (height, index).
	PendingTransactions(ctx context.Context) ([]*models.Transaction, error)
	// UpdateTransactionResults persists the download flags and tx_result fields.
	UpdateTransactionResults(ctx context.Context, txs []*models.Transaction) error
	// ProcessableHeight is the highest height below every transaction that
	// is not downloaded yet, download errors included.
	ProcessableHeight(ctx context.Context) (int64, error)

	// FirstUnprocessedHeight returns the lowest height with isProcessed=false.
	FirstUnprocessedHeight(ctx context.Context) (int64, bool, error)
	// UnprocessedBlocks loads blocks in [from, to] with isProcessed=false,
	// with their error-free transactions and messages in canonical order.
	UnprocessedBlocks(ctx context.Context, from, to int64) ([]*models.Block, error)
	// UpdateBlockStats writes the stats of b and marks it processed.
	UpdateBlockStats(ctx context.Context, b *models.Block) error
	// MarkProcessed flags transactions and messages in [from, to] processed.
	MarkProcessed(ctx context.Context, from, to int64) error
	UpdateMessageDeployments(ctx context.Context, msgs []*models.Message) error
	// ResetProcessed clears every processed flag and the derived block stats.
	ResetProcessed(ctx context.Context) error
}

// AkashTx covers deployments, leases, bids and providers.
type AkashTx interface {
	ListDeployments(ctx context.Context) ([]*models.Deployment, error)
	ListDeploymentGroups(ctx context.Context) ([]*models.DeploymentGroup, error)
	GetDeployment(ctx context.Context, id uuid.UUID) (*models.Deployment, error)
	InsertDeployment(ctx context.Context, d *models.Deployment) error
	UpdateDeployment(ctx context.Context, d *models.Deployment) error
	InsertDeploymentGroups(ctx context.Context, groups []*models.DeploymentGroup) error
	InsertDeploymentGroupResources(ctx context.Context, res []*models.DeploymentGroupResource) error
	GroupResources(ctx context.Context, groupID uuid.UUID) ([]*models.DeploymentGroupResource, error)

	GetBid(ctx context.Context, key models.BidKey) (*models.Bid, error)
	UpsertBid(ctx context.Context, b *models.Bid) error
	DeleteBid(ctx context.Context, key models.BidKey) error

	InsertLease(ctx context.Context, l *models.Lease) error
	UpdateLeases(ctx context.Context, leases []*models.Lease) error
	LeasesByDeployment(ctx context.Context, deploymentID uuid.UUID) ([]*models.Lease, error)
	LeaseStats(ctx context.Context, height int64) (models.LeaseStats, error)
	// NextPredictedClosedHeight is the lowest predicted closure above height
	// among leases that are still open.
	NextPredictedClosedHeight(ctx context.Context, height int64) (int64, bool, error)

	GetProvider(ctx context.Context, owner string) (*models.Provider, error)
	UpsertProvider(ctx context.Context, p *models.Provider) error
	ReplaceProviderAttributes(ctx context.Context, owner string, attrs []models.ProviderAttribute) error
	UpsertProviderAttributeSignatures(ctx context.Context, sigs []models.ProviderAttributeSignature) error
	// DeleteProviderAttributeSignatures removes the auditor's signatures on
	// keys, or all of them when keys is empty.
	DeleteProviderAttributeSignatures(ctx context.Context, owner, auditor string, keys []string) error
}

type ValidatorTx interface {
	GetValidator(ctx context.Context, operator string) (*models.Validator, error)
	UpsertValidator(ctx context.Context, v *models.Validator) error
}

type BankTx interface {
	InsertTransfers(ctx context.Context, transfers []*models.Transfer) error
}

type ProposalTx interface {
	UpsertProposal(ctx context.Context, p *models.Proposal) error
	ReplaceProposalParameterChanges(ctx context.Context, proposalID int64, changes []models.ProposalParameterChange) error
}
