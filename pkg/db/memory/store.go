// Package memory is an in-process db.Store. Transactions snapshot the whole
// state and restore it on rollback. It backs the dry-run mode and the pipeline
// tests; it is meant to be driven by a single goroutine.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/google/uuid"
)

type sigKey struct {
	provider, auditor, key string
}

type state struct {
	days        map[uuid.UUID]*models.Day
	blocks      map[int64]*models.Block
	txs         map[uuid.UUID]*models.Transaction
	txsByHeight map[int64][]uuid.UUID
	msgs        map[uuid.UUID]*models.Message
	msgsByTx    map[uuid.UUID][]uuid.UUID

	deployments map[uuid.UUID]*models.Deployment
	groups      map[uuid.UUID]*models.DeploymentGroup
	resources   map[uuid.UUID]*models.DeploymentGroupResource
	leases      map[uuid.UUID]*models.Lease
	bids        map[models.BidKey]*models.Bid
	providers   map[string]*models.Provider
	attributes  map[string][]models.ProviderAttribute
	signatures  map[sigKey]models.ProviderAttributeSignature

	validators   map[string]*models.Validator
	transfers    map[uuid.UUID]*models.Transfer
	proposals    map[int64]*models.Proposal
	paramChanges map[int64][]models.ProposalParameterChange
}

func newState() *state {
	s := &state{}
	for _, t := range allTables {
		s.reset(t)
	}
	return s
}

var allTables = []string{
	db.TableDays, db.TableBlocks, db.TableTransactions, db.TableMessages,
	db.TableDeployments, db.TableDeploymentGroups, db.TableDeploymentGroupResources,
	db.TableLeases, db.TableBids, db.TableProviders, db.TableProviderAttributes,
	db.TableProviderAttributeSignatures, db.TableValidators, db.TableTransfers,
	db.TableProposals, db.TableProposalParameterChanges,
}

func (s *state) reset(table string) bool {
	switch table {
	case db.TableDays:
		s.days = map[uuid.UUID]*models.Day{}
	case db.TableBlocks:
		s.blocks = map[int64]*models.Block{}
	case db.TableTransactions:
		s.txs = map[uuid.UUID]*models.Transaction{}
		s.txsByHeight = map[int64][]uuid.UUID{}
	case db.TableMessages:
		s.msgs = map[uuid.UUID]*models.Message{}
		s.msgsByTx = map[uuid.UUID][]uuid.UUID{}
	case db.TableDeployments:
		s.deployments = map[uuid.UUID]*models.Deployment{}
	case db.TableDeploymentGroups:
		s.groups = map[uuid.UUID]*models.DeploymentGroup{}
	case db.TableDeploymentGroupResources:
		s.resources = map[uuid.UUID]*models.DeploymentGroupResource{}
	case db.TableLeases:
		s.leases = map[uuid.UUID]*models.Lease{}
	case db.TableBids:
		s.bids = map[models.BidKey]*models.Bid{}
	case db.TableProviders:
		s.providers = map[string]*models.Provider{}
	case db.TableProviderAttributes:
		s.attributes = map[string][]models.ProviderAttribute{}
	case db.TableProviderAttributeSignatures:
		s.signatures = map[sigKey]models.ProviderAttributeSignature{}
	case db.TableValidators:
		s.validators = map[string]*models.Validator{}
	case db.TableTransfers:
		s.transfers = map[uuid.UUID]*models.Transfer{}
	case db.TableProposals:
		s.proposals = map[int64]*models.Proposal{}
	case db.TableProposalParameterChanges:
		s.paramChanges = map[int64][]models.ProposalParameterChange{}
	default:
		return false
	}
	return true
}

// cloneRows copies every row so mutations after the snapshot do not leak into it.
func cloneRows[K comparable, V any](m map[K]*V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		days:         cloneRows(s.days),
		blocks:       cloneRows(s.blocks),
		txs:          cloneRows(s.txs),
		txsByHeight:  maps.Clone(s.txsByHeight),
		msgs:         cloneRows(s.msgs),
		msgsByTx:     maps.Clone(s.msgsByTx),
		deployments:  cloneRows(s.deployments),
		groups:       cloneRows(s.groups),
		resources:    cloneRows(s.resources),
		leases:       cloneRows(s.leases),
		bids:         cloneRows(s.bids),
		providers:    cloneRows(s.providers),
		attributes:   maps.Clone(s.attributes),
		signatures:   maps.Clone(s.signatures),
		validators:   cloneRows(s.validators),
		transfers:    cloneRows(s.transfers),
		proposals:    cloneRows(s.proposals),
		paramChanges: maps.Clone(s.paramChanges),
	}
}

// Store is the in-memory db.Store.
type Store struct {
	*view
	txMu sync.Mutex
}

var _ db.Store = (*Store)(nil)

// view implements db.Tx over one state.
type view struct {
	s *state
}

func New() *Store {
	return &Store{view: &view{s: newState()}}
}

func (m *Store) InitializeDB(context.Context) error { return nil }

func (m *Store) Close() error { return nil }

// InTx runs fn against the live state and restores the snapshot if fn fails.
func (m *Store) InTx(ctx context.Context, fn func(db.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.s.clone()
	if err := fn(m.view); err != nil {
		m.s = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		m.s = snapshot
		return err
	}
	return nil
}

func (m *Store) RecreateTables(_ context.Context, tables ...string) error {
	for _, t := range tables {
		if !m.s.reset(t) {
			return fmt.Errorf("unknown table %q", t)
		}
	}
	return nil
}

// Counts returns the row count of every table, for assertions in tests.
func (m *Store) Counts() map[string]int {
	s := m.s
	attrs := 0
	for _, a := range s.attributes {
		attrs += len(a)
	}
	changes := 0
	for _, c := range s.paramChanges {
		changes += len(c)
	}
	return map[string]int{
		db.TableDays:                        len(s.days),
		db.TableBlocks:                      len(s.blocks),
		db.TableTransactions:                len(s.txs),
		db.TableMessages:                    len(s.msgs),
		db.TableDeployments:                 len(s.deployments),
		db.TableDeploymentGroups:            len(s.groups),
		db.TableDeploymentGroupResources:    len(s.resources),
		db.TableLeases:                      len(s.leases),
		db.TableBids:                        len(s.bids),
		db.TableProviders:                   len(s.providers),
		db.TableProviderAttributes:          attrs,
		db.TableProviderAttributeSignatures: len(s.signatures),
		db.TableValidators:                  len(s.validators),
		db.TableTransfers:                   len(s.transfers),
		db.TableProposals:                   len(s.proposals),
		db.TableProposalParameterChanges:    changes,
	}
}

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}
