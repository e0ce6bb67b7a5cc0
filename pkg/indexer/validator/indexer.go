// Package validator indexes staking validators from MsgCreateValidator,
// MsgEditValidator and the genesis validator set.
package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const Name = "validator"

// doNotModify marks a description field left unchanged by MsgEditValidator.
const doNotModify = "[do-not-modify]"

type Indexer struct {
	indexer.Base
	logger *zap.Logger
}

var _ indexer.Indexer = (*Indexer)(nil)

func New(logger *zap.Logger) *Indexer {
	return &Indexer{logger: logger.With(zap.String("component", "indexer_validator"))}
}

func (ix *Indexer) Name() string { return Name }

func (ix *Indexer) Handles() []msgs.Kind {
	return []msgs.Kind{msgs.KindCreateValidator, msgs.KindEditValidator}
}

func (ix *Indexer) Tables() []string { return []string{db.TableValidators} }

func (ix *Indexer) Process(ctx context.Context, tx db.Tx, m *indexer.Message) error {
	switch msg := m.Msg.(type) {
	case msgs.MsgCreateValidator:
		return ix.create(ctx, tx, m, msg)
	case msgs.MsgEditValidator:
		return ix.edit(ctx, tx, m, msg)
	}
	return fmt.Errorf("%w: %s", msgs.ErrUnknownType, m.Msg.Kind())
}

func (ix *Indexer) create(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgCreateValidator) error {
	v := &models.Validator{
		OperatorAddress:   msg.ValidatorAddress,
		AccountAddress:    msg.DelegatorAddress,
		CreatedHeight:     m.Height,
		Rate:              msg.Commission.Rate,
		MaxRate:           msg.Commission.MaxRate,
		MaxChangeRate:     msg.Commission.MaxChangeRate,
		MinSelfDelegation: msg.MinSelfDelegation,
	}
	setDescription(v, msg.Description)
	if m.Row != nil {
		id := m.Row.ID
		v.CreatedMsgID = &id
	}
	if v.AccountAddress == "" {
		v.AccountAddress = ix.accountAddress(v.OperatorAddress)
	}
	hexAddr, err := HexAddressOfAny(msg.PubKey)
	if err != nil {
		ix.logger.Warn("Cannot derive validator address",
			zap.String("operator", v.OperatorAddress),
			zap.String("pubkey_type", msg.PubKey.TypeURL),
			zap.Error(err))
	}
	v.HexAddress = hexAddr

	if err := tx.UpsertValidator(ctx, v); err != nil {
		return fmt.Errorf("upsert validator %s: %w", v.OperatorAddress, err)
	}
	return nil
}

func (ix *Indexer) edit(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgEditValidator) error {
	v, err := tx.GetValidator(ctx, msg.ValidatorAddress)
	if errors.Is(err, db.ErrNotFound) {
		ix.logger.Warn("Edit of unknown validator skipped",
			zap.String("operator", msg.ValidatorAddress),
			zap.Int64("height", m.Height))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get validator %s: %w", msg.ValidatorAddress, err)
	}

	editDescription(v, msg.Description)
	if msg.CommissionRate != nil {
		v.Rate = *msg.CommissionRate
	}
	if msg.MinSelfDelegation != nil {
		v.MinSelfDelegation = *msg.MinSelfDelegation
	}
	if err := tx.UpsertValidator(ctx, v); err != nil {
		return fmt.Errorf("upsert validator %s: %w", v.OperatorAddress, err)
	}
	return nil
}

func (ix *Indexer) accountAddress(operator string) string {
	addr, err := AccountAddress(operator)
	if err != nil {
		ix.logger.Debug("Cannot derive account address", zap.String("operator", operator), zap.Error(err))
	}
	return addr
}

func setDescription(v *models.Validator, d msgs.Description) {
	v.Moniker = d.Moniker
	v.Identity = d.Identity
	v.Website = d.Website
	v.SecurityContact = d.SecurityContact
	v.Description = d.Details
}

func editDescription(v *models.Validator, d msgs.Description) {
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&v.Moniker, d.Moniker},
		{&v.Identity, d.Identity},
		{&v.Website, d.Website},
		{&v.SecurityContact, d.SecurityContact},
		{&v.Description, d.Details},
	} {
		if f.val != doNotModify {
			*f.dst = f.val
		}
	}
}

// Seed loads the genesis validator set, first from the gentxs and then from
// the staking module state.
func (ix *Indexer) Seed(ctx context.Context, tx db.Tx, genesis *rpc.GenesisResult) error {
	state, err := parseGenesis(genesis.Genesis.AppState)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, gt := range state.Genutil.GenTxs {
		for _, raw := range gt.Body.Messages {
			msg, ok, err := parseGenTxMessage(raw)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := ix.seedValidator(ctx, tx, msg); err != nil {
				return err
			}
			seen[msg.ValidatorAddress] = true
		}
	}

	for _, sv := range state.Staking.Validators {
		if seen[sv.OperatorAddress] {
			continue
		}
		if err := ix.seedValidator(ctx, tx, sv.asCreate()); err != nil {
			return err
		}
		seen[sv.OperatorAddress] = true
	}

	ix.logger.Info("Seeded genesis validators", zap.Int("count", len(seen)))
	return nil
}

func (ix *Indexer) seedValidator(ctx context.Context, tx db.Tx, msg jsonCreateValidator) error {
	v := &models.Validator{
		OperatorAddress:   msg.ValidatorAddress,
		AccountAddress:    msg.DelegatorAddress,
		Rate:              msg.Commission.Rate,
		MaxRate:           msg.Commission.MaxRate,
		MaxChangeRate:     msg.Commission.MaxChangeRate,
		MinSelfDelegation: orZero(msg.MinSelfDelegation),
	}
	setDescription(v, msgs.Description{
		Moniker:         msg.Description.Moniker,
		Identity:        msg.Description.Identity,
		Website:         msg.Description.Website,
		SecurityContact: msg.Description.SecurityContact,
		Details:         msg.Description.Details,
	})
	if v.AccountAddress == "" {
		v.AccountAddress = ix.accountAddress(v.OperatorAddress)
	}
	hexAddr, err := HexAddress(msg.PubKey.Type, msg.PubKey.Key)
	if err != nil {
		ix.logger.Warn("Cannot derive genesis validator address",
			zap.String("operator", v.OperatorAddress),
			zap.Error(err))
	}
	v.HexAddress = hexAddr
	if err := tx.UpsertValidator(ctx, v); err != nil {
		return fmt.Errorf("seed validator %s: %w", v.OperatorAddress, err)
	}
	return nil
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
