package akash

import (
	"context"
	"errors"
	"fmt"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
)

// upsertProvider handles create and update. A provider re-created after a
// delete starts a new lifetime.
func (ix *Indexer) upsertProvider(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgCreateProvider) error {
	p, err := tx.GetProvider(ctx, msg.Owner)
	switch {
	case errors.Is(err, db.ErrNotFound):
		p = &models.Provider{Owner: msg.Owner, CreatedHeight: m.Height}
	case err != nil:
		return fmt.Errorf("get provider %s: %w", msg.Owner, err)
	case p.DeletedHeight != nil && m.Msg.Kind() == msgs.KindCreateProvider:
		p.CreatedHeight = m.Height
		p.DeletedHeight = nil
	}
	p.HostURI = msg.HostURI
	p.Email = msg.Email
	p.Website = msg.Website
	p.UpdatedHeight = m.Height

	if err := tx.UpsertProvider(ctx, p); err != nil {
		return fmt.Errorf("upsert provider %s: %w", msg.Owner, err)
	}

	attrs := make([]models.ProviderAttribute, 0, len(msg.Attributes))
	for _, a := range msg.Attributes {
		attrs = append(attrs, models.ProviderAttribute{Provider: msg.Owner, Key: a.Key, Value: a.Value})
	}
	if err := tx.ReplaceProviderAttributes(ctx, msg.Owner, attrs); err != nil {
		return fmt.Errorf("replace attributes of %s: %w", msg.Owner, err)
	}
	return nil
}

func (ix *Indexer) deleteProvider(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgDeleteProvider) error {
	p, err := tx.GetProvider(ctx, msg.Owner)
	if errors.Is(err, db.ErrNotFound) {
		ix.missing(m, "provider", msg.Owner)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get provider %s: %w", msg.Owner, err)
	}
	h := m.Height
	p.DeletedHeight = &h
	p.UpdatedHeight = h
	return tx.UpsertProvider(ctx, p)
}

func (ix *Indexer) signProviderAttributes(ctx context.Context, tx db.Tx, _ *indexer.Message, msg msgs.MsgSignProviderAttributes) error {
	sigs := make([]models.ProviderAttributeSignature, 0, len(msg.Attributes))
	for _, a := range msg.Attributes {
		sigs = append(sigs, models.ProviderAttributeSignature{
			Provider: msg.Owner,
			Auditor:  msg.Auditor,
			Key:      a.Key,
			Value:    a.Value,
		})
	}
	if err := tx.UpsertProviderAttributeSignatures(ctx, sigs); err != nil {
		return fmt.Errorf("sign attributes of %s by %s: %w", msg.Owner, msg.Auditor, err)
	}
	return nil
}

// deleteProviderAttributes drops the named signatures, or all of the
// auditor's signatures when no key is given.
func (ix *Indexer) deleteProviderAttributes(ctx context.Context, tx db.Tx, _ *indexer.Message, msg msgs.MsgDeleteProviderAttributes) error {
	if err := tx.DeleteProviderAttributeSignatures(ctx, msg.Owner, msg.Auditor, msg.Keys); err != nil {
		return fmt.Errorf("delete signatures of %s by %s: %w", msg.Owner, msg.Auditor, err)
	}
	return nil
}
