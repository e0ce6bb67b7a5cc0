package postgres

import (
	"context"

	"github.com/akashx/akashx/pkg/db/models"
	"github.com/jackc/pgx/v5"
)

func (q *queries) GetValidator(ctx context.Context, operator string) (*models.Validator, error) {
	var v models.Validator
	err := q.exec.QueryRow(ctx, `
		SELECT operator_address, account_address, hex_address, created_msg_id, created_height,
			moniker, identity, website, description, security_contact,
			rate, max_rate, max_change_rate, min_self_delegation
		FROM validators WHERE operator_address = $1
	`, operator).Scan(&v.OperatorAddress, &v.AccountAddress, &v.HexAddress, &v.CreatedMsgID, &v.CreatedHeight,
		&v.Moniker, &v.Identity, &v.Website, &v.Description, &v.SecurityContact,
		&v.Rate, &v.MaxRate, &v.MaxChangeRate, &v.MinSelfDelegation)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (q *queries) UpsertValidator(ctx context.Context, v *models.Validator) error {
	_, err := q.exec.Exec(ctx, `
		INSERT INTO validators (
			operator_address, account_address, hex_address, created_msg_id, created_height,
			moniker, identity, website, description, security_contact,
			rate, max_rate, max_change_rate, min_self_delegation
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (operator_address) DO UPDATE SET
			account_address = EXCLUDED.account_address,
			hex_address = EXCLUDED.hex_address,
			moniker = EXCLUDED.moniker,
			identity = EXCLUDED.identity,
			website = EXCLUDED.website,
			description = EXCLUDED.description,
			security_contact = EXCLUDED.security_contact,
			rate = EXCLUDED.rate,
			max_rate = EXCLUDED.max_rate,
			max_change_rate = EXCLUDED.max_change_rate,
			min_self_delegation = EXCLUDED.min_self_delegation
	`, v.OperatorAddress, v.AccountAddress, v.HexAddress, v.CreatedMsgID, v.CreatedHeight,
		v.Moniker, v.Identity, v.Website, v.Description, v.SecurityContact,
		v.Rate, v.MaxRate, v.MaxChangeRate, v.MinSelfDelegation)
	return err
}

func (q *queries) InsertTransfers(ctx context.Context, transfers []*models.Transfer) error {
	batch := &pgx.Batch{}
	for _, t := range transfers {
		batch.Queue(`
			INSERT INTO transfers (id, message_id, height, from_address, to_address, denom, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, t.ID, t.MessageID, t.Height, t.From, t.To, t.Denom, t.Amount)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) UpsertProposal(ctx context.Context, p *models.Proposal) error {
	_, err := q.exec.Exec(ctx, `
		INSERT INTO proposals (
			id, message_id, height, proposer, content_type, title, description,
			initial_deposit, plan_name, plan_height, recipient, spend_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			message_id = EXCLUDED.message_id,
			height = EXCLUDED.height,
			proposer = EXCLUDED.proposer,
			content_type = EXCLUDED.content_type,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			initial_deposit = EXCLUDED.initial_deposit,
			plan_name = EXCLUDED.plan_name,
			plan_height = EXCLUDED.plan_height,
			recipient = EXCLUDED.recipient,
			spend_amount = EXCLUDED.spend_amount
	`, p.ID, p.MessageID, p.Height, p.Proposer, p.ContentType, p.Title, p.Description,
		p.InitialDeposit, p.PlanName, p.PlanHeight, p.Recipient, p.SpendAmount)
	return err
}

func (q *queries) ReplaceProposalParameterChanges(ctx context.Context, proposalID int64, changes []models.ProposalParameterChange) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM proposal_parameter_changes WHERE proposal_id = $1`, proposalID)
	for _, c := range changes {
		batch.Queue(`
			INSERT INTO proposal_parameter_changes (proposal_id, change_index, subspace, key, value)
			VALUES ($1, $2, $3, $4, $5)
		`, proposalID, c.Index, c.Subspace, c.Key, c.Value)
	}
	return sendBatch(ctx, q.exec, batch)
}
