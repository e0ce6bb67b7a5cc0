package proposal

import (
	"context"
	"testing"

	"github.com/akashx/akashx/pkg/db/memory"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/rpc"
	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func events(id string) rpc.MsgEvents {
	return rpc.MsgEvents{"submit_proposal": {"proposal_id": id}}
}

func TestParameterChangeProposal(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ix := New(zaptest.NewLogger(t))
	row := &models.Message{ID: uuid.New()}

	msg := msgs.MsgSubmitProposal{
		Content: msgs.ProposalContent{
			TypeURL:     msgs.ProposalParameterChange,
			Title:       "Raise max validators",
			Description: "more room",
			Changes: []msgs.ParamChange{
				{Subspace: "staking", Key: "MaxValidators", Value: `"100"`},
				{Subspace: "staking", Key: "UnbondingTime", Value: `"1814400000000000"`},
			},
		},
		InitialDeposit: []txdecode.Coin{{Denom: "uakt", Amount: decimal.NewFromInt(250)}, {Denom: "uatom", Amount: decimal.NewFromInt(9)}},
		Proposer:       "akash1proposer",
	}
	require.NoError(t, ix.Process(ctx, store, &indexer.Message{Msg: msg, Row: row, Height: 77, Events: events("12")}))

	p, changes := store.Proposal(12)
	require.NotNil(t, p)
	assert.Equal(t, "Raise max validators", p.Title)
	assert.Equal(t, "250", p.InitialDeposit.String())
	assert.Equal(t, int64(77), p.Height)
	require.NotNil(t, p.MessageID)
	assert.Equal(t, row.ID, *p.MessageID)
	require.Len(t, changes, 2)
	assert.Equal(t, 1, changes[1].Index)
	assert.Equal(t, "UnbondingTime", changes[1].Key)
}

func TestCommunityPoolSpendProposal(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ix := New(zaptest.NewLogger(t))

	msg := msgs.MsgSubmitProposal{
		Content: msgs.ProposalContent{
			TypeURL:   msgs.ProposalCommunityPoolSpend,
			Title:     "Fund tooling",
			Recipient: "akash1recipient",
			Amount:    []txdecode.Coin{{Denom: "uakt", Amount: decimal.NewFromInt(1000000)}},
		},
	}
	require.NoError(t, ix.Process(ctx, store, &indexer.Message{Msg: msg, Height: 5, Events: events("3")}))

	p, changes := store.Proposal(3)
	require.NotNil(t, p)
	assert.Equal(t, "akash1recipient", p.Recipient)
	assert.Equal(t, "1000000", p.SpendAmount.String())
	assert.True(t, p.InitialDeposit.IsZero())
	assert.Empty(t, changes)
}

func TestProposalWithoutEventIsSkipped(t *testing.T) {
	store := memory.New()
	ix := New(zaptest.NewLogger(t))
	require.NoError(t, ix.Process(context.Background(), store, &indexer.Message{Msg: msgs.MsgSubmitProposal{}, Height: 1}))

	err := ix.Process(context.Background(), store, &indexer.Message{Msg: msgs.MsgSubmitProposal{}, Height: 1, Events: events("x")})
	assert.Error(t, err)
}
