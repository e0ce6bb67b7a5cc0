package validator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/akashx/akashx/pkg/db/memory"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/rpc"
	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/akashx/akashx/pkg/txdecode/txtest"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	operator = "akashvaloper1zs23v9ccrydpk8qarc0jqgfzyvjz2f38ceftds"
	account  = "akash1zs23v9ccrydpk8qarc0jqgfzyvjz2f38jm8da6"

	ed25519Key   = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
	ed25519Hex   = "630DCD2966C4336691125448BBB25B4FF412A49C"
	secp256k1Key = "AgECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8g"
	secp256k1Hex = "2EEF74C226D9165FD8BCEDE31B58BF47300115A0"
)

func keyBytes(t *testing.T, b64 string) []byte {
	var out []byte
	require.NoError(t, json.Unmarshal([]byte(`"`+b64+`"`), &out))
	return out
}

func TestHexAddress(t *testing.T) {
	got, err := HexAddress(PubKeyEd25519, keyBytes(t, ed25519Key))
	require.NoError(t, err)
	assert.Equal(t, ed25519Hex, got)

	got, err = HexAddress(PubKeySecp256k1, keyBytes(t, secp256k1Key))
	require.NoError(t, err)
	assert.Equal(t, secp256k1Hex, got)

	_, err = HexAddress("/cosmos.crypto.multisig.LegacyAminoPubKey", nil)
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}

func TestAccountAddress(t *testing.T) {
	got, err := AccountAddress(operator)
	require.NoError(t, err)
	assert.Equal(t, account, got)

	_, err = AccountAddress(account)
	assert.Error(t, err)
	_, err = AccountAddress("not-bech32")
	assert.Error(t, err)
}

func pubKeyAny(t *testing.T) txdecode.Any {
	raw := txtest.Any(PubKeyEd25519, txtest.P{}.Bytes(1, keyBytes(t, ed25519Key)))
	a, err := txdecode.DecodeAny(raw)
	require.NoError(t, err)
	return a
}

func TestCreateAndEditValidator(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ix := New(zaptest.NewLogger(t))
	row := &models.Message{ID: uuid.New()}

	create := msgs.MsgCreateValidator{
		Description: msgs.Description{Moniker: "node-a", Website: "https://a.example.com", Details: "first"},
		Commission: msgs.CommissionRates{
			Rate:          decimal.RequireFromString("0.05"),
			MaxRate:       decimal.RequireFromString("0.2"),
			MaxChangeRate: decimal.RequireFromString("0.01"),
		},
		MinSelfDelegation: decimal.NewFromInt(1),
		ValidatorAddress:  operator,
		PubKey:            pubKeyAny(t),
		Value:             txdecode.Coin{Denom: "uakt", Amount: decimal.NewFromInt(1000000)},
	}
	require.NoError(t, ix.Process(ctx, store, &indexer.Message{Msg: create, Row: row, Height: 42}))

	v, err := store.GetValidator(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, account, v.AccountAddress)
	assert.Equal(t, ed25519Hex, v.HexAddress)
	assert.Equal(t, int64(42), v.CreatedHeight)
	require.NotNil(t, v.CreatedMsgID)
	assert.Equal(t, row.ID, *v.CreatedMsgID)
	assert.Equal(t, "node-a", v.Moniker)

	rate := decimal.RequireFromString("0.06")
	edit := msgs.MsgEditValidator{
		Description: msgs.Description{
			Moniker:         "node-a2",
			Identity:        doNotModify,
			Website:         doNotModify,
			SecurityContact: "sec@example.com",
			Details:         doNotModify,
		},
		ValidatorAddress: operator,
		CommissionRate:   &rate,
	}
	require.NoError(t, ix.Process(ctx, store, &indexer.Message{Msg: edit, Height: 50}))

	v, err = store.GetValidator(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, "node-a2", v.Moniker)
	assert.Equal(t, "https://a.example.com", v.Website)
	assert.Equal(t, "first", v.Description)
	assert.Equal(t, "sec@example.com", v.SecurityContact)
	assert.Equal(t, "0.06", v.Rate.String())
	assert.Equal(t, "1", v.MinSelfDelegation.String())
	assert.Equal(t, int64(42), v.CreatedHeight)

	// unknown validators are skipped
	edit.ValidatorAddress = "akashvaloper1unknown"
	require.NoError(t, ix.Process(ctx, store, &indexer.Message{Msg: edit, Height: 51}))
}

const genesisAppState = `{
  "genutil": {"gen_txs": [{"body": {"messages": [
    {"@type": "/cosmos.bank.v1beta1.MsgSend", "from_address": "a", "to_address": "b", "amount": []},
    {"@type": "/cosmos.staking.v1beta1.MsgCreateValidator",
     "description": {"moniker": "genesis-a", "identity": "", "website": "", "security_contact": "", "details": ""},
     "commission": {"rate": "0.100000000000000000", "max_rate": "0.200000000000000000", "max_change_rate": "0.010000000000000000"},
     "min_self_delegation": "1",
     "delegator_address": "` + account + `",
     "validator_address": "` + operator + `",
     "pubkey": {"@type": "/cosmos.crypto.ed25519.PubKey", "key": "` + ed25519Key + `"},
     "value": {"denom": "uakt", "amount": "1000000"}}
  ]}}]},
  "staking": {"validators": [
    {"operator_address": "` + operator + `",
     "consensus_pubkey": {"@type": "/cosmos.crypto.ed25519.PubKey", "key": "` + ed25519Key + `"},
     "description": {"moniker": "ignored"},
     "commission": {"commission_rates": {"rate": "0.5", "max_rate": "1", "max_change_rate": "0.1"}},
     "min_self_delegation": "1"},
    {"operator_address": "akashvaloper1second",
     "consensus_pubkey": {"@type": "/cosmos.crypto.secp256k1.PubKey", "key": "` + secp256k1Key + `"},
     "description": {"moniker": "genesis-b"},
     "commission": {"commission_rates": {"rate": "0.07", "max_rate": "0.1", "max_change_rate": "0.01"}},
     "min_self_delegation": "5"}
  ]}
}`

func TestSeedFromGenesis(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ix := New(zaptest.NewLogger(t))

	var g rpc.GenesisResult
	g.Genesis.AppState = json.RawMessage(genesisAppState)
	require.NoError(t, ix.Seed(ctx, store, &g))

	a, err := store.GetValidator(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, "genesis-a", a.Moniker)
	assert.Equal(t, "0.1", a.Rate.String())
	assert.Equal(t, account, a.AccountAddress)
	assert.Equal(t, ed25519Hex, a.HexAddress)
	assert.Zero(t, a.CreatedHeight)
	assert.Nil(t, a.CreatedMsgID)

	b, err := store.GetValidator(ctx, "akashvaloper1second")
	require.NoError(t, err)
	assert.Equal(t, "genesis-b", b.Moniker)
	assert.Equal(t, secp256k1Hex, b.HexAddress)
	assert.Equal(t, "5", b.MinSelfDelegation.String())
	assert.Empty(t, b.AccountAddress)
}

func TestSeedEmptyGenesis(t *testing.T) {
	require.NoError(t, New(zaptest.NewLogger(t)).Seed(context.Background(), memory.New(), &rpc.GenesisResult{}))
}
