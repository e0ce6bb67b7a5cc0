package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// envelope is the JSON-RPC 2.0 wrapper used by tendermint over HTTP GET.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    string `json:"data"`
	} `json:"error"`
}

// unwrap returns the "result" object when the payload is an RPC envelope and the
// payload itself otherwise, so cached bodies from either shape parse the same.
func unwrap(raw []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode rpc envelope: %w", err)
	}
	if env.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s %s", env.Error.Code, env.Error.Message, env.Error.Data)
	}
	if len(env.Result) > 0 {
		return env.Result, nil
	}
	return raw, nil
}

// Int64String is an int64 that tendermint encodes as a JSON string.
type Int64String int64

func (i *Int64String) UnmarshalJSON(bz []byte) error {
	if string(bz) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		var n int64
		if err2 := json.Unmarshal(bz, &n); err2 != nil {
			return err
		}
		*i = Int64String(n)
		return nil
	}
	if s == "" {
		*i = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*i = Int64String(n)
	return nil
}

type StatusResult struct {
	NodeInfo struct {
		Network string `json:"network"`
	} `json:"node_info"`
	SyncInfo struct {
		LatestBlockHeight Int64String `json:"latest_block_height"`
		LatestBlockTime   time.Time   `json:"latest_block_time"`
		CatchingUp        bool        `json:"catching_up"`
	} `json:"sync_info"`
}

// BlockResult is the subset of the block response the indexer reads.
type BlockResult struct {
	BlockID struct {
		Hash string `json:"hash"`
	} `json:"block_id"`
	Block struct {
		Header struct {
			ChainID         string      `json:"chain_id"`
			Height          Int64String `json:"height"`
			Time            time.Time   `json:"time"`
			ProposerAddress string      `json:"proposer_address"`
		} `json:"header"`
		Data struct {
			Txs []string `json:"txs"`
		} `json:"data"`
	} `json:"block"`
}

// TxResult is the subset of the tx response the indexer reads.
type TxResult struct {
	Hash     string      `json:"hash"`
	Height   Int64String `json:"height"`
	Index    int         `json:"index"`
	Tx       string      `json:"tx"`
	TxResult struct {
		Code      uint32      `json:"code"`
		Codespace string      `json:"codespace"`
		Log       string      `json:"log"`
		GasWanted Int64String `json:"gas_wanted"`
		GasUsed   Int64String `json:"gas_used"`
	} `json:"tx_result"`
}

type GenesisResult struct {
	Genesis struct {
		GenesisTime   time.Time       `json:"genesis_time"`
		ChainID       string          `json:"chain_id"`
		InitialHeight Int64String     `json:"initial_height"`
		AppState      json.RawMessage `json:"app_state"`
	} `json:"genesis"`
}

var errEmptyPayload = errors.New("empty payload")

func parse[T any](raw []byte) (*T, error) {
	if len(raw) == 0 {
		return nil, errEmptyPayload
	}
	res, err := unwrap(raw)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(res, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseBlock decodes a raw block payload as cached by the downloader.
func ParseBlock(raw []byte) (*BlockResult, error) {
	b, err := parse[BlockResult](raw)
	if err != nil {
		return nil, fmt.Errorf("parse block: %w", err)
	}
	return b, nil
}

// ParseTx decodes a raw transaction payload as cached by the downloader.
func ParseTx(raw []byte) (*TxResult, error) {
	t, err := parse[TxResult](raw)
	if err != nil {
		return nil, fmt.Errorf("parse tx: %w", err)
	}
	return t, nil
}

// ParseGenesis decodes the genesis response.
func ParseGenesis(raw []byte) (*GenesisResult, error) {
	g, err := parse[GenesisResult](raw)
	if err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	return g, nil
}
