package rpc

import (
	"strconv"
	"strings"
)

// Tendermint RPC routes, relative to an endpoint base URL.
const (
	statusPath  = "status"
	genesisPath = "genesis"
)

// BlockPath is the route for the block at height.
func BlockPath(height int64) string {
	return "block?height=" + strconv.FormatInt(height, 10)
}

// TxPath is the route for a transaction result by its hex hash.
func TxPath(hash string) string {
	return "tx?hash=0x" + strings.ToUpper(hash)
}
