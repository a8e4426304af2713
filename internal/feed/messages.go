package feed

import "encoding/json"

// Wire messages. The feed speaks JSON-RPC 2.0 over a WebSocket:
//
//	-> {"jsonrpc":"2.0","id":1,"method":"pricesSubscribe","params":[{"stations":["https://..."]}]}
//	<- {"jsonrpc":"2.0","id":1,"result":7}
//	<- {"jsonrpc":"2.0","method":"priceNotification","params":{"subscription":7,"result":{...}}}

const (
	methodSubscribe    = "pricesSubscribe"
	methodNotification = "priceNotification"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type subscribeParams struct {
	Stations []string `json:"stations,omitempty"` // empty means every station
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcNotification struct {
	JSONRPC string              `json:"jsonrpc"`
	Method  string              `json:"method"`
	Params  *notificationParams `json:"params"`
}

type notificationParams struct {
	Subscription int64        `json:"subscription"`
	Result       quoteMessage `json:"result"`
}

type quoteMessage struct {
	Station   string  `json:"station"`   // station URL or name
	Fuel      string  `json:"fuel"`      // any form accepted by domain.ParseFuelType
	Timestamp int64   `json:"timestamp"` // epoch ms
	Price     float32 `json:"price"`
}
