package electrum

import (
	"context"

	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

// HeaderSubscribeResult is the server's reply to a header subscription:
// its current tip height and header.
type HeaderSubscribeResult struct {
	Height uint64
	Header *bitcoin.Header
}

// ServerPort is the wallet core's view of an Electrum-style server: the
// six request/response calls plus a header subscription. The core never
// talks to a socket directly; it only ever calls this interface, so a
// fake (see fake.go) or a TLS client can stand behind it interchangeably.
type ServerPort interface {
	// SubscribeHeaders opens the header-tip subscription and returns the
	// server's current tip. Notifications after the initial response
	// arrive via the Notifications channel.
	SubscribeHeaders(ctx context.Context) (*HeaderSubscribeResult, error)

	GetHeaders(ctx context.Context, req GetHeadersRequest) (*GetHeadersResponse, error)

	// SubscribeScriptHash opens a per-address status subscription.
	// Status updates after the initial response arrive via Notifications.
	SubscribeScriptHash(ctx context.Context, req ScriptHashSubscribeRequest) (*ScriptHashSubscribeResponse, error)

	GetScriptHashHistory(ctx context.Context, req GetScriptHashHistoryRequest) (*GetScriptHashHistoryResponse, error)

	GetTransaction(ctx context.Context, req GetTransactionRequest) (*GetTransactionResponse, error)

	GetMerkle(ctx context.Context, req GetMerkleRequest) (*GetMerkleResponse, error)

	BroadcastTransaction(ctx context.Context, req BroadcastTransactionRequest) (*BroadcastTransactionResponse, error)

	// Notifications returns the channel on which TipNotification and
	// ScriptHashStatusNotification values arrive, in arrival order.
	Notifications() <-chan any
}
