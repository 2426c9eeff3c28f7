package walletfsm

import (
	"fmt"
	"math/big"

	"github.com/Klingon-tech/klingnet-wallet/internal/blockchain"
	"github.com/Klingon-tech/klingnet-wallet/internal/chainparams"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
)

// maxHeadersLoad bounds one ReadPersistentData-time GetHeaders call; it
// only needs to exceed the tallest chain anyone will ever persist to a
// single wallet instance.
const maxHeadersLoad = 50_000_000

// loadBlockchain rebuilds an in-memory blockchain.Blockchain from
// whatever headers storage.WalletDB has persisted, splicing them in
// under the network's latest checkpoint the same way a fresh SYNCING
// chunk would be. A checkpoint's recorded anchor hash is the prevHash
// its own first follow-on header must chain onto; for the bootstrap
// checkpoint this is the genesis block's all-zero prevHash, so the
// checkpoint height itself is where persisted headers begin.
func loadBlockchain(db storage.WalletDB, params *chainparams.Params) (*blockchain.Blockchain, error) {
	bc := blockchain.New(params)

	checkpoint, ok := params.LatestCheckpoint()
	if !ok {
		return bc, nil
	}

	headers, err := db.GetHeaders(checkpoint.Height, maxHeadersLoad)
	if err != nil {
		return nil, fmt.Errorf("walletfsm: load persisted headers: %w", err)
	}
	if len(headers) == 0 {
		return bc, nil
	}

	if err := bc.AddHeadersChunk(checkpoint.Height, headers, checkpoint.Hash, checkpoint.Bits, big.NewInt(0)); err != nil {
		return nil, fmt.Errorf("walletfsm: splice persisted headers onto checkpoint: %w", err)
	}
	return bc, nil
}
