package blockchain

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

// ErrForkBelowWindow is returned when a reorg's fork point falls below
// the in-memory working window and cannot be resolved without access to
// already-pruned, persisted chunks.
var ErrForkBelowWindow = fmt.Errorf("blockchain: fork point predates the in-memory working window")

// reorgToLocked replaces the active chain's tail with the branch ending
// at newTip, which the caller has already confirmed carries more
// cumulative work.
func (bc *Blockchain) reorgToLocked(newTip *bitcoin.Header) error {
	branch, forkHeight, err := bc.collectBranchLocked(newTip)
	if err != nil {
		return err
	}

	if forkHeight < bc.firstHeight {
		return ErrForkBelowWindow
	}

	keep := forkHeight - bc.firstHeight + 1
	detached := bc.bestchain[keep:]
	bc.bestchain = append(bc.bestchain[:keep:keep], branch...)

	bc.logger.Info().
		Uint64("fork_height", forkHeight).
		Int("detached", len(detached)).
		Int("adopted", len(branch)).
		Str("new_tip", newTip.Hash().String()).
		Msg("reorg: adopted heavier branch")

	return nil
}

// collectBranchLocked walks newTip's PrevHash chain back until it
// reaches a header present in the current bestchain, returning the
// branch in ascending height order and the height of the common
// ancestor.
func (bc *Blockchain) collectBranchLocked(newTip *bitcoin.Header) ([]*bitcoin.Header, uint64, error) {
	var branch []*bitcoin.Header
	cur := newTip
	for {
		branch = append(branch, cur)
		if onBest, ok := bc.headerAtLocked(cur.Height - 1); ok && cur.Height > 0 && onBest.Hash() == cur.PrevHash {
			reverse(branch)
			return branch, onBest.Height, nil
		}
		if cur.Height == 0 {
			return nil, 0, fmt.Errorf("blockchain: branch walk reached height 0 without finding a common ancestor")
		}
		parent, ok := bc.byHash[cur.PrevHash]
		if !ok {
			return nil, 0, fmt.Errorf("blockchain: branch walk: missing ancestor %s", cur.PrevHash)
		}
		cur = parent
	}
}

func reverse(h []*bitcoin.Header) {
	for i, j := 0, len(h)-1; i < j; i, j = i+1, j-1 {
		h[i], h[j] = h[j], h[i]
	}
}
