package blockchain

import "github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"

// Optimize trims the in-memory working window down to WorkingWindow
// headers behind the tip, returning the trimmed-off prefix so the
// caller can persist it as a sealed chunk.
func (bc *Blockchain) Optimize() []*bitcoin.Header {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if len(bc.bestchain) <= WorkingWindow {
		return nil
	}

	excess := len(bc.bestchain) - WorkingWindow
	prunable := make([]*bitcoin.Header, excess)
	copy(prunable, bc.bestchain[:excess])

	bc.bestchain = bc.bestchain[excess:]
	bc.firstHeight = bc.bestchain[0].Height

	return prunable
}
