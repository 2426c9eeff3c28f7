package walletfsm

import "github.com/Klingon-tech/klingnet-wallet/internal/keyring"

// isReady implements the wallet-ready predicate: every current key's
// status is known and non-transitional, and neither pending request set
// is outstanding.
//
// The empty-status count check below is carried over unchanged: it
// compares the number of never-used keys against swipeRange*2 rather
// than against the account and change chains' lookahead individually.
// On a freshly-derived wallet (swipeRange keys per chain, all unused)
// this happens to equal the true count, so the distinction is invisible
// until a chain's lookahead grows unevenly — left as-is rather than
// "corrected" against observed behavior.
func (f *FSM) isReady() bool {
	if len(f.state.pendingHistoryRequests) > 0 || len(f.state.pendingTransactionRequests) > 0 {
		return false
	}

	emptyStatuses := 0
	for _, chain := range []keyring.Chain{keyring.Receive, keyring.Change} {
		for _, k := range f.keys.Keys(chain) {
			status, known := f.state.status[k.ScriptHash()]
			if !known {
				return false
			}
			if status == "" {
				emptyStatuses++
			}
		}
	}
	return emptyStatuses >= f.swipeRange*2
}
