package bitcoin

import "golang.org/x/crypto/ripemd160" //lint:ignore SA1019 required for Bitcoin's Hash160

// ripemd160Sum wraps the RIPEMD160 step of Hash160; split out so the one
// deprecated import is isolated to a single small file.
func ripemd160Sum(data []byte) []byte {
	h := ripemd160.New()
	h.Write(data)
	return h.Sum(nil)
}
