package payment

// SendMultiPart describes the outgoing payment a trampoline relay asks
// the external multipart sender FSM to attempt.
type SendMultiPart struct {
	Tag             FullPaymentTag
	AmountMsat      uint64
	FinalCltvExpiry uint32
	MaxCltvDelta    uint32
	ExcludeChannels []ChannelID
	NextNode        []byte // next-hop node identity, opaque here
}

// SenderData is what the outgoing sender reports back once it has either
// revealed a preimage or reached a final failure for a send.
type SenderData struct {
	Preimage       *[32]byte
	UsedFeeMsat    uint64
	InFlightParts  int
	RemoteFailure  FailureMessage
	IsNoRouteFound bool
}

// OutgoingSenderPort is the narrow interface the trampoline relayer
// calls outward through to start a multipart send; the sender itself
// lives outside Core B and reports back via InFlightPayments.Out plus
// SenderData, not through this interface.
type OutgoingSenderPort interface {
	SendMultiPart(req SendMultiPart) error
}
