package solana

// AccountInfoOpts defines optional parameters for getAccountInfo.
type AccountInfoOpts struct {
	Commitment string // processed, confirmed or finalized; empty uses the node default
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
	Slot       uint64 `json:"slot"` // context slot of the response
}
