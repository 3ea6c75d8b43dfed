package types

const (
	FlagHome       = "home"
	FlagChainID    = "chain-id"
	FlagOverwrite  = "overwrite"
	FlagAdmin      = "admin"
	FlagSupply     = "supply"
	FlagGenesisDAO = "genesis-dao"
)
