package sol

import "github.com/gagliardetto/solana-go"

// WSOL is the mint address of wrapped SOL, the native-SOL SPL representation
// used as the collateral mint for most atomic-LP intents.
var WSOL = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// ComputeBudgetProgramID is the well-known address of the compute-budget
// native program. Every composed transaction prepends its two instructions.
var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// TokenProgramID is the SPL token program used for transfers, sync-native and
// account closes across every venue adapter.
var TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
