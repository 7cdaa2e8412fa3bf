package raydium

import "github.com/gagliardetto/solana-go"

// RAYDIUM_CLMM_PROGRAM_ID is the mainnet Raydium Concentrated Liquidity
// (CLMM) program address.
var RAYDIUM_CLMM_PROGRAM_ID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaK8oh1BOERew")

// RAYDIUM_AMM_PROGRAM_ID is the mainnet legacy Raydium AMM v4 program
// address, used only to classify (and reject) an address as belonging to
// Raydium's non-concentrated product line.
var RAYDIUM_AMM_PROGRAM_ID = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

// RAYDIUM_CPMM_PROGRAM_ID is the mainnet Raydium CPMM (constant-product)
// program address, used only to classify (and reject) an address as
// belonging to Raydium's non-concentrated product line.
var RAYDIUM_CPMM_PROGRAM_ID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")

// TICK_ARRAY_SIZE is the number of ticks packed into one CLMM tick-array
// account on-chain.
const TICK_ARRAY_SIZE = 60
