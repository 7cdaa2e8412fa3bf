package swaprouter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/venue"
)

// encodeQuote/decodeQuote round-trip the quote response through Quote.Raw,
// which the Router interface defines as an opaque payload Swap hands back
// to whatever service minted it; Jupiter's is the full quote object.
func encodeQuote(q jupiterQuoteResponse) ([]byte, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "marshal jupiter quote", err)
	}
	return raw, nil
}

func decodeQuote(raw []byte) (jupiterQuoteResponse, error) {
	var q jupiterQuoteResponse
	if err := json.Unmarshal(raw, &q); err != nil {
		return jupiterQuoteResponse{}, errs.Wrap(errs.Internal, "unmarshal jupiter quote", err)
	}
	return q, nil
}

const (
	jupiterQuoteURL = "https://quote-api.jup.ag/v6/quote?inputMint=%s&outputMint=%s&amount=%s&slippageBps=%d"
	jupiterSwapIxURL = "https://quote-api.jup.ag/v6/swap-instructions"
)

type jupiterQuoteResponse struct {
	OutAmount          string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
}

type jupiterSwapInstructionsRequest struct {
	QuoteResponse jupiterQuoteResponse `json:"quoteResponse"`
	UserPublicKey string               `json:"userPublicKey"`
}

type jupiterInstructionAccount struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type jupiterInstruction struct {
	ProgramID string                      `json:"programId"`
	Accounts  []jupiterInstructionAccount `json:"accounts"`
	Data      string                      `json:"data"` // base64
}

type jupiterSwapInstructionsResponse struct {
	SwapInstruction jupiterInstruction `json:"swapInstruction"`
}

// rawInstruction adapts a JSON-decoded program/accounts/data triple (any
// routing service's swap-instructions response) into solana.Instruction,
// the same wrap-raw-bytes shape as internal/budget's computeBudgetInstruction,
// generalized from a fixed native program to an arbitrary one.
type rawInstruction struct {
	programID solana.PublicKey
	accounts  []*solana.AccountMeta
	data      []byte
}

func (i *rawInstruction) ProgramID() solana.PublicKey     { return i.programID }
func (i *rawInstruction) Accounts() []*solana.AccountMeta { return i.accounts }
func (i *rawInstruction) Data() ([]byte, error)           { return i.data, nil }

func (ix jupiterInstruction) toSolana() (solana.Instruction, error) {
	programID, err := solana.PublicKeyFromBase58(ix.ProgramID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "decode jupiter instruction program id", err)
	}
	data, err := base64.StdEncoding.DecodeString(ix.Data)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "decode jupiter instruction data", err)
	}
	accounts := make([]*solana.AccountMeta, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		pub, err := solana.PublicKeyFromBase58(a.Pubkey)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "decode jupiter account", err)
		}
		accounts = append(accounts, &solana.AccountMeta{PublicKey: pub, IsSigner: a.IsSigner, IsWritable: a.IsWritable})
	}
	return &rawInstruction{programID: programID, accounts: accounts, data: data}, nil
}

// JupiterRouter is the production swaprouter.Router, grounded on
// internal/oracle/spot.go's Jupiter REST habit, generalized from price
// lookups to quote+swap-instructions.
type JupiterRouter struct{}

func NewJupiterRouter() *JupiterRouter {
	return &JupiterRouter{}
}

func (r *JupiterRouter) Quote(ctx context.Context, inMint, outMint solana.PublicKey, amount cosmath.Int, slippageBps int) (Quote, error) {
	var resp jupiterQuoteResponse
	url := fmt.Sprintf(jupiterQuoteURL, inMint.String(), outMint.String(), amount.String(), slippageBps)
	if err := venue.FetchJSON(ctx, url, &resp); err != nil {
		return Quote{}, err
	}

	outAmount, ok := cosmath.NewIntFromString(resp.OutAmount)
	if !ok {
		return Quote{}, errs.New(errs.Internal, "jupiter quote returned a malformed outAmount")
	}
	worstCase, ok := cosmath.NewIntFromString(resp.OtherAmountThreshold)
	if !ok {
		return Quote{}, errs.New(errs.Internal, "jupiter quote returned a malformed otherAmountThreshold")
	}

	raw, err := encodeQuote(resp)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		InMint:       inMint,
		OutMint:      outMint,
		InAmount:     amount,
		OutAmount:    outAmount,
		WorstCaseOut: worstCase,
		SlippageBps:  slippageBps,
		Raw:          raw,
	}, nil
}

func (r *JupiterRouter) Swap(ctx context.Context, quote Quote, owner solana.PublicKey) ([]solana.Instruction, error) {
	rawQuote, err := decodeQuote(quote.Raw)
	if err != nil {
		return nil, err
	}

	var resp jupiterSwapInstructionsResponse
	req := jupiterSwapInstructionsRequest{QuoteResponse: rawQuote, UserPublicKey: owner.String()}
	if err := venue.PostJSON(ctx, jupiterSwapIxURL, req, &resp); err != nil {
		return nil, err
	}

	ix, err := resp.SwapInstruction.toSolana()
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{ix}, nil
}
