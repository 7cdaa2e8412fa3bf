package swaprouter

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestEncodeDecodeQuoteRoundTrips(t *testing.T) {
	want := jupiterQuoteResponse{OutAmount: "123456", OtherAmountThreshold: "120000"}

	raw, err := encodeQuote(want)
	if err != nil {
		t.Fatalf("encodeQuote: %v", err)
	}

	got, err := decodeQuote(raw)
	if err != nil {
		t.Fatalf("decodeQuote: %v", err)
	}
	if got != want {
		t.Fatalf("expected round-tripped quote %+v, got %+v", want, got)
	}
}

func TestJupiterInstructionToSolana(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	account := solana.NewWallet().PublicKey()

	ix := jupiterInstruction{
		ProgramID: programID.String(),
		Accounts: []jupiterInstructionAccount{
			{Pubkey: account.String(), IsSigner: true, IsWritable: false},
		},
		Data: "AQID", // base64("\x01\x02\x03")
	}

	got, err := ix.toSolana()
	if err != nil {
		t.Fatalf("toSolana: %v", err)
	}
	if !got.ProgramID().Equals(programID) {
		t.Fatalf("expected program id %s, got %s", programID, got.ProgramID())
	}
	accounts := got.Accounts()
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	if !accounts[0].PublicKey.Equals(account) {
		t.Fatalf("expected account %s, got %s", account, accounts[0].PublicKey)
	}
	if !accounts[0].IsSigner || accounts[0].IsWritable {
		t.Fatalf("expected signer=true writable=false, got signer=%v writable=%v", accounts[0].IsSigner, accounts[0].IsWritable)
	}

	data, err := got.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	want := []byte{1, 2, 3}
	if len(data) != len(want) || data[0] != want[0] || data[1] != want[1] || data[2] != want[2] {
		t.Fatalf("expected decoded data %v, got %v", want, data)
	}
}

func TestJupiterInstructionToSolanaRejectsBadProgramID(t *testing.T) {
	ix := jupiterInstruction{ProgramID: "not-a-valid-pubkey", Data: "AQ=="}
	if _, err := ix.toSolana(); err == nil {
		t.Fatalf("expected an error decoding a malformed program id")
	}
}
