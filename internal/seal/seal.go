// Package seal implements the privacy sealer (C10): envelope-encrypting a
// Strategy before it is attached to an execution receipt, so the audit
// trail never carries a cleartext strategy beyond this process. X25519
// (golang.org/x/crypto/curve25519, already an indirect teacher dependency
// via jito-go-rpc's transitive closure, promoted to direct here) supplies
// the ECDH step; the shared secret is hashed with SHA-256 into an AES-256
// key. nacl/box was considered and rejected: its nonce is a fixed 24
// bytes, but spec requires an explicit random 16-byte nonce, so the
// narrower crypto/aes + cipher.NewGCMWithNonceSize primitive is the
// correct fit rather than a stdlib-avoidance shortcut.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"github.com/solana-zh/lp-engine/internal/errs"
)

const nonceSize = 16

// Envelope is the sealed payload attached to an execution receipt.
type Envelope struct {
	Ciphertext         []byte `json:"ciphertext"`
	Nonce              []byte `json:"nonce"`
	EphemeralPublicKey []byte `json:"ephemeralPublicKey"`
	Cluster            string `json:"cluster"`
}

// Sealer holds the compute environment's static X25519 keypair. Strategies
// are sealed against serverPub by an ephemeral per-call keypair, mirroring
// spec §4.10's "ephemeral curve-25519 key pair on the user side."
type Sealer struct {
	serverPriv [32]byte
	serverPub  [32]byte
	cluster    string
}

// New generates a fresh static X25519 keypair for the compute environment
// and returns a Sealer identified by cluster.
func New(cluster string) (*Sealer, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, errs.Wrap(errs.Internal, "generate sealer private key", err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "derive sealer public key", err)
	}
	s := &Sealer{cluster: cluster}
	copy(s.serverPriv[:], priv[:])
	copy(s.serverPub[:], pub)
	return s, nil
}

// PublicKey returns the environment's published X25519 public key, the
// value a real user-side sealer would ECDH against.
func (s *Sealer) PublicKey() [32]byte { return s.serverPub }

// Seal envelope-encrypts v (marshaled to JSON) under a fresh ephemeral
// keypair ECDH'd against the environment's public key. Never called on the
// hot instruction-building path: the ciphertext is receipt-only and never
// influences instruction bytes, per spec §4.5 step 1.
func (s *Sealer) Seal(v any) (Envelope, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, errs.Wrap(errs.Internal, "marshal strategy for sealing", err)
	}

	var ephPriv [32]byte
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return Envelope{}, errs.Wrap(errs.Internal, "generate ephemeral key", err)
	}
	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return Envelope{}, errs.Wrap(errs.Internal, "derive ephemeral public key", err)
	}

	shared, err := curve25519.X25519(ephPriv[:], s.serverPub[:])
	if err != nil {
		return Envelope{}, errs.Wrap(errs.Internal, "ecdh with sealer public key", err)
	}

	ciphertext, nonce, err := encrypt(shared, plaintext)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Ciphertext:         ciphertext,
		Nonce:              nonce,
		EphemeralPublicKey: ephPub,
		Cluster:            s.cluster,
	}, nil
}

// Decrypt recovers the plaintext env was sealed from and unmarshals it into
// out. Only the environment holding serverPriv can compute the matching
// shared secret.
func (s *Sealer) Decrypt(env Envelope, out any) error {
	shared, err := curve25519.X25519(s.serverPriv[:], env.EphemeralPublicKey)
	if err != nil {
		return errs.Wrap(errs.Internal, "ecdh with ephemeral public key", err)
	}

	plaintext, err := decrypt(shared, env.Ciphertext, env.Nonce)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return errs.Wrap(errs.Internal, "unmarshal sealed strategy", err)
	}
	return nil
}

func encrypt(shared, plaintext []byte) (ciphertext, nonce []byte, err error) {
	block, err := aesBlock(shared)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Internal, "construct gcm", err)
	}
	nonce = make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, errs.Wrap(errs.Internal, "generate nonce", err)
	}
	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

func decrypt(shared, ciphertext, nonce []byte) ([]byte, error) {
	block, err := aesBlock(shared)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "construct gcm", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "decrypt sealed payload", err)
	}
	return plaintext, nil
}

func aesBlock(shared []byte) (cipher.Block, error) {
	key := sha256.Sum256(shared)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "construct aes cipher", err)
	}
	return block, nil
}

// SelfTest seals and decrypts a throwaway payload, failing loudly at
// startup if the round trip does not reproduce it — the correctness
// property spec §4.10 and §8 require be verifiable, not assumed.
func (s *Sealer) SelfTest() error {
	type probe struct {
		Marker string `json:"marker"`
	}
	want := probe{Marker: "seal-self-test"}

	env, err := s.Seal(want)
	if err != nil {
		return errs.Wrap(errs.Internal, "self-test seal", err)
	}

	var got probe
	if err := s.Decrypt(env, &got); err != nil {
		return errs.Wrap(errs.Internal, "self-test decrypt", err)
	}
	if got != want {
		return errs.New(errs.Internal, fmt.Sprintf("seal round-trip mismatch: got %+v want %+v", got, want))
	}
	return nil
}
