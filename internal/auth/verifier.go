package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	"github.com/cosmos/cosmos-sdk/types/bech32"

	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

const (
	// accountHashLen is the byte length of a bech32 account hash
	accountHashLen = 20
	// compressedPubKeyLen is the byte length of a compressed secp256k1 key
	compressedPubKeyLen = 33
	// signatureLen is the byte length of an r||s signature
	signatureLen = 64
)

// AccountResolver resolves the public key registered on chain for a
// wallet address. Resolution is a network call and may fail or be slow.
type AccountResolver interface {
	ResolvePubKey(ctx context.Context, address string) ([]byte, error)
}

// LCDResolver fetches account public keys from a chain LCD endpoint.
type LCDResolver struct {
	baseURL string
	client  *http.Client
}

// NewLCDResolver creates a resolver against the given LCD base URL
func NewLCDResolver(baseURL string, timeout time.Duration) *LCDResolver {
	return &LCDResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// accountResponse is the Cosmos SDK auth account query response, reduced
// to the fields this service requires.
type accountResponse struct {
	Account struct {
		PubKey struct {
			Key string `json:"key"`
		} `json:"pub_key"`
	} `json:"account"`
}

// ResolvePubKey returns the raw compressed public key bytes for an address
func (r *LCDResolver) ResolvePubKey(ctx context.Context, address string) ([]byte, error) {
	url := fmt.Sprintf("%s/cosmos/auth/v1beta1/accounts/%s", r.baseURL, address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build account request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to query account: status %d, body: %s", resp.StatusCode, string(body))
	}

	var account accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}

	if account.Account.PubKey.Key == "" {
		return nil, fmt.Errorf("account %s has no public key on chain", address)
	}

	key, err := base64.StdEncoding.DecodeString(account.Account.PubKey.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	return key, nil
}

// Verifier checks that a claimed wallet address authorized a nonce.
type Verifier struct {
	prefix   string
	resolver AccountResolver
	log      *logger.Logger
}

// NewVerifier creates a verifier for addresses with the given bech32 prefix
func NewVerifier(prefix string, resolver AccountResolver, log *logger.Logger) *Verifier {
	return &Verifier{
		prefix:   prefix,
		resolver: resolver,
		log:      log,
	}
}

// Verify reports whether signature is a valid secp256k1 signature over the
// nonce by the key bound to walletAddress. Every failure path collapses to
// false; the distinct causes are only logged.
func (v *Verifier) Verify(ctx context.Context, walletAddress, nonce, signature string) bool {
	hrp, accountHash, err := bech32.DecodeAndConvert(walletAddress)
	if err != nil {
		v.log.Warn("Rejected login: malformed wallet address", "address", walletAddress, "error", err)
		return false
	}
	if hrp != v.prefix || len(accountHash) != accountHashLen {
		v.log.Warn("Rejected login: wrong address prefix or hash length", "address", walletAddress, "hrp", hrp)
		return false
	}

	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != signatureLen {
		v.log.Warn("Rejected login: signature must be 64 hex-encoded bytes", "address", walletAddress)
		return false
	}

	pubKeyBytes, err := v.resolver.ResolvePubKey(ctx, walletAddress)
	if err != nil {
		v.log.Warn("Rejected login: could not resolve public key", "address", walletAddress, "error", err)
		return false
	}
	if len(pubKeyBytes) != compressedPubKeyLen {
		v.log.Warn("Rejected login: unexpected public key length", "address", walletAddress, "length", len(pubKeyBytes))
		return false
	}

	// VerifySignature hashes the nonce with SHA-256 before checking the
	// r||s pair against the curve.
	pubKey := &secp256k1.PubKey{Key: pubKeyBytes}
	if !pubKey.VerifySignature([]byte(nonce), sig) {
		v.log.Warn("Rejected login: signature verification failed", "address", walletAddress)
		return false
	}

	// Bind the signature to the claimed address, not just to some valid
	// key: the resolved key's account hash (SHA-256 then RIPEMD-160) must
	// match the hash the address encodes.
	if !bytes.Equal(pubKey.Address().Bytes(), accountHash) {
		v.log.Warn("Rejected login: public key does not match address", "address", walletAddress)
		return false
	}

	return true
}
