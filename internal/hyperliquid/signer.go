// signer.go produces the EIP-712 "agent" signature Hyperliquid requires on
// every Exchange action. The teacher's Auth type signs Polymarket's
// ClobAuth typed-data message and a separate HMAC for L2 REST calls;
// Hyperliquid instead signs a single typed-data message ("Agent") whose
// "connectionId" field is the hash of the msgpack-encoded action. This
// keeps the teacher's go-ethereum machinery (crypto.Sign, apitypes typed
// data, V normalized to 27/28) and swaps the message construction for
// Hyperliquid's own, using vmihailenco/msgpack/v5 for the action encoding
// (grounded on other_examples/dwdwow-hl-go, which tags every wire struct
// for msgpack for exactly this purpose).
package hyperliquid

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/0xtitan6/quantis/internal/errs"
)

// Signer is the opaque capability the connector treats as exchangeable:
// anything that can sign an action for a given nonce. The connector holds
// one only when configured with private key material; its absence makes
// every write path fail with ErrSignerRequired.
type Signer interface {
	Address() common.Address
	SignAction(action interface{}, nonce int64, vaultAddress *string) (SignatureWire, error)
}

// EOASigner signs with a raw ECDSA private key, the direct analogue of the
// teacher's Auth.privateKey path (no proxy/funder indirection — Hyperliquid
// addresses the signing wallet directly rather than through a funder
// wallet, so that half of the teacher's Auth has no home here).
type EOASigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewEOASigner builds a signer from a hex-encoded private key (with or
// without a "0x" prefix), matching the teacher's NewAuth key parsing.
func NewEOASigner(privateKeyHex string, chainID int64) (*EOASigner, error) {
	keyHex := privateKeyHex
	if len(keyHex) >= 2 && keyHex[:2] == "0x" {
		keyHex = keyHex[2:]
	}

	pk, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: parse private key: %w", err)
	}

	return &EOASigner{
		privateKey: pk,
		address:    crypto.PubkeyToAddress(pk.PublicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

func (s *EOASigner) Address() common.Address { return s.address }

// actionHash msgpack-encodes the action, appends the nonce and an optional
// vault address, and sha256-hashes the result — Hyperliquid's documented
// "connection id" construction.
func actionHash(action interface{}, nonce int64, vaultAddress *string) ([]byte, error) {
	actionBytes, err := msgpack.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: msgpack encode action: %w", err)
	}

	buf := actionBytes
	nonceBytes := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		nonceBytes[i] = byte(nonce & 0xff)
		nonce >>= 8
	}
	buf = append(buf, nonceBytes...)

	if vaultAddress == nil {
		buf = append(buf, 0x00)
	} else {
		buf = append(buf, 0x01)
		buf = append(buf, common.HexToAddress(*vaultAddress).Bytes()...)
	}

	sum := sha256.Sum256(buf)
	return sum[:], nil
}

// SignAction signs the Hyperliquid "Agent" typed-data message whose
// "connectionId" is actionHash's output, reusing the teacher's
// SignTypedData/crypto.Sign/V-normalization idiom unchanged.
func (s *EOASigner) SignAction(action interface{}, nonce int64, vaultAddress *string) (SignatureWire, error) {
	hash, err := actionHash(action, nonce, vaultAddress)
	if err != nil {
		return SignatureWire{}, err
	}

	domain := apitypes.TypedDataDomain{
		Name:    "Exchange",
		Version: "1",
		ChainId: (*ethmath.HexOrDecimal256)(new(big.Int).Set(s.chainID)),
		VerifyingContract: "0x0000000000000000000000000000000000000000",
	}
	types := apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		"Agent": {
			{Name: "source", Type: "string"},
			{Name: "connectionId", Type: "bytes32"},
		},
	}
	message := apitypes.TypedDataMessage{
		"source":       "a",
		"connectionId": hash,
	}

	sig, err := signTypedData(s.privateKey, &domain, types, message, "Agent")
	if err != nil {
		return SignatureWire{}, fmt.Errorf("hyperliquid: sign action: %w", err)
	}

	return SignatureWire{
		R: "0x" + common.Bytes2Hex(sig[:32]),
		S: "0x" + common.Bytes2Hex(sig[32:64]),
		V: int(sig[64]),
	}, nil
}

// signTypedData is the teacher's Auth.SignTypedData, unchanged: hash the
// typed data, sign with the raw key, normalize V to 27/28.
func signTypedData(
	privateKey *ecdsa.PrivateKey,
	domain *apitypes.TypedDataDomain,
	typesDef apitypes.Types,
	message apitypes.TypedDataMessage,
	primaryType string,
) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types:       typesDef,
		PrimaryType: primaryType,
		Domain:      *domain,
		Message:     message,
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("typed data hash: %w", err)
	}

	sig, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign typed data: %w", err)
	}

	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// NoSigner is installed when the config has no private key; every write
// path using it fails fast with ErrSignerRequired instead of nil-pointer
// panicking.
type NoSigner struct{}

func (NoSigner) Address() common.Address { return common.Address{} }

func (NoSigner) SignAction(interface{}, int64, *string) (SignatureWire, error) {
	return SignatureWire{}, errs.ErrSignerRequired
}
