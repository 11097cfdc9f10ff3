// Package rpc is the on-chain wallet of the terminal: it reads balances,
// probes chain ids and signs plain value transfers with a locally loaded key.
package rpc

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"agentterm/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

var (
	ErrNoSigner      = errors.New("no signing key configured")
	ErrNotConnected  = errors.New("wallet not connected")
	ErrChainMismatch = errors.New("chain id mismatch")
	ErrNoRPC         = errors.New("no rpc endpoint configured")
)

// CallTimeout bounds a single RPC round when the caller's context has no
// deadline.
var CallTimeout = 10 * time.Second

// TransferGas is the gas limit of a plain value transfer.
const TransferGas = 21000

// Wallet is a single identity on one chain, backed by a list of RPC
// endpoints tried in order.
type Wallet struct {
	rpcURLs []string
	chainID int64
	key     *ecdsa.PrivateKey
	address common.Address

	mu        sync.Mutex
	connected bool
}

// NewWallet builds a wallet. With a private key the address is derived
// from it and transfers can be signed; otherwise address is used as a
// read-only identity.
func NewWallet(rpcURLs []string, chainID int64, privateKey, address string) (*Wallet, error) {
	w := &Wallet{rpcURLs: rpcURLs, chainID: chainID}
	if privateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		w.key = key
		w.address = crypto.PubkeyToAddress(key.PublicKey)
		if address != "" && !strings.EqualFold(address, w.address.Hex()) {
			return nil, fmt.Errorf("wallet address %s does not match private key (%s)", address, w.address.Hex())
		}
		return w, nil
	}
	if address != "" {
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid wallet address %q", address)
		}
		w.address = common.HexToAddress(address)
	}
	return w, nil
}

// Address is the checksummed wallet address, or "" when none is known.
func (w *Wallet) Address() string {
	if w.address == (common.Address{}) {
		return ""
	}
	return w.address.Hex()
}

// CanSign reports whether a private key is loaded.
func (w *Wallet) CanSign() bool { return w.key != nil }

// Connected reports whether Connect succeeded and Disconnect was not called.
func (w *Wallet) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// Connect checks that an endpoint answers with the configured chain id and
// returns the wallet address.
func (w *Wallet) Connect(ctx context.Context) (string, error) {
	if w.Address() == "" {
		return "", ErrNoSigner
	}
	err := w.withClient(ctx, func(ctx context.Context, client *ethclient.Client) error {
		return w.checkChain(ctx, client)
	})
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()
	return w.Address(), nil
}

// Disconnect forgets the connection; the next Connect checks again.
func (w *Wallet) Disconnect() {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
}

// FetchBalance returns the native balance of addr in whole units.
func (w *Wallet) FetchBalance(ctx context.Context, addr string) (decimal.Decimal, error) {
	if !common.IsHexAddress(addr) {
		return decimal.Zero, fmt.Errorf("invalid address %q", addr)
	}
	var balance *big.Int
	err := w.withClient(ctx, func(ctx context.Context, client *ethclient.Client) error {
		b, err := client.BalanceAt(ctx, common.HexToAddress(addr), nil)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch balance: %w", err)
	}
	return decimal.NewFromBigInt(balance, -18), nil
}

// SendValue signs and broadcasts a legacy transfer of amount native units
// to the given address and returns the transaction hash.
func (w *Wallet) SendValue(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if w.key == nil {
		return "", ErrNoSigner
	}
	if !w.Connected() {
		return "", ErrNotConnected
	}
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid recipient %q", to)
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("invalid amount %s", amount)
	}
	value := amount.Shift(18).BigInt()

	var hash string
	err := w.withClient(ctx, func(ctx context.Context, client *ethclient.Client) error {
		chainID, err := client.ChainID(ctx)
		if err != nil {
			return err
		}
		if w.chainID != 0 && chainID.Cmp(big.NewInt(w.chainID)) != 0 {
			return fmt.Errorf("%w: rpc reports %s, config has %d", ErrChainMismatch, chainID, w.chainID)
		}
		nonce, err := client.PendingNonceAt(ctx, w.address)
		if err != nil {
			return err
		}
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}
		tx := types.NewTransaction(nonce, common.HexToAddress(to), value, TransferGas, gasPrice, nil)
		signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
		if err != nil {
			return err
		}
		if err := client.SendTransaction(ctx, signed); err != nil {
			return err
		}
		hash = signed.Hash().Hex()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return hash, nil
}

func (w *Wallet) checkChain(ctx context.Context, client *ethclient.Client) error {
	id, err := client.ChainID(ctx)
	if err != nil {
		return err
	}
	if w.chainID != 0 && id.Cmp(big.NewInt(w.chainID)) != 0 {
		return fmt.Errorf("%w: rpc reports %s, config has %d", ErrChainMismatch, id, w.chainID)
	}
	return nil
}

// withClient runs fn against each endpoint until one succeeds. A chain
// mismatch is returned immediately.
func (w *Wallet) withClient(ctx context.Context, fn func(context.Context, *ethclient.Client) error) error {
	if len(w.rpcURLs) == 0 {
		return ErrNoRPC
	}
	var lastErr error
	for _, rpcURL := range w.rpcURLs {
		callCtx, cancel := withDefaultTimeout(ctx)
		client, err := ethclient.DialContext(callCtx, rpcURL)
		if err != nil {
			cancel()
			lastErr = err
			continue
		}
		err = fn(callCtx, client)
		client.Close()
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrChainMismatch) || ctx.Err() != nil {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, CallTimeout)
}

// FetchChainID asks a single endpoint for its chain id.
func FetchChainID(ctx context.Context, rpcURL string) (*big.Int, error) {
	callCtx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	client, err := ethclient.DialContext(callCtx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	defer client.Close()

	id, err := client.ChainID(callCtx)
	if err != nil {
		return nil, fmt.Errorf("chain id from %s: %w", rpcURL, err)
	}
	return id, nil
}

// ShortReason reduces a signer or node error to a one-line reason suitable
// for the conversation.
func ShortReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSigner):
		return "no signing key configured"
	case errors.Is(err, ErrNotConnected):
		return "wallet not connected"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	}
	for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(inner) {
		err = inner
	}
	msg, _, _ := strings.Cut(err.Error(), ": ")
	return utils.TruncateString(strings.TrimSpace(msg), 80)
}
