package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

type fakeNode struct {
	chainID  string
	balance  string
	rejectTx string

	mu  sync.Mutex
	raw []string
}

func (f *fakeNode) handler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params []interface{}   `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "eth_chainId":
		resp["result"] = f.chainID
	case "eth_getBalance":
		resp["result"] = f.balance
	case "eth_getTransactionCount":
		resp["result"] = "0x7"
	case "eth_gasPrice":
		resp["result"] = "0x3b9aca00"
	case "eth_sendRawTransaction":
		if f.rejectTx != "" {
			resp["error"] = map[string]interface{}{"code": -32000, "message": f.rejectTx}
			break
		}
		f.mu.Lock()
		f.raw = append(f.raw, req.Params[0].(string))
		f.mu.Unlock()
		resp["result"] = "0x" + strings.Repeat("ab", 32)
	default:
		resp["result"] = "0x0"
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newFakeNode(t *testing.T, f *fakeNode) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(server.Close)
	return server.URL
}

func deadURL(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()
	return url
}

func TestNewWallet(t *testing.T) {
	key, _ := crypto.GenerateKey()
	hexKey := "0x" + hex.EncodeToString(crypto.FromECDSA(key))
	want := crypto.PubkeyToAddress(key.PublicKey).Hex()

	w, err := NewWallet(nil, 1, hexKey, "")
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}
	if w.Address() != want || !w.CanSign() {
		t.Errorf("expected signer %s, got %s (can sign %v)", want, w.Address(), w.CanSign())
	}

	if _, err := NewWallet(nil, 1, hexKey, "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"); err == nil {
		t.Error("expected mismatch between key and address to fail")
	}
	if _, err := NewWallet(nil, 1, "nothex", ""); err == nil {
		t.Error("expected invalid key to fail")
	}

	ro, err := NewWallet(nil, 1, "", "0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if err != nil {
		t.Fatalf("read-only wallet: %v", err)
	}
	if ro.CanSign() || ro.Address() != "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B" {
		t.Errorf("unexpected read-only wallet %s", ro.Address())
	}
}

func TestConnect(t *testing.T) {
	node := &fakeNode{chainID: "0x14a34"} // 84532
	url := newFakeNode(t, node)

	w, _ := NewWallet([]string{deadURL(t), url}, 84532, "", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	addr, err := w.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if addr != "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B" || !w.Connected() {
		t.Errorf("unexpected connect result %s %v", addr, w.Connected())
	}

	w.Disconnect()
	if w.Connected() {
		t.Error("expected disconnected wallet")
	}
}

func TestConnectChainMismatch(t *testing.T) {
	url := newFakeNode(t, &fakeNode{chainID: "0x1"})
	w, _ := NewWallet([]string{url}, 84532, "", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")

	_, err := w.Connect(context.Background())
	if !errors.Is(err, ErrChainMismatch) {
		t.Fatalf("expected chain mismatch, got %v", err)
	}
	if w.Connected() {
		t.Error("wallet must stay disconnected")
	}
}

func TestConnectWithoutIdentity(t *testing.T) {
	w, _ := NewWallet([]string{"http://unused"}, 1, "", "")
	if _, err := w.Connect(context.Background()); !errors.Is(err, ErrNoSigner) {
		t.Fatalf("expected ErrNoSigner, got %v", err)
	}
}

func TestFetchBalance(t *testing.T) {
	url := newFakeNode(t, &fakeNode{chainID: "0x1", balance: "0x22B1C8C1227A0000"})
	w, _ := NewWallet([]string{deadURL(t), url}, 1, "", "")

	bal, err := w.FetchBalance(context.Background(), "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	if !bal.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected 2.5, got %s", bal)
	}

	if _, err := w.FetchBalance(context.Background(), "bogus"); err == nil {
		t.Error("expected invalid address error")
	}
}

func TestFetchBalanceNoRPC(t *testing.T) {
	w, _ := NewWallet(nil, 1, "", "")
	_, err := w.FetchBalance(context.Background(), "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	if !errors.Is(err, ErrNoRPC) {
		t.Fatalf("expected ErrNoRPC, got %v", err)
	}
}

func TestSendValue(t *testing.T) {
	node := &fakeNode{chainID: "0x14a34"}
	url := newFakeNode(t, node)

	key, _ := crypto.GenerateKey()
	w, _ := NewWallet([]string{url}, 84532, hex.EncodeToString(crypto.FromECDSA(key)), "")

	to := "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	if _, err := w.SendValue(context.Background(), to, decimal.RequireFromString("0.01")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected before connect, got %v", err)
	}
	if _, err := w.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	hash, err := w.SendValue(context.Background(), to, decimal.RequireFromString("0.01"))
	if err != nil {
		t.Fatalf("SendValue: %v", err)
	}
	if len(node.raw) != 1 {
		t.Fatalf("expected one raw transaction, got %d", len(node.raw))
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(hexutil.MustDecode(node.raw[0])); err != nil {
		t.Fatalf("decode raw tx: %v", err)
	}
	if tx.Hash().Hex() != hash {
		t.Errorf("expected hash %s, got %s", tx.Hash().Hex(), hash)
	}
	if *tx.To() != common.HexToAddress(to) {
		t.Errorf("unexpected recipient %s", tx.To().Hex())
	}
	if tx.Value().Cmp(big.NewInt(1e16)) != 0 {
		t.Errorf("expected 1e16 wei, got %s", tx.Value())
	}
	if tx.Nonce() != 7 || tx.Gas() != TransferGas || tx.GasPrice().Int64() != 1e9 {
		t.Errorf("unexpected tx fields nonce=%d gas=%d price=%s", tx.Nonce(), tx.Gas(), tx.GasPrice())
	}
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(84532)), tx)
	if err != nil || from != crypto.PubkeyToAddress(key.PublicKey) {
		t.Errorf("unexpected sender %s (%v)", from.Hex(), err)
	}
}

func TestSendValueRejected(t *testing.T) {
	node := &fakeNode{chainID: "0x1", rejectTx: "insufficient funds for gas * price + value: have 0 want 10"}
	url := newFakeNode(t, node)

	key, _ := crypto.GenerateKey()
	w, _ := NewWallet([]string{url}, 1, hex.EncodeToString(crypto.FromECDSA(key)), "")
	if _, err := w.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	_, err := w.SendValue(context.Background(), "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", decimal.RequireFromString("1"))
	if err == nil {
		t.Fatal("expected rejection")
	}
	if got := ShortReason(err); got != "insufficient funds for gas * price + value" {
		t.Errorf("unexpected short reason %q", got)
	}
}

func TestSendValueReadOnly(t *testing.T) {
	w, _ := NewWallet([]string{"http://unused"}, 1, "", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	_, err := w.SendValue(context.Background(), "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", decimal.NewFromInt(1))
	if !errors.Is(err, ErrNoSigner) {
		t.Fatalf("expected ErrNoSigner, got %v", err)
	}
}

func TestFetchChainID(t *testing.T) {
	url := newFakeNode(t, &fakeNode{chainID: "0x2105"})
	id, err := FetchChainID(context.Background(), url)
	if err != nil {
		t.Fatalf("FetchChainID: %v", err)
	}
	if id.Int64() != 8453 {
		t.Errorf("expected 8453, got %s", id)
	}

	if _, err := FetchChainID(context.Background(), deadURL(t)); err == nil {
		t.Error("expected error for unreachable rpc")
	}
}

func TestShortReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNoSigner, "no signing key configured"},
		{fmt.Errorf("send transaction: %w", ErrNotConnected), "wallet not connected"},
		{fmt.Errorf("send transaction: %w", context.DeadlineExceeded), "request timed out"},
		{fmt.Errorf("send transaction: %w", errors.New("nonce too low: next nonce 5")), "nonce too low"},
		{errors.New(strings.Repeat("x", 120)), strings.Repeat("x", 77) + "..."},
	}
	for _, tc := range cases {
		if got := ShortReason(tc.err); got != tc.want {
			t.Errorf("ShortReason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
