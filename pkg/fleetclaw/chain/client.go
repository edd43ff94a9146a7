// Package chain wraps an EVM-compatible RPC endpoint for the two on-chain
// operations the copilot needs: native balance lookup and signed transfer.
// Everything protocol-shaped stays behind this package; the copilot core
// only sees strings and errors.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// transferGasLimit covers a plain native-token transfer.
const transferGasLimit = 21000

// weiPerEther is 10^18.
var weiPerEther = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// Client talks to one EVM chain.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
}

// Dial connects to the RPC endpoint and caches the chain id for signing.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return nil, errors.New("chain: no RPC URL configured")
	}
	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	eth := ethclient.NewClient(rpcClient)
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: fetch chain id: %w", err)
	}
	return &Client{eth: eth, chainID: chainID}, nil
}

// Balance returns the native balance of an address, formatted in ether.
func (c *Client) Balance(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("chain: invalid address %q", address)
	}
	wei, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return "", fmt.Errorf("chain: balance of %s: %w", address, err)
	}
	return WeiToEther(wei), nil
}

// Transfer sends a signed native-token transfer and returns the tx hash.
// The private key never leaves this call frame.
func (c *Client) Transfer(ctx context.Context, privateKeyHex, to string, amountWei *big.Int) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("chain: invalid recipient %q", to)
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return "", errors.New("chain: transfer amount must be positive")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("chain: parse private key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("chain: nonce for %s: %w", from.Hex(), err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(to), amountWei, transferGasLimit, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("chain: sign tx: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: send tx: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// WeiToEther formats a wei amount as a decimal ether string.
func WeiToEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther)
	return strings.TrimRight(strings.TrimRight(f.Text('f', 18), "0"), ".")
}

// EtherToWei parses a decimal ether string into wei.
func EtherToWei(ether string) (*big.Int, error) {
	f, ok := new(big.Float).SetString(strings.TrimSpace(ether))
	if !ok {
		return nil, fmt.Errorf("chain: invalid amount %q", ether)
	}
	if f.Sign() < 0 {
		return nil, fmt.Errorf("chain: negative amount %q", ether)
	}
	wei, _ := new(big.Float).Mul(f, weiPerEther).Int(nil)
	return wei, nil
}
