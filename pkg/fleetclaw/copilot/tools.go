// tools.go registers the domain tools: fleet queries, on-chain funding and
// withdrawal, and venue trades. Handlers return JSON strings so the
// executor can embed structured results for the model. Fan-out tools honor
// a progress sink when the caller provides one through the context.
package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/chain"
	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/exchange"
	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/fleet"
)

// treasuryWallet is the keyring name of the funding wallet's private key.
const treasuryWallet = "treasury"

// Toolset binds the domain clients the tool handlers need.
type Toolset struct {
	Fleet    *fleet.Fleet
	Chain    *chain.Client
	Exchange *exchange.Client
	Session  *Session

	// Treasury is the funding wallet address for withdraw destinations.
	Treasury string

	// Workers caps fan-out concurrency.
	Workers int
}

// identityResult is one bot's slot in an aggregated fan-out answer.
type identityResult struct {
	Bot    string `json:"bot"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RegisterAll registers every domain tool descriptor and handler.
func (t *Toolset) RegisterAll(cat *Catalogue, exec *ToolExecutor) error {
	tools := []struct {
		d Descriptor
		h Handler
	}{
		{
			d: Descriptor{
				Name:        "list_bots",
				Description: "List the managed trading bots with their addresses and last known balances.",
				InputSchema: ObjectSchema(map[string]any{}),
			},
			h: t.listBots,
		},
		{
			d: Descriptor{
				Name:        "get_balance",
				Description: "Fetch the current on-chain native balance of one bot.",
				InputSchema: ObjectSchema(map[string]any{
					"bot": map[string]any{"type": "string", "description": "Bot name"},
				}, "bot"),
			},
			h: t.getBalance,
		},
		{
			d: Descriptor{
				Name:        "refresh_balances",
				Description: "Refresh on-chain balances for several bots at once. Omit bots to refresh the whole fleet.",
				InputSchema: ObjectSchema(map[string]any{
					"bots": map[string]any{
						"type": "array", "items": map[string]any{"type": "string"},
						"description": "Bot names; empty means all",
					},
				}),
			},
			h: t.refreshBalances,
		},
		{
			d: Descriptor{
				Name:        "fund_bots",
				Description: "Send native tokens from the treasury wallet to each selected bot. Omit bots to fund the whole fleet.",
				InputSchema: ObjectSchema(map[string]any{
					"bots": map[string]any{
						"type": "array", "items": map[string]any{"type": "string"},
						"description": "Bot names; empty means all",
					},
					"amount": map[string]any{"type": "string", "description": "Amount per bot, in ether"},
				}, "amount"),
				Mutates:           true,
				NeedsConfirmation: true,
				Describe: func(args map[string]any) string {
					return fmt.Sprintf("Fund %s with %s ETH each from the treasury",
						botsPhrase(args), stringArg(args, "amount"))
				},
			},
			h: t.fundBots,
		},
		{
			d: Descriptor{
				Name:        "withdraw",
				Description: "Send native tokens from each selected bot's wallet back to the treasury. Omit bots to withdraw from the whole fleet.",
				InputSchema: ObjectSchema(map[string]any{
					"bots": map[string]any{
						"type": "array", "items": map[string]any{"type": "string"},
						"description": "Bot names; empty means all",
					},
					"amount": map[string]any{"type": "string", "description": "Amount per bot, in ether"},
				}, "amount"),
				Mutates:           true,
				NeedsConfirmation: true,
				Describe: func(args map[string]any) string {
					return fmt.Sprintf("Withdraw %s ETH from %s to the treasury",
						stringArg(args, "amount"), botsPhrase(args))
				},
			},
			h: t.withdraw,
		},
		{
			d: Descriptor{
				Name:        "transfer",
				Description: "Send native tokens from one bot's wallet to an arbitrary address.",
				InputSchema: ObjectSchema(map[string]any{
					"from_bot":   map[string]any{"type": "string", "description": "Sending bot name"},
					"to_address": map[string]any{"type": "string", "description": "Recipient hex address"},
					"amount":     map[string]any{"type": "string", "description": "Amount in ether"},
				}, "from_bot", "to_address", "amount"),
				Mutates:           true,
				NeedsConfirmation: true,
				Describe: func(args map[string]any) string {
					return fmt.Sprintf("Transfer %s ETH from %s to %s",
						stringArg(args, "amount"), stringArg(args, "from_bot"), stringArg(args, "to_address"))
				},
			},
			h: t.transfer,
		},
		{
			d: Descriptor{
				Name:        "trade_buy",
				Description: "Place a market buy order on the venue for each selected bot. Omit bots to trade the whole fleet.",
				InputSchema: ObjectSchema(map[string]any{
					"bots": map[string]any{
						"type": "array", "items": map[string]any{"type": "string"},
						"description": "Bot names; empty means all",
					},
					"symbol": map[string]any{"type": "string", "description": "Trading pair, e.g. ETH-USDC"},
					"amount": map[string]any{"type": "number", "description": "Order size per bot, in base units"},
				}, "symbol", "amount"),
				Mutates:           true,
				NeedsConfirmation: true,
				Describe: func(args map[string]any) string {
					return fmt.Sprintf("Buy %v %s for %s",
						args["amount"], stringArg(args, "symbol"), botsPhrase(args))
				},
			},
			h: t.tradeHandler(exchange.SideBuy),
		},
		{
			d: Descriptor{
				Name:        "trade_sell",
				Description: "Place a market sell order on the venue for each selected bot. Omit bots to trade the whole fleet.",
				InputSchema: ObjectSchema(map[string]any{
					"bots": map[string]any{
						"type": "array", "items": map[string]any{"type": "string"},
						"description": "Bot names; empty means all",
					},
					"symbol": map[string]any{"type": "string", "description": "Trading pair, e.g. ETH-USDC"},
					"amount": map[string]any{"type": "number", "description": "Order size per bot, in base units"},
				}, "symbol", "amount"),
				Mutates:           true,
				NeedsConfirmation: true,
				Describe: func(args map[string]any) string {
					return fmt.Sprintf("Sell %v %s for %s",
						args["amount"], stringArg(args, "symbol"), botsPhrase(args))
				},
			},
			h: t.tradeHandler(exchange.SideSell),
		},
	}

	for _, tool := range tools {
		if err := cat.Register(tool.d); err != nil {
			return err
		}
		if err := exec.RegisterHandler(tool.d.Name, tool.h); err != nil {
			return err
		}
	}
	return nil
}

func (t *Toolset) listBots(ctx context.Context, args map[string]any) (string, error) {
	balances := t.Session.Balances()
	type entry struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Balance string `json:"balance,omitempty"`
	}
	out := make([]entry, 0, t.Fleet.Len())
	for _, b := range t.Fleet.All() {
		out = append(out, entry{Name: b.Name, Address: b.Address, Balance: balances[b.Name]})
	}
	return marshalResult(out)
}

func (t *Toolset) getBalance(ctx context.Context, args map[string]any) (string, error) {
	bot, err := t.Fleet.Get(stringArg(args, "bot"))
	if err != nil {
		return "", err
	}
	balance, err := t.Chain.Balance(ctx, bot.Address)
	if err != nil {
		return "", err
	}
	t.Session.SetBalance(bot.Name, balance)
	return marshalResult(map[string]string{"bot": bot.Name, "balance": balance})
}

func (t *Toolset) refreshBalances(ctx context.Context, args map[string]any) (string, error) {
	bots, err := t.Fleet.Select(stringListArg(args, "bots"))
	if err != nil {
		return "", err
	}
	return t.fanOutBots(ctx, bots, t.Workers, func(ctx context.Context, b fleet.Bot) (string, error) {
		balance, err := t.Chain.Balance(ctx, b.Address)
		if err != nil {
			return "", err
		}
		t.Session.SetBalance(b.Name, balance)
		return balance + " ETH", nil
	})
}

// fundBots sends from a single treasury key, so the fan-out runs with one
// worker: concurrent sends from one key race on the pending nonce.
func (t *Toolset) fundBots(ctx context.Context, args map[string]any) (string, error) {
	bots, err := t.Fleet.Select(stringListArg(args, "bots"))
	if err != nil {
		return "", err
	}
	amountWei, err := chain.EtherToWei(stringArg(args, "amount"))
	if err != nil {
		return "", err
	}
	treasuryKey, err := WalletKey(treasuryWallet)
	if err != nil {
		return "", err
	}
	return t.fanOutBots(ctx, bots, 1, func(ctx context.Context, b fleet.Bot) (string, error) {
		hash, err := t.Chain.Transfer(ctx, treasuryKey, b.Address, amountWei)
		if err != nil {
			return "", err
		}
		return "funded, tx " + hash, nil
	})
}

func (t *Toolset) withdraw(ctx context.Context, args map[string]any) (string, error) {
	if t.Treasury == "" {
		return "", fmt.Errorf("no treasury address configured")
	}
	bots, err := t.Fleet.Select(stringListArg(args, "bots"))
	if err != nil {
		return "", err
	}
	amountWei, err := chain.EtherToWei(stringArg(args, "amount"))
	if err != nil {
		return "", err
	}
	return t.fanOutBots(ctx, bots, t.Workers, func(ctx context.Context, b fleet.Bot) (string, error) {
		key, err := WalletKey(b.Name)
		if err != nil {
			return "", err
		}
		hash, err := t.Chain.Transfer(ctx, key, t.Treasury, amountWei)
		if err != nil {
			return "", err
		}
		return "withdrawn, tx " + hash, nil
	})
}

func (t *Toolset) transfer(ctx context.Context, args map[string]any) (string, error) {
	bot, err := t.Fleet.Get(stringArg(args, "from_bot"))
	if err != nil {
		return "", err
	}
	amountWei, err := chain.EtherToWei(stringArg(args, "amount"))
	if err != nil {
		return "", err
	}
	key, err := WalletKey(bot.Name)
	if err != nil {
		return "", err
	}
	hash, err := t.Chain.Transfer(ctx, key, stringArg(args, "to_address"), amountWei)
	if err != nil {
		return "", err
	}
	return marshalResult(map[string]string{"bot": bot.Name, "tx": hash})
}

func (t *Toolset) tradeHandler(side string) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		bots, err := t.Fleet.Select(stringListArg(args, "bots"))
		if err != nil {
			return "", err
		}
		symbol := stringArg(args, "symbol")
		if symbol == "" {
			return "", fmt.Errorf("missing symbol")
		}
		amount, _ := args["amount"].(float64)
		return t.fanOutBots(ctx, bots, t.Workers, func(ctx context.Context, b fleet.Bot) (string, error) {
			res, err := t.Exchange.PlaceOrder(ctx, exchange.Order{
				Bot:    b.Name,
				Symbol: symbol,
				Side:   side,
				Amount: amount,
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("order %s %s, filled %v at %v", res.OrderID, res.Status, res.Filled, res.Price), nil
		})
	}
}

// fanOutBots applies op to each bot through the shared fan-out pool and
// aggregates per-bot outcomes into one JSON document. Individual failures
// become error slots; they never fail the whole tool call.
func (t *Toolset) fanOutBots(ctx context.Context, bots []fleet.Bot, workers int, op func(ctx context.Context, b fleet.Bot) (string, error)) (string, error) {
	byName := make(map[string]fleet.Bot, len(bots))
	names := make([]string, len(bots))
	for i, b := range bots {
		byName[b.Name] = b
		names[i] = b.Name
	}

	sink := ProgressSinkFromContext(ctx)
	results, err := FanOut(ctx, names, func(ctx context.Context, identity string) (string, error) {
		return op(ctx, byName[identity])
	}, sink, workers)
	if err != nil {
		return "", err
	}

	out := make([]identityResult, len(results))
	for i, r := range results {
		out[i].Bot = r.Identity
		if r.Err != nil {
			out[i].Status = StatusError
			out[i].Error = r.Err.Error()
		} else {
			out[i].Status = StatusOK
			out[i].Result = r.Output
		}
	}
	return marshalResult(out)
}

func marshalResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func stringListArg(args map[string]any, key string) []string {
	raw, _ := args[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// botsPhrase renders the bot selection for confirmation prompts.
func botsPhrase(args map[string]any) string {
	bots := stringListArg(args, "bots")
	if len(bots) == 0 {
		return "the whole fleet"
	}
	return strings.Join(bots, ", ")
}
