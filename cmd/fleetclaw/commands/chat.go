package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/chain"
	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/copilot"
	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/exchange"
	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/fleet"
	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/scheduler"
)

// newChatCmd creates the `fleetclaw chat` command.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the fleet copilot",
		Long: `Starts a conversation with the copilot. Pass a message for a
single exchange, or no arguments for the interactive REPL.

Examples:
  fleetclaw chat "refresh everyone's balance"
  fleetclaw chat`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}
	cmd.Flags().StringP("model", "m", "", "override the configured model")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Model = model
	}
	logger := newLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	if len(args) > 0 {
		return app.runOnce(ctx, args[0])
	}
	return app.runREPL(ctx)
}

// app holds the wired copilot and its resources for one chat process.
type app struct {
	cfg        *copilot.Config
	controller *copilot.TurnController
	session    *copilot.Session
	chainCli   *chain.Client
	audit      *copilot.AuditLog
	sched      *scheduler.Scheduler
}

// buildApp wires configuration into a running copilot: fleet registry,
// chain and venue clients, tool catalogue, gatekeeper, turn controller and
// the optional balance-refresh scheduler.
func buildApp(ctx context.Context, cfg *copilot.Config, logger *slog.Logger) (*app, error) {
	apiKey := copilot.ResolveAPIKey(cfg, logger)
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured; run `fleetclaw keys set`")
	}

	bots := make([]fleet.Bot, len(cfg.Fleet))
	for i, b := range cfg.Fleet {
		bots[i] = fleet.Bot{Name: b.Name, Address: b.Address}
	}
	reg, err := fleet.New(bots)
	if err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		return nil, fmt.Errorf("no bots configured; add a fleet section to %s", copilot.DefaultConfigPath())
	}

	chainCli, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, err
	}

	venue := exchange.New(cfg.Exchange.BaseURL, os.Getenv(cfg.Exchange.APIKeyEnv))

	audit, err := copilot.OpenAuditLog(cfg.Database.Path)
	if err != nil {
		chainCli.Close()
		return nil, err
	}

	sess := copilot.NewSession(uuid.New().String(), systemPrompt(cfg, reg))

	cat := copilot.NewCatalogue()
	exec := copilot.NewToolExecutor(cat, audit, logger)
	exec.SetTimeout(time.Duration(cfg.Agent.ToolTimeoutSeconds) * time.Second)

	tools := &copilot.Toolset{
		Fleet:    reg,
		Chain:    chainCli,
		Exchange: venue,
		Session:  sess,
		Treasury: cfg.Chain.Treasury,
		Workers:  cfg.Agent.FanOutWorkers,
	}
	if err := tools.RegisterAll(cat, exec); err != nil {
		audit.Close()
		chainCli.Close()
		return nil, err
	}

	gate := copilot.NewGatekeeper(cat, copilot.NewTerminalConfirmer(), logger)
	backend := copilot.NewAnthropicBackend(apiKey, cfg.Model, cfg.API.MaxTokens, logger)
	controller := copilot.NewTurnController(backend, cat, exec, gate, cfg.Agent.TurnCeiling, logger)

	a := &app{
		cfg:        cfg,
		controller: controller,
		session:    sess,
		chainCli:   chainCli,
		audit:      audit,
	}

	if cfg.Scheduler.Enabled {
		a.sched = scheduler.New(func(ctx context.Context) error {
			return refreshFleet(ctx, reg, chainCli, sess)
		}, logger)
		if err := a.sched.Start(cfg.Scheduler.RefreshCron); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.sched != nil {
		a.sched.Stop()
	}
	a.audit.Close()
	a.chainCli.Close()
}

// runOnce sends one message and prints the answer.
func (a *app) runOnce(ctx context.Context, message string) error {
	res, err := a.runTurn(ctx, message)
	if err != nil {
		return err
	}
	fmt.Println(res.Text)
	return nil
}

// runREPL is the interactive loop. Ctrl-C cancels the in-flight turn;
// Ctrl-D or "exit" ends the session.
func (a *app) runREPL(ctx context.Context) error {
	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s ready. %d bots in the fleet. Type a message, or \"exit\" to leave.\n",
		a.cfg.Name, len(a.cfg.Fleet))

	for {
		line, err := rl.Readline()
		switch {
		case err == readline.ErrInterrupt:
			continue
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		res, err := a.runTurn(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", res.Text)
	}
}

// runTurn executes one turn with a progress sink attached so fan-out tools
// can report live progress on stderr.
func (a *app) runTurn(ctx context.Context, message string) (*copilot.TurnResult, error) {
	sink := copilot.NewChannelSink(32)
	turnCtx, cancel := context.WithCancel(copilot.ContextWithProgressSink(ctx, sink))
	defer cancel()

	go func() {
		for {
			select {
			case <-turnCtx.Done():
				return
			case p := <-sink.Updates():
				fmt.Fprintf(os.Stderr, "\r  [%d/%d]", p[0], p[1])
				if p[0] == p[1] {
					fmt.Fprint(os.Stderr, "\n")
				}
			case m := <-sink.Messages():
				fmt.Fprintf(os.Stderr, "  %s\n", m)
			}
		}
	}()

	return a.controller.Run(turnCtx, a.session, message)
}

// refreshFleet is the scheduler callback: it sweeps every bot's balance
// into the session cache.
func refreshFleet(ctx context.Context, reg *fleet.Fleet, cli *chain.Client, sess *copilot.Session) error {
	var firstErr error
	for _, b := range reg.All() {
		balance, err := cli.Balance(ctx, b.Address)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sess.SetBalance(b.Name, balance)
	}
	return firstErr
}

// systemPrompt assembles the copilot's system prompt from the built-in
// role description, the fleet roster and the operator's instructions.
func systemPrompt(cfg *copilot.Config, reg *fleet.Fleet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, the operations copilot for a fleet of trading bots.\n", cfg.Name)
	sb.WriteString("You answer questions about the fleet and execute operations through tools.\n")
	sb.WriteString("State-changing operations require the operator's confirmation; a declined\n")
	sb.WriteString("operation must not be retried without new instructions.\n\nFleet roster:\n")
	for _, b := range reg.All() {
		fmt.Fprintf(&sb, "- %s (%s)\n", b.Name, b.Address)
	}
	if cfg.Instructions != "" {
		sb.WriteString("\n" + cfg.Instructions + "\n")
	}
	return sb.String()
}
