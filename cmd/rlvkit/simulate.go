// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package main

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rlvkit/rlvkit/internal/audit"
	"github.com/rlvkit/rlvkit/internal/config"
	"github.com/rlvkit/rlvkit/internal/engine"
	"github.com/rlvkit/rlvkit/internal/logging"
	"github.com/rlvkit/rlvkit/internal/observability"
	"github.com/rlvkit/rlvkit/internal/world"
	"github.com/rlvkit/rlvkit/internal/world/worldtest"
)

// NewSimulateCmd creates the simulate subcommand: an interactive session
// that runs the engine against an in-memory world, for trying out command
// sequences without a client.
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run an interactive engine session against a fake world",
		Long: `Run the restriction engine against an in-memory inventory and avatar.
Lines starting with "@" are dispatched as commands from the current
issuer; directives starting with "!" inspect or change the session:

  !issuer [uuid]   switch to a new or given issuer object
  !status          print the restriction snapshot
  !gc              sweep restrictions of derezzed issuers
  !quit            leave the session`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd)
		},
	}
	return cmd
}

func runSimulate(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	logging.Setup("rlvkit", version, cfg.Logging.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fake := worldtest.New()
	outfits := fake.AddFolder(fake.Root, "Outfits")
	collar := fake.AddFolder(outfits, "Collar")
	item := world.Item{ID: uuid.New(), Name: "Collar (spine)", Kind: world.ItemObject}
	fake.AddItem(collar, item)

	var auditLog *audit.Logger
	if cfg.AuditPath != "-" {
		auditLog, err = audit.NewLogger(cfg.AuditPath)
		if err != nil {
			return err
		}
		defer auditLog.Close() //nolint:errcheck
	}

	eng, err := engine.New(engine.Params{
		Config:    cfg,
		Inventory: fake,
		Avatar:    fake,
		Actions:   fake,
		Replier:   fake,
		Audit:     auditLog,
		Launch:    time.Now(),
	})
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		obs := observability.NewServer(cfg.Metrics.Addr, eng.Ready)
		errCh, err := obs.Start()
		if err != nil {
			return err
		}
		go func() {
			for err := range errCh {
				slog.Error("observability server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(shutdownCtx)
		}()
		slog.Info("metrics listening", "addr", obs.Addr())
	}

	go eng.RunGC(ctx, cfg.GCInterval)

	eng.SetStarted(true)
	eng.FireCommands(ctx)

	issuer := uuid.New()
	fake.Objects[issuer] = true
	cmd.Printf("issuer %s\n", issuer)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "@"):
			ok := eng.HandleCommand(ctx, issuer, line)
			printReplies(cmd, fake)
			cmd.Printf("=> %t\n", ok)
		case line == "!quit":
			return nil
		case line == "!status":
			for _, entry := range eng.Snapshot() {
				cmd.Printf("%s  %s\n", entry.Issuer, entry.Rule())
			}
		case line == "!gc":
			swept := eng.GarbageCollect(ctx, false)
			cmd.Printf("swept: %t\n", swept)
		case strings.HasPrefix(line, "!issuer"):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "!issuer"))
			if arg == "" {
				issuer = uuid.New()
			} else {
				id, err := uuid.Parse(arg)
				if err != nil {
					cmd.Printf("bad uuid: %v\n", err)
					continue
				}
				issuer = id
			}
			fake.Objects[issuer] = true
			cmd.Printf("issuer %s\n", issuer)
		default:
			cmd.Printf("unrecognized input %q\n", line)
		}
	}
	return scanner.Err()
}

// printReplies flushes and prints any channel replies the last command
// produced.
func printReplies(cmd *cobra.Command, fake *worldtest.Fake) {
	for _, r := range fake.Chats {
		cmd.Printf("chat[%d] %s\n", r.Channel, r.Message)
	}
	for _, r := range fake.Dialogs {
		cmd.Printf("dialog[%d] %s\n", r.Channel, r.Message)
	}
	fake.Chats = fake.Chats[:0]
	fake.Dialogs = fake.Dialogs[:0]
}
