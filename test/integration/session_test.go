// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

//go:build integration

package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/rlvkit/rlvkit/internal/audit"
	"github.com/rlvkit/rlvkit/internal/config"
	"github.com/rlvkit/rlvkit/internal/engine"
	"github.com/rlvkit/rlvkit/internal/observability"
	"github.com/rlvkit/rlvkit/internal/world"
	"github.com/rlvkit/rlvkit/internal/world/worldtest"
)

// sessionEnv is one fully wired engine session over the fake world.
type sessionEnv struct {
	ctx       context.Context
	cancel    context.CancelFunc
	fake      *worldtest.Fake
	engine    *engine.Engine
	auditPath string
	auditLog  *audit.Logger
	collar    uuid.UUID
	collarObj uuid.UUID
}

func setupSession() (*sessionEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

	env := &sessionEnv{ctx: ctx, cancel: cancel}
	env.fake = worldtest.New()
	outfits := env.fake.AddFolder(env.fake.Root, "Outfits")
	env.collar = env.fake.AddFolder(outfits, "Collar")
	item := world.Item{ID: uuid.New(), Name: "Collar (spine)", Kind: world.ItemObject}
	env.fake.AddItem(env.collar, item)
	env.collarObj = uuid.New()
	env.fake.Wear(item, "spine", env.collarObj)

	env.auditPath = filepath.Join(GinkgoT().TempDir(), "restrictions.jsonl")
	auditLog, err := audit.NewLogger(env.auditPath)
	if err != nil {
		cancel()
		return nil, err
	}
	env.auditLog = auditLog

	eng, err := engine.New(engine.Params{
		Config:    config.Default(),
		Inventory: env.fake,
		Avatar:    env.fake,
		Actions:   env.fake,
		Replier:   env.fake,
		Audit:     auditLog,
		Launch:    time.Now(),
	})
	if err != nil {
		cancel()
		return nil, err
	}
	env.engine = eng
	return env, nil
}

func (env *sessionEnv) teardown() {
	if env.auditLog != nil {
		_ = env.auditLog.Close()
	}
	env.cancel()
}

var _ = Describe("Engine session", func() {
	var env *sessionEnv

	BeforeEach(func() {
		var err error
		env, err = setupSession()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		env.teardown()
	})

	It("defers commands until startup, then applies them in order", func() {
		issuer := uuid.New()
		env.fake.Objects[issuer] = true

		Expect(env.engine.HandleCommand(env.ctx, issuer, "@tploc=n,sendchat=n")).To(BeTrue())
		Expect(env.engine.Snapshot()).To(BeEmpty())
		Expect(env.engine.Ready()).To(BeFalse())

		env.engine.SetStarted(true)
		env.engine.FireCommands(env.ctx)

		Expect(env.engine.Ready()).To(BeTrue())
		Expect(env.engine.CanTpLoc()).To(BeFalse())
		Expect(env.engine.CanSendChat()).To(BeFalse())
	})

	It("runs a lock-wear-strip session end to end", func() {
		env.engine.SetStarted(true)

		By("locking the collar folder from the collar itself")
		Expect(env.engine.HandleCommand(env.ctx, env.collarObj, "@detachthis=n")).To(BeTrue())
		Expect(env.engine.CanDetach(env.collarObj)).To(BeFalse())

		By("surviving a forced strip")
		Expect(env.engine.HandleCommand(env.ctx, uuid.New(), "@detach=force")).To(BeTrue())
		Expect(env.fake.Attachments()).To(HaveLen(1))

		By("unlocking and stripping")
		Expect(env.engine.HandleCommand(env.ctx, env.collarObj, "@detachthis=y")).To(BeTrue())
		Expect(env.engine.HandleCommand(env.ctx, uuid.New(), "@detach=force")).To(BeTrue())
		Expect(env.fake.Attachments()).To(BeEmpty())
	})

	It("answers info queries on the requested channel", func() {
		env.engine.SetStarted(true)
		issuer := uuid.New()

		Expect(env.engine.HandleCommand(env.ctx, issuer, "@tploc=n")).To(BeTrue())
		Expect(env.engine.HandleCommand(env.ctx, issuer, "@getstatus=4711")).To(BeTrue())

		Expect(env.fake.Chats).NotTo(BeEmpty())
		last := env.fake.Chats[len(env.fake.Chats)-1]
		Expect(last.Channel).To(Equal(int32(4711)))
		Expect(last.Message).To(Equal("/tploc"))
	})

	It("sweeps dead issuers and reports it over notify", func() {
		env.engine.SetStarted(true)
		observer := uuid.New()
		env.fake.Objects[observer] = true
		dead := uuid.New()

		Expect(env.engine.HandleCommand(env.ctx, observer, "@notify:2222=add")).To(BeTrue())
		Expect(env.engine.HandleCommand(env.ctx, dead, "@tploc=n")).To(BeTrue())

		Expect(env.engine.GarbageCollect(env.ctx, false)).To(BeTrue())
		Expect(env.engine.CanTpLoc()).To(BeTrue())

		last := env.fake.Chats[len(env.fake.Chats)-1]
		Expect(last.Channel).To(Equal(int32(2222)))
		Expect(last.Message).To(Equal("/tploc=y"))
	})

	It("writes one audit line per mutation", func() {
		env.engine.SetStarted(true)
		issuer := uuid.New()

		Expect(env.engine.HandleCommand(env.ctx, issuer, "@tploc=n")).To(BeTrue())
		Expect(env.engine.HandleCommand(env.ctx, issuer, "@tploc=y")).To(BeTrue())
		Expect(env.auditLog.Close()).To(Succeed())
		env.auditLog = nil

		f, err := os.Open(env.auditPath)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		var effects []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var entry audit.Entry
			Expect(json.Unmarshal(scanner.Bytes(), &entry)).To(Succeed())
			Expect(entry.Issuer).To(Equal(issuer.String()))
			effects = append(effects, string(entry.Effect))
		}
		Expect(effects).To(Equal([]string{"applied", "removed"}))
	})

	It("serves metrics and readiness probes", func() {
		obs := observability.NewServer("127.0.0.1:0", env.engine.Ready)
		_, err := obs.Start()
		Expect(err).NotTo(HaveOccurred())
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(obs.Stop(ctx)).To(Succeed())
		}()

		base := fmt.Sprintf("http://%s", obs.Addr())

		resp, err := http.Get(base + "/healthz/readiness")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))

		env.engine.SetStarted(true)
		resp, err = http.Get(base + "/healthz/readiness")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, err = http.Get(base + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})
})
