// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/tasklist/internal/auth"
	"github.com/holomush/tasklist/internal/auth/authtest"
	authpg "github.com/holomush/tasklist/internal/auth/postgres"
	"github.com/holomush/tasklist/internal/store"
	"github.com/holomush/tasklist/internal/task"
	taskpg "github.com/holomush/tasklist/internal/task/postgres"
	"github.com/holomush/tasklist/internal/web"
)

const (
	sessionSecret = "integration-secret"
	cookieName    = "jwt"
)

// testEnv holds the database and the HTTP stack under test.
type testEnv struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	notifier  *authtest.Notifier
	resets    *auth.ResetTokenStore
	server    *httptest.Server
}

var env *testEnv

var _ = BeforeSuite(func() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	env = &testEnv{ctx: ctx, cancel: cancel, notifier: &authtest.Notifier{}}

	var err error
	env.container, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tasklist_test"),
		postgres.WithUsername("tasklist"),
		postgres.WithPassword("tasklist"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := env.container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	env.pool, err = store.NewPool(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := auth.NewArgon2idHasher()

	credentials, err := auth.NewCredentialStore(authpg.NewUserRepository(env.pool), hasher, auth.DefaultPasswordPolicy)
	Expect(err).NotTo(HaveOccurred())
	sessions, err := auth.NewSessionTokenService(sessionSecret, time.Hour)
	Expect(err).NotTo(HaveOccurred())
	env.resets, err = auth.NewResetTokenStore(authpg.NewResetTokenRepository(env.pool), hasher, time.Hour)
	Expect(err).NotTo(HaveOccurred())
	authSvc, err := auth.NewService(credentials, sessions, env.resets, env.notifier, "http://tasks.test", auth.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())
	taskSvc, err := task.NewService(taskpg.NewTaskRepository(env.pool))
	Expect(err).NotTo(HaveOccurred())

	srv, err := web.NewServer(web.Config{CookieName: cookieName}, authSvc, taskSvc,
		web.WithLogger(logger), web.WithPurger(env.resets))
	Expect(err).NotTo(HaveOccurred())
	env.server = httptest.NewServer(srv.Handler())
})

var _ = AfterSuite(func() {
	if env == nil {
		return
	}
	if env.server != nil {
		env.server.Close()
	}
	if env.pool != nil {
		env.pool.Close()
	}
	if env.container != nil {
		Expect(env.container.Terminate(context.Background())).To(Succeed())
	}
	env.cancel()
})

// call sends a JSON request and decodes the JSON response into out when it
// is non-nil.
func call(method, path string, body any, token string, out any) *http.Response {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}

	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(resp.Body.Close)

	if out != nil {
		Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
	}
	return resp
}

func sessionFrom(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	return ""
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

var _ = Describe("Account lifecycle", func() {
	It("signs up, resets a forgotten password and updates it", func() {
		By("signing up")
		resp := call(http.MethodPost, "/api/v1/signup", map[string]string{
			"email": "ada@example.com", "password": "secret1", "passwordConf": "secret1",
		}, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(sessionFrom(resp)).NotTo(BeEmpty())

		By("rejecting a duplicate signup")
		var dup envelope
		resp = call(http.MethodPost, "/api/v1/signup", map[string]string{
			"email": "ada@example.com", "password": "secret1", "passwordConf": "secret1",
		}, "", &dup)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(dup.Status).To(Equal("fail"))

		By("requesting a reset link")
		resp = call(http.MethodPost, "/api/v1/forgot-password", map[string]string{"email": "ada@example.com"}, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		msg, ok := env.notifier.Last()
		Expect(ok).To(BeTrue())
		Expect(msg.Subject).To(Equal(auth.SubjectResetRequested))
		link, err := msg.Link()
		Expect(err).NotTo(HaveOccurred())

		By("following the link")
		resp = call(http.MethodGet, link.RequestURI(), nil, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		msg, ok = env.notifier.Last()
		Expect(ok).To(BeTrue())
		Expect(msg.Subject).To(Equal(auth.SubjectResetCompleted))
		temp := msg.TemporaryPassword()
		Expect(temp).NotTo(BeEmpty())

		By("refusing to reuse the link")
		resp = call(http.MethodGet, link.RequestURI(), nil, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

		By("rejecting the old password")
		resp = call(http.MethodPost, "/api/v1/login", map[string]string{
			"email": "ada@example.com", "password": "secret1",
		}, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		By("replacing the temporary password")
		resp = call(http.MethodPost, "/api/v1/update-password", map[string]string{
			"email": "ada@example.com", "password": temp,
			"newPassword": "brandnew", "newPasswordConf": "brandnew",
		}, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp = call(http.MethodPost, "/api/v1/login", map[string]string{
			"email": "ada@example.com", "password": "brandnew",
		}, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(sessionFrom(resp)).NotTo(BeEmpty())
	})
})

var _ = Describe("To-do list", func() {
	var token string

	BeforeEach(func() {
		resp := call(http.MethodPost, "/api/v1/signup", map[string]string{
			"email": "tasks-" + time.Now().Format("150405.000000") + "@example.com",
			"password": "secret1", "passwordConf": "secret1",
		}, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		token = sessionFrom(resp)
	})

	It("requires a session", func() {
		resp := call(http.MethodGet, "/api/v1/to-do", nil, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("creates, updates, lists and deletes tasks", func() {
		var created struct {
			Data struct {
				Data task.Task `json:"data"`
			} `json:"data"`
		}
		resp := call(http.MethodPost, "/api/v1/to-do", map[string]any{
			"title": "Buy milk", "body": "two litres", "importance": 2,
		}, token, &created)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		id := created.Data.Data.ID.String()

		resp = call(http.MethodPatch, "/api/v1/to-do/"+id, map[string]any{"ready": true}, token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var list []task.Task
		resp = call(http.MethodGet, "/api/v1/to-do", nil, token, &list)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(list).To(HaveLen(1))
		Expect(list[0].Ready).To(BeTrue())
		Expect(list[0].Importance).To(Equal(task.ImportanceHigh))

		resp = call(http.MethodDelete, "/api/v1/to-do/"+id, nil, token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp = call(http.MethodGet, "/api/v1/to-do/"+id, nil, token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
