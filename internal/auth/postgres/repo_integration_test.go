// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/tasklist/internal/auth"
	"github.com/holomush/tasklist/internal/auth/authtest"
	"github.com/holomush/tasklist/internal/auth/postgres"
	"github.com/holomush/tasklist/pkg/errutil"
)

var _ = Describe("auth repositories", func() {
	var (
		ctx         context.Context
		users       *postgres.UserRepository
		resets      *postgres.ResetTokenRepository
		hasher      auth.PasswordHasher
		credentials *auth.CredentialStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		_, err := testPool.Exec(ctx, `TRUNCATE users CASCADE`)
		Expect(err).NotTo(HaveOccurred())

		users = postgres.NewUserRepository(testPool)
		resets = postgres.NewResetTokenRepository(testPool)
		hasher = auth.NewArgon2idHasherWithParams(authtest.FastArgon2Params)
		credentials, err = auth.NewCredentialStore(users, hasher, auth.DefaultPasswordPolicy)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("concurrent signup", func() {
		It("creates exactly one account per email", func() {
			const workers = 8
			var (
				wg         sync.WaitGroup
				created    atomic.Int32
				duplicates atomic.Int32
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := credentials.Create(ctx, "race@example.com", "secret1")
					switch errutil.Code(err) {
					case "":
						created.Add(1)
					case auth.CodeDuplicateEmail:
						duplicates.Add(1)
					default:
						Fail(fmt.Sprintf("unexpected error: %v", err))
					}
				}()
			}
			wg.Wait()

			Expect(created.Load()).To(Equal(int32(1)))
			Expect(duplicates.Load()).To(Equal(int32(workers - 1)))

			var count int
			Expect(testPool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = $1`, "race@example.com").
				Scan(&count)).To(Succeed())
			Expect(count).To(Equal(1))
		})
	})

	Describe("reset tokens", func() {
		var (
			user       *auth.User
			resetStore *auth.ResetTokenStore
		)

		BeforeEach(func() {
			var err error
			user, err = credentials.Create(ctx, "reset@example.com", "secret1")
			Expect(err).NotTo(HaveOccurred())
			resetStore, err = auth.NewResetTokenStore(resets, hasher, time.Hour)
			Expect(err).NotTo(HaveOccurred())
		})

		It("lets exactly one of several concurrent consumers win", func() {
			secret, _, err := resetStore.Issue(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())

			const workers = 6
			var (
				wg   sync.WaitGroup
				wins atomic.Int32
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					if resetStore.Consume(ctx, user.ID, secret) == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			Expect(wins.Load()).To(Equal(int32(1)))
			tokens, err := resets.ListByUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens).To(BeEmpty())
		})

		It("keeps several outstanding tokens and lists newest first", func() {
			_, first, err := resetStore.Issue(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			_, second, err := resetStore.Issue(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())

			tokens, err := resets.ListByUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens).To(HaveLen(2))
			Expect(tokens[0].ID).To(Equal(second.ID))
			Expect(tokens[1].ID).To(Equal(first.ID))
		})

		It("purges tokens older than the cutoff", func() {
			_, _, err := resetStore.Issue(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())

			n, err := resets.DeleteCreatedBefore(ctx, time.Now().Add(time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})

		It("cascades token removal when the user row goes away", func() {
			_, _, err := resetStore.Issue(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID.String())
			Expect(err).NotTo(HaveOccurred())

			tokens, err := resets.ListByUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens).To(BeEmpty())
		})
	})

	Describe("password updates", func() {
		It("changes the hash without touching the role", func() {
			user, err := credentials.Create(ctx, "update@example.com", "secret1")
			Expect(err).NotTo(HaveOccurred())

			Expect(credentials.UpdatePassword(ctx, user.ID, "secret2")).To(Succeed())

			stored, err := users.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Role).To(Equal(auth.RoleUser))
			ok, err := hasher.Verify("secret2", stored.PasswordHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})
})
