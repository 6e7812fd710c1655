// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rentuma/authcore/internal/auth"
	authpg "github.com/rentuma/authcore/internal/auth/postgres"
	"github.com/rentuma/authcore/internal/store"
)

// setupPostgresContainer starts a PostgreSQL container and migrates it.
func setupPostgresContainer() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("authcore_test"),
		tcpostgres.WithUsername("authcore"),
		tcpostgres.WithPassword("authcore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	if err := migrator.Close(); err != nil {
		return nil, nil, err
	}

	pool, err := store.NewPool(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup, nil
}

func newAccount(username, email string) *auth.Account {
	account, err := auth.NewAccount(username, email, "some-hash")
	Expect(err).NotTo(HaveOccurred())
	return account
}

var _ = Describe("AccountRepository", func() {
	var repo *authpg.AccountRepository
	var cleanup func()
	ctx := context.Background()

	BeforeEach(func() {
		pool, c, err := setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
		cleanup = c
		repo = authpg.NewAccountRepository(pool)
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("Create", func() {
		It("assigns a database-generated ID", func() {
			account := newAccount("alice", "alice@example.com")
			Expect(repo.Create(ctx, account)).To(Succeed())
			Expect(account.ID).NotTo(BeZero())
		})

		It("rejects duplicate usernames regardless of case", func() {
			Expect(repo.Create(ctx, newAccount("alice", "alice@example.com"))).To(Succeed())

			err := repo.Create(ctx, newAccount("ALICE", "other@example.com"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("username already exists"))
		})

		It("rejects duplicate emails regardless of case", func() {
			Expect(repo.Create(ctx, newAccount("alice", "alice@example.com"))).To(Succeed())

			err := repo.Create(ctx, newAccount("bob", "ALICE@example.com"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("email already exists"))
		})
	})

	Describe("lookups", func() {
		BeforeEach(func() {
			Expect(repo.Create(ctx, newAccount("alice", "alice@example.com"))).To(Succeed())
		})

		It("finds by username case-insensitively", func() {
			account, err := repo.GetByUsername(ctx, "ALICE")
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Username).To(Equal("alice"))
		})

		It("finds by email case-insensitively", func() {
			account, err := repo.GetByEmail(ctx, "Alice@Example.COM")
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Username).To(Equal("alice"))
		})

		It("resolves an identifier as username or email", func() {
			byName, err := repo.GetByIdentifier(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			byEmail, err := repo.GetByIdentifier(ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.ID).To(Equal(byEmail.ID))
		})

		It("returns ErrNotFound for unknown identifiers", func() {
			_, err := repo.GetByIdentifier(ctx, "nobody")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("reports existence", func() {
			exists, err := repo.ExistsByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, err = repo.ExistsByEmail(ctx, "nobody@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})

	Describe("UpdateLoginState", func() {
		var account *auth.Account

		BeforeEach(func() {
			account = newAccount("alice", "alice@example.com")
			Expect(repo.Create(ctx, account)).To(Succeed())
		})

		It("writes failures when the expected count matches", func() {
			Expect(repo.UpdateLoginState(ctx, account.ID, 0, 1, nil, nil)).To(Succeed())

			fresh, err := repo.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.FailedAttempts).To(Equal(1))
		})

		It("rejects a stale expected count", func() {
			Expect(repo.UpdateLoginState(ctx, account.ID, 0, 1, nil, nil)).To(Succeed())

			err := repo.UpdateLoginState(ctx, account.ID, 0, 1, nil, nil)
			Expect(err).To(MatchError(auth.ErrStaleAccount))
		})

		It("sets and clears the lockout expiry", func() {
			lockedUntil := time.Now().Add(15 * time.Minute)
			Expect(repo.UpdateLoginState(ctx, account.ID, 0, 5, &lockedUntil, nil)).To(Succeed())

			fresh, err := repo.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.LockedUntil).NotTo(BeNil())

			now := time.Now()
			Expect(repo.UpdateLoginState(ctx, account.ID, 5, 0, nil, &now)).To(Succeed())

			fresh, err = repo.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.FailedAttempts).To(BeZero())
			Expect(fresh.LockedUntil).To(BeNil())
			Expect(fresh.LastLoginAt).NotTo(BeNil())
		})

		It("keeps the last login stamp when lastLoginAt is nil", func() {
			now := time.Now()
			Expect(repo.UpdateLoginState(ctx, account.ID, 0, 0, nil, &now)).To(Succeed())
			Expect(repo.UpdateLoginState(ctx, account.ID, 0, 1, nil, nil)).To(Succeed())

			fresh, err := repo.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.LastLoginAt).NotTo(BeNil())
		})

		It("returns ErrNotFound for a missing account", func() {
			err := repo.UpdateLoginState(ctx, 424242, 0, 1, nil, nil)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("Update", func() {
		It("persists mutable fields", func() {
			account := newAccount("alice", "alice@example.com")
			Expect(repo.Create(ctx, account)).To(Succeed())

			account.Email = "new@example.com"
			account.UpdatedAt = time.Now()
			Expect(repo.Update(ctx, account)).To(Succeed())

			fresh, err := repo.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.Email).To(Equal("new@example.com"))
		})
	})
})
