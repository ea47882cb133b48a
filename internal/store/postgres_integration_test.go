// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

//go:build integration

package store_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iucalendar/iucalendar/internal/auth"
	authpg "github.com/iucalendar/iucalendar/internal/auth/postgres"
	"github.com/iucalendar/iucalendar/internal/calendar"
	calpg "github.com/iucalendar/iucalendar/internal/calendar/postgres"
	"github.com/iucalendar/iucalendar/internal/store"
)

var _ = Describe("PostgreSQL storage", Ordered, func() {
	var (
		ctx       context.Context
		container *tcpostgres.PostgresContainer
		connStr   string
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("iucal_test"),
			tcpostgres.WithUsername("iucal"),
			tcpostgres.WithPassword("iucal"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.NewPool(ctx, store.DefaultPoolConfig(connStr))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	Describe("Migrator", func() {
		It("cycles down and up again", func() {
			migrator, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			defer migrator.Close()

			version, dirty, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(uint(2)))
			Expect(dirty).To(BeFalse())

			Expect(migrator.Steps(-1)).To(Succeed())
			version, _, err = migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(uint(1)))

			Expect(migrator.Up()).To(Succeed())
			pending, err := migrator.PendingMigrations()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})
	})

	Describe("UserRepository", func() {
		It("enforces unique email at the storage layer under concurrency", func() {
			users := authpg.NewUserRepository(pool)

			const n = 8
			var wg sync.WaitGroup
			results := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					u, err := auth.NewUser("Racer", "race@example.com", "digest")
					Expect(err).NotTo(HaveOccurred())
					results <- users.Create(ctx, u)
				}()
			}
			wg.Wait()
			close(results)

			var ok, dup int
			for err := range results {
				if err == nil {
					ok++
					continue
				}
				Expect(err).To(MatchError(auth.ErrDuplicateEmail))
				dup++
			}
			Expect(ok).To(Equal(1))
			Expect(dup).To(Equal(n - 1))
		})
	})

	Describe("SessionRepository", func() {
		It("stores, expires, and deletes sessions", func() {
			users := authpg.NewUserRepository(pool)
			sessions := authpg.NewSessionRepository(pool)

			u, err := auth.NewUser("Ses", "session@example.com", "digest")
			Expect(err).NotTo(HaveOccurred())
			Expect(users.Create(ctx, u)).To(Succeed())

			created := time.Now().UTC().Truncate(time.Microsecond)
			_, hash, err := auth.GenerateSessionToken()
			Expect(err).NotTo(HaveOccurred())
			s, err := auth.NewSession(u.ID, hash, "agent", "127.0.0.1", created)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(ctx, s)).To(Succeed())

			got, err := sessions.GetByTokenHash(ctx, hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UserID).To(Equal(u.ID))
			Expect(got.ExpiresAt.Equal(s.ExpiresAt)).To(BeTrue())

			n, err := sessions.DeleteExpired(ctx, created.Add(auth.SessionTTL))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">=", 1))

			_, err = sessions.GetByTokenHash(ctx, hash)
			Expect(err).To(MatchError(auth.ErrNotFound))
			Expect(sessions.DeleteByTokenHash(ctx, hash)).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("EventRepository", func() {
		var (
			events       *calpg.EventRepository
			alice, bob   ulid.ULID
			createdEvent *calendar.Event
		)

		BeforeAll(func() {
			users := authpg.NewUserRepository(pool)
			events = calpg.NewEventRepository(pool)
			for i, email := range []string{"alice@example.com", "bob@example.com"} {
				u, err := auth.NewUser("U", email, "digest")
				Expect(err).NotTo(HaveOccurred())
				Expect(users.Create(ctx, u)).To(Succeed())
				if i == 0 {
					alice = u.ID
				} else {
					bob = u.ID
				}
			}
		})

		It("round-trips an event in insertion order", func() {
			var err error
			createdEvent, err = calendar.NewEvent(alice, calendar.CreateInput{
				Title: "Exam", Start: "2025-05-01T09:00", End: "2025-05-01T11:00", Type: "academic",
			}, time.Now().UTC())
			Expect(err).NotTo(HaveOccurred())
			Expect(events.Create(ctx, alice, createdEvent)).To(Succeed())

			second, err := calendar.NewEvent(alice, calendar.CreateInput{Title: "Later", Start: "a", End: "b"}, time.Now().UTC())
			Expect(err).NotTo(HaveOccurred())
			Expect(events.Create(ctx, alice, second)).To(Succeed())

			list, err := events.ListByOwner(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal(createdEvent.ID))
			Expect(list[0].Title).To(Equal("Exam"))
			Expect(list[0].Start).To(Equal("2025-05-01T09:00"))
			Expect(list[0].End).To(Equal("2025-05-01T11:00"))
			Expect(list[0].Type).To(Equal(calendar.EventTypeAcademic))
			Expect(list[0].Completed).To(BeFalse())
			Expect(list[1].ID).To(Equal(second.ID))

			other, err := events.ListByOwner(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(other).To(BeEmpty())
		})

		It("hides events from other owners", func() {
			_, err := events.Get(ctx, bob, createdEvent.ID)
			Expect(err).To(MatchError(calendar.ErrNotFound))
			_, err = events.ToggleCompleted(ctx, bob, createdEvent.ID, time.Now())
			Expect(err).To(MatchError(calendar.ErrNotFound))
			Expect(events.Delete(ctx, bob, createdEvent.ID)).To(MatchError(calendar.ErrNotFound))
			Expect(events.Update(ctx, bob, createdEvent)).To(MatchError(calendar.ErrNotFound))
		})

		It("toggles twice back to the original value", func() {
			got, err := events.ToggleCompleted(ctx, alice, createdEvent.ID, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Completed).To(BeTrue())
			got, err = events.ToggleCompleted(ctx, alice, createdEvent.ID, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Completed).To(BeFalse())
		})

		It("deletes", func() {
			Expect(events.Delete(ctx, alice, createdEvent.ID)).To(Succeed())
			_, err := events.Get(ctx, alice, createdEvent.ID)
			Expect(err).To(MatchError(calendar.ErrNotFound))
		})
	})
})
