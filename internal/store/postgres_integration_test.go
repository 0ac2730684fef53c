// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/realmgate/internal/realm"
	"github.com/holomush/realmgate/internal/store"
	"github.com/holomush/realmgate/internal/tables"
)

// setupPostgresContainer starts PostgreSQL and applies all migrations.
func setupPostgresContainer() (*pgxpool.Pool, string, func(), error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("realmgate_test"),
		postgres.WithUsername("realmgate"),
		postgres.WithPassword("realmgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, "", nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, "", nil, err
	}
	if err := migrator.Close(); err != nil {
		return nil, "", nil, err
	}

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		return nil, "", nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return pool, connStr, cleanup, nil
}

var _ = Describe("PostgresSource", func() {
	var (
		pool    *pgxpool.Pool
		connStr string
		cleanup func()
	)

	BeforeEach(func() {
		var err error
		pool, connStr, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	It("round-trips seeded tables", func() {
		ctx := context.Background()
		seed := tables.Tables{
			Credentials: map[string]string{"philippe": "torreton", "bob": "dylan"},
			Permissions: map[string]map[string]tables.PermissionEntry{
				"topic1": {
					"philippe": {Subscribe: true},
					"bob":      {Subscribe: true, Publish: true},
				},
			},
		}

		res, err := store.Seed(ctx, pool, seed)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.CredentialsCreated).To(Equal(2))
		Expect(res.PermissionsCreated).To(Equal(2))

		res, err = store.Seed(ctx, pool, seed)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.CredentialsSkipped).To(Equal(2))
		Expect(res.PermissionsSkipped).To(Equal(2))

		got, err := store.NewPostgresSource(pool).Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(seed))
	})

	It("reloads the cache when a row changes", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cache := tables.NewCache(store.NewPostgresSource(pool))
		Expect(cache.StartWithListener(ctx, store.NewPgListener(connStr))).To(Succeed())
		Eventually(cache.Loaded).Should(BeTrue())

		authz, err := realm.NewAuthorizer(cache)
		Expect(err).NotTo(HaveOccurred())
		session := realm.Session{AuthID: "bob", AuthRole: "dynamic_user"}

		d, err := authz.Authorize(ctx, session, "topic1", realm.ActionPublish)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Allow).To(BeFalse())

		_, err = pool.Exec(ctx,
			`INSERT INTO realm_permissions (uri, authid, can_subscribe, can_publish) VALUES ('topic1', 'bob', true, true)`)
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() bool {
			d, err := authz.Authorize(ctx, session, "topic1", realm.ActionPublish)
			return err == nil && d.Allow
		}).WithTimeout(5 * time.Second).Should(BeTrue())

		cancel()
		cache.Wait()
	})
})
