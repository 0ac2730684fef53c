// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package realm_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/realmgate/internal/audit"
	"github.com/holomush/realmgate/internal/realm"
	"github.com/holomush/realmgate/internal/realm/realmtest"
)

var _ = Describe("realm decisions", func() {
	var (
		ctx   context.Context
		authn *realm.Authenticator
		authz *realm.Authorizer
		creds realmtest.Credentials
	)

	BeforeEach(func() {
		ctx = context.Background()
		creds = realmtest.FixtureCredentials()

		var err error
		authn, err = realm.NewAuthenticator(realm.AuthenticatorConfig{
			Realm: realmtest.FixtureRealm,
			Role:  realmtest.FixtureRole,
		}, creds, realm.WithAuthenticatorAudit(audit.NewLogger(audit.ModeNone, nil)))
		Expect(err).NotTo(HaveOccurred())

		authz, err = realm.NewAuthorizer(realmtest.FixturePermissions(),
			realm.WithAuthorizerAudit(audit.NewLogger(audit.ModeNone, nil)))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Authenticate", func() {
		It("grants the configured realm and role for every stored credential", func() {
			for authid, ticket := range creds {
				grant, err := authn.Authenticate(ctx, realmtest.FixtureRealm, authid, realm.TicketDetails(ticket))
				Expect(err).NotTo(HaveOccurred(), authid)
				Expect(grant.Realm).To(Equal(realmtest.FixtureRealm))
				Expect(grant.Role).To(Equal(realmtest.FixtureRole))
			}
		})

		It("rejects every mismatched ticket as an invalid credential", func() {
			for authid, ticket := range creds {
				for _, wrong := range []string{ticket + "x", "", "x" + ticket} {
					_, err := authn.Authenticate(ctx, realmtest.FixtureRealm, authid, realm.TicketDetails(wrong))
					Expect(realm.ErrorKind(err)).To(Equal(realm.KindInvalidCredential))
				}
			}
		})

		It("reports a missing ticket regardless of identity", func() {
			for _, authid := range []string{"bob", "philippe", "ghost", ""} {
				_, err := authn.Authenticate(ctx, realmtest.FixtureRealm, authid, realm.Details{})
				Expect(realm.ErrorKind(err)).To(Equal(realm.KindMissingCredential))
			}
		})

		It("reports the realm, never the credential, when only the realm is wrong", func() {
			for authid, ticket := range creds {
				_, err := authn.Authenticate(ctx, "otherRealm", authid, realm.TicketDetails(ticket))
				Expect(realm.ErrorKind(err)).To(Equal(realm.KindInvalidRealm))
				Expect(err.Error()).To(ContainSubstring("otherRealm"))
			}
		})
	})

	Describe("Authorize", func() {
		identities := []string{"philippe", "bob", "bastardo", "john", "stranger"}
		resources := []string{"topic1", "topic2", "topic3", "com.example.procedure"}

		It("always allows call with disclosure", func() {
			for _, id := range identities {
				for _, r := range resources {
					d, err := authz.Authorize(ctx, realm.Session{AuthID: id}, r, realm.ActionCall)
					Expect(err).NotTo(HaveOccurred())
					Expect(d).To(Equal(realm.Decision{Allow: true, Disclose: true}))
				}
			}
		})

		It("always denies register", func() {
			for _, id := range identities {
				for _, r := range resources {
					d, err := authz.Authorize(ctx, realm.Session{AuthID: id}, r, realm.ActionRegister)
					Expect(err).NotTo(HaveOccurred())
					Expect(d.Allow).To(BeFalse())
				}
			}
		})

		It("denies subscribe and publish without a permission entry", func() {
			perms := realmtest.FixturePermissions()
			for _, id := range identities {
				for _, r := range resources {
					if _, ok := perms[r][id]; ok {
						continue
					}
					for _, a := range []realm.Action{realm.ActionSubscribe, realm.ActionPublish} {
						d, err := authz.Authorize(ctx, realm.Session{AuthID: id}, r, a)
						Expect(err).NotTo(HaveOccurred())
						Expect(d.Allow).To(BeFalse(), "%s %s %s", id, r, a)
					}
				}
			}
		})

		It("mirrors the permission entry when one exists", func() {
			for r, byID := range realmtest.FixturePermissions() {
				for id, perm := range byID {
					sub, err := authz.Authorize(ctx, realm.Session{AuthID: id}, r, realm.ActionSubscribe)
					Expect(err).NotTo(HaveOccurred())
					Expect(sub).To(Equal(realm.Decision{Allow: perm.Subscribe, Disclose: true}))

					pub, err := authz.Authorize(ctx, realm.Session{AuthID: id}, r, realm.ActionPublish)
					Expect(err).NotTo(HaveOccurred())
					Expect(pub).To(Equal(realm.Decision{Allow: perm.Publish, Disclose: true}))
				}
			}
		})
	})
})
