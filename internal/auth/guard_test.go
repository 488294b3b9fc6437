package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/anditama/inventory-management/internal"
)

var _ = ginkgo.Describe("Guard", func() {
	const secret = "test-secret-at-least-32-characters!!"

	var (
		guard      *Guard
		directory  *mockDirectory
		sessions   *mockSessions
		aggregator *Aggregator
		codec      *Codec
	)

	// login mints a token plus backing session the way the auth service does
	login := func(userID string) string {
		user := directory.usersByID[userID]
		token, err := codec.Sign(Claims{
			UserID: user.ID,
			Email:  user.Email,
			Role:   primaryRole(user.Roles),
			Roles:  user.Roles,
		}, time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		expires := time.Now().Add(time.Hour)
		gomega.Expect(sessions.Create(context.Background(), &Session{
			TokenHash: HashToken(token),
			UserID:    user.ID,
			ExpiresAt: &expires,
		})).To(gomega.Succeed())
		return token
	}

	ginkgo.BeforeEach(func() {
		sessions = newMockSessions()
		directory = newMockDirectory(sessions)
		codec = NewCodec(secret)
		aggregator = NewAggregator(directory, testLogger())
		guard = NewGuard(codec, sessions, directory, aggregator, testLogger())
	})

	ginkgo.Describe("RequirePermission", func() {
		ginkgo.Context("unauthenticated callers", func() {
			ginkgo.It("should return 401 for a missing token", func() {
				decision := guard.RequirePermission(context.Background(), "", PermAssetsRead)

				gomega.Expect(decision.OK).To(gomega.BeFalse())
				gomega.Expect(decision.Status).To(gomega.Equal(http.StatusUnauthorized))
			})

			ginkgo.It("should return 401 for a tampered token", func() {
				token := login("u-1")

				decision := guard.RequirePermission(context.Background(), token+"x", PermAssetsRead)

				gomega.Expect(decision.Status).To(gomega.Equal(http.StatusUnauthorized))
				gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeInvalidToken))
			})

			ginkgo.It("should return 401 for a structurally valid token with no session", func() {
				token, err := codec.Sign(Claims{UserID: "u-1"}, time.Hour)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				decision := guard.RequirePermission(context.Background(), token, PermAssetsRead)

				gomega.Expect(decision.Status).To(gomega.Equal(http.StatusUnauthorized))
				gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeSessionRevoked))
			})

			ginkgo.It("should return 401 once the session is revoked, before any permission check", func() {
				token := login("u-1")
				gomega.Expect(sessions.Revoke(context.Background(), HashToken(token))).To(gomega.Succeed())

				decision := guard.RequirePermission(context.Background(), token, PermAssetsRead)

				gomega.Expect(decision.OK).To(gomega.BeFalse())
				gomega.Expect(decision.Status).To(gomega.Equal(http.StatusUnauthorized))
				gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeSessionRevoked))
			})

			ginkgo.It("should return 401 for a deactivated user with a live session", func() {
				token := login("u-1")
				directory.usersByID["u-1"].IsActive = false

				decision := guard.RequirePermission(context.Background(), token, PermAssetsRead)

				gomega.Expect(decision.Status).To(gomega.Equal(http.StatusUnauthorized))
				gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeUserInactive))
			})
		})

		ginkgo.Context("authenticated callers", func() {
			ginkgo.It("should grant a permission the caller's roles provide", func() {
				token := login("u-1")

				decision := guard.RequirePermission(context.Background(), token, PermAssetsRead)

				gomega.Expect(decision.OK).To(gomega.BeTrue())
				gomega.Expect(decision.Me.UserID).To(gomega.Equal("u-1"))
			})

			ginkgo.It("should return 403 for a permission the caller lacks", func() {
				token := login("u-1")

				decision := guard.RequirePermission(context.Background(), token, PermUsersWrite)

				gomega.Expect(decision.OK).To(gomega.BeFalse())
				gomega.Expect(decision.Status).To(gomega.Equal(http.StatusForbidden))
				gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeInsufficientPermissions))
			})

			ginkgo.It("should grant everything to admin and superadmin roles", func() {
				adminToken := login("u-2")
				rootToken := login("u-3")

				for _, token := range []string{adminToken, rootToken} {
					decision := guard.RequirePermission(context.Background(), token, PermUsersWrite)
					gomega.Expect(decision.OK).To(gomega.BeTrue())
				}
			})
		})

		ginkgo.Context("role changes mid-session", func() {
			ginkgo.It("should drop admin capability on the request after a demotion", func() {
				// Given an admin with a live session
				token := login("u-2")
				gomega.Expect(guard.RequirePermission(context.Background(), token, PermUsersWrite).OK).To(gomega.BeTrue())

				// When the admin is demoted to a regular user
				gomega.Expect(aggregator.SetUserRoles(context.Background(), "u-2", []string{RoleUser})).To(gomega.Succeed())

				// Then the very next check sees the new role set even though
				// the token still names the old role
				decision := guard.RequirePermission(context.Background(), token, PermUsersWrite)
				gomega.Expect(decision.OK).To(gomega.BeFalse())
				gomega.Expect(decision.Status).To(gomega.Equal(http.StatusForbidden))
			})

			ginkgo.It("should re-aggregate permissions after the cache is invalidated", func() {
				token := login("u-1")
				gomega.Expect(guard.RequirePermission(context.Background(), token, PermAssetsRead).OK).To(gomega.BeTrue())

				// cache now holds the old blob; a role change clears it and
				// the new aggregation takes over
				directory.permsByUser["u-1"] = []string{PermVendorsRead}
				gomega.Expect(aggregator.SetUserRoles(context.Background(), "u-1", []string{RoleUser})).To(gomega.Succeed())

				gomega.Expect(guard.RequirePermission(context.Background(), token, PermAssetsRead).OK).To(gomega.BeFalse())
				gomega.Expect(guard.RequirePermission(context.Background(), token, PermVendorsRead).OK).To(gomega.BeTrue())
			})
		})

		ginkgo.Context("permission cache", func() {
			ginkgo.It("should serve repeated checks from the session blob", func() {
				token := login("u-1")
				gomega.Expect(guard.RequirePermission(context.Background(), token, PermAssetsRead).OK).To(gomega.BeTrue())

				// Without invalidation, a direct change to the join tables is
				// not visible; the cached blob still answers
				directory.permsByUser["u-1"] = nil

				gomega.Expect(guard.RequirePermission(context.Background(), token, PermAssetsRead).OK).To(gomega.BeTrue())
			})
		})
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("should resolve the caller without any permission check", func() {
			token := login("u-1")

			decision := guard.Authenticate(context.Background(), token)

			gomega.Expect(decision.OK).To(gomega.BeTrue())
			gomega.Expect(decision.Me.Role).To(gomega.Equal(RoleUser))
			gomega.Expect(decision.Me.TokenHash).To(gomega.Equal(HashToken(token)))
		})

		ginkgo.It("should return 401 for a revoked session", func() {
			token := login("u-1")
			gomega.Expect(sessions.Revoke(context.Background(), HashToken(token))).To(gomega.Succeed())

			decision := guard.Authenticate(context.Background(), token)

			gomega.Expect(decision.OK).To(gomega.BeFalse())
			gomega.Expect(decision.Status).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})
