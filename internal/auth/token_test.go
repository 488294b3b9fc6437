package auth

import (
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Codec", func() {
	const secret = "test-secret-at-least-32-characters!!"

	var codec *Codec

	ginkgo.BeforeEach(func() {
		codec = NewCodec(secret)
	})

	ginkgo.Describe("Sign and Verify", func() {
		ginkgo.It("should round-trip the identity claims", func() {
			// Given
			claims := Claims{
				UserID: "u-1",
				Email:  "staff@example.com",
				Role:   RoleUser,
				Roles:  []string{RoleUser},
				Name:   "Staff",
			}

			// When
			token, err := codec.Sign(claims, time.Hour)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(strings.Count(token, ".")).To(gomega.Equal(2))

			verified := codec.Verify(token)
			gomega.Expect(verified).ToNot(gomega.BeNil())
			gomega.Expect(verified.UserID).To(gomega.Equal("u-1"))
			gomega.Expect(verified.Email).To(gomega.Equal("staff@example.com"))
			gomega.Expect(verified.Role).To(gomega.Equal(RoleUser))
			gomega.Expect(verified.ExpiresAt).To(gomega.BeNumerically(">", verified.IssuedAt))
		})

		ginkgo.It("should reject a token signed with a different secret", func() {
			other := NewCodec("another-secret-also-32-characters-!!")
			token, err := other.Sign(Claims{UserID: "u-1"}, time.Hour)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(codec.Verify(token)).To(gomega.BeNil())
		})

		ginkgo.It("should reject a token with a tampered body", func() {
			token, err := codec.Sign(Claims{UserID: "u-1", Role: RoleUser}, time.Hour)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			parts := strings.Split(token, ".")
			// flip the payload, keep the original signature
			tampered := parts[0] + ".eyJpZCI6InUtOTk5In0." + parts[2]

			gomega.Expect(codec.Verify(tampered)).To(gomega.BeNil())
		})

		ginkgo.It("should reject malformed input without panicking", func() {
			for _, bad := range []string{
				"",
				"garbage",
				"a.b",
				"a.b.c.d",
				"!!!.???.***",
			} {
				gomega.Expect(codec.Verify(bad)).To(gomega.BeNil(), "input: %q", bad)
			}
		})
	})

	ginkgo.Describe("expiry", func() {
		ginkgo.It("should reject a token once the clock passes exp", func() {
			// Given a codec whose clock we control
			current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			clock := func() time.Time { return current }
			timed := NewCodecWithClock(secret, clock)

			token, err := timed.Sign(Claims{UserID: "u-1"}, 30*time.Minute)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// Still valid just before expiry
			current = current.Add(29 * time.Minute)
			gomega.Expect(timed.Verify(token)).ToNot(gomega.BeNil())

			// Invalid at and after expiry
			current = current.Add(2 * time.Minute)
			gomega.Expect(timed.Verify(token)).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("HashToken", func() {
		ginkgo.It("should be deterministic and token-specific", func() {
			a := HashToken("token-a")
			b := HashToken("token-b")

			gomega.Expect(a).To(gomega.Equal(HashToken("token-a")))
			gomega.Expect(a).ToNot(gomega.Equal(b))
			gomega.Expect(a).To(gomega.HaveLen(64))
		})
	})
})
