package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/anditama/inventory-management/internal"
)

var _ = ginkgo.Describe("Policy", func() {
	var policy *Policy

	superadmin := Actor{ID: "root", Roles: []string{RoleSuperadmin}, IsActive: true}
	adminOne := Actor{ID: "admin-1", Roles: []string{RoleAdmin}, IsActive: true}
	adminTwo := Actor{ID: "admin-2", Roles: []string{RoleAdmin}, IsActive: true}
	staff := Actor{ID: "staff-1", Roles: []string{RoleUser}, IsActive: true}

	ginkgo.BeforeEach(func() {
		policy = NewPolicy()
	})

	ginkgo.Describe("CanModify", func() {
		ginkgo.Context("superadmin target", func() {
			ginkgo.It("should be immutable for every viewer and operation", func() {
				for _, viewer := range []Actor{superadmin, adminOne, staff} {
					for _, op := range []Operation{OpEditProfile, OpChangeRoles, OpDeactivate, OpResetPassword, OpRemove} {
						decision := policy.CanModify(viewer, superadmin, op, 5)
						gomega.Expect(decision.Allowed).To(gomega.BeFalse(), "viewer %s op %s", viewer.ID, op)
						gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeTargetIsSuperadmin))
					}
				}
			})
		})

		ginkgo.Context("admin acting on another admin", func() {
			ginkgo.It("should be rejected with a distinct reason", func() {
				decision := policy.CanModify(adminOne, adminTwo, OpChangeRoles, 5)

				gomega.Expect(decision.Allowed).To(gomega.BeFalse())
				gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeTargetIsOtherAdmin))
				gomega.Expect(decision.Err).To(gomega.Equal(internal.ErrTargetIsOtherAdmin))
			})

			ginkgo.It("should allow an admin acting on themselves", func() {
				decision := policy.CanModify(adminOne, adminOne, OpEditProfile, 5)

				gomega.Expect(decision.Allowed).To(gomega.BeTrue())
			})

			ginkgo.It("should exempt a superadmin viewer", func() {
				decision := policy.CanModify(superadmin, adminTwo, OpChangeRoles, 5)

				gomega.Expect(decision.Allowed).To(gomega.BeTrue())
			})
		})

		ginkgo.Context("last active admin", func() {
			ginkgo.It("should reject deactivation for every viewer, superadmin included", func() {
				for _, viewer := range []Actor{superadmin, adminOne} {
					decision := policy.CanModify(viewer, adminOne, OpDeactivate, 1)
					gomega.Expect(decision.Allowed).To(gomega.BeFalse(), "viewer %s", viewer.ID)
					gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeLastActiveAdmin))
				}
			})

			ginkgo.It("should reject removal the same way", func() {
				decision := policy.CanModify(superadmin, adminOne, OpRemove, 1)

				gomega.Expect(decision.Allowed).To(gomega.BeFalse())
				gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeLastActiveAdmin))
			})

			ginkgo.It("should allow deactivation when another active admin remains", func() {
				decision := policy.CanModify(superadmin, adminOne, OpDeactivate, 2)

				gomega.Expect(decision.Allowed).To(gomega.BeTrue())
			})

			ginkgo.It("should not guard non-admin targets", func() {
				decision := policy.CanModify(adminOne, staff, OpDeactivate, 1)

				gomega.Expect(decision.Allowed).To(gomega.BeTrue())
			})
		})
	})

	ginkgo.Describe("CheckRoleChange", func() {
		ginkgo.It("should flag a demotion away from admin for confirmation", func() {
			decision := policy.CheckRoleChange(superadmin, adminTwo, []string{RoleUser}, 2)

			gomega.Expect(decision.Allowed).To(gomega.BeTrue())
			gomega.Expect(decision.RequiresConfirmation).To(gomega.BeTrue())
			gomega.Expect(decision.CurrentRole).To(gomega.Equal(RoleAdmin))
			gomega.Expect(decision.TargetRole).To(gomega.Equal(RoleUser))
		})

		ginkgo.It("should not require confirmation for a promotion", func() {
			decision := policy.CheckRoleChange(superadmin, staff, []string{RoleAdmin}, 2)

			gomega.Expect(decision.Allowed).To(gomega.BeTrue())
			gomega.Expect(decision.RequiresConfirmation).To(gomega.BeFalse())
		})

		ginkgo.It("should keep rejecting blocked targets before confirmation logic", func() {
			decision := policy.CheckRoleChange(adminOne, adminTwo, []string{RoleUser}, 2)

			gomega.Expect(decision.Allowed).To(gomega.BeFalse())
			gomega.Expect(decision.Reason).To(gomega.Equal(internal.ErrCodeTargetIsOtherAdmin))
		})
	})
})
