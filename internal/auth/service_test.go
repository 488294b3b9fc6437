package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/anditama/inventory-management/internal"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock DirectoryRepository for testing
type mockDirectory struct {
	usersByID    map[string]*User
	usersByEmail map[string]*User
	permsByUser  map[string][]string
	rolePerms    map[string][]string
	activeAdmins int64

	// linked session store so role changes clear caches like the real
	// repository does transactionally
	sessions *mockSessions

	returnError   bool
	errorToReturn error
}

func newMockDirectory(sessions *mockSessions) *mockDirectory {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	users := []*User{
		{ID: "u-1", Email: "staff@example.com", Name: "Staff", PasswordHash: string(hashedPassword), IsActive: true, Roles: []string{RoleUser}},
		{ID: "u-2", Email: "admin@example.com", Name: "Admin", PasswordHash: string(hashedPassword), IsActive: true, Roles: []string{RoleAdmin}},
		{ID: "u-3", Email: "root@example.com", Name: "Root", PasswordHash: string(hashedPassword), IsActive: true, Roles: []string{RoleSuperadmin}},
		{ID: "u-4", Email: "gone@example.com", Name: "Gone", PasswordHash: string(hashedPassword), IsActive: false, Roles: []string{RoleUser}},
	}

	d := &mockDirectory{
		usersByID:    make(map[string]*User),
		usersByEmail: make(map[string]*User),
		permsByUser: map[string][]string{
			"u-1": {PermAssetsRead, PermAuditsRead},
		},
		rolePerms:    make(map[string][]string),
		activeAdmins: 1,
		sessions:     sessions,
	}
	for _, u := range users {
		d.usersByID[u.ID] = u
		d.usersByEmail[u.Email] = u
	}
	return d
}

func (m *mockDirectory) GetUserByID(_ context.Context, userID string) (*User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	if u, ok := m.usersByID[userID]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (m *mockDirectory) GetUserByEmail(_ context.Context, email string) (*User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	if u, ok := m.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (m *mockDirectory) GetUserPermissions(_ context.Context, userID string) ([]string, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	return m.permsByUser[userID], nil
}

func (m *mockDirectory) GetRolePermissions(_ context.Context, role string) ([]string, error) {
	return m.rolePerms[role], nil
}

func (m *mockDirectory) SetUserRoles(_ context.Context, userID string, roles []string) error {
	if m.returnError {
		return m.errorToReturn
	}
	if u, ok := m.usersByID[userID]; ok {
		u.Roles = roles
	}
	if m.sessions != nil {
		_ = m.sessions.InvalidatePermissionCache(context.Background(), userID)
	}
	return nil
}

func (m *mockDirectory) SetRolePermissions(_ context.Context, role string, permissions []string) error {
	if m.returnError {
		return m.errorToReturn
	}
	m.rolePerms[role] = permissions
	return nil
}

func (m *mockDirectory) CountActiveAdmins(_ context.Context) (int64, error) {
	return m.activeAdmins, nil
}

// Mock SessionRepository for testing
type mockSessions struct {
	rows map[string]*Session
}

func newMockSessions() *mockSessions {
	return &mockSessions{rows: make(map[string]*Session)}
}

func (m *mockSessions) Create(_ context.Context, session *Session) error {
	copied := *session
	m.rows[session.TokenHash] = &copied
	return nil
}

func (m *mockSessions) IsActive(_ context.Context, tokenHash string) (bool, error) {
	row, ok := m.rows[tokenHash]
	if !ok {
		return false, nil
	}
	if row.RevokedAt != nil {
		return false, nil
	}
	if row.ExpiresAt != nil && !row.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	return true, nil
}

func (m *mockSessions) Revoke(_ context.Context, tokenHash string) error {
	if row, ok := m.rows[tokenHash]; ok && row.RevokedAt == nil {
		now := time.Now()
		row.RevokedAt = &now
	}
	return nil
}

func (m *mockSessions) RevokeAllForUser(_ context.Context, userID string) error {
	now := time.Now()
	for _, row := range m.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			row.RevokedAt = &now
		}
	}
	return nil
}

func (m *mockSessions) CachedPermissions(_ context.Context, tokenHash string) ([]string, bool, error) {
	row, ok := m.rows[tokenHash]
	if !ok || row.Permissions == nil {
		return nil, false, nil
	}
	return row.Permissions, true, nil
}

func (m *mockSessions) StorePermissions(_ context.Context, tokenHash string, permissions []string) error {
	if row, ok := m.rows[tokenHash]; ok {
		row.Permissions = permissions
	}
	return nil
}

func (m *mockSessions) InvalidatePermissionCache(_ context.Context, userID string) error {
	for _, row := range m.rows {
		if row.UserID == userID {
			row.Permissions = nil
		}
	}
	return nil
}

func (m *mockSessions) PurgeExpired(_ context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	var purged int64
	for hash, row := range m.rows {
		expired := row.ExpiresAt != nil && row.ExpiresAt.Before(cutoff)
		revoked := row.RevokedAt != nil && row.RevokedAt.Before(cutoff)
		if expired || revoked {
			delete(m.rows, hash)
			purged++
		}
	}
	return purged, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service   *Service
		directory *mockDirectory
		sessions  *mockSessions
		codec     *Codec
	)

	ginkgo.BeforeEach(func() {
		sessions = newMockSessions()
		directory = newMockDirectory(sessions)
		codec = NewCodec("test-secret-at-least-32-characters!!")
		service = NewService(directory, sessions, codec, time.Hour, bcrypt.MinCost, testLogger())
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return a signed token and persist a session", func() {
				// Given
				dto := LoginDTO{Email: "staff@example.com", Password: "correct_password"}

				// When
				result, err := service.Authenticate(context.Background(), dto)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.Token).ToNot(gomega.BeEmpty())
				gomega.Expect(result.User.ID).To(gomega.Equal("u-1"))

				active, err := sessions.IsActive(context.Background(), HashToken(result.Token))
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(active).To(gomega.BeTrue())
			})

			ginkgo.It("should embed identity claims in the token", func() {
				// Given
				dto := LoginDTO{Email: "admin@example.com", Password: "correct_password"}

				// When
				result, err := service.Authenticate(context.Background(), dto)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				claims := codec.Verify(result.Token)
				gomega.Expect(claims).ToNot(gomega.BeNil())
				gomega.Expect(claims.UserID).To(gomega.Equal("u-2"))
				gomega.Expect(claims.Email).To(gomega.Equal("admin@example.com"))
				gomega.Expect(claims.Role).To(gomega.Equal(RoleAdmin))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should reject an unknown email", func() {
				dto := LoginDTO{Email: "nobody@example.com", Password: "correct_password"}

				result, err := service.Authenticate(context.Background(), dto)

				gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidCredentials))
				gomega.Expect(result).To(gomega.BeNil())
			})

			ginkgo.It("should reject a wrong password", func() {
				dto := LoginDTO{Email: "staff@example.com", Password: "wrong_password"}

				result, err := service.Authenticate(context.Background(), dto)

				gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidCredentials))
				gomega.Expect(result).To(gomega.BeNil())
			})

			ginkgo.It("should reject an inactive user", func() {
				dto := LoginDTO{Email: "gone@example.com", Password: "correct_password"}

				result, err := service.Authenticate(context.Background(), dto)

				gomega.Expect(err).To(gomega.Equal(internal.ErrUserInactive))
				gomega.Expect(result).To(gomega.BeNil())
			})
		})

		ginkgo.Context("when input validation fails", func() {
			ginkgo.It("should return validation error for empty email", func() {
				dto := LoginDTO{Email: "", Password: "password"}

				result, err := service.Authenticate(context.Background(), dto)

				gomega.Expect(err).To(gomega.HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeValidationFailed))
				gomega.Expect(result).To(gomega.BeNil())
			})
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should revoke the session behind the token", func() {
			// Given
			result, err := service.Authenticate(context.Background(), LoginDTO{Email: "staff@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// When
			err = service.Logout(context.Background(), result.Token)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			active, err := sessions.IsActive(context.Background(), HashToken(result.Token))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(active).To(gomega.BeFalse())
		})

		ginkgo.It("should reject a malformed token", func() {
			err := service.Logout(context.Background(), "not-a-token")

			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("CurrentUser", func() {
		ginkgo.It("should resolve the user behind an active session", func() {
			result, err := service.Authenticate(context.Background(), LoginDTO{Email: "staff@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			user, err := service.CurrentUser(context.Background(), result.Token)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user.ID).To(gomega.Equal("u-1"))
		})

		ginkgo.It("should refuse a token whose session was revoked", func() {
			result, err := service.Authenticate(context.Background(), LoginDTO{Email: "staff@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(service.Logout(context.Background(), result.Token)).To(gomega.Succeed())

			user, err := service.CurrentUser(context.Background(), result.Token)

			gomega.Expect(err).To(gomega.Equal(internal.ErrSessionRevoked))
			gomega.Expect(user).To(gomega.BeNil())
		})
	})
})
