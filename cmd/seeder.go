package cmd

import (
	"fmt"
	"log"

	"github.com/anditama/inventory-management/internal/auth"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with roles, permissions and bootstrap users",
	Long:  `Seed the role and permission catalog plus bootstrap accounts for development and first deployment.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		seedRoles(db)
		seedPermissions(db)
		seedRoleGrants(db)

		seedUser(db, "root@inventory.local", "Root", cfg.Security.BCryptCost, auth.RoleSuperadmin)
		seedUser(db, "admin@inventory.local", "Admin", cfg.Security.BCryptCost, auth.RoleAdmin)
		seedUser(db, "staff@inventory.local", "Staff", cfg.Security.BCryptCost, auth.RoleUser)

		fmt.Println("Seeding complete")
	},
}

func seedRoles(db *gorm.DB) {
	for _, name := range []string{auth.RoleSuperadmin, auth.RoleAdmin, auth.RoleUser} {
		var exists int
		if err := db.Raw("SELECT 1 FROM roles WHERE name = ?", name).Row().Scan(&exists); err == nil {
			continue
		}
		if err := db.Exec("INSERT INTO roles (name, created_at) VALUES (?, now())", name).Error; err != nil {
			log.Fatalf("failed to insert role %s: %v", name, err)
		}
		fmt.Println("Seeded role:", name)
	}
}

func seedPermissions(db *gorm.DB) {
	for _, p := range auth.PermissionCatalog() {
		var exists int
		if err := db.Raw("SELECT 1 FROM permissions WHERE name = ?", p).Row().Scan(&exists); err == nil {
			continue
		}
		if err := db.Exec("INSERT INTO permissions (name, created_at) VALUES (?, now())", p).Error; err != nil {
			log.Fatalf("failed to insert permission %s: %v", p, err)
		}
		fmt.Println("Seeded permission:", p)
	}
}

// seedRoleGrants installs the default role to permission mapping. Superadmin
// and admin hold everything; regular users get read access only.
func seedRoleGrants(db *gorm.DB) {
	grants := map[string][]string{
		auth.RoleSuperadmin: auth.PermissionCatalog(),
		auth.RoleAdmin:      auth.PermissionCatalog(),
		auth.RoleUser: {
			auth.PermAssetsRead,
			auth.PermLicensesRead,
			auth.PermVendorsRead,
			auth.PermAuditsRead,
		},
	}

	for role, perms := range grants {
		for _, perm := range perms {
			var exists int
			err := db.Raw(`SELECT 1 FROM role_permissions rp
				JOIN roles r ON r.id = rp.role_id
				JOIN permissions p ON p.id = rp.permission_id
				WHERE r.name = ? AND p.name = ?`, role, perm).Row().Scan(&exists)
			if err == nil {
				continue
			}
			if err := db.Exec(`INSERT INTO role_permissions (role_id, permission_id, created_at)
				SELECT r.id, p.id, now() FROM roles r, permissions p
				WHERE r.name = ? AND p.name = ?`, role, perm).Error; err != nil {
				log.Fatalf("failed to grant %s to %s: %v", perm, role, err)
			}
		}
	}
	fmt.Println("Seeded role grants")
}

func seedUser(db *gorm.DB, email, name string, bcryptCost int, role string) {
	var exists int
	if err := db.Raw("SELECT 1 FROM users WHERE email = ?", email).Row().Scan(&exists); err == nil {
		fmt.Printf("user %s already exists, skipping\n", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcryptCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	id := uuid.NewString()
	if err := db.Exec(`INSERT INTO users (id, email, name, password_hash, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, true, now(), now())`, id, email, name, string(hash)).Error; err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}

	if err := db.Exec(`INSERT INTO user_roles (user_id, role_id, created_at)
		SELECT ?, id, now() FROM roles WHERE name = ?`, id, role).Error; err != nil {
		log.Fatalf("failed to assign role %s to %s: %v", role, email, err)
	}

	fmt.Printf("Seeded %s user: %s\n", role, email)
}
