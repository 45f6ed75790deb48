// seed inserts demo accounts into the local dev database: a verified
// student, a verified instructor, and an unverified student with an
// outstanding verification token (printed so the verify link can be
// exercised by hand).
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/socraticschool/accounts/internal/domain"
	"github.com/socraticschool/accounts/internal/infrastructure/postgres"
	"github.com/socraticschool/accounts/internal/token"
)

const seedPassword = "password123"

type account struct {
	email       string
	username    string
	firstName   string
	lastName    string
	nationality string
	age         int
	role        domain.Role
	verified    bool
}

var accounts = []account{
	{"student@seed.local", "seed-student", "Sofia", "Alvarez", "AR", 21, domain.RoleStudent, true},
	{"instructor@seed.local", "seed-instructor", "Marcus", "Webb", "GB", 44, domain.RoleInstructor, true},
	{"pending@seed.local", "seed-pending", "Ines", "Moreau", "FR", 19, domain.RoleStudent, false},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := postgres.RunMigrations(ctx, dbURL); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	for _, a := range accounts {
		user, err := repo.Create(ctx, &domain.User{
			Email:        a.email,
			Username:     a.username,
			PasswordHash: string(hash),
			FirstName:    a.firstName,
			LastName:     a.lastName,
			Nationality:  a.nationality,
			Age:          a.age,
			Role:         a.role,
		})
		if err != nil {
			if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrUsernameTaken) {
				fmt.Printf("skip %s (already seeded)\n", a.email)
				continue
			}
			log.Fatalf("create %s: %v", a.email, err)
		}

		if a.verified {
			if _, err := repo.ConsumeVerificationToken(ctx, user.ID); err != nil {
				log.Fatalf("verify %s: %v", a.email, err)
			}
			fmt.Printf("seeded %s (%s, verified)\n", a.email, a.role)
			continue
		}

		tok, expiresAt := token.Generate(24 * time.Hour)
		if err := repo.IssueVerificationToken(ctx, user.ID, tok, expiresAt); err != nil {
			log.Fatalf("issue token for %s: %v", a.email, err)
		}
		fmt.Printf("seeded %s (%s, unverified)\n", a.email, a.role)
		fmt.Printf("  verify link: http://localhost:8080/api/auth/verify-email?token=%s\n", tok)
	}

	fmt.Printf("\nall seed accounts use password %q\n", seedPassword)
}
