package authorization

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// bootstrapSuperuserFromEnv creates the first superuser when
// BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD are set and no user with
// that email exists yet. Re-running with the same values is a no-op.
func bootstrapSuperuserFromEnv(users *UserStore) error {
	email := strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))
	password := strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"))
	if email == "" || password == "" {
		return nil
	}

	ctx := context.Background()

	existing, err := users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("authorization: bootstrap superuser: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	var fullName *string
	if name := strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_NAME")); name != "" {
		fullName = &name
	}

	user := &User{
		Email:          email,
		HashedPassword: hash,
		FullName:       fullName,
		IsActive:       true,
		IsSuperuser:    true,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("authorization: bootstrap superuser: %w", err)
	}

	log.Info().Str("component", "authorization").Str("email", email).Msg("bootstrap superuser created")
	return nil
}
