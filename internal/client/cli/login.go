package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/authkeeper/internal/validation"
	"github.com/iudanet/authkeeper/pkg/api"
)

func (c *Cli) runLogin(ctx context.Context, email string) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	email, err := c.readValue(email, "Email: ")
	if err != nil {
		return err
	}

	password, err := c.getPassword("Password: ")
	if err != nil {
		return err
	}

	req := api.LoginRequest{Email: email, Password: password}
	if err := validation.ValidateLogin(&req); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	user, err := c.apiClient.Login(ctx, req)
	if err != nil {
		return err
	}

	authData, err := c.store.GetAuth(ctx)
	if err != nil {
		return fmt.Errorf("failed to read saved session: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Email: %s\n", authData.Email)
	if !user.Verified {
		c.io.Println("Email is not verified yet, check your inbox for the code.")
	}
	c.io.Printf("Session expires: %s\n", time.Unix(authData.RefreshExpiresAt, 0).Format(time.RFC3339))
	c.io.Println()
	c.io.Println("Your session has been saved.")

	return nil
}
