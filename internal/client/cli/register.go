package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/authkeeper/internal/validation"
	"github.com/iudanet/authkeeper/pkg/api"
)

func (c *Cli) runRegister(ctx context.Context, name, email string) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	name, err := c.readValue(name, "Name: ")
	if err != nil {
		return err
	}

	email, err = c.readValue(email, "Email: ")
	if err != nil {
		return err
	}

	password, confirm, err := c.getNewPassword("Password (min 6 chars): ")
	if err != nil {
		return err
	}

	req := api.RegisterRequest{
		Name:            name,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	}
	// Проверяем локально, чтобы не тратить лимит запросов
	if err := validation.ValidateRegister(&req); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	c.io.Println()
	c.io.Println("Registering user...")

	user, err := c.apiClient.Register(ctx, req)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID: %s\n", user.ID)
	c.io.Printf("Email: %s\n", user.Email)
	c.io.Println()
	c.io.Println("A verification email has been sent.")
	c.io.Println("Run 'authkeeper verify-email <code>' to confirm your address.")

	return nil
}
