package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/authkeeper/internal/validation"
	"github.com/iudanet/authkeeper/pkg/api"
)

func (c *Cli) runVerifyEmail(ctx context.Context, code string) error {
	if err := validation.ValidateCode(code); err != nil {
		return fmt.Errorf("invalid code: %w", err)
	}

	resp, err := c.apiClient.VerifyEmail(ctx, code)
	if err != nil {
		return err
	}

	c.io.Printf("✓ %s\n", resp.Message)
	return nil
}

func (c *Cli) runForgotPassword(ctx context.Context, email string) error {
	email, err := c.readValue(email, "Email: ")
	if err != nil {
		return err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	resp, err := c.apiClient.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}

	c.io.Printf("✓ %s\n", resp.Message)
	c.io.Println("Check your inbox and run 'authkeeper reset-password <code>'.")
	return nil
}

func (c *Cli) runResetPassword(ctx context.Context, code string) error {
	password, confirm, err := c.getNewPassword("New password (min 6 chars): ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	req := api.ResetPasswordRequest{VerificationCode: code, Password: password}
	if err := validation.ValidateResetPassword(&req); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	resp, err := c.apiClient.ResetPassword(ctx, req)
	if err != nil {
		return err
	}

	c.io.Printf("✓ %s\n", resp.Message)
	c.io.Println("All sessions were closed. Please run 'authkeeper login' again.")
	return nil
}
