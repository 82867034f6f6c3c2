package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if err := c.apiClient.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}

func (c *Cli) runRefresh(ctx context.Context) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}
	if err := c.apiClient.Refresh(ctx); err != nil {
		return err
	}

	authData, err := c.store.GetAuth(ctx)
	if err != nil {
		return fmt.Errorf("failed to read saved session: %w", err)
	}

	c.io.Println("✓ Access token refreshed")
	c.io.Printf("Access token expires: %s\n", formatUnix(authData.AccessExpiresAt))
	c.io.Printf("Session expires: %s\n", formatUnix(authData.RefreshExpiresAt))
	return nil
}
