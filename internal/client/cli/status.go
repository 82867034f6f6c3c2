package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/authkeeper/internal/client/storage"
)

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).Format(time.RFC3339)
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	now := c.now()

	// Проверяем наличие сохраненной сессии
	isAuth, err := c.store.IsAuthenticated(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	if !isAuth {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'authkeeper login' to authenticate.")
		return nil
	}

	authData, err := c.store.GetAuth(ctx)
	if err != nil {
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	c.io.Println("Status: Authenticated")
	c.io.Printf("Email: %s\n", authData.Email)
	c.io.Printf("Session expires: %s\n", formatUnix(authData.RefreshExpiresAt))

	if authData.AccessValid(now) {
		remaining := time.Unix(authData.AccessExpiresAt, 0).Sub(now)
		c.io.Printf("Access token valid for: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("Access token expired, it will be refreshed on the next request.")
	}

	return nil
}

func (c *Cli) runWhoami(ctx context.Context) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	user, err := c.apiClient.CurrentUser(ctx)
	if err != nil {
		return err
	}

	verified := "no"
	if user.Verified {
		verified = "yes"
	}

	c.io.Printf("ID: %s\n", user.ID)
	c.io.Printf("Name: %s\n", user.Name)
	c.io.Printf("Email: %s\n", user.Email)
	c.io.Printf("Verified: %s\n", verified)
	c.io.Printf("Created: %s\n", user.CreatedAt.Format(time.RFC3339))
	return nil
}

func (c *Cli) runSessions(ctx context.Context) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	sessions, err := c.apiClient.ListSessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		c.io.Println("No active sessions.")
		return nil
	}

	c.io.Printf("Active sessions (%d):\n", len(sessions))
	for _, s := range sessions {
		marker := " "
		if s.IsCurrent {
			marker = "*"
		}
		agent := s.UserAgent
		if agent == "" {
			agent = "unknown"
		}
		c.io.Printf("%s %s  created %s  expires %s  %s\n", marker, s.ID,
			s.CreatedAt.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339), agent)
	}
	return nil
}

func (c *Cli) runRevokeSession(ctx context.Context, id string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}
	if err := c.apiClient.DeleteSession(ctx, id); err != nil {
		return err
	}
	c.io.Printf("✓ Session %s removed\n", id)
	return nil
}

// requireSession возвращает ошибку, если локальной сессии нет
func (c *Cli) requireSession(ctx context.Context) error {
	_, err := c.store.GetAuth(ctx)
	if errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("not authenticated. Please run 'authkeeper login' first")
	}
	return err
}
