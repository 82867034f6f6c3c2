// Package cli implements the authkeeper client commands.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iudanet/authkeeper/internal/client/api"
	"github.com/iudanet/authkeeper/internal/client/iocli"
	"github.com/iudanet/authkeeper/internal/client/storage"
	"github.com/iudanet/authkeeper/internal/clock"
)

// PasswordEnv - переменная окружения с паролем для неинтерактивного запуска
const PasswordEnv = "AUTHKEEPER_PASSWORD"

// Passwords описывает неинтерактивные источники пароля
type Passwords struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	io        iocli.IO
	apiClient *api.Client
	store     storage.AuthStorage
	now       clock.Clock
	passwords Passwords
}

func New(io iocli.IO, apiClient *api.Client, store storage.AuthStorage, passwords Passwords) *Cli {
	return &Cli{
		io:        io,
		apiClient: apiClient,
		store:     store,
		now:       time.Now,
		passwords: passwords,
	}
}

// getPassword retrieves the password from various sources with priority:
// 1. Environment variable AUTHKEEPER_PASSWORD
// 2. File specified in --password-file
// 3. Command-line parameter --password
// 4. Interactive prompt (fallback)
func (c *Cli) getPassword(prompt string) (string, error) {
	// Priority 1: Environment variable
	if envPassword := os.Getenv(PasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	// Priority 2: File
	if c.passwords.FromFile != "" {
		content, err := os.ReadFile(c.passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	// Priority 3: CLI parameter
	if c.passwords.FromArgs != "" {
		return c.passwords.FromArgs, nil
	}

	// Priority 4: Interactive prompt (fallback)
	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	return password, nil
}

// interactivePassword сообщает, будет ли пароль запрошен с терминала
func (c *Cli) interactivePassword() bool {
	return os.Getenv(PasswordEnv) == "" && c.passwords.FromFile == "" && c.passwords.FromArgs == ""
}

// getNewPassword запрашивает новый пароль и при интерактивном вводе его подтверждение
func (c *Cli) getNewPassword(prompt string) (password, confirm string, err error) {
	password, err = c.getPassword(prompt)
	if err != nil {
		return "", "", err
	}
	if !c.interactivePassword() {
		return password, password, nil
	}

	confirm, err = c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return "", "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	return password, confirm, nil
}

// readValue возвращает значение флага или запрашивает его
func (c *Cli) readValue(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	input, err := c.io.ReadInput(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return input, nil
}
