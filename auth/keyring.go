// Package auth stores the assistant API key in the system keyring.
package auth

import (
	"errors"
	"os"
	"strings"

	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/fault"
	"github.com/zalando/go-keyring"
)

// EnvAPIKey overrides the keyring when set.
const EnvAPIKey = "GEMINI_API_KEY"

const user = "gemini-api-key"

// SetAPIKey persists the assistant API key to the system keyring.
func SetAPIKey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fault.New(fault.ValidationError, "auth.set", "API key is empty")
	}
	return keyring.Set(constant.App, user, apiKey)
}

// APIKey returns the assistant API key from the environment or the keyring.
func APIKey() (string, error) {
	if fromEnv := strings.TrimSpace(os.Getenv(EnvAPIKey)); fromEnv != "" {
		return fromEnv, nil
	}

	apiKey, err := keyring.Get(constant.App, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fault.Newf(
			fault.MissingDependency,
			"auth.get",
			"%s not set. Export it or run `%s auth set`",
			EnvAPIKey,
			constant.App,
		)
	}
	if err != nil {
		return "", err
	}

	return apiKey, nil
}

// DeleteAPIKey removes the stored API key. Deleting a missing key is not an error.
func DeleteAPIKey() error {
	if err := keyring.Delete(constant.App, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
