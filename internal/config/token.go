package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"

	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/internal/secure"
)

// KeyringService is the OS keyring service name tokens are stored under.
// The account is the Vault server address.
const KeyringService = "vaultcache"

// DefaultTokenFile is the Vault CLI's token helper file, relative to the
// user's home directory.
const DefaultTokenFile = ".vault-token"

// TokenSource names where a token was found.
type TokenSource string

const (
	TokenFromFlag    TokenSource = "flag"
	TokenFromConfig  TokenSource = "config"
	TokenFromFile    TokenSource = "token_file"
	TokenFromKeyring TokenSource = "keyring"
)

// ResolveToken finds the connect token. The first non-empty source wins:
// flagToken, the config/VAULT_TOKEN value, the token file, then the OS
// keyring entry for the configured address. The token is returned sealed.
func (c *Config) ResolveToken(flagToken string) (*secure.Token, TokenSource, error) {
	if c.Settings == nil {
		return nil, "", dserrors.ConfigError{Message: "configuration not loaded"}
	}
	vs := c.Settings.Vault

	if t := strings.TrimSpace(flagToken); t != "" {
		return secure.NewToken(t), TokenFromFlag, nil
	}
	if t := strings.TrimSpace(vs.Token); t != "" {
		return secure.NewToken(t), TokenFromConfig, nil
	}

	if t, err := c.readTokenFile(); err != nil {
		return nil, "", err
	} else if t != "" {
		return secure.NewToken(t), TokenFromFile, nil
	}

	if vs.Address != "" {
		t, err := keyring.Get(KeyringService, vs.Address)
		switch {
		case err == nil && strings.TrimSpace(t) != "":
			return secure.NewToken(strings.TrimSpace(t)), TokenFromKeyring, nil
		case err != nil && !errors.Is(err, keyring.ErrNotFound) && c.Logger != nil:
			c.Logger.Debug("Keyring lookup failed: %v", err)
		}
	}

	return nil, "", dserrors.ConfigError{
		Field:      "token",
		Message:    "no Vault token found",
		Suggestion: "Set VAULT_TOKEN, pass --token, write ~/.vault-token, or run 'vaultcache login'",
	}
}

// readTokenFile returns the trimmed token file contents. A missing default
// file is not an error; a missing configured file is.
func (c *Config) readTokenFile() (string, error) {
	path := c.Settings.Vault.TokenFile
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", nil
		}
		path = filepath.Join(home, DefaultTokenFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return "", nil
		}
		return "", dserrors.ConfigError{
			Field:      "vault.token_file",
			Value:      path,
			Message:    "cannot read token file",
			Suggestion: "Check the token_file path and its permissions",
			Err:        err,
		}
	}
	return strings.TrimSpace(string(data)), nil
}

// StoreToken saves token in the OS keyring for address.
func StoreToken(address, token string) error {
	if strings.TrimSpace(address) == "" {
		return dserrors.ConfigError{Field: "address", Message: "secret store address is required"}
	}
	if strings.TrimSpace(token) == "" {
		return dserrors.ConfigError{Field: "token", Message: "token is empty"}
	}
	return keyring.Set(KeyringService, address, strings.TrimSpace(token))
}

// DeleteToken removes the keyring entry for address. It reports whether an
// entry existed.
func DeleteToken(address string) (bool, error) {
	err := keyring.Delete(KeyringService, address)
	if errors.Is(err, keyring.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
