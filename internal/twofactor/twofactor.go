// package twofactor handles the client half of TOTP two-step verification:
// parsing the provisioning URI the backend hands out at enrollment, keeping
// it on disk, and generating the current code for login.
package twofactor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/wavecast/wavecast/internal/shared"
)

const keyFileName = "totp_key"

// Enrollment is a parsed TOTP provisioning key.
type Enrollment struct {
	key *otp.Key
}

// ParseProvisioningURL parses an otpauth:// URI into an Enrollment.
func ParseProvisioningURL(raw string) (*Enrollment, error) {
	key, err := otp.NewKeyFromURL(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid provisioning url: %w", err)
	}
	if key.Type() != "totp" {
		return nil, fmt.Errorf("unsupported key type %q", key.Type())
	}
	if key.Secret() == "" {
		return nil, fmt.Errorf("provisioning url missing secret")
	}
	return &Enrollment{key: key}, nil
}

// Account returns the account label from the provisioning URI.
func (e *Enrollment) Account() string {
	return e.key.AccountName()
}

// Issuer returns the issuing service name.
func (e *Enrollment) Issuer() string {
	return e.key.Issuer()
}

// URL returns the original provisioning URI.
func (e *Enrollment) URL() string {
	return e.key.URL()
}

// Code generates the TOTP code valid at the given time.
func (e *Enrollment) Code(at time.Time) (string, error) {
	period := uint(e.key.Period())
	if period == 0 {
		period = 30
	}
	code, err := totp.GenerateCodeCustom(e.key.Secret(), at, totp.ValidateOpts{
		Period:    period,
		Digits:    e.key.Digits(),
		Algorithm: e.key.Algorithm(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}

// Remaining reports how long the code valid at the given time stays valid.
func (e *Enrollment) Remaining(at time.Time) time.Duration {
	period := int64(e.key.Period())
	if period == 0 {
		period = 30
	}
	elapsed := at.Unix() % period
	return time.Duration(period-elapsed) * time.Second
}

// Keyring stores the provisioning key on disk, one key per account dir.
type Keyring struct {
	dir string
}

// NewKeyring creates a Keyring rooted at dir. An empty dir uses the
// default data directory.
func NewKeyring(dir string) (*Keyring, error) {
	if dir == "" {
		var err error
		dir, err = shared.DataDir()
		if err != nil {
			return nil, err
		}
	}
	return &Keyring{dir: dir}, nil
}

// Save writes the provisioning URI after validating it parses.
func (k *Keyring) Save(rawURL string) error {
	if _, err := ParseProvisioningURL(rawURL); err != nil {
		return err
	}
	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	path := filepath.Join(k.dir, keyFileName)
	if err := os.WriteFile(path, []byte(rawURL+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Load reads the stored provisioning key. Fails with a wrapped
// os.ErrNotExist when no key has been saved.
func (k *Keyring) Load() (*Enrollment, error) {
	data, err := os.ReadFile(filepath.Join(k.dir, keyFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("two-step verification is not set up: %w", err)
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return ParseProvisioningURL(strings.TrimSpace(string(data)))
}

// Clear removes the stored key. Clearing an empty keyring is a no-op.
func (k *Keyring) Clear() error {
	err := os.Remove(filepath.Join(k.dir, keyFileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove key file: %w", err)
	}
	return nil
}
