package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wavecast/wavecast/internal/api"
	"github.com/wavecast/wavecast/internal/server"
	"github.com/wavecast/wavecast/internal/shared"
)

// AuthLogin signs in with a username and password, or with Google when the
// --google flag is set, and persists the resulting session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	var result api.LoginResult
	var err error

	if cmd.Bool("google") {
		token, signInErr := server.GoogleSignIn(ctx, r.config.Credentials.Google, r.logger)
		if signInErr != nil {
			return signInErr
		}
		result, err = r.api.LoginWithGoogle(ctx, token.AccessToken)
	} else {
		username := cmd.String("username")
		password := cmd.String("password")
		if username == "" || password == "" {
			return fmt.Errorf("%w: --username and --password are required", shared.ErrMissingArgument)
		}
		result, err = r.api.Login(ctx, username, password)
	}

	if err != nil {
		return err
	}

	if !result.Succeeded() {
		switch {
		case result.InvalidUsername:
			r.writePlain("✗ Unknown username\n")
		case result.InvalidPassword:
			r.writePlain("✗ Incorrect password\n")
		case result.Blocked:
			r.writePlain("✗ This account is blocked\n")
		default:
			r.writePlain("✗ Sign-in failed\n")
		}
		return nil
	}

	if err := r.session.Authenticate(result.Record); err != nil {
		return err
	}

	r.logger.Info("signed in", "username", result.Record.Username)
	return r.writePlain("✓ Signed in as %s\n", result.Record.Username)
}

// AuthRegister creates a new account and signs in with it.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	result, err := r.api.Register(ctx, cmd.String("username"), cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}

	switch {
	case result.UsernameTaken:
		r.writePlain("✗ That username is taken\n")
		return nil
	case result.EmailTaken:
		r.writePlain("✗ That email is already registered\n")
		return nil
	case result.Failed:
		r.writePlain("✗ Registration failed\n")
		return nil
	}

	if err := r.session.Authenticate(result.Record); err != nil {
		return err
	}

	r.logger.Info("account created", "username", result.Record.Username)
	return r.writePlain("✓ Account created, signed in as %s\n", result.Record.Username)
}

// AuthProfile pushes a display-name or avatar change to the backend, then
// mirrors it into the persisted session so the change survives a restart.
func (r *Runner) AuthProfile(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	var displayName, avatarRef *string
	if cmd.IsSet("name") {
		v := cmd.String("name")
		displayName = &v
	}
	if cmd.IsSet("avatar") {
		v := cmd.String("avatar")
		avatarRef = &v
	}
	if displayName == nil && avatarRef == nil {
		return fmt.Errorf("%w: --name or --avatar is required", shared.ErrMissingArgument)
	}

	if err := r.api.UpdateProfile(ctx, displayName, avatarRef); err != nil {
		return err
	}
	if err := r.session.UpdateProfile(displayName, avatarRef); err != nil {
		return err
	}

	rec := r.session.Current()
	r.logger.Info("profile updated", "username", rec.Username)
	return r.writePlain("✓ Profile updated for %s\n", rec.Username)
}

// AuthLogout clears the persisted session. Signing out while already signed
// out is a no-op.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.session.Invalidate()
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus shows the current session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if !r.session.IsAuthenticated() {
		return r.writePlain("Not signed in\n")
	}

	rec := r.session.Current()
	r.writePlainHeader("Session")
	r.writePlain("User: %s (%s)\n", rec.Username, rec.Email)
	if rec.DisplayName != "" {
		r.writePlain("Display name: %s\n", rec.DisplayName)
	}
	r.writePlain("Role: %s\n", rec.Role)
	r.writePlain("Token expires: %s\n", rec.ExpiresAt.Format(time.RFC3339))
	return nil
}

// TwoFactorStatus shows whether two-step verification is enabled for the account.
func (r *Runner) TwoFactorStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	enabled, err := r.api.TwoFactorStatus(ctx)
	if err != nil {
		return err
	}

	if enabled {
		return r.writePlain("Two-step verification: ✓ enabled\n")
	}
	return r.writePlain("Two-step verification: ✗ disabled\n")
}

// TwoFactorEnable toggles two-step verification. Enabling stores the
// provisioning key locally so 'auth 2fa code' can generate codes.
func (r *Runner) TwoFactorEnable(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	enable := !cmd.Bool("off")
	provisioningURL, err := r.api.ChangeTwoFactor(ctx, enable)
	if err != nil {
		return err
	}

	if !enable {
		if r.keyring != nil {
			if err := r.keyring.Clear(); err != nil {
				r.logger.Warnf("failed to remove stored key: %v", err)
			}
		}
		return r.writePlain("✓ Two-step verification disabled\n")
	}

	if r.keyring != nil {
		if err := r.keyring.Save(provisioningURL); err != nil {
			r.logger.Warnf("failed to store provisioning key: %v", err)
		}
	}

	r.writePlain("✓ Two-step verification enabled\n")
	r.writePlain("Provisioning URI (add to your authenticator app):\n%s\n", provisioningURL)
	return nil
}

// TwoFactorCode prints the current verification code from the stored key.
func (r *Runner) TwoFactorCode(ctx context.Context, cmd *cli.Command) error {
	if r.keyring == nil {
		return fmt.Errorf("%w: no key storage available", shared.ErrMissingConfig)
	}

	enrollment, err := r.keyring.Load()
	if err != nil {
		return err
	}

	now := time.Now()
	code, err := enrollment.Code(now)
	if err != nil {
		return err
	}

	r.writePlain("%s  (valid for %ds)\n", code, int(enrollment.Remaining(now).Seconds()))

	if cmd.Bool("verify") {
		if err := r.requireAuth(); err != nil {
			return err
		}
		valid, err := r.api.VerifyTwoFactor(ctx, code)
		if err != nil {
			return err
		}
		if valid {
			return r.writePlain("✓ Code accepted by the backend\n")
		}
		return r.writePlain("✗ Code rejected, check your device clock\n")
	}

	return nil
}
