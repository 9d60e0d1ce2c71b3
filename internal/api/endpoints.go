package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wavecast/wavecast/internal/models"
	"github.com/wavecast/wavecast/internal/session"
)

// principal is the wire shape of an authenticated principal as returned by
// the login endpoints, matching the durable storage projection keys.
type principal struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	AvatarFileName string `json:"avatar_file_name"`
	RoleType       string `json:"role_type"`
	Token          string `json:"token"`
	ExpirationTime string `json:"expiration_time"`
}

func (p principal) record() (session.Record, error) {
	expiresAt, err := time.Parse(time.RFC3339, p.ExpirationTime)
	if err != nil {
		return session.Record{}, fmt.Errorf("bad expiration_time in login response: %w", err)
	}
	return session.Record{
		ID:          p.ID,
		Email:       p.Email,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarRef:   p.AvatarFileName,
		Role:        session.Role(p.RoleType),
		Token:       p.Token,
		ExpiresAt:   expiresAt,
	}, nil
}

// LoginResult reports credential failures as per-category flags rather than
// errors; only transport problems surface as errors.
type LoginResult struct {
	Record          session.Record
	InvalidUsername bool
	InvalidPassword bool
	Blocked         bool
	LoginFailed     bool
}

// Succeeded reports whether the exchange produced a usable session record.
func (r LoginResult) Succeeded() bool {
	return !r.InvalidUsername && !r.InvalidPassword && !r.Blocked && !r.LoginFailed
}

// Login exchanges credentials for a session record.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	return c.exchange(ctx, "/auth/login", body)
}

// LoginWithGoogle exchanges an externally obtained Google token for a
// platform session record.
func (c *Client) LoginWithGoogle(ctx context.Context, accessToken string) (LoginResult, error) {
	body := map[string]string{"access_token": accessToken}
	return c.exchange(ctx, "/auth/google", body)
}

func (c *Client) exchange(ctx context.Context, path string, body any) (LoginResult, error) {
	var p principal
	err := c.do(ctx, http.MethodPost, path, body, &p, false)

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		result := LoginResult{}
		switch apiErr.Code {
		case "INVALID_USERNAME":
			result.InvalidUsername = true
		case "INVALID_PASSWORD":
			result.InvalidPassword = true
		case "BLOCKED":
			result.Blocked = true
		default:
			result.LoginFailed = true
		}
		return result, nil
	}
	if err != nil {
		return LoginResult{}, err
	}

	rec, err := p.record()
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Record: rec}, nil
}

// RegisterResult reports registration failures as per-category flags.
type RegisterResult struct {
	Record        session.Record
	UsernameTaken bool
	EmailTaken    bool
	Failed        bool
}

// Register creates an account and, on success, returns a ready session record.
func (c *Client) Register(ctx context.Context, username, email, password string) (RegisterResult, error) {
	body := map[string]string{"username": username, "email": email, "password": password}

	var p principal
	err := c.do(ctx, http.MethodPost, "/auth/register", body, &p, false)

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		result := RegisterResult{}
		switch apiErr.Code {
		case "USERNAME_TAKEN":
			result.UsernameTaken = true
		case "EMAIL_TAKEN":
			result.EmailTaken = true
		default:
			result.Failed = true
		}
		return result, nil
	}
	if err != nil {
		return RegisterResult{}, err
	}

	rec, err := p.record()
	if err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Record: rec}, nil
}

// Categories retrieves the browsable category list.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &categories, false); err != nil {
		return nil, err
	}
	return categories, nil
}

// NotificationCount retrieves the unread notification count.
func (c *Client) NotificationCount(ctx context.Context) (int, error) {
	var data struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/count", nil, &data, true); err != nil {
		return 0, err
	}
	return data.Count, nil
}

// Notifications retrieves a page of the user's inbox, newest first.
func (c *Client) Notifications(ctx context.Context, page int) ([]models.Notification, error) {
	var notifications []models.Notification
	path := fmt.Sprintf("/notifications?page=%d", page)
	if err := c.do(ctx, http.MethodGet, path, nil, &notifications, true); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead transitions a notification unread to read. One-way.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	path := fmt.Sprintf("/notifications/%s/read", url.PathEscape(id))
	return c.do(ctx, http.MethodPost, path, nil, nil, true)
}

// HideNotification transitions a notification visible to hidden. One-way.
func (c *Client) HideNotification(ctx context.Context, id string) error {
	path := fmt.Sprintf("/notifications/%s/hide", url.PathEscape(id))
	return c.do(ctx, http.MethodPost, path, nil, nil, true)
}

// InitializeStream provisions a broadcasting session for a streamer account.
func (c *Client) InitializeStream(ctx context.Context, title, categoryID string) (*models.StreamSession, error) {
	body := map[string]string{"title": title, "category_id": categoryID}
	var stream models.StreamSession
	if err := c.do(ctx, http.MethodPost, "/streams/initialize", body, &stream, true); err != nil {
		return nil, err
	}
	return &stream, nil
}

// StreamerDetails retrieves a streamer's public profile.
func (c *Client) StreamerDetails(ctx context.Context, id string) (*models.Streamer, error) {
	path := fmt.Sprintf("/streamers/%s", url.PathEscape(id))
	var streamer models.Streamer
	if err := c.do(ctx, http.MethodGet, path, nil, &streamer, false); err != nil {
		return nil, err
	}
	return &streamer, nil
}

// Subscriptions retrieves the user's subscription list.
func (c *Client) Subscriptions(ctx context.Context) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions", nil, &subs, true); err != nil {
		return nil, err
	}
	return subs, nil
}

// UpdateProfile pushes profile changes to the backend. Nil fields are omitted.
func (c *Client) UpdateProfile(ctx context.Context, displayName, avatarRef *string) error {
	body := map[string]any{}
	if displayName != nil {
		body["display_name"] = *displayName
	}
	if avatarRef != nil {
		body["avatar_file_name"] = *avatarRef
	}
	return c.do(ctx, http.MethodPost, "/users/profile", body, nil, true)
}

// TwoFactorStatus reports whether TOTP is enabled for the account.
func (c *Client) TwoFactorStatus(ctx context.Context) (bool, error) {
	var data struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/2fa", nil, &data, true); err != nil {
		return false, err
	}
	return data.Enabled, nil
}

// ChangeTwoFactor toggles TOTP for the account. When enabling, the returned
// provisioning URI carries the secret for the user's authenticator.
func (c *Client) ChangeTwoFactor(ctx context.Context, enable bool) (string, error) {
	body := map[string]bool{"enable": enable}
	var data struct {
		OTPAuthURL string `json:"otpauth_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/2fa/change", body, &data, true); err != nil {
		return "", err
	}
	return data.OTPAuthURL, nil
}

// VerifyTwoFactor confirms a TOTP code with the backend.
func (c *Client) VerifyTwoFactor(ctx context.Context, code string) (bool, error) {
	body := map[string]string{"code": code}
	var data struct {
		Verified bool `json:"verified"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/2fa/verify", body, &data, true); err != nil {
		return false, err
	}
	return data.Verified, nil
}
