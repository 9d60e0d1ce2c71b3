package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wavecast/wavecast/internal/events"
	"github.com/wavecast/wavecast/internal/shared"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token() (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc, bus *events.Bus) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientOpts{
		BaseURL:   srv.URL,
		Tokens:    staticTokens{token: "tkn"},
		Bus:       bus,
		RateLimit: 1000,
	})
}

func respond(t *testing.T, w http.ResponseWriter, env map[string]any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(env); err != nil {
		t.Fatalf("failed to encode response: %v", err)
	}
}

func TestClient(t *testing.T) {
	t.Run("envelope handling", func(t *testing.T) {
		t.Run("success envelope decodes data", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, map[string]any{
					"success": true,
					"data":    []map[string]any{{"id": "c1", "name": "Music", "stream_count": 3}},
				})
			}, nil)

			categories, err := client.Categories(context.Background())
			if err != nil {
				t.Fatalf("categories failed: %v", err)
			}
			if len(categories) != 1 || categories[0].Name != "Music" {
				t.Errorf("unexpected categories: %+v", categories)
			}
		})

		t.Run("UNAUTHORIZED publishes the event and maps to ErrNotAuthenticated", func(t *testing.T) {
			bus := events.NewBus(nil)
			unauthorized := false
			bus.Subscribe(events.EventUnauthorized, func(any) { unauthorized = true })

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, map[string]any{"success": false, "code": "UNAUTHORIZED", "message": "token rejected"})
			}, bus)

			_, err := client.Subscriptions(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if !unauthorized {
				t.Error("expected unauthorized event")
			}
		})

		t.Run("non-success envelope becomes APIError", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, map[string]any{"success": false, "code": "NOT_FOUND", "message": "no such streamer"})
			}, nil)

			_, err := client.StreamerDetails(context.Background(), "nobody")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != "NOT_FOUND" {
				t.Errorf("unexpected code %q", apiErr.Code)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Error("APIError should unwrap to ErrAPIRequest")
			}
		})

		t.Run("non-envelope body is a request failure", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>gateway error</html>"))
			}, nil)

			if _, err := client.Categories(context.Background()); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("authentication", func(t *testing.T) {
		t.Run("authed calls carry the bearer token", func(t *testing.T) {
			var got string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				respond(t, w, map[string]any{"success": true, "data": map[string]any{"count": 2}})
			}, nil)

			count, err := client.NotificationCount(context.Background())
			if err != nil {
				t.Fatalf("count failed: %v", err)
			}
			if count != 2 {
				t.Errorf("expected count 2, got %d", count)
			}
			if got != "Bearer tkn" {
				t.Errorf("expected bearer header, got %q", got)
			}
		})

		t.Run("authed call without a token fails fast", func(t *testing.T) {
			called := false
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			t.Cleanup(srv.Close)

			client := NewClient(ClientOpts{
				BaseURL:   srv.URL,
				Tokens:    staticTokens{err: shared.ErrTokenExpired},
				RateLimit: 1000,
			})

			if _, err := client.Subscriptions(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if called {
				t.Error("request must not be sent without a token")
			}
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("success yields a session record", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, map[string]any{
					"success": true,
					"data": map[string]any{
						"id": "u-1", "username": "ada", "display_name": "Ada",
						"role_type": "user", "token": "abc",
						"expiration_time": "2099-01-01T00:00:00Z",
					},
				})
			}, nil)

			result, err := client.Login(context.Background(), "ada", "hunter2")
			if err != nil {
				t.Fatalf("login failed: %v", err)
			}
			if !result.Succeeded() {
				t.Fatalf("expected success, got %+v", result)
			}
			if result.Record.Token != "abc" || result.Record.Username != "ada" {
				t.Errorf("unexpected record: %+v", result.Record)
			}
		})

		t.Run("credential failures become flags, not errors", func(t *testing.T) {
			cases := map[string]struct {
				code  string
				check func(LoginResult) bool
			}{
				"invalid username": {"INVALID_USERNAME", func(r LoginResult) bool { return r.InvalidUsername }},
				"invalid password": {"INVALID_PASSWORD", func(r LoginResult) bool { return r.InvalidPassword }},
				"blocked":          {"BLOCKED", func(r LoginResult) bool { return r.Blocked }},
				"other failure":    {"WEIRD", func(r LoginResult) bool { return r.LoginFailed }},
			}

			for name, tc := range cases {
				t.Run(name, func(t *testing.T) {
					client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
						respond(t, w, map[string]any{"success": false, "code": tc.code, "message": "nope"})
					}, nil)

					result, err := client.Login(context.Background(), "ada", "wrong")
					if err != nil {
						t.Fatalf("credential failure should not error: %v", err)
					}
					if !tc.check(result) {
						t.Errorf("expected %s flag set, got %+v", name, result)
					}
					if result.Succeeded() {
						t.Error("result should not report success")
					}
				})
			}
		})
	})

	t.Run("two factor", func(t *testing.T) {
		t.Run("change returns the provisioning URI", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, map[string]any{
					"success": true,
					"data":    map[string]any{"otpauth_url": "otpauth://totp/Wavecast:ada?secret=ABC&issuer=Wavecast"},
				})
			}, nil)

			uri, err := client.ChangeTwoFactor(context.Background(), true)
			if err != nil {
				t.Fatalf("change failed: %v", err)
			}
			if uri == "" {
				t.Error("expected provisioning URI")
			}
		})

		t.Run("verify reports the backend decision", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, map[string]any{"success": true, "data": map[string]any{"verified": false}})
			}, nil)

			verified, err := client.VerifyTwoFactor(context.Background(), "000000")
			if err != nil {
				t.Fatalf("verify failed: %v", err)
			}
			if verified {
				t.Error("expected unverified")
			}
		})
	})
}
