package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeAPI is a minimal vendor API for exercising the client against a
// local server.
type fakeAPI struct {
	t *testing.T

	email        string
	passwordHash string
	token        string

	loginStatus int // 0 means 200 with a normal envelope
	loginCode   int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, f.handleLogin)
	mux.HandleFunc(deviceListPath, f.handleDeviceList)
	return mux
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if f.loginStatus != 0 {
		w.WriteHeader(f.loginStatus)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("decode login request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if f.loginCode != 0 {
		writeEnvelope(w, f.loginCode, "invalid credentials", nil)
		return
	}

	if req.Email != f.email || req.Password != f.passwordHash {
		writeEnvelope(w, 1001, "invalid credentials", nil)
		return
	}

	writeEnvelope(w, 0, "OK", loginData{AccessToken: f.token})
}

func (f *fakeAPI) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	writeEnvelope(w, 0, "OK", deviceListData{
		Devices: []deviceRecord{
			{
				Serial: "1582290600a34f40",
				Name:   "Bedroom Fan",
				Model:  "DR-HTF004S",
				Controls: controlsConf{
					SpeedLevels: 4,
					Oscillation: true,
				},
				State: deviceState{Power: true, Level: 2, Oscillation: false},
			},
			{
				// Missing serial, must be skipped.
				Name:     "Ghost Fan",
				Model:    "DR-HTF001S",
				Controls: controlsConf{SpeedLevels: 4},
			},
			{
				Serial:   "9917290600b77c02",
				Name:     "Office Fan",
				Model:    "DR-HAF003S",
				Controls: controlsConf{SpeedLevels: 8, Oscillation: false},
				State:    deviceState{Power: false, Level: 0, Oscillation: false},
			},
		},
	})
}

func writeEnvelope(w http.ResponseWriter, code int, msg string, data any) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(apiEnvelope{Code: code, Msg: msg, Data: raw}) //nolint:errcheck
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		Email:    "user@example.com",
		Password: "hunter2",
		Server:   srv.URL,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

// ─── Constructor ───

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing email", Config{Password: "p", Server: "s"}},
		{"missing password", Config{Email: "e", Server: "s"}},
		{"missing server", Config{Email: "e", Password: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewClient() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"app-api-us.dreo-cloud.com", "https://app-api-us.dreo-cloud.com"},
		{"http://127.0.0.1:8080", "http://127.0.0.1:8080"},
		{"http://127.0.0.1:8080/", "http://127.0.0.1:8080"},
	}

	for _, tt := range tests {
		if got := baseURL(tt.server); got != tt.want {
			t.Errorf("baseURL(%q) = %q, want %q", tt.server, got, tt.want)
		}
	}
}

// ─── Login ───

func TestLogin(t *testing.T) {
	api := &fakeAPI{
		t:     t,
		email: "user@example.com",
		// md5("hunter2")
		passwordHash: "2ab96390c7dbe3439de74d0c9b0b1767",
		token:        "tok-123",
	}
	client := newTestClient(t, api)

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got := client.Token(); got != "tok-123" {
		t.Errorf("Token() = %q, want %q", got, "tok-123")
	}
}

func TestLoginDigestsPassword(t *testing.T) {
	got := passwordDigest("hunter2")
	want := "2ab96390c7dbe3439de74d0c9b0b1767"
	if got != want {
		t.Errorf("passwordDigest() = %q, want %q", got, want)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	api := &fakeAPI{
		t:            t,
		email:        "other@example.com",
		passwordHash: "nope",
		token:        "tok-123",
	}
	client := newTestClient(t, api)

	err := client.Login(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Login() error = %v, want ErrAuthFailed", err)
	}
	if client.Token() != "" {
		t.Error("Token() should stay empty after failed login")
	}
}

func TestLoginServerError(t *testing.T) {
	api := &fakeAPI{t: t, loginStatus: http.StatusInternalServerError}
	client := newTestClient(t, api)

	err := client.Login(context.Background())
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Login() error = %v, want ErrRequestFailed", err)
	}
}

func TestLoginUnreachableServer(t *testing.T) {
	client, err := NewClient(Config{
		Email:    "user@example.com",
		Password: "hunter2",
		Server:   "http://127.0.0.1:1", // nothing listens here
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if err := client.Login(context.Background()); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Login() error = %v, want ErrRequestFailed", err)
	}
}
