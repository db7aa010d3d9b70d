package profileapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"realworld-settings/internal/domain"
)

var errMissingUser = errors.New("response has no user object")

const (
	AuthorizationHeader = "Authorization"
	maxBodyBytes        = 1 << 20
)

// API is the remote user-profile API as seen by the settings form.
type API interface {
	GetCurrentUser(ctx context.Context, token domain.Credential) (*domain.Profile, error)
	UpdateCurrentUser(ctx context.Context, token domain.Credential, update domain.ProfileUpdate) (*domain.Profile, error)
}

// Config holds the remote API location.
type Config struct {
	// BaseURL is the API root, e.g. https://api.realworld.io/api.
	BaseURL string
	// AuthScheme prefixes the token in the Authorization header.
	AuthScheme string
}

// Client talks to a RealWorld compatible user API. Every error it returns is a *Failure.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     logrus.FieldLogger
}

var _ API = (*Client)(nil)

// NewClient creates a Client. If httpClient is nil, http.DefaultClient is used.
func NewClient(cfg Config, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		logger:     logger.WithField("component", "profileapi"),
	}
}

type userEnvelope struct {
	User *domain.Profile `json:"user"`
}

func (e *userEnvelope) check() error {
	if e.User == nil {
		return errMissingUser
	}
	return nil
}

// checker is implemented by response envelopes whose required parts may be
// absent from an otherwise valid JSON body.
type checker interface {
	check() error
}

type loginRequest struct {
	User struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

type updateRequest struct {
	User domain.ProfileUpdate `json:"user"`
}

type errorEnvelope struct {
	Errors map[string]json.RawMessage `json:"errors"`
}

// GetCurrentUser reads the profile of the user owning token.
func (c *Client) GetCurrentUser(ctx context.Context, token domain.Credential) (*domain.Profile, error) {
	var out userEnvelope
	if err := c.do(ctx, "get user", http.MethodGet, "/user", token, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateCurrentUser sends the full update payload and returns the server's user.
func (c *Client) UpdateCurrentUser(ctx context.Context, token domain.Credential, update domain.ProfileUpdate) (*domain.Profile, error) {
	var out userEnvelope
	if err := c.do(ctx, "update user", http.MethodPut, "/user", token, updateRequest{User: update}, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Login exchanges email and password for the user's profile and token.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Profile, error) {
	var req loginRequest
	req.User.Email = email
	req.User.Password = password

	var out userEnvelope
	if err := c.do(ctx, "login", http.MethodPost, "/users/login", "", req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, token domain.Credential, in, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if f, ok := AsFailure(err); ok {
			outcome = f.Kind.String()
		}
		requestsTotal.WithLabelValues(op, outcome).Inc()
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Failure{Op: op, Kind: FailureRequest, Err: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return &Failure{Op: op, Kind: FailureRequest, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(AuthorizationHeader, c.cfg.AuthScheme+" "+string(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Failure{Op: op, Kind: FailureNoResponse, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Failure{Op: op, Kind: FailureNoResponse, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.WithFields(logrus.Fields{
		"op":     op,
		"status": resp.StatusCode,
	}).Debug("profile api response")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &Failure{Op: op, Kind: FailureUnauthorized, StatusCode: resp.StatusCode, Payload: payload}
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return &Failure{
			Op:         op,
			Kind:       FailureValidation,
			StatusCode: resp.StatusCode,
			Payload:    payload,
			Validation: validationMessages(payload),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &Failure{Op: op, Kind: FailureStatus, StatusCode: resp.StatusCode, Payload: payload}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &Failure{Op: op, Kind: FailureDecode, StatusCode: resp.StatusCode, Payload: payload, Err: err}
	}
	if c, ok := out.(checker); ok {
		if err := c.check(); err != nil {
			return &Failure{Op: op, Kind: FailureDecode, StatusCode: resp.StatusCode, Payload: payload, Err: err}
		}
	}
	return nil
}

// validationMessages flattens a RealWorld error body. Both
// {"errors":{"body":["..."]}} and {"errors":{"email":["is invalid"]}} are accepted.
func validationMessages(payload []byte) []string {
	var env errorEnvelope
	if err := json.Unmarshal(payload, &env); err != nil || len(env.Errors) == 0 {
		return nil
	}

	fields := make([]string, 0, len(env.Errors))
	for field := range env.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var msgs []string
	for _, field := range fields {
		var list []string
		if err := json.Unmarshal(env.Errors[field], &list); err != nil {
			var single string
			if err := json.Unmarshal(env.Errors[field], &single); err != nil {
				continue
			}
			list = []string{single}
		}
		for _, msg := range list {
			if field == "body" {
				msgs = append(msgs, msg)
			} else {
				msgs = append(msgs, field+" "+msg)
			}
		}
	}
	return msgs
}
