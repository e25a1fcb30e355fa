package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
	"github.com/cocheuno/HawkOps-sub002/internal/telemetry"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the game server (e.g. "http://localhost:3000").
	BaseURL string

	GameID string
	TeamID string

	// Token is the player's bearer token. JWTs have their exp claim checked
	// locally; opaque tokens are sent as-is.
	Token string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with Timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual requests. Defaults to 15 seconds.
	Timeout time.Duration
}

// Client talks to one team's view of one game. Safe for concurrent use.
type Client struct {
	baseURL string
	gameID  string
	teamID  string
	token   string
	expires time.Time
	client  *http.Client
	tracer  trace.Tracer
	now     func() time.Time
}

// NewClient creates a Client. BaseURL, GameID, TeamID and Token are required.
func NewClient(cfg Config) (*Client, error) {
	switch {
	case cfg.BaseURL == "":
		return nil, fmt.Errorf("gameapi: BaseURL is required")
	case cfg.GameID == "":
		return nil, fmt.Errorf("gameapi: GameID is required")
	case cfg.TeamID == "":
		return nil, fmt.Errorf("gameapi: TeamID is required")
	case cfg.Token == "":
		return nil, fmt.Errorf("gameapi: Token is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		gameID:  cfg.GameID,
		teamID:  cfg.TeamID,
		token:   cfg.Token,
		client:  httpClient,
		tracer:  telemetry.Tracer("hawkops/gameapi"),
		now:     time.Now,
	}
	if claims, err := InspectToken(cfg.Token); err == nil {
		c.expires = claims.Expiry()
	}
	return c, nil
}

// TokenExpiry returns the token's exp claim, zero when unknown.
func (c *Client) TokenExpiry() time.Time { return c.expires }

// FetchState returns the full game snapshot for the client's team.
func (c *Client) FetchState(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	path := fmt.Sprintf("/api/games/%s/teams/%s/state", url.PathEscape(c.gameID), url.PathEscape(c.teamID))
	if err := c.get(ctx, path, &snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

func (c *Client) incidentPath(id uuid.UUID, suffix string) string {
	return fmt.Sprintf("/api/games/%s/incidents/%s/%s", url.PathEscape(c.gameID), id, suffix)
}

func (c *Client) changePath(id uuid.UUID, suffix string) string {
	return fmt.Sprintf("/api/games/%s/change-requests/%s/%s", url.PathEscape(c.gameID), id, suffix)
}

// SetIncidentStatus moves an incident to status.
func (c *Client) SetIncidentStatus(ctx context.Context, id uuid.UUID, status model.IncidentStatus) error {
	return c.patch(ctx, c.incidentPath(id, "status"), map[string]any{"status": status})
}

// Escalate hands an incident to technical operations.
func (c *Client) Escalate(ctx context.Context, id uuid.UUID, reason string) error {
	return c.post(ctx, c.incidentPath(id, "escalate"), map[string]any{"reason": reason})
}

// ApproveChange records a CAB approval.
func (c *Client) ApproveChange(ctx context.Context, id uuid.UUID, notes string) error {
	return c.post(ctx, c.changePath(id, "approve"), map[string]any{"notes": notes})
}

// RejectChange records a CAB rejection.
func (c *Client) RejectChange(ctx context.Context, id uuid.UUID, notes string) error {
	return c.post(ctx, c.changePath(id, "reject"), map[string]any{"notes": notes})
}

// SubmitTechnicalReview attaches a technical assessment to a change.
func (c *Client) SubmitTechnicalReview(ctx context.Context, id uuid.UUID, notes, recommendation string) error {
	return c.post(ctx, c.changePath(id, "technical-review"), map[string]any{
		"notes":          notes,
		"recommendation": recommendation,
	})
}

// SubmitPlan files a remediation plan for an incident.
func (c *Client) SubmitPlan(ctx context.Context, incidentID uuid.UUID, plan model.ImplementationPlan) error {
	return c.post(ctx, c.incidentPath(incidentID, "plans"), map[string]any{"plan": plan})
}

// apiEnvelope is the server's standard response wrapper.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// apiErrorEnvelope covers both {"error": "msg"} and
// {"error": {"code": "...", "message": "..."}} bodies.
type apiErrorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("gameapi: create request: %w", err)
	}
	return c.doRequest(ctx, req, dest)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	return c.send(ctx, http.MethodPost, path, body)
}

func (c *Client) patch(ctx context.Context, path string, body any) error {
	return c.send(ctx, http.MethodPatch, path, body)
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gameapi: marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("gameapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(ctx, req, nil)
}

func (c *Client) doRequest(ctx context.Context, req *http.Request, dest any) error {
	if !c.expires.IsZero() && !c.now().Before(c.expires) {
		return ErrTokenExpired
	}

	ctx, span := c.tracer.Start(ctx, "gameapi "+req.Method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
	)
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("gameapi: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if err := handleResponse(resp, dest); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gameapi: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.Request, resp.StatusCode, bodyBytes)
	}

	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("gameapi: decode response envelope: %w", err)
	}
	if envelope.Data == nil {
		// Some deployments return the snapshot unwrapped.
		if err := json.Unmarshal(bodyBytes, dest); err != nil {
			return fmt.Errorf("gameapi: decode response: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return fmt.Errorf("gameapi: decode response data: %w", err)
	}
	return nil
}

func parseErrorResponse(req *http.Request, statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode, Code: http.StatusText(statusCode), Message: strings.TrimSpace(string(body))}
	if req != nil {
		apiErr.Method = req.Method
		apiErr.Path = req.URL.Path
	}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apiErr
	}
	var msg string
	var structured struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	switch {
	case json.Unmarshal(envelope.Error, &msg) == nil && msg != "":
		apiErr.Message = msg
	case json.Unmarshal(envelope.Error, &structured) == nil && structured.Message != "":
		apiErr.Message = structured.Message
		if structured.Code != "" {
			apiErr.Code = structured.Code
		}
	case envelope.Message != "":
		apiErr.Message = envelope.Message
	}
	return apiErr
}
