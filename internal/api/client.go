package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Client calls the housing backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a backend client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// CurrentUser verifies token and returns the identity it belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	var u User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/user/", token, nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login exchanges credentials for a token and identity.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, User, error) {
	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login/", "", creds, &resp); err != nil {
		return "", User{}, err
	}
	if resp.Token == "" {
		return "", User{}, fmt.Errorf("login response carried no token")
	}
	return resp.Token, resp.User, nil
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/register/", "", reg, nil)
}

// ListConversations returns the caller's inbox.
func (c *Client) ListConversations(ctx context.Context, token string) ([]Conversation, error) {
	var out []Conversation
	if err := c.getList(ctx, "/messages/conversations/", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConversation returns a conversation with its message history.
func (c *Client) GetConversation(ctx context.Context, token string, id int) (ConversationDetail, error) {
	var d ConversationDetail
	path := fmt.Sprintf("/messages/conversations/%d/", id)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &d); err != nil {
		return ConversationDetail{}, err
	}
	if d.ID == 0 {
		d.ID = id
	}
	return d, nil
}

// MarkRead acknowledges every message of a conversation.
func (c *Client) MarkRead(ctx context.Context, token string, id int) error {
	path := fmt.Sprintf("/messages/conversations/%d/read/", id)
	return c.doJSON(ctx, http.MethodPost, path, token, nil, nil)
}

// SendMessage posts a message. Requests with files are sent as multipart.
func (c *Client) SendMessage(ctx context.Context, token string, req SendRequest) (Message, error) {
	var msg Message
	if len(req.Files) > 0 {
		if err := c.doMultipart(ctx, "/messages/", token, req, &msg); err != nil {
			return Message{}, err
		}
		return msg, nil
	}

	payload := map[string]any{"content": req.Content}
	if req.ConversationID != 0 {
		payload["conversation"] = req.ConversationID
	}
	if req.RecipientID != 0 {
		payload["recipient"] = req.RecipientID
	}
	if req.ListingID != 0 {
		payload["hostel"] = req.ListingID
	}
	if err := c.doJSON(ctx, http.MethodPost, "/messages/", token, payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// ListHostels returns the public listings.
func (c *Client) ListHostels(ctx context.Context, token string) ([]Hostel, error) {
	var out []Hostel
	if err := c.getList(ctx, "/hostels/", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBookings returns bookings visible to the caller. Managers see the
// bookings of their hostels, students their own.
func (c *Client) ListBookings(ctx context.Context, token string) ([]Booking, error) {
	var out []Booking
	if err := c.getList(ctx, "/bookings/", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var out []User
	if err := c.getList(ctx, "/admin/users/", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// getList decodes either a bare JSON array or a paginated {"results": [...]}.
func (c *Client) getList(ctx context.Context, path, token string, out any) error {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		trimmed = page.Results
	}
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, token, out)
}

func (c *Client) doMultipart(ctx context.Context, path, token string, sr SendRequest, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{"content": sr.Content}
	if sr.ConversationID != 0 {
		fields["conversation"] = strconv.Itoa(sr.ConversationID)
	}
	if sr.RecipientID != 0 {
		fields["recipient"] = strconv.Itoa(sr.RecipientID)
	}
	if sr.ListingID != 0 {
		fields["hostel"] = strconv.Itoa(sr.ListingID)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, p := range sr.Files {
		if err := attachFile(w, p); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, token, out)
}

func attachFile(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open attachment %s: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile("attachments", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read attachment %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, token string, out any) error {
	req.Header.Set("Accept", "application/json")
	if token != "" {
		// The backend uses DRF token auth, not Bearer.
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
