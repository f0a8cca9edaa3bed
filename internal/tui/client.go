package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fentz26/taskdesk/internal/auth"
	"github.com/fentz26/taskdesk/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// APIError is a failed API call.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (%d)", e.Status)
	}
	return e.Message
}

// ChatReply is the bot's answer to one message.
type ChatReply struct {
	Text  string        `json:"text"`
	State string        `json:"state"`
	Task  *models.Task  `json:"task,omitempty"`
	Tasks []models.Task `json:"tasks,omitempty"`
}

// Client wraps HTTP calls to the taskdesk API
type Client struct {
	baseURL    string
	identity   auth.Identity
	httpClient *http.Client
}

// NewClient creates a new API client acting as id.
func NewClient(baseURL string, id auth.Identity) *Client {
	if id.ContextID == 0 {
		id.ContextID = id.ActorID
	}
	return &Client{
		baseURL:  baseURL,
		identity: id,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// Identity returns who the client acts as.
func (c *Client) Identity() auth.Identity {
	return c.identity
}

// ListTasks fetches one page of tasks.
func (c *Client) ListTasks(q url.Values) ([]models.Task, int, error) {
	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page struct {
		Tasks []models.Task `json:"tasks"`
		Total int           `json:"total"`
	}
	if err := c.do(http.MethodGet, path, nil, &page); err != nil {
		return nil, 0, err
	}
	return page.Tasks, page.Total, nil
}

// GetTask fetches a single task
func (c *Client) GetTask(id int64) (*models.Task, error) {
	var task models.Task
	if err := c.do(http.MethodGet, taskPath(id, ""), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// History fetches the prior versions of a task
func (c *Client) History(id int64) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	if err := c.do(http.MethodGet, taskPath(id, "history"), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateTask creates a new task
func (c *Client) CreateTask(text, assignee, deadline string) (*models.Task, error) {
	body := map[string]string{
		"text":     text,
		"assignee": assignee,
		"deadline": deadline,
	}
	var task models.Task
	if err := c.do(http.MethodPost, "/tasks", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ChangeStatus moves a task to status
func (c *Client) ChangeStatus(id int64, status string) (*models.Task, error) {
	return c.postTask(id, "status", map[string]string{"status": status})
}

// Reassign hands a task to someone else
func (c *Client) Reassign(id int64, assignee string) (*models.Task, error) {
	return c.postTask(id, "assign", map[string]string{"assignee": assignee})
}

// Reschedule sets or clears the deadline
func (c *Client) Reschedule(id int64, deadline string) (*models.Task, error) {
	return c.postTask(id, "deadline", map[string]string{"deadline": deadline})
}

// AppendText adds a line to the task text
func (c *Client) AppendText(id int64, text string) (*models.Task, error) {
	return c.postTask(id, "text", map[string]string{"mode": "append", "text": text})
}

// Chat sends one message to the bot
func (c *Client) Chat(text string) (*ChatReply, error) {
	var reply ChatReply
	if err := c.do(http.MethodPost, "/chat", map[string]string{"text": text}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListUsers fetches the allow-list. Members get a not_permitted error.
func (c *Client) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := c.do(http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CheckHealth checks if the daemon is healthy
func (c *Client) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var health struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false, err
	}

	return health.OK, nil
}

func (c *Client) postTask(id int64, action string, body any) (*models.Task, error) {
	var task models.Task
	if err := c.do(http.MethodPost, taskPath(id, action), body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) do(method, path string, data, out any) error {
	var reader io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor-ID", strconv.FormatInt(c.identity.ActorID, 10))
	req.Header.Set("X-Context-ID", strconv.FormatInt(c.identity.ContextID, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Message, apiErr.Kind = e.Error, e.Kind
		} else {
			apiErr.Message = string(bytes.TrimSpace(body))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func taskPath(id int64, action string) string {
	p := "/tasks/" + strconv.FormatInt(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}
