package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// AssigneeKind tells which variant of Assignee is populated.
type AssigneeKind int

const (
	Unassigned AssigneeKind = iota
	AssigneeHandle
	AssigneeUserID
)

// Assignee is whoever a task is assigned to. It need not be a registered
// user: tasks are often assigned before the person has talked to the bot.
type Assignee struct {
	Kind   AssigneeKind
	Handle string
	UserID int64
}

// NoAssignee is the zero Assignee.
var NoAssignee = Assignee{}

// HandleAssignee builds a handle assignee without the leading "@".
func HandleAssignee(h string) Assignee {
	return Assignee{Kind: AssigneeHandle, Handle: strings.TrimPrefix(h, "@")}
}

// UserAssignee builds a numeric-id assignee.
func UserAssignee(id int64) Assignee {
	return Assignee{Kind: AssigneeUserID, UserID: id}
}

// ParseAssignee turns free-form input into an Assignee.
// "" and "-" clear the assignee, digits are a user id, anything else is a handle.
func ParseAssignee(s string) (Assignee, error) {
	v := strings.TrimSpace(s)
	if v == "" || v == "-" {
		return NoAssignee, nil
	}
	if strings.IndexFunc(v, unicode.IsSpace) >= 0 {
		return NoAssignee, fmt.Errorf("assignee %q must be a single handle or id", s)
	}
	if id, err := strconv.ParseInt(v, 10, 64); err == nil {
		if id <= 0 {
			return NoAssignee, fmt.Errorf("assignee id %d must be positive", id)
		}
		return UserAssignee(id), nil
	}
	h := strings.TrimPrefix(v, "@")
	if h == "" {
		return NoAssignee, fmt.Errorf("assignee handle is empty")
	}
	return HandleAssignee(h), nil
}

// IsSet reports whether someone is assigned.
func (a Assignee) IsSet() bool { return a.Kind != Unassigned }

// String renders the canonical storage form: "", "@handle" or the decimal id.
func (a Assignee) String() string {
	switch a.Kind {
	case AssigneeHandle:
		return "@" + a.Handle
	case AssigneeUserID:
		return strconv.FormatInt(a.UserID, 10)
	}
	return ""
}

// Matches reports whether the assignee refers to the given user id or handle.
func (a Assignee) Matches(userID int64, handle string) bool {
	switch a.Kind {
	case AssigneeUserID:
		return a.UserID == userID
	case AssigneeHandle:
		return handle != "" && strings.EqualFold(a.Handle, strings.TrimPrefix(handle, "@"))
	}
	return false
}

func (a Assignee) MarshalJSON() ([]byte, error) {
	if !a.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(a.String())
}

func (a *Assignee) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = NoAssignee
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAssignee(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
