package conversation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/taskdesk/internal/models"
)

const (
	promptHelp = "Commands: /newtask, /tasks, /status, /assign, /deadline, /delete, /cancel"

	promptTitle        = "What needs to be done?"
	promptAssignee     = "Who should do it? Send @handle or a user id, or - for nobody."
	promptDeadline     = "When is it due? Send YYYY-MM-DD or DD.MM.YYYY, optionally with HH:MM, or - for no deadline."
	promptTaskID       = "Which task? Send its number."
	promptStatus       = "New status? One of: new, in progress, awaiting report, done."
	promptNewAssignee  = "Who should take it over? Send @handle or a user id, or - for nobody."
	promptNewDeadline  = "New deadline? Send a date, or - to remove it."
	promptConfirmation = "Delete task #%d? Answer yes or no."
	promptCancelled    = "Cancelled."
)

// Transition feeds one input to state. It has no side effects: invalid input
// keeps the state and re-prompts, and a finished wizard returns an Effect with
// Next set to Idle. Commands are accepted from any state.
func Transition(state State, input string, loc *time.Location) Step {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "/") {
		return command(input, loc)
	}
	if state == nil {
		state = Idle{}
	}

	switch s := state.(type) {
	case AwaitingTitle:
		if input == "" {
			return Step{Next: s, Prompt: "The task needs a description. " + promptTitle}
		}
		return Step{Next: AwaitingAssignee{Title: input}, Prompt: promptAssignee}

	case AwaitingAssignee:
		a, err := models.ParseAssignee(input)
		if err != nil {
			return Step{Next: s, Prompt: err.Error() + ". " + promptAssignee}
		}
		return Step{Next: AwaitingDeadline{Title: s.Title, Assignee: a.String()}, Prompt: promptDeadline}

	case AwaitingDeadline:
		d, err := models.ParseDeadline(input, loc)
		if err != nil {
			return Step{Next: s, Prompt: promptDeadline}
		}
		return done(&Effect{Kind: EffectCreateTask, Text: s.Title, Assignee: s.Assignee, Deadline: canonicalDeadline(d)})

	case AwaitingTaskID:
		id, ok := parseTaskID(input)
		if !ok {
			return Step{Next: s, Prompt: promptTaskID}
		}
		switch s.Intent {
		case IntentStatus:
			return Step{Next: AwaitingStatus{TaskID: id}, Prompt: promptStatus}
		case IntentAssign:
			return Step{Next: AwaitingNewAssignee{TaskID: id}, Prompt: promptNewAssignee}
		case IntentDeadline:
			return Step{Next: AwaitingNewDeadline{TaskID: id}, Prompt: promptNewDeadline}
		default:
			return Step{Next: AwaitingDeleteConfirm{TaskID: id}, Prompt: confirmPrompt(id)}
		}

	case AwaitingStatus:
		st, err := models.ParseStatus(input)
		if err != nil {
			return Step{Next: s, Prompt: promptStatus}
		}
		return done(&Effect{Kind: EffectChangeStatus, TaskID: s.TaskID, Status: string(st)})

	case AwaitingNewAssignee:
		a, err := models.ParseAssignee(input)
		if err != nil {
			return Step{Next: s, Prompt: err.Error() + ". " + promptNewAssignee}
		}
		return done(&Effect{Kind: EffectReassign, TaskID: s.TaskID, Assignee: a.String()})

	case AwaitingNewDeadline:
		d, err := models.ParseDeadline(input, loc)
		if err != nil {
			return Step{Next: s, Prompt: promptNewDeadline}
		}
		return done(&Effect{Kind: EffectReschedule, TaskID: s.TaskID, Deadline: canonicalDeadline(d)})

	case AwaitingDeleteConfirm:
		switch strings.ToLower(input) {
		case "yes", "y":
			return done(&Effect{Kind: EffectSoftDelete, TaskID: s.TaskID})
		case "no", "n":
			return Step{Next: Idle{}, Prompt: promptCancelled}
		}
		return Step{Next: s, Prompt: confirmPrompt(s.TaskID)}
	}

	return Step{Next: Idle{}, Prompt: promptHelp}
}

// command starts a wizard. Arguments after the command are fed to it as
// answers, so "/status 4 done" finishes in one message.
func command(input string, loc *time.Location) Step {
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	// "/cmd@botname" is how group chats address a bot.
	name, _, _ = strings.Cut(strings.ToLower(name), "@")

	var start Step
	switch name {
	case "/newtask":
		if rest == "" {
			return Step{Next: AwaitingTitle{}, Prompt: promptTitle}
		}
		if step, ok := inlineTask(rest, loc); ok {
			return step
		}
		return Transition(AwaitingTitle{}, rest, loc)
	case "/tasks":
		return done(&Effect{Kind: EffectListTasks})
	case "/status":
		start = Step{Next: AwaitingTaskID{Intent: IntentStatus}, Prompt: promptTaskID}
	case "/assign":
		start = Step{Next: AwaitingTaskID{Intent: IntentAssign}, Prompt: promptTaskID}
	case "/deadline":
		start = Step{Next: AwaitingTaskID{Intent: IntentDeadline}, Prompt: promptTaskID}
	case "/delete":
		start = Step{Next: AwaitingTaskID{Intent: IntentDelete}, Prompt: promptTaskID}
	case "/cancel":
		return Step{Next: Idle{}, Prompt: promptCancelled}
	default:
		return Step{Next: Idle{}, Prompt: promptHelp}
	}

	if rest == "" {
		return start
	}
	idArg, answer, _ := strings.Cut(rest, " ")
	step := Transition(start.Next, idArg, loc)
	answer = strings.TrimSpace(answer)
	if answer == "" || step.Effect != nil || step.Next == start.Next {
		return step
	}
	return Transition(step.Next, answer, loc)
}

// inlineTask reads "@who text [deadline]" given after /newtask. The deadline
// is taken from the last one or two words. Without a deadline the wizard asks
// for it; without a leading assignee ok is false and the words are the title.
func inlineTask(args string, loc *time.Location) (step Step, ok bool) {
	words := strings.Fields(args)
	if len(words) < 2 || !looksLikeAssignee(words[0]) {
		return Step{}, false
	}
	a, err := models.ParseAssignee(words[0])
	if err != nil {
		return Step{}, false
	}
	words = words[1:]

	for n := 2; n >= 1; n-- {
		if len(words) <= n {
			continue
		}
		d, err := models.ParseDeadline(strings.Join(words[len(words)-n:], " "), loc)
		if err != nil {
			continue
		}
		return done(&Effect{
			Kind:     EffectCreateTask,
			Text:     strings.Join(words[:len(words)-n], " "),
			Assignee: a.String(),
			Deadline: canonicalDeadline(d),
		}), true
	}
	return Step{Next: AwaitingDeadline{Title: strings.Join(words, " "), Assignee: a.String()}, Prompt: promptDeadline}, true
}

func looksLikeAssignee(word string) bool {
	if len(word) > 1 && word[0] == '@' {
		return true
	}
	_, isID := parseTaskID(word)
	return isID && !strings.HasPrefix(word, "#")
}

func done(e *Effect) Step {
	return Step{Next: Idle{}, Effect: e}
}

func parseTaskID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func canonicalDeadline(d *models.Deadline) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func confirmPrompt(id int64) string {
	return fmt.Sprintf(promptConfirmation, id)
}
