package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fentz26/taskdesk/internal/models"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details and history",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status [task-id] [status]",
	Short: "Change the status (new, in_progress, awaiting_report, done, deleted)",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskStatus,
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign [task-id] [@handle|user-id|-]",
	Short: "Change the assignee; - removes it",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAssign,
}

var taskDeadlineCmd = &cobra.Command{
	Use:   "deadline [task-id] [date]",
	Short: "Set the deadline; without a date it is cleared",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskDeadline,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [task-id] [text]",
	Short: "Append a line to the text, or replace it with --replace",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskEdit,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [task-id]",
	Short: "Move a task to the trash (status deleted)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

var taskPurgeCmd = &cobra.Command{
	Use:   "purge [task-id]",
	Short: "Remove a task and its history for good (administrator)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskPurge,
}

var taskJournalCmd = &cobra.Command{
	Use:   "journal [task-id]",
	Short: "Show the decisions recorded for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskJournal,
}

var (
	taskText      string
	taskAssignee  string
	taskDeadline  string
	listAssignee  string
	listOrder     string
	listAll       bool
	listPage      int
	listPageSize  int
	editReplace   bool
	showNoHistory bool
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskStatusCmd, taskAssignCmd,
		taskDeadlineCmd, taskEditCmd, taskDeleteCmd, taskPurgeCmd, taskJournalCmd)

	taskAddCmd.Flags().StringVar(&taskText, "text", "", "Task text (required)")
	taskAddCmd.Flags().StringVar(&taskAssignee, "assignee", "", "Assignee: @handle or user id")
	taskAddCmd.Flags().StringVar(&taskDeadline, "deadline", "", "Deadline: YYYY-MM-DD or DD.MM.YYYY, optionally with HH:MM")
	taskAddCmd.MarkFlagRequired("text")

	taskListCmd.Flags().StringVar(&listAssignee, "assignee", "", "Only tasks of this assignee (- for unassigned)")
	taskListCmd.Flags().StringVar(&listOrder, "order", "deadline", "Sort order: deadline or newest")
	taskListCmd.Flags().BoolVar(&listAll, "all", false, "Include done and deleted tasks")
	taskListCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	taskListCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Tasks per page (default from daemon)")

	taskEditCmd.Flags().BoolVar(&editReplace, "replace", false, "Replace the whole text instead of appending")

	taskShowCmd.Flags().BoolVar(&showNoHistory, "no-history", false, "Skip the change history")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"text":     taskText,
		"assignee": taskAssignee,
		"deadline": taskDeadline,
	}

	resp, err := apiPost("/tasks", body)
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("Created task #%d\n", task.ID)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if cmd.Flags().Changed("assignee") {
		q.Set("assignee", listAssignee)
	}
	if !listAll {
		q.Set("exclude", "done,deleted")
	}
	q.Set("order", listOrder)
	q.Set("page", fmt.Sprint(listPage))
	if listPageSize > 0 {
		q.Set("page_size", fmt.Sprint(listPageSize))
	}

	resp, err := apiGet("/tasks?" + q.Encode())
	if err != nil {
		return err
	}

	var page struct {
		Tasks    []models.Task `json:"tasks"`
		Total    int           `json:"total"`
		Page     int           `json:"page"`
		PageSize int           `json:"page_size"`
	}
	if err := json.Unmarshal(resp, &page); err != nil {
		return err
	}

	if len(page.Tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTEXT\tASSIGNEE\tSTATUS\tDEADLINE")
	for _, t := range page.Tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, truncate(firstLine(t.Text), 40), assigneeText(t.Assignee), t.Status, models.FormatDeadline(t.Deadline))
	}
	w.Flush()

	pages := 1
	if page.PageSize > 0 {
		pages = (page.Total + page.PageSize - 1) / page.PageSize
	}
	fmt.Printf("\nPage %d of %d, %d tasks\n", page.Page, max(pages, 1), page.Total)
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks/" + args[0])
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}
	printTask(&task)

	if showNoHistory {
		return nil
	}

	resp, err = apiGet("/tasks/" + args[0] + "/history")
	if err != nil {
		return err
	}
	var history []models.HistoryEntry
	if err := json.Unmarshal(resp, &history); err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("\nNo earlier versions")
		return nil
	}

	fmt.Println("\n--- HISTORY (state before each change) ---")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOGGED\tSTATUS\tASSIGNEE\tDEADLINE\tTEXT")
	for _, h := range history {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", h.LoggedAt.Local().Format("2006-01-02 15:04"), h.Status, assigneeText(h.Assignee), models.FormatDeadline(h.Deadline), truncate(firstLine(h.Text), 40))
	}
	w.Flush()
	return nil
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	return postTaskChange(args[0], "status", map[string]string{"status": strings.Join(args[1:], " ")})
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	return postTaskChange(args[0], "assign", map[string]string{"assignee": args[1]})
}

func runTaskDeadline(cmd *cobra.Command, args []string) error {
	return postTaskChange(args[0], "deadline", map[string]string{"deadline": strings.Join(args[1:], " ")})
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	mode := "append"
	if editReplace {
		mode = "replace"
	}
	return postTaskChange(args[0], "text", map[string]string{"mode": mode, "text": strings.Join(args[1:], " ")})
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	return postTaskChange(args[0], "status", map[string]string{"status": string(models.TaskStatusDeleted)})
}

func runTaskPurge(cmd *cobra.Command, args []string) error {
	if _, err := apiDelete("/tasks/" + args[0]); err != nil {
		return err
	}
	fmt.Printf("Task #%s and its history were removed\n", args[0])
	return nil
}

func runTaskJournal(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks/" + args[0] + "/journal")
	if err != nil {
		return err
	}

	var entries []models.JournalEntry
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No decisions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tACTOR\tOUTCOME\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, e.ActorID, e.Outcome, truncate(e.Details, 60))
	}
	w.Flush()
	return nil
}

func postTaskChange(id, action string, body map[string]string) error {
	resp, err := apiPost("/tasks/"+id+"/"+action, body)
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}
	printTask(&task)
	return nil
}

func printTask(t *models.Task) {
	fmt.Printf("ID:       %d\n", t.ID)
	fmt.Printf("Status:   %s\n", t.Status)
	fmt.Printf("Assignee: %s\n", assigneeText(t.Assignee))
	fmt.Printf("Deadline: %s\n", models.FormatDeadline(t.Deadline))
	fmt.Printf("Creator:  %d\n", t.CreatorID)
	fmt.Printf("Chat:     %d\n", t.ContextID)
	fmt.Printf("Updated:  %s\n", t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Println("Text:")
	for _, line := range strings.Split(t.Text, "\n") {
		fmt.Println("  " + line)
	}
}

// --- Helpers ---

func assigneeText(a models.Assignee) string {
	if !a.IsSet() {
		return "-"
	}
	return a.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
