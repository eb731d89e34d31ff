package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tgienger/ruidmap/internal/workspace"
)

type command struct {
	name string
	args string
	help string
	run  func(e *env, args []string) (any, error)
}

// usageError marks bad arguments, as opposed to a failed operation.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error {
	return usageError{msg: fmt.Sprintf(format, a...)}
}

var commands = index([]*command{
	{name: "load", help: "Print the whole workspace", run: cmdLoad},
	{name: "save", args: "<file|->", help: "Replace the workspace with a data document", run: cmdSave},
	{name: "backup", args: "[dst]", help: "Copy the data file (default <file>.backup)", run: cmdBackup},
	{name: "restore", args: "<src>", help: "Replace the data file with a backup", run: cmdRestore},

	{name: "task list", help: "List every task", run: cmdTaskList},
	{name: "task get", args: "<id>", help: "Show one task", run: cmdTaskGet},
	{name: "task add", args: "[-project id] [-priority p] [-due date] [-tags a,b] [-estimate min] [-description text] <title>", help: "Create a task", run: cmdTaskAdd},
	{name: "task update", args: "[-title t] [-description d] [-status s] [-priority p] [-due date|none] [-tags a,b] [-estimate min|none] <id>", help: "Change the given fields of a task", run: cmdTaskUpdate},
	{name: "task delete", args: "<id>", help: "Delete a task", run: cmdTaskDelete},
	{name: "task toggle", args: "<id>", help: "Advance a task's status", run: cmdTaskToggle},
	{name: "task by-status", args: "<status>", help: "List tasks in a status", run: cmdTaskByStatus},
	{name: "task by-project", args: "<id|none>", help: "List tasks of a project", run: cmdTaskByProject},
	{name: "task by-tag", args: "<tag>", help: "List tasks carrying a tag", run: cmdTaskByTag},
	{name: "task by-due", args: "<date>", help: "List tasks due on a day", run: cmdTaskByDue},
	{name: "task overdue", help: "List unfinished tasks past their due date", run: cmdTaskOverdue},
	{name: "task move", args: "<id> <project|none>", help: "Move a task to another project", run: cmdTaskMove},
	{name: "task tag", args: "<id> <tag>", help: "Add a tag", run: cmdTaskTag},
	{name: "task untag", args: "<id> <tag>", help: "Remove a tag", run: cmdTaskUntag},
	{name: "task due", args: "<id> <date|none>", help: "Set or clear the due date", run: cmdTaskDue},
	{name: "task subtask", args: "<id> <title>", help: "Add a subtask", run: cmdTaskSubtask},
	{name: "task toggle-subtask", args: "<id> <subtask>", help: "Flip a subtask", run: cmdTaskToggleSubtask},
	{name: "task comment", args: "<id> <text>", help: "Add a comment", run: cmdTaskComment},
	{name: "task time", args: "<id> <minutes>", help: "Log time spent", run: cmdTaskTime},
	{name: "task estimate", args: "<id> <minutes|none>", help: "Set or clear the estimate", run: cmdTaskEstimate},
	{name: "task stats", help: "Count tasks per status", run: cmdTaskStats},

	{name: "project list", help: "List projects", run: cmdProjectList},
	{name: "project current", help: "Show the current project", run: cmdProjectCurrent},
	{name: "project create", args: "[-description d] [-color #hex] [-icon i] <name>", help: "Create a project", run: cmdProjectCreate},
	{name: "project switch", args: "<id>", help: "Make a project current", run: cmdProjectSwitch},
	{name: "project update", args: "[-name n] [-description d] [-color #hex] [-icon i] [-settings json] <id>", help: "Change the given fields of a project", run: cmdProjectUpdate},
	{name: "project delete", args: "<id>", help: "Delete a project, keeping its tasks", run: cmdProjectDelete},
	{name: "project toggle-active", args: "<id>", help: "Flip a project's active flag", run: cmdProjectToggleActive},
	{name: "project stats", args: "<id>", help: "Count a project's tasks per status", run: cmdProjectStats},

	{name: "theme get", help: "Show the stored theme", run: cmdThemeGet},
	{name: "theme set", args: "<name>", help: "Store a theme name", run: cmdThemeSet},
	{name: "tags", help: "List every tag in use", run: cmdTags},
	{name: "export", args: "[-o file]", help: "Print or write an export envelope", run: cmdExport},
	{name: "import", args: "[-merge] <file|->", help: "Import an export, current or legacy document", run: cmdImport},
	{name: "validate", args: "<file|->", help: "Check an import document without applying it", run: cmdValidate},
})

func index(list []*command) map[string]*command {
	m := make(map[string]*command, len(list))
	for _, c := range list {
		m[c.name] = c
	}
	return m
}

// want checks the positional argument count.
func want(args []string, n int) error {
	if len(args) != n {
		return usagef("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, usagef("invalid id %q", s)
	}
	return id, nil
}

// parseOptionalID treats "none" as no project.
func parseOptionalID(s string) (*int, error) {
	if strings.EqualFold(s, "none") {
		return nil, nil
	}
	id, err := parseID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseMinutes(s string) (*int, error) {
	if strings.EqualFold(s, "none") {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, usagef("invalid minutes %q", s)
	}
	return &n, nil
}

// parseDate accepts a calendar day or an RFC 3339 timestamp; "none" clears.
func parseDate(s string) (*time.Time, error) {
	if strings.EqualFold(s, "none") {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, usagef("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	t = t.UTC()
	return &t, nil
}

func splitTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// readInput reads a file, or stdin for "-".
func readInput(e *env, name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(e.stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(b), nil
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	return nil
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// idAnd parses "<id> <value>" arguments.
func idAnd(args []string) (int, string, error) {
	if err := want(args, 2); err != nil {
		return 0, "", err
	}
	id, err := parseID(args[0])
	return id, args[1], err
}

// withID runs fn on a single id argument.
func withID(fn func(e *env, id int) (any, error)) func(e *env, args []string) (any, error) {
	return func(e *env, args []string) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return fn(e, id)
	}
}

func cmdLoad(e *env, args []string) (any, error) {
	if err := want(args, 0); err != nil {
		return nil, err
	}
	return e.svc.LoadData()
}

func cmdSave(e *env, args []string) (any, error) {
	if err := want(args, 1); err != nil {
		return nil, err
	}
	content, err := readInput(e, args[0])
	if err != nil {
		return nil, err
	}
	var d workspace.Data
	if err := json.Unmarshal([]byte(content), &d); err != nil {
		return nil, usagef("decode data: %v", err)
	}
	if err := e.svc.SaveData(&d); err != nil {
		return nil, err
	}
	return e.svc.LoadData()
}

func cmdBackup(e *env, args []string) (any, error) {
	if len(args) > 1 {
		return nil, usagef("expected at most 1 argument")
	}
	dst := ""
	if len(args) == 1 {
		dst = args[0]
	}
	path, err := e.svc.Backup(dst)
	if err != nil {
		return nil, err
	}
	return map[string]string{"backup": path}, nil
}

func cmdRestore(e *env, args []string) (any, error) {
	if err := want(args, 1); err != nil {
		return nil, err
	}
	return e.svc.Restore(args[0])
}

func cmdTaskList(e *env, args []string) (any, error) {
	if err := want(args, 0); err != nil {
		return nil, err
	}
	return e.svc.GetTasks()
}

var (
	cmdTaskGet = withID(func(e *env, id int) (any, error) { return e.svc.GetTask(id) })

	cmdTaskDelete = withID(func(e *env, id int) (any, error) {
		if err := e.svc.DeleteTask(id); err != nil {
			return nil, err
		}
		return map[string]int{"deleted": id}, nil
	})

	cmdTaskToggle = withID(func(e *env, id int) (any, error) { return e.svc.ToggleTaskStatus(id) })

	cmdProjectSwitch = withID(func(e *env, id int) (any, error) { return e.svc.SwitchProject(id) })

	cmdProjectDelete = withID(func(e *env, id int) (any, error) {
		if err := e.svc.DeleteProject(id); err != nil {
			return nil, err
		}
		return map[string]int{"deleted": id}, nil
	})

	cmdProjectToggleActive = withID(func(e *env, id int) (any, error) { return e.svc.ToggleProjectActive(id) })

	cmdProjectStats = withID(func(e *env, id int) (any, error) { return e.svc.GetProjectStats(id) })
)

func cmdTaskAdd(e *env, args []string) (any, error) {
	fs := newFlags("task add")
	project := fs.String("project", "", "Project id")
	priority := fs.String("priority", "", "low, medium or high")
	due := fs.String("due", "", "Due date")
	tags := fs.String("tags", "", "Comma separated tags")
	estimate := fs.String("estimate", "", "Estimate in minutes")
	description := fs.String("description", "", "Description")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		return nil, usagef("missing title")
	}

	req := workspace.TaskCreateRequest{
		Title:       strings.Join(fs.Args(), " "),
		Description: *description,
		Tags:        splitTags(*tags),
	}
	var err error
	if *project != "" {
		if req.ProjectID, err = parseOptionalID(*project); err != nil {
			return nil, err
		}
	}
	if *priority != "" {
		p, err := workspace.ParsePriority(*priority)
		if err != nil {
			return nil, usagef("%v", err)
		}
		req.Priority = &p
	}
	if *due != "" {
		if req.DueDate, err = parseDate(*due); err != nil {
			return nil, err
		}
	}
	if *estimate != "" {
		if req.EstimatedTime, err = parseMinutes(*estimate); err != nil {
			return nil, err
		}
	}
	return e.svc.AddTask(req)
}

func cmdTaskUpdate(e *env, args []string) (any, error) {
	fs := newFlags("task update")
	title := fs.String("title", "", "Title")
	description := fs.String("description", "", "Description")
	status := fs.String("status", "", "todo, in-progress or done")
	priority := fs.String("priority", "", "low, medium or high")
	due := fs.String("due", "", "Due date or none")
	tags := fs.String("tags", "", "Comma separated tags, replacing the current ones")
	estimate := fs.String("estimate", "", "Estimate in minutes or none")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := want(fs.Args(), 1); err != nil {
		return nil, err
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return nil, err
	}

	req := workspace.TaskUpdateRequest{ID: id}
	set := setFlags(fs)
	if set["title"] {
		req.Title = title
	}
	if set["description"] {
		req.Description = description
	}
	if set["status"] {
		s, err := workspace.ParseStatus(*status)
		if err != nil {
			return nil, usagef("%v", err)
		}
		req.Status = &s
	}
	if set["priority"] {
		p, err := workspace.ParsePriority(*priority)
		if err != nil {
			return nil, usagef("%v", err)
		}
		req.Priority = &p
	}
	if set["due"] {
		if req.DueDate, err = parseDate(*due); err != nil {
			return nil, err
		}
		req.ClearDueDate = req.DueDate == nil
	}
	if set["tags"] {
		req.Tags = splitTags(*tags)
	}
	if set["estimate"] {
		minutes, err := parseMinutes(*estimate)
		if err != nil {
			return nil, err
		}
		if minutes == nil {
			// The update request cannot clear an estimate.
			if _, err := e.svc.SetEstimatedTime(id, nil); err != nil {
				return nil, err
			}
		}
		req.EstimatedTime = minutes
	}
	return e.svc.UpdateTask(req)
}

func cmdTaskByStatus(e *env, args []string) (any, error) {
	if err := want(args, 1); err != nil {
		return nil, err
	}
	s, err := workspace.ParseStatus(args[0])
	if err != nil {
		return nil, usagef("%v", err)
	}
	return e.svc.GetTasksByStatus(s)
}

func cmdTaskByProject(e *env, args []string) (any, error) {
	if err := want(args, 1); err != nil {
		return nil, err
	}
	id, err := parseOptionalID(args[0])
	if err != nil {
		return nil, err
	}
	return e.svc.GetTasksByProject(id)
}

func cmdTaskByTag(e *env, args []string) (any, error) {
	if err := want(args, 1); err != nil {
		return nil, err
	}
	return e.svc.GetTasksByTag(args[0])
}

func cmdTaskByDue(e *env, args []string) (any, error) {
	if err := want(args, 1); err != nil {
		return nil, err
	}
	day, err := parseDate(args[0])
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, usagef("a date is required")
	}
	return e.svc.GetTasksByDueDate(*day)
}

func cmdTaskOverdue(e *env, args []string) (any, error) {
	if err := want(args, 0); err != nil {
		return nil, err
	}
	return e.svc.GetOverdueTasks()
}

func cmdTaskMove(e *env, args []string) (any, error) {
	id, target, err := idAnd(args)
	if err != nil {
		return nil, err
	}
	project, err := parseOptionalID(target)
	if err != nil {
		return nil, err
	}
	return e.svc.MoveTask(id, project)
}

func cmdTaskTag(e *env, args []string) (any, error) {
	id, tag, err := idAnd(args)
	if err != nil {
		return nil, err
	}
	return e.svc.AddTag(id, tag)
}

func cmdTaskUntag(e *env, args []string) (any, error) {
	id, tag, err := idAnd(args)
	if err != nil {
		return nil, err
	}
	return e.svc.RemoveTag(id, tag)
}

func cmdTaskDue(e *env, args []string) (any, error) {
	id, value, err := idAnd(args)
	if err != nil {
		return nil, err
	}
	due, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return e.svc.SetDueDate(id, due)
}

func cmdTaskSubtask(e *env, args []string) (any, error) {
	if len(args) < 2 {
		return nil, usagef("expected an id and a title")
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	return e.svc.AddSubtask(id, strings.Join(args[1:], " "))
}

func cmdTaskToggleSubtask(e *env, args []string) (any, error) {
	id, value, err := idAnd(args)
	if err != nil {
		return nil, err
	}
	sub, err := parseID(value)
	if err != nil {
		return nil, err
	}
	return e.svc.ToggleSubtask(id, sub)
}

func cmdTaskComment(e *env, args []string) (any, error) {
	if len(args) < 2 {
		return nil, usagef("expected an id and a comment")
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	return e.svc.AddComment(id, strings.Join(args[1:], " "))
}

func cmdTaskTime(e *env, args []string) (any, error) {
	id, value, err := idAnd(args)
	if err != nil {
		return nil, err
	}
	minutes, err := strconv.Atoi(value)
	if err != nil {
		return nil, usagef("invalid minutes %q", value)
	}
	return e.svc.AddTime(id, minutes)
}

func cmdTaskEstimate(e *env, args []string) (any, error) {
	id, value, err := idAnd(args)
	if err != nil {
		return nil, err
	}
	minutes, err := parseMinutes(value)
	if err != nil {
		return nil, err
	}
	return e.svc.SetEstimatedTime(id, minutes)
}

func cmdTaskStats(e *env, args []string) (any, error) {
	if err := want(args, 0); err != nil {
		return nil, err
	}
	return e.svc.GetTaskStats()
}

func cmdProjectList(e *env, args []string) (any, error) {
	if err := want(args, 0); err != nil {
		return nil, err
	}
	return e.svc.ListProjects()
}

func cmdProjectCurrent(e *env, args []string) (any, error) {
	if err := want(args, 0); err != nil {
		return nil, err
	}
	return e.svc.GetCurrentProject()
}

func cmdProjectCreate(e *env, args []string) (any, error) {
	fs := newFlags("project create")
	req := workspace.ProjectCreateRequest{}
	fs.StringVar(&req.Description, "description", "", "Description")
	fs.StringVar(&req.Color, "color", "", "Hex color such as #3b82f6")
	fs.StringVar(&req.Icon, "icon", "", "Icon")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		return nil, usagef("missing name")
	}
	req.Name = strings.Join(fs.Args(), " ")
	return e.svc.CreateProject(req)
}

func cmdProjectUpdate(e *env, args []string) (any, error) {
	fs := newFlags("project update")
	name := fs.String("name", "", "Name")
	description := fs.String("description", "", "Description, empty clears")
	color := fs.String("color", "", "Hex color, empty clears")
	icon := fs.String("icon", "", "Icon, empty clears")
	settings := fs.String("settings", "", "Settings as JSON")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := want(fs.Args(), 1); err != nil {
		return nil, err
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return nil, err
	}

	req := workspace.ProjectUpdateRequest{ID: id}
	set := setFlags(fs)
	if set["name"] {
		req.Name = name
	}
	if set["description"] {
		req.Description = description
	}
	if set["color"] {
		req.Color = color
	}
	if set["icon"] {
		req.Icon = icon
	}
	if set["settings"] {
		s := workspace.DefaultSettings()
		if err := json.Unmarshal([]byte(*settings), &s); err != nil {
			return nil, usagef("decode settings: %v", err)
		}
		req.Settings = &s
	}
	return e.svc.UpdateProject(req)
}

func cmdThemeGet(e *env, args []string) (any, error) {
	if err := want(args, 0); err != nil {
		return nil, err
	}
	theme, err := e.svc.GetTheme()
	if err != nil {
		return nil, err
	}
	return map[string]string{"theme": theme}, nil
}

func cmdThemeSet(e *env, args []string) (any, error) {
	if err := want(args, 1); err != nil {
		return nil, err
	}
	if err := e.svc.SetTheme(args[0]); err != nil {
		return nil, err
	}
	return cmdThemeGet(e, nil)
}

func cmdTags(e *env, args []string) (any, error) {
	if err := want(args, 0); err != nil {
		return nil, err
	}
	return e.svc.GetAllTags()
}

func cmdExport(e *env, args []string) (any, error) {
	fs := newFlags("export")
	out := fs.String("o", "", "Write to file instead of stdout")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := want(fs.Args(), 0); err != nil {
		return nil, err
	}
	if *out != "" {
		if err := e.svc.ExportDataToFile(*out); err != nil {
			return nil, err
		}
		return map[string]string{"exported": *out}, nil
	}
	content, err := e.svc.ExportData()
	if err != nil {
		return nil, err
	}
	return rawJSON(content), nil
}

func cmdImport(e *env, args []string) (any, error) {
	fs := newFlags("import")
	merge := fs.Bool("merge", false, "Append to the workspace instead of replacing it")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := want(fs.Args(), 1); err != nil {
		return nil, err
	}
	content, err := readInput(e, fs.Arg(0))
	if err != nil {
		return nil, err
	}
	return e.svc.ImportData(content, *merge)
}

var errInvalidPayload = errors.New("payload is not importable")

func cmdValidate(e *env, args []string) (any, error) {
	if err := want(args, 1); err != nil {
		return nil, err
	}
	content, err := readInput(e, args[0])
	if err != nil {
		return nil, err
	}
	v := e.svc.ValidateImportPayload(content)
	if !v.Valid {
		if err := writeResult(e.stdout, v); err != nil {
			return nil, err
		}
		return nil, errInvalidPayload
	}
	return v, nil
}
