// Package todo manages numbered task lists stored under a project's TODO
// directory. Each list is a directory named by its number holding an
// index.yaml and one markdown file per task.
package todo

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/document"
	"github.com/starford/mimir/internal/gitsync"
	"github.com/starford/mimir/internal/project"
	"github.com/starford/mimir/internal/storage"
)

const (
	indexFile      = "index.yaml"
	taskPrefix     = "TASK-"
	taskNumberWide = 3
)

// listIndex is the on-disk metadata of a task list.
type listIndex struct {
	Number      int       `yaml:"number"`
	Description string    `yaml:"description"`
	Created     time.Time `yaml:"created"`
}

// ListInfo describes one task list. Completed is derived: a list is complete
// when it has at least one task and every task is complete.
type ListInfo struct {
	Number      int       `json:"number"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	TaskCount   int       `json:"task_count"`
	Completed   bool      `json:"completed"`
}

// TaskInfo is the summary form of a task used in listings.
type TaskInfo struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

// TaskDetail is a full task including its body.
type TaskDetail struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Completed bool      `json:"completed"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

// Manager implements the task list operations on top of the shared storage
// provider, per-path lock queue and project resolver.
type Manager struct {
	store    storage.Provider
	locks    *storage.Locker
	projects *project.Resolver
	sync     gitsync.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewManager(store storage.Provider, locks *storage.Locker, projects *project.Resolver, sync gitsync.Publisher, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		locks:    locks,
		projects: projects,
		sync:     sync,
		logger:   logger,
		now:      time.Now,
	}
}

// ListTodos returns all task lists of the project sorted by number. An
// unknown project yields an empty slice.
func (m *Manager) ListTodos(_ context.Context, projectID string) ([]ListInfo, error) {
	p, ok, err := m.projects.ResolveForRead(projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []ListInfo{}, nil
	}
	numbers, err := m.listNumbers(p)
	if err != nil {
		return nil, err
	}
	infos := make([]ListInfo, 0, len(numbers))
	for _, n := range numbers {
		info, err := m.listInfo(p, n)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CreateTodo allocates the next list number and creates the list directory.
// Numbering is monotonic across the life of the project, deleted numbers
// are not reused as long as higher-numbered lists exist.
func (m *Manager) CreateTodo(ctx context.Context, projectID, description string) (ListInfo, error) {
	if strings.TrimSpace(description) == "" {
		return ListInfo{}, fmt.Errorf("%w: description must not be empty", apperr.ErrInvalidInput)
	}
	p, err := m.projects.ResolveForWrite(projectID)
	if err != nil {
		return ListInfo{}, err
	}
	var created ListInfo
	err = m.locks.WithLock(p.TodoDir(), func() error {
		numbers, err := m.listNumbers(p)
		if err != nil {
			return err
		}
		next := 1
		if len(numbers) > 0 {
			next = numbers[len(numbers)-1] + 1
		}
		idx := listIndex{Number: next, Description: description, Created: m.now()}
		raw, err := yaml.Marshal(idx)
		if err != nil {
			return err
		}
		if err := m.store.Write(m.indexPath(p, next), raw); err != nil {
			return err
		}
		created = ListInfo{Number: idx.Number, Description: idx.Description, Created: idx.Created}
		return nil
	})
	if err != nil {
		return ListInfo{}, err
	}
	m.publish(ctx, fmt.Sprintf("Create TODO list %d in project: %s", created.Number, projectID))
	return created, nil
}

// DeleteTodo removes the list directory and every task in it.
func (m *Manager) DeleteTodo(ctx context.Context, projectID string, number int) error {
	p, err := m.resolveList(projectID, number)
	if err != nil {
		return err
	}
	err = m.locks.WithLock(m.listDir(p, number), func() error {
		return m.store.DeleteTree(m.listDir(p, number))
	})
	if err != nil {
		return err
	}
	m.publish(ctx, fmt.Sprintf("Delete TODO list %d in project: %s", number, projectID))
	return nil
}

// AddTask appends a task to the list. The task number is max(existing)+1 and
// is never reused after a removal.
func (m *Manager) AddTask(ctx context.Context, projectID string, listNumber int, title, body string) (TaskDetail, error) {
	if strings.TrimSpace(title) == "" {
		return TaskDetail{}, fmt.Errorf("%w: task title must not be empty", apperr.ErrInvalidInput)
	}
	p, err := m.resolveList(projectID, listNumber)
	if err != nil {
		return TaskDetail{}, err
	}
	var added TaskDetail
	err = m.locks.WithLock(m.listDir(p, listNumber), func() error {
		tasks, err := m.taskFiles(p, listNumber)
		if err != nil {
			return err
		}
		next := 1
		for n := range tasks {
			if n >= next {
				next = n + 1
			}
		}
		ts := m.now()
		meta := document.TaskMeta{Completed: false, Created: ts, Updated: ts}
		raw, err := document.EncodeTask(meta, title, body)
		if err != nil {
			return err
		}
		name := taskFileName(next, title)
		if err := m.store.Write(path.Join(m.listDir(p, listNumber), name), raw); err != nil {
			return err
		}
		added = TaskDetail{Number: next, Title: title, Body: body, Created: ts, Updated: ts}
		return nil
	})
	if err != nil {
		return TaskDetail{}, err
	}
	m.publish(ctx, fmt.Sprintf("Add task %d to TODO list %d in project: %s", added.Number, listNumber, projectID))
	return added, nil
}

// ListTasks returns the list's description and its tasks sorted by number.
func (m *Manager) ListTasks(_ context.Context, projectID string, listNumber int) (ListInfo, []TaskInfo, error) {
	p, err := m.resolveList(projectID, listNumber)
	if err != nil {
		return ListInfo{}, nil, err
	}
	info, err := m.listInfo(p, listNumber)
	if err != nil {
		return ListInfo{}, nil, err
	}
	tasks, err := m.taskFiles(p, listNumber)
	if err != nil {
		return ListInfo{}, nil, err
	}
	infos := make([]TaskInfo, 0, len(tasks))
	for _, n := range sortedNumbers(tasks) {
		detail, err := m.readTask(p, listNumber, tasks[n])
		if err != nil {
			return ListInfo{}, nil, err
		}
		infos = append(infos, TaskInfo{
			Number:    n,
			Title:     detail.Title,
			Completed: detail.Completed,
			Created:   detail.Created,
			Updated:   detail.Updated,
		})
	}
	return info, infos, nil
}

// RemoveTask deletes the task file. Remaining tasks keep their numbers.
func (m *Manager) RemoveTask(ctx context.Context, projectID string, listNumber, taskNumber int) error {
	p, err := m.resolveList(projectID, listNumber)
	if err != nil {
		return err
	}
	err = m.locks.WithLock(m.listDir(p, listNumber), func() error {
		name, err := m.taskFile(p, listNumber, taskNumber)
		if err != nil {
			return err
		}
		return m.store.Delete(path.Join(m.listDir(p, listNumber), name))
	})
	if err != nil {
		return err
	}
	m.publish(ctx, fmt.Sprintf("Remove task %d from TODO list %d in project: %s", taskNumber, listNumber, projectID))
	return nil
}

// CompleteTask marks the task complete and refreshes its updated timestamp.
// Completing an already complete task is a no-op that still succeeds.
func (m *Manager) CompleteTask(ctx context.Context, projectID string, listNumber, taskNumber int) error {
	p, err := m.resolveList(projectID, listNumber)
	if err != nil {
		return err
	}
	err = m.locks.WithLock(m.listDir(p, listNumber), func() error {
		name, err := m.taskFile(p, listNumber, taskNumber)
		if err != nil {
			return err
		}
		filePath := path.Join(m.listDir(p, listNumber), name)
		raw, err := m.store.Read(filePath)
		if err != nil {
			return err
		}
		meta, title, body, err := document.DecodeTask(raw)
		if err != nil {
			return fmt.Errorf("task %s: %w", name, err)
		}
		meta.Completed = true
		meta.Updated = m.now()
		out, err := document.EncodeTask(meta, title, body)
		if err != nil {
			return err
		}
		return m.store.Write(filePath, out)
	})
	if err != nil {
		return err
	}
	m.publish(ctx, fmt.Sprintf("Complete task %d in TODO list %d in project: %s", taskNumber, listNumber, projectID))
	return nil
}

// GetNextTask returns the lowest-numbered incomplete task. ok=false means
// every task is complete or the list is empty.
func (m *Manager) GetNextTask(_ context.Context, projectID string, listNumber int) (TaskDetail, bool, error) {
	p, err := m.resolveList(projectID, listNumber)
	if err != nil {
		return TaskDetail{}, false, err
	}
	tasks, err := m.taskFiles(p, listNumber)
	if err != nil {
		return TaskDetail{}, false, err
	}
	for _, n := range sortedNumbers(tasks) {
		detail, err := m.readTask(p, listNumber, tasks[n])
		if err != nil {
			return TaskDetail{}, false, err
		}
		if !detail.Completed {
			detail.Number = n
			return detail, true, nil
		}
	}
	return TaskDetail{}, false, nil
}

// GetTask returns one task in full.
func (m *Manager) GetTask(_ context.Context, projectID string, listNumber, taskNumber int) (TaskDetail, error) {
	p, err := m.resolveList(projectID, listNumber)
	if err != nil {
		return TaskDetail{}, err
	}
	name, err := m.taskFile(p, listNumber, taskNumber)
	if err != nil {
		return TaskDetail{}, err
	}
	detail, err := m.readTask(p, listNumber, name)
	if err != nil {
		return TaskDetail{}, err
	}
	detail.Number = taskNumber
	return detail, nil
}

// resolveList resolves the project and verifies the list directory exists.
func (m *Manager) resolveList(projectID string, number int) (project.Project, error) {
	if number < 1 {
		return project.Project{}, fmt.Errorf("%w: todo number must be positive", apperr.ErrInvalidInput)
	}
	p, ok, err := m.projects.ResolveForRead(projectID)
	if err != nil {
		return project.Project{}, err
	}
	if !ok {
		return project.Project{}, fmt.Errorf("%w: %q", apperr.ErrProjectNotFound, projectID)
	}
	exists, err := m.store.Exists(m.indexPath(p, number))
	if err != nil {
		return project.Project{}, err
	}
	if !exists {
		return project.Project{}, fmt.Errorf("%w: %d", apperr.ErrTodoNotFound, number)
	}
	return p, nil
}

func (m *Manager) listDir(p project.Project, number int) string {
	return path.Join(p.TodoDir(), strconv.Itoa(number))
}

func (m *Manager) indexPath(p project.Project, number int) string {
	return path.Join(m.listDir(p, number), indexFile)
}

// listNumbers returns the numeric list directories sorted ascending.
// Non-numeric entries are ignored.
func (m *Manager) listNumbers(p project.Project) ([]int, error) {
	dirs, err := m.store.ListDirs(p.TodoDir())
	if err != nil {
		return nil, err
	}
	numbers := make([]int, 0, len(dirs))
	for _, d := range dirs {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (m *Manager) listInfo(p project.Project, number int) (ListInfo, error) {
	raw, err := m.store.Read(m.indexPath(p, number))
	if err != nil {
		return ListInfo{}, err
	}
	var idx listIndex
	if err := yaml.Unmarshal(raw, &idx); err != nil {
		return ListInfo{}, fmt.Errorf("todo %d index: %w", number, err)
	}
	tasks, err := m.taskFiles(p, number)
	if err != nil {
		return ListInfo{}, err
	}
	completed := len(tasks) > 0
	for _, name := range tasks {
		detail, err := m.readTask(p, number, name)
		if err != nil {
			return ListInfo{}, err
		}
		if !detail.Completed {
			completed = false
			break
		}
	}
	return ListInfo{
		Number:      number,
		Description: idx.Description,
		Created:     idx.Created,
		TaskCount:   len(tasks),
		Completed:   completed,
	}, nil
}

// taskFiles maps task number to file name for every task in the list.
func (m *Manager) taskFiles(p project.Project, listNumber int) (map[int]string, error) {
	files, err := m.store.ListFiles(m.listDir(p, listNumber))
	if err != nil {
		return nil, err
	}
	tasks := make(map[int]string, len(files))
	for _, f := range files {
		if n, ok := taskNumberOf(f); ok {
			tasks[n] = f
		}
	}
	return tasks, nil
}

func (m *Manager) taskFile(p project.Project, listNumber, taskNumber int) (string, error) {
	tasks, err := m.taskFiles(p, listNumber)
	if err != nil {
		return "", err
	}
	name, ok := tasks[taskNumber]
	if !ok {
		return "", fmt.Errorf("%w: %d", apperr.ErrTaskNotFound, taskNumber)
	}
	return name, nil
}

func (m *Manager) readTask(p project.Project, listNumber int, name string) (TaskDetail, error) {
	raw, err := m.store.Read(path.Join(m.listDir(p, listNumber), name))
	if err != nil {
		return TaskDetail{}, err
	}
	meta, title, body, err := document.DecodeTask(raw)
	if err != nil {
		return TaskDetail{}, fmt.Errorf("task %s: %w", name, err)
	}
	return TaskDetail{
		Title:     title,
		Body:      body,
		Completed: meta.Completed,
		Created:   meta.Created,
		Updated:   meta.Updated,
	}, nil
}

func (m *Manager) publish(ctx context.Context, message string) {
	if err := m.sync.Publish(ctx, message); err != nil {
		m.logger.Warn("audit publish failed",
			slog.String("message", message),
			slog.String("error", err.Error()))
	}
}

// taskFileName builds TASK-NNN-<slug>.md for a new task.
func taskFileName(number int, title string) string {
	return fmt.Sprintf("%s%0*d-%s.md", taskPrefix, taskNumberWide, number, project.Slugify(title))
}

// taskNumberOf extracts the task number from a TASK-NNN-*.md file name.
func taskNumberOf(name string) (int, bool) {
	if !strings.HasPrefix(name, taskPrefix) || !strings.HasSuffix(name, ".md") {
		return 0, false
	}
	rest := strings.TrimPrefix(name, taskPrefix)
	digits, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func sortedNumbers(tasks map[int]string) []int {
	numbers := make([]int, 0, len(tasks))
	for n := range tasks {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}
