package repo

import (
	"fmt"
	"strings"

	"github.com/nkarpov/todo-api/internal/model"
)

const taskColumns = `id, user_id, title, description, completed, priority, tags, due_date, created_at, updated_at`

const (
	defaultLimit = 100
	maxLimit     = 100
)

// Разрешенные поля сортировки; все остальное игнорируется
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"priority":   "priority",
	"title":      "title",
	"completed":  "completed",
}

// buildListQuery собирает SELECT для списка задач. Первое условие всегда
// user_id = $1 — ни один параметр фильтра не может его убрать.
func buildListQuery(userID string, f model.TaskFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// status: completed/pending, регистр не важен; все прочее — без фильтра
	if s := trimmed(f.Status); s != "" {
		switch strings.ToLower(s) {
		case "completed":
			conds = append(conds, "completed = true")
		case "pending":
			conds = append(conds, "completed = false")
		}
	}

	if p := trimmed(f.Priority); p != "" {
		conds = append(conds, fmt.Sprintf("LOWER(priority) = LOWER(%s)", arg(p)))
	}

	// Тэги хранятся одной строкой через запятую, поэтому поиск по подстроке:
	// tag=a найдет и задачу с тэгом "ab"
	if tag := trimmed(f.Tag); tag != "" {
		conds = append(conds, fmt.Sprintf("tags LIKE '%%' || %s || '%%'", arg(tag)))
	}

	// Поиск по title и description, с учетом регистра; description может быть NULL
	if q := trimmed(f.Search); q != "" {
		ph := arg(q)
		conds = append(conds, fmt.Sprintf(
			"(title LIKE '%%' || %s || '%%' OR COALESCE(description, '') LIKE '%%' || %s || '%%')", ph, ph))
	}

	if f.DueBefore != nil {
		conds = append(conds, fmt.Sprintf("due_date < %s", arg(*f.DueBefore)))
	}
	if f.DueAfter != nil {
		conds = append(conds, fmt.Sprintf("due_date > %s", arg(*f.DueAfter)))
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE %s
		ORDER BY %s %s, id DESC
		LIMIT %s OFFSET %s
	`, taskColumns, strings.Join(conds, " AND "), col, dir, arg(limit), arg(skip))

	return query, args
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
