package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID              string       `db:"id"`
	Name            string       `db:"name"`
	DurationInWeeks int          `db:"duration_in_weeks"`
	CreatedAt       sql.NullTime `db:"created_at"`
	UpdatedAt       sql.NullTime `db:"updated_at"`
}

func (r courseRow) unpack() course.Course {
	return course.Course{
		ID:              r.ID,
		Name:            r.Name,
		DurationInWeeks: r.DurationInWeeks,
		CreatedAt:       r.CreatedAt.Time,
		UpdatedAt:       r.UpdatedAt.Time,
	}
}

// Courses

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	query, args, err := psql.Insert("course").
		Columns("id", "name", "duration_in_weeks", "created_at", "updated_at").
		Values(crs.ID, crs.Name, crs.DurationInWeeks, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC()).
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building course insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return course.Course{}, core.NewValidationError(course.ErrNameExists,
				core.FieldError{Field: "name", Error: course.ErrNameExists.Error()})
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.CourseFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	q := psql.Select("id", "name", "duration_in_weeks", "created_at", "updated_at").From("course")
	if filter != nil && filter.Search != "" {
		q = q.Where(sq.ILike{"name": "%" + filter.Search + "%"})
	}
	q = applyOrdering(q, ordering, "name ASC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building courses query")
	}
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.unpack())
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	query, args, err := psql.Select("id", "name", "duration_in_weeks", "created_at", "updated_at").
		From("course").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building course query")
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrCourseNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.unpack(), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query, args, err := psql.Update("course").
		Set("name", crs.Name).
		Set("duration_in_weeks", crs.DurationInWeeks).
		Set("updated_at", crs.UpdatedAt.UTC()).
		Where(sq.Eq{"id": crs.ID}).
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building course update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrCourseNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	query, args, err := psql.Delete("course").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building course delete")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

// Projects

type projectRow struct {
	ID         string       `db:"id"`
	CourseID   string       `db:"course_id"`
	Name       string       `db:"name"`
	WeekNumber int          `db:"week_number"`
	TotalTasks int          `db:"total_tasks"`
	CreatedAt  sql.NullTime `db:"created_at"`
	UpdatedAt  sql.NullTime `db:"updated_at"`
}

func (r projectRow) unpack() course.Project {
	return course.Project{
		ID:         r.ID,
		CourseID:   r.CourseID,
		Name:       r.Name,
		WeekNumber: r.WeekNumber,
		TotalTasks: r.TotalTasks,
		CreatedAt:  r.CreatedAt.Time,
		UpdatedAt:  r.UpdatedAt.Time,
	}
}

var projectColumns = []string{"id", "course_id", "name", "week_number", "total_tasks", "created_at", "updated_at"}

func (repo courseRepository) CreateProject(ctx context.Context, prj course.Project) (course.Project, error) {
	prj.ID = uuid.New().String()
	query, args, err := psql.Insert("project").
		Columns(projectColumns...).
		Values(prj.ID, prj.CourseID, prj.Name, prj.WeekNumber, prj.TotalTasks, prj.CreatedAt.UTC(), prj.UpdatedAt.UTC()).
		ToSql()
	if err != nil {
		return course.Project{}, errors.Wrap(err, "building project insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return course.Project{}, errors.Wrap(err, "inserting project")
	}
	return prj, nil
}

func (repo courseRepository) QueryProjects(ctx context.Context, filter *course.ProjectFilter, ordering ...core.DBOrdering) ([]course.Project, error) {
	q := psql.Select(projectColumns...).From("project")
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(sq.ILike{"name": "%" + filter.Search + "%"})
		}
		if filter.CourseID != "" {
			q = q.Where(sq.Eq{"course_id": filter.CourseID})
		}
		if filter.WeekNumber > 0 {
			q = q.Where(sq.Eq{"week_number": filter.WeekNumber})
		}
	}
	q = applyOrdering(q, ordering, "week_number ASC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building projects query")
	}
	var rows []projectRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	projects := make([]course.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.unpack())
	}
	return projects, nil
}

func (repo courseRepository) GetProject(ctx context.Context, id string) (course.Project, error) {
	query, args, err := psql.Select(projectColumns...).From("project").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return course.Project{}, errors.Wrap(err, "building project query")
	}
	var row projectRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Project{}, course.ErrProjectNotFound
		}
		return course.Project{}, errors.Wrap(err, "getting project")
	}
	return row.unpack(), nil
}

func (repo courseRepository) UpdateProject(ctx context.Context, prj course.Project) (course.Project, error) {
	query, args, err := psql.Update("project").
		Set("name", prj.Name).
		Set("week_number", prj.WeekNumber).
		Set("total_tasks", prj.TotalTasks).
		Set("updated_at", prj.UpdatedAt.UTC()).
		Where(sq.Eq{"id": prj.ID}).
		ToSql()
	if err != nil {
		return course.Project{}, errors.Wrap(err, "building project update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return course.Project{}, errors.Wrap(err, "updating project")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Project{}, course.ErrProjectNotFound
	}
	return prj, nil
}

func (repo courseRepository) DeleteProject(ctx context.Context, id string) error {
	query, args, err := psql.Delete("project").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building project delete")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return nil
}

// Tasks

type taskRow struct {
	ID         string       `db:"id"`
	ProjectID  string       `db:"project_id"`
	TaskNumber int          `db:"task_number"`
	Title      string       `db:"title"`
	CreatedAt  sql.NullTime `db:"created_at"`
	UpdatedAt  sql.NullTime `db:"updated_at"`
}

func (r taskRow) unpack() course.Task {
	return course.Task{
		ID:         r.ID,
		ProjectID:  r.ProjectID,
		TaskNumber: r.TaskNumber,
		Title:      r.Title,
		CreatedAt:  r.CreatedAt.Time,
		UpdatedAt:  r.UpdatedAt.Time,
	}
}

var taskColumns = []string{"id", "project_id", "task_number", "title", "created_at", "updated_at"}

func (repo courseRepository) CreateTask(ctx context.Context, tsk course.Task) (course.Task, error) {
	tsk.ID = uuid.New().String()
	query, args, err := psql.Insert("task").
		Columns(taskColumns...).
		Values(tsk.ID, tsk.ProjectID, tsk.TaskNumber, tsk.Title, tsk.CreatedAt.UTC(), tsk.UpdatedAt.UTC()).
		ToSql()
	if err != nil {
		return course.Task{}, errors.Wrap(err, "building task insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return course.Task{}, errors.Wrap(err, "inserting task")
	}
	return tsk, nil
}

func (repo courseRepository) QueryTasks(ctx context.Context, filter *course.TaskFilter, ordering ...core.DBOrdering) ([]course.Task, error) {
	q := psql.Select(taskColumns...).From("task")
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(sq.ILike{"title": "%" + filter.Search + "%"})
		}
		if filter.ProjectID != "" {
			q = q.Where(sq.Eq{"project_id": filter.ProjectID})
		}
	}
	q = applyOrdering(q, ordering, "task_number ASC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building tasks query")
	}
	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]course.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.unpack())
	}
	return tasks, nil
}

func (repo courseRepository) GetTask(ctx context.Context, id string) (course.Task, error) {
	query, args, err := psql.Select(taskColumns...).From("task").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return course.Task{}, errors.Wrap(err, "building task query")
	}
	var row taskRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Task{}, course.ErrTaskNotFound
		}
		return course.Task{}, errors.Wrap(err, "getting task")
	}
	return row.unpack(), nil
}

func (repo courseRepository) UpdateTask(ctx context.Context, tsk course.Task) (course.Task, error) {
	query, args, err := psql.Update("task").
		Set("task_number", tsk.TaskNumber).
		Set("title", tsk.Title).
		Set("updated_at", tsk.UpdatedAt.UTC()).
		Where(sq.Eq{"id": tsk.ID}).
		ToSql()
	if err != nil {
		return course.Task{}, errors.Wrap(err, "building task update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return course.Task{}, errors.Wrap(err, "updating task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Task{}, course.ErrTaskNotFound
	}
	return tsk, nil
}

func (repo courseRepository) DeleteTask(ctx context.Context, id string) error {
	query, args, err := psql.Delete("task").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building task delete")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return nil
}
