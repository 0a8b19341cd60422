package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shida/core"
)

var (
	// errors
	ErrCourseNotFound  = errors.New("course not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrNameExists      = errors.New("a course with this name already exists")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		QueryCourses(ctx context.Context, filter *CourseFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateProject(ctx context.Context, prj Project) (Project, error)
		QueryProjects(ctx context.Context, filter *ProjectFilter, ordering ...core.DBOrdering) ([]Project, error)
		GetProject(ctx context.Context, id string) (Project, error)
		UpdateProject(ctx context.Context, prj Project) (Project, error)
		DeleteProject(ctx context.Context, id string) error

		CreateTask(ctx context.Context, tsk Task) (Task, error)
		QueryTasks(ctx context.Context, filter *TaskFilter, ordering ...core.DBOrdering) ([]Task, error)
		GetTask(ctx context.Context, id string) (Task, error)
		UpdateTask(ctx context.Context, tsk Task) (Task, error)
		DeleteTask(ctx context.Context, id string) error
	}

	Service interface {
		CreateCourse(nc NewCourse) (Course, error)
		Courses(filter *CourseFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetCourse(id string) (Course, error)
		UpdateCourse(id string, uc UpdateCourse) (Course, error)
		DeleteCourse(id string) error

		CreateProject(np NewProject) (Project, error)
		Projects(filter *ProjectFilter, ordering ...core.DBOrdering) ([]Project, error)
		GetProject(id string) (Project, error)
		UpdateProject(id string, up UpdateProject) (Project, error)
		DeleteProject(id string) error

		CreateTask(nt NewTask) (Task, error)
		Tasks(filter *TaskFilter, ordering ...core.DBOrdering) ([]Task, error)
		GetTask(id string) (Task, error)
		UpdateTask(id string, ut UpdateTask) (Task, error)
		DeleteTask(id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Courses

func (svc *service) CreateCourse(nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	return svc.repo.CreateCourse(context.Background(), Course{
		Name:            nc.Name,
		DurationInWeeks: nc.DurationInWeeks,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *service) Courses(filter *CourseFilter, ordering ...core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(context.Background(), filter, ordering...)
}

func (svc *service) GetCourse(id string) (Course, error) {
	return svc.repo.GetCourse(context.Background(), id)
}

func (svc *service) UpdateCourse(id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(context.Background(), id)
	if err != nil {
		return Course{}, err
	}
	if uc.Name != "" {
		crs.Name = uc.Name
	}
	if uc.DurationInWeeks > 0 {
		crs.DurationInWeeks = uc.DurationInWeeks
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(context.Background(), crs)
}

func (svc *service) DeleteCourse(id string) error {
	return svc.repo.DeleteCourse(context.Background(), id)
}

// Projects

func (svc *service) CreateProject(np NewProject) (Project, error) {
	if _, err := svc.repo.GetCourse(context.Background(), np.CourseID); err != nil {
		return Project{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
	}
	now := time.Now().UTC()
	return svc.repo.CreateProject(context.Background(), Project{
		CourseID:   np.CourseID,
		Name:       np.Name,
		WeekNumber: np.WeekNumber,
		TotalTasks: np.TotalTasks,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *service) Projects(filter *ProjectFilter, ordering ...core.DBOrdering) ([]Project, error) {
	return svc.repo.QueryProjects(context.Background(), filter, ordering...)
}

func (svc *service) GetProject(id string) (Project, error) {
	return svc.repo.GetProject(context.Background(), id)
}

func (svc *service) UpdateProject(id string, up UpdateProject) (Project, error) {
	prj, err := svc.repo.GetProject(context.Background(), id)
	if err != nil {
		return Project{}, err
	}
	if up.Name != "" {
		prj.Name = up.Name
	}
	if up.WeekNumber > 0 {
		prj.WeekNumber = up.WeekNumber
	}
	if up.TotalTasks != nil {
		prj.TotalTasks = *up.TotalTasks
	}
	prj.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProject(context.Background(), prj)
}

func (svc *service) DeleteProject(id string) error {
	return svc.repo.DeleteProject(context.Background(), id)
}

// Tasks

func (svc *service) CreateTask(nt NewTask) (Task, error) {
	if _, err := svc.repo.GetProject(context.Background(), nt.ProjectID); err != nil {
		return Task{}, core.NewValidationError(err, core.FieldError{Field: "project_id", Error: err.Error()})
	}
	now := time.Now().UTC()
	return svc.repo.CreateTask(context.Background(), Task{
		ProjectID:  nt.ProjectID,
		TaskNumber: nt.TaskNumber,
		Title:      nt.Title,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *service) Tasks(filter *TaskFilter, ordering ...core.DBOrdering) ([]Task, error) {
	return svc.repo.QueryTasks(context.Background(), filter, ordering...)
}

func (svc *service) GetTask(id string) (Task, error) {
	return svc.repo.GetTask(context.Background(), id)
}

func (svc *service) UpdateTask(id string, ut UpdateTask) (Task, error) {
	tsk, err := svc.repo.GetTask(context.Background(), id)
	if err != nil {
		return Task{}, err
	}
	if ut.TaskNumber > 0 {
		tsk.TaskNumber = ut.TaskNumber
	}
	if ut.Title != "" {
		tsk.Title = ut.Title
	}
	tsk.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTask(context.Background(), tsk)
}

func (svc *service) DeleteTask(id string) error {
	return svc.repo.DeleteTask(context.Background(), id)
}
