package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// Courses

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range repo.db.courses {
		if c.Name == crs.Name {
			return course.Course{}, core.NewValidationError(course.ErrNameExists,
				core.FieldError{Field: "name", Error: course.ErrNameExists.Error()})
		}
	}
	crs.ID = uuid.New().String()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.CourseFilter, _ ...core.DBOrdering) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if filter != nil && filter.Search != "" &&
			!strings.Contains(strings.ToLower(crs.Name), strings.ToLower(filter.Search)) {
			continue
		}
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.courses, id)
	return nil
}

// Projects

func (repo *courseRepository) CreateProject(_ context.Context, prj course.Project) (course.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	prj.ID = uuid.New().String()
	repo.db.projects[prj.ID] = &prj
	return prj, nil
}

func (repo *courseRepository) QueryProjects(_ context.Context, filter *course.ProjectFilter, _ ...core.DBOrdering) ([]course.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	projects := make([]course.Project, 0, len(repo.db.projects))
	for _, prj := range repo.db.projects {
		if filter != nil {
			if filter.Search != "" && !strings.Contains(strings.ToLower(prj.Name), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.CourseID != "" && prj.CourseID != filter.CourseID {
				continue
			}
			if filter.WeekNumber > 0 && prj.WeekNumber != filter.WeekNumber {
				continue
			}
		}
		projects = append(projects, *prj)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].WeekNumber < projects[j].WeekNumber })
	return projects, nil
}

func (repo *courseRepository) GetProject(_ context.Context, id string) (course.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prj, ok := repo.db.projects[id]; ok {
		return *prj, nil
	}
	return course.Project{}, course.ErrProjectNotFound
}

func (repo *courseRepository) UpdateProject(_ context.Context, prj course.Project) (course.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.projects[prj.ID]; !ok {
		return course.Project{}, course.ErrProjectNotFound
	}
	repo.db.projects[prj.ID] = &prj
	return prj, nil
}

func (repo *courseRepository) DeleteProject(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.projects, id)
	return nil
}

// Tasks

func (repo *courseRepository) CreateTask(_ context.Context, tsk course.Task) (course.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tsk.ID = uuid.New().String()
	repo.db.tasks[tsk.ID] = &tsk
	return tsk, nil
}

func (repo *courseRepository) QueryTasks(_ context.Context, filter *course.TaskFilter, _ ...core.DBOrdering) ([]course.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]course.Task, 0, len(repo.db.tasks))
	for _, tsk := range repo.db.tasks {
		if filter != nil {
			if filter.Search != "" && !strings.Contains(strings.ToLower(tsk.Title), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.ProjectID != "" && tsk.ProjectID != filter.ProjectID {
				continue
			}
		}
		tasks = append(tasks, *tsk)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskNumber < tasks[j].TaskNumber })
	return tasks, nil
}

func (repo *courseRepository) GetTask(_ context.Context, id string) (course.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tsk, ok := repo.db.tasks[id]; ok {
		return *tsk, nil
	}
	return course.Task{}, course.ErrTaskNotFound
}

func (repo *courseRepository) UpdateTask(_ context.Context, tsk course.Task) (course.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tasks[tsk.ID]; !ok {
		return course.Task{}, course.ErrTaskNotFound
	}
	repo.db.tasks[tsk.ID] = &tsk
	return tsk, nil
}

func (repo *courseRepository) DeleteTask(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.tasks, id)
	return nil
}
