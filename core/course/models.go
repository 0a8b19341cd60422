package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shida/core"
)

type Course struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DurationInWeeks int       `json:"duration_in_weeks"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

type Project struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	Name       string    `json:"name"`
	WeekNumber int       `json:"week_number"`
	TotalTasks int       `json:"total_tasks"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

type Task struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	TaskNumber int       `json:"task_number"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

type NewCourse struct {
	Name            string `json:"name" validate:"required"`
	DurationInWeeks int    `json:"duration_in_weeks" validate:"required,min=1"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type UpdateCourse struct {
	Name            string `json:"name"`
	DurationInWeeks int    `json:"duration_in_weeks" validate:"omitempty,min=1"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	return validate.Struct(uc)
}

type NewProject struct {
	CourseID   string `json:"course_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	WeekNumber int    `json:"week_number" validate:"required,min=1"`
	TotalTasks int    `json:"total_tasks" validate:"omitempty,min=0"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	return validate.Struct(np)
}

type UpdateProject struct {
	Name       string `json:"name"`
	WeekNumber int    `json:"week_number" validate:"omitempty,min=1"`
	TotalTasks *int   `json:"total_tasks" validate:"omitempty"`
}

func (up *UpdateProject) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	return validate.Struct(up)
}

type NewTask struct {
	ProjectID  string `json:"project_id" validate:"required"`
	TaskNumber int    `json:"task_number" validate:"required,min=1"`
	Title      string `json:"title" validate:"required"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	return validate.Struct(nt)
}

type UpdateTask struct {
	TaskNumber int    `json:"task_number" validate:"omitempty,min=1"`
	Title      string `json:"title"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanString(ut.Title)
	return validate.Struct(ut)
}

type CourseFilter struct {
	Search string `query:"search"`
}

type ProjectFilter struct {
	Search     string `query:"search"`
	CourseID   string `query:"course"`
	WeekNumber int    `query:"week_number"`
}

type TaskFilter struct {
	Search    string `query:"search"`
	ProjectID string `query:"project"`
}
