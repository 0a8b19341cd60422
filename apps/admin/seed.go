package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/shida/core/course"
	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/user"
)

// seed loads development fixtures: a small catalog, a cohort of users and a few issues.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	now := time.Now().UTC()

	// catalog
	crs, err := cli.crsRepo.CreateCourse(ctx, course.Course{
		Name:            "Full-Stack Web Development",
		DurationInWeeks: 12,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return err
	}

	var tasks []course.Task
	for week := 1; week <= 3; week++ {
		prj, err := cli.crsRepo.CreateProject(ctx, course.Project{
			CourseID:   crs.ID,
			Name:       fmt.Sprintf("Week %d Project", week),
			WeekNumber: week,
			TotalTasks: 4,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return err
		}
		for n := 1; n <= 4; n++ {
			tsk, err := cli.crsRepo.CreateTask(ctx, course.Task{
				ProjectID:  prj.ID,
				TaskNumber: n,
				Title:      fmt.Sprintf("Task %d.%d", week, n),
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			if err != nil {
				return err
			}
			tasks = append(tasks, tsk)
		}
	}

	// users
	newUser := func(name, uname, cohort string, roles []string) (user.User, error) {
		usr := user.User{
			Name:      name,
			Username:  uname,
			Email:     uname + "@example.com",
			Cohort:    cohort,
			Roles:     roles,
			CreatedAt: now,
			UpdatedAt: now,
		}
		usr.SetActive(true)
		if err := usr.SetPassword("LePassword123!"); err != nil {
			return user.User{}, err
		}
		return cli.usrRepo.CreateUser(ctx, usr)
	}

	cohort := "2026-A"
	students := make([]user.User, 0, 3)
	for i, name := range []string{"Asha Student", "Bakari Student", "Chipo Student"} {
		usr, err := newUser(name, fmt.Sprintf("student%d", i+1), cohort, user.StudentRoles)
		if err != nil {
			return err
		}
		students = append(students, usr)
	}
	mentor, err := newUser("Maji Mentor", "mentor1", cohort, user.MentorRoles)
	if err != nil {
		return err
	}
	if _, err = newUser("Abla Admin", "admin1", "", user.AllRoles); err != nil {
		return err
	}

	// issues
	prjID := tasks[0].ProjectID
	issues := []issue.Issue{
		{
			Title:       "Checker rejects valid solution",
			Description: "The checker for task 1.1 fails even though the output matches the sample.",
			Category:    issue.CategoryCheckerError,
			Urgency:     issue.UrgencyHigh,
			Status:      issue.StatusOpen,
			ReportedBy:  students[0].ID,
			CourseID:    crs.ID,
			ProjectID:   prjID,
			TaskID:      tasks[0].ID,
			Cohort:      cohort,
			WeekNumber:  1,
		},
		{
			Title:       "Unclear instructions in week 1",
			Description: "Step 3 of the project brief does not say which file to edit.",
			Category:    issue.CategoryUnclearInstructions,
			Urgency:     issue.UrgencyMedium,
			Status:      issue.StatusInProgress,
			ReportedBy:  students[1].ID,
			AssignedTo:  mentor.ID,
			CourseID:    crs.ID,
			ProjectID:   prjID,
			Cohort:      cohort,
			WeekNumber:  1,
		},
		{
			Title:       "Typo in task 1.2 title",
			Description: "\"Recieve\" should be \"Receive\".",
			Category:    issue.CategoryTypo,
			Urgency:     issue.UrgencyLow,
			Status:      issue.StatusResolved,
			ReportedBy:  students[2].ID,
			AssignedTo:  mentor.ID,
			CourseID:    crs.ID,
			ProjectID:   prjID,
			TaskID:      tasks[1].ID,
			Cohort:      cohort,
			WeekNumber:  1,
		},
	}
	for _, iss := range issues {
		iss.CreatedAt = now
		iss.UpdatedAt = now
		if iss.Status != issue.StatusOpen {
			iss.FirstResponseAt = now
		}
		if iss.Status == issue.StatusResolved {
			iss.ResolvedAt = now
		}
		iss, err := cli.issueRepo.CreateIssue(ctx, iss)
		if err != nil {
			return err
		}
		if _, err = cli.issueRepo.CreateHistoryEntry(ctx, issue.HistoryEntry{
			IssueID:     iss.ID,
			Action:      "created",
			PerformedBy: iss.ReportedBy,
			Timestamp:   now,
		}); err != nil {
			return err
		}
	}

	logger.Println("fixtures loaded")
	return nil
}
