package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	"github.com/noah-isme/canvas-gradebook/internal/repository"
	"github.com/noah-isme/canvas-gradebook/internal/service"
	"github.com/noah-isme/canvas-gradebook/pkg/canvas"
	"github.com/noah-isme/canvas-gradebook/pkg/config"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

const usage = `usage: gradebook-cli <command> [flags]

commands:
  fetch-course  fetch and store a course's grading structure and roster
  students      list the stored roster
  grades        print one student's graded items as JSON
  report        render one student's grade sheet (csv or pdf)

run "gradebook-cli <command> -h" for command flags.
`

// app holds the services a command needs.
type app struct {
	courses *service.CourseService
	grades  *service.GradeService
	exports *service.ExportService
	token   string
	stdout  io.Writer
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}

	store, err := repository.OpenStructureStore(ctx, cfg, logr)
	if err != nil {
		fmt.Fprintf(stderr, "open structure store: %v\n", err)
		return 1
	}
	defer store.Close() //nolint:errcheck

	client := canvas.NewClient(canvas.Options{
		BaseURL: cfg.Canvas.BaseURL,
		PerPage: cfg.Canvas.PerPage,
		Timeout: cfg.Canvas.Timeout,
		Logger:  logr,
	})
	structures := service.NewStructureService(store, nil, logr)
	grades := service.NewGradeService(client, structures, nil, cfg.Grading.NotYetGraded, nil, logr)
	a := &app{
		courses: service.NewCourseService(client, structures, cfg.Canvas.AttendanceAssignment, nil, logr),
		grades:  grades,
		exports: service.NewExportService(grades, service.SheetMarkers{Drop: cfg.Grading.DropMarker, Omit: cfg.Grading.OmitMarker}, logr, nil, nil),
		token:   cfg.Canvas.Token,
		stdout:  stdout,
	}

	var cmdErr error
	switch args[0] {
	case "fetch-course":
		cmdErr = a.fetchCourse(ctx, args[1:], stderr)
	case "students":
		cmdErr = a.students(ctx, args[1:], stderr)
	case "grades":
		cmdErr = a.studentGrades(ctx, args[1:], stderr)
	case "report":
		cmdErr = a.report(ctx, args[1:], stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if cmdErr == nil {
		return 0
	}
	if errors.Is(cmdErr, flag.ErrHelp) {
		return 2
	}
	var appErr *appErrors.Error
	if errors.As(cmdErr, &appErr) {
		fmt.Fprintf(stderr, "%s: %s\n", appErr.Code, appErr.Message)
	} else {
		fmt.Fprintf(stderr, "error: %v\n", cmdErr)
	}
	return 1
}

type courseFlags struct {
	course string
	token  string
}

func (a *app) newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *courseFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := &courseFlags{}
	fs.StringVar(&cf.course, "course", "", "Canvas course ID")
	fs.StringVar(&cf.token, "token", a.token, "Canvas API token (defaults to CANVAS_TOKEN)")
	return fs, cf
}

func (a *app) fetchCourse(ctx context.Context, args []string, stderr io.Writer) error {
	fs, cf := a.newFlagSet("fetch-course", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	structure, err := a.courses.FetchCourse(ctx, service.FetchCourseRequest{CourseID: cf.course, Token: cf.token})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "course %s fetched: %d categories, %d students (version %d)\n",
		structure.CourseID, len(structure.Categories), len(structure.Roster), structure.Version)
	return nil
}

func (a *app) students(ctx context.Context, args []string, stderr io.Writer) error {
	fs, cf := a.newFlagSet("students", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	roster, err := a.courses.Roster(ctx, cf.course)
	if err != nil {
		return err
	}
	for _, s := range roster {
		fmt.Fprintf(a.stdout, "%d\t%s\n", s.ID, s.SortableName)
	}
	return nil
}

type studentFlags struct {
	*courseFlags
	student string
	nyg     string
	fetch   bool
}

func (a *app) studentFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *studentFlags) {
	fs, cf := a.newFlagSet(name, stderr)
	sf := &studentFlags{courseFlags: cf}
	fs.StringVar(&sf.student, "student", "", "Canvas user ID")
	fs.StringVar(&sf.nyg, "nyg", "", `not-yet-graded score, a number or "Use Zero" (defaults to GRADING_NOT_YET_GRADED)`)
	fs.BoolVar(&sf.fetch, "fetch", false, "fetch the course structure first")
	return fs, sf
}

func (a *app) gradeRequest(ctx context.Context, sf *studentFlags) (service.GradeRequest, error) {
	if sf.fetch {
		if _, err := a.courses.FetchCourse(ctx, service.FetchCourseRequest{CourseID: sf.course, Token: sf.token}); err != nil {
			return service.GradeRequest{}, err
		}
	}
	nyg, err := a.grades.NotYetGraded(sf.nyg)
	if err != nil {
		return service.GradeRequest{}, err
	}
	return service.GradeRequest{CourseID: sf.course, StudentID: sf.student, NotYetGraded: &nyg, Token: sf.token}, nil
}

func (a *app) studentGrades(ctx context.Context, args []string, stderr io.Writer) error {
	fs, sf := a.studentFlagSet("grades", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := a.gradeRequest(ctx, sf)
	if err != nil {
		return err
	}
	grades, err := a.grades.StudentGrades(ctx, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(grades)
}

func (a *app) report(ctx context.Context, args []string, stderr io.Writer) error {
	fs, sf := a.studentFlagSet("report", stderr)
	format := fs.String("format", string(models.ReportFormatCSV), "csv or pdf")
	out := fs.String("out", "", `output file; "-" writes to stdout (defaults to the generated file name)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := a.gradeRequest(ctx, sf)
	if err != nil {
		return err
	}
	report, err := a.exports.RenderStudent(ctx, req, models.ReportFormat(strings.ToLower(*format)))
	if err != nil {
		return err
	}
	if *out == "-" {
		_, err := a.stdout.Write(report.Data)
		return err
	}
	path := *out
	if path == "" {
		path = report.Filename
	}
	if err := os.WriteFile(path, report.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(a.stdout, "report written to %s\n", path)
	return nil
}
