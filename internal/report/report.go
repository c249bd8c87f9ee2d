// Package report renders the task list as a printable PDF.
package report

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"github.com/adanyl0v/go-todo-client/internal/models"
)

const (
	Title    = "Task Manager Report"
	Subject  = "Tasks Report"
	Author   = "Task Manager"
	Creator  = "Task Manager App"
	Filename = "task-manager-report.pdf"

	ItemsPerPage = 20

	StatusCompleted = "Completed"
	StatusPending   = "Pending"

	maxTitleLength       = 50
	maxDescriptionLength = 70
)

// Vertical positions in millimetres.
const (
	firstItemY     = 105
	nextPageItemY  = 20
	itemSpacing    = 8
	detailSpacing  = 12
	descriptionGap = 5
)

type Item struct {
	Page        int
	Y           float64
	Title       string
	Status      string
	Description string
}

type Report struct {
	GeneratedAt time.Time
	Total       int
	Completed   int
	Pending     int
	Pages       int
	Items       []Item
}

// Build lays out the report for tasks in the given order. Pages are
// numbered from zero.
func Build(tasks []models.Task, now time.Time) Report {
	r := Report{
		GeneratedAt: now,
		Total:       len(tasks),
		Pages:       1,
		Items:       make([]Item, 0, len(tasks)),
	}

	page, y, count := 0, float64(firstItemY), 0
	for _, task := range tasks {
		if task.Completed {
			r.Completed++
		}

		if count == ItemsPerPage {
			page++
			y = nextPageItemY
			count = 0
		}

		item := Item{
			Page:   page,
			Y:      y,
			Title:  truncate(task.Title, maxTitleLength),
			Status: StatusPending,
		}
		if task.Completed {
			item.Status = StatusCompleted
		}

		if task.Description != nil && *task.Description != "" {
			item.Description = truncate(*task.Description, maxDescriptionLength)
			y += detailSpacing
		} else {
			y += itemSpacing
		}

		r.Items = append(r.Items, item)
		count++
	}

	r.Pending = r.Total - r.Completed
	r.Pages = page + 1
	return r
}

// Render writes r as a PDF document to w.
func (r Report) Render(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(Title, false)
	pdf.SetSubject(Subject, false)
	pdf.SetAuthor(Author, false)
	pdf.SetCreator(Creator, false)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPage()

	pdf.SetFontSize(22)
	pdf.Text(20, 20, Title)

	pdf.SetFontSize(12)
	pdf.Text(20, 30, "Generated on: "+r.GeneratedAt.Format(time.DateOnly))

	pdf.SetFontSize(14)
	pdf.Text(20, 45, "Summary:")
	pdf.SetFontSize(12)
	pdf.Text(25, 55, fmt.Sprintf("Total Tasks: %d", r.Total))
	pdf.Text(25, 62, fmt.Sprintf("Completed: %d", r.Completed))
	pdf.Text(25, 69, fmt.Sprintf("Pending: %d", r.Pending))

	pdf.SetFontSize(16)
	pdf.Text(20, 85, "Tasks List:")

	pdf.SetFontSize(11)
	pdf.SetTextColor(100, 100, 100)
	pdf.Text(25, 95, "Title")
	pdf.Text(150, 95, "Status")
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, 97, 190, 97)
	pdf.SetTextColor(0, 0, 0)

	page := 0
	for _, item := range r.Items {
		for page < item.Page {
			pdf.AddPage()
			page++
		}

		pdf.Text(25, item.Y, tr(item.Title))
		pdf.Text(150, item.Y, item.Status)

		if item.Description != "" {
			pdf.SetFontSize(9)
			pdf.SetTextColor(100, 100, 100)
			pdf.Text(25, item.Y+descriptionGap, tr(item.Description))
			pdf.SetFontSize(11)
			pdf.SetTextColor(0, 0, 0)
		}
	}

	err := pdf.Output(w)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// Write builds and renders the report in one step.
func Write(w io.Writer, tasks []models.Task, now time.Time) error {
	return Build(tasks, now).Render(w)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}
