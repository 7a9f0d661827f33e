package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"secretgrab/internal/secrets"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	accent = lipgloss.Color("#8BC34A")
	muted  = lipgloss.Color("#6b7280")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderSummary formats the canonical secrets as a table followed by the written files.
func renderSummary(v secrets.Views, dir string) string {
	if len(v.Secrets) == 0 {
		return mutedStyle.Render("No real secrets with valid version found")
	}

	rows := make([][]string, 0, len(v.Secrets))
	for _, s := range v.Secrets {
		rows = append(rows, []string{strconv.Itoa(s.Version), strconv.Itoa(len(s.Secret)), s.Secret})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(muted)).
		Headers("VERSION", "LENGTH", "SECRET").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	files := []string{
		filepath.Join(dir, secrets.SecretsFile),
		filepath.Join(dir, secrets.BytesFile),
		filepath.Join(dir, secrets.DictFile),
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("%d secret(s) captured", len(v.Secrets))),
		t.String(),
		mutedStyle.Render("Wrote "+strings.Join(files, ", ")),
	)
}
