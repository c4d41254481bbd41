package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"ltbxd-scraper/internal/export"
	"ltbxd-scraper/internal/limits"
	"ltbxd-scraper/internal/scrapers/letterboxd"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	FORMAT_TABLE = "table"
	FORMAT_JSON  = "json"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func orDash(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func renderStatus[T any](t table.Writer, result letterboxd.QueryResult[T]) {
	caption := fmt.Sprintf("%s, %d items", result.Status, len(result.Data))
	if result.ErrorMessage != "" {
		caption += ": " + result.ErrorMessage
	}
	t.SetCaption(caption)
}

func renderFilms(out io.Writer, result letterboxd.QueryResult[letterboxd.Film]) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Name", "Slug", "IMDb", "Poster"})
	for i, f := range result.Data {
		t.AppendRow(table.Row{i + 1, f.Name, f.Slug, orDash(f.ID), orDash(f.Poster)})
	}
	renderStatus(t, result)
	t.Render()
}

func renderLists(out io.Writer, result letterboxd.QueryResult[letterboxd.ListCover]) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Title", "Url", "Films", "Posters", "Summary"})
	for i, l := range result.Data {
		posters := "-"
		if l.Posters != nil {
			posters = fmt.Sprint(len(l.Posters))
		}
		t.AppendRow(table.Row{i + 1, l.Title, l.Url, orDash(l.Amount), posters, orDash(l.Summary)})
	}
	renderStatus(t, result)
	t.Render()
}

func renderSearch(out io.Writer, result letterboxd.QueryResult[letterboxd.SearchFilm]) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Title", "Year", "Director", "Also known as"})
	for i, f := range result.Data {
		year := "-"
		if f.Year > 0 {
			year = fmt.Sprint(f.Year)
		}
		aka := "-"
		if len(f.AlternativeTitles) > 0 {
			aka = strings.Join(f.AlternativeTitles, ", ")
		}
		t.AppendRow(table.Row{i + 1, f.Title, year, orDash(f.Director), aka})
	}
	renderStatus(t, result)
	t.Render()
}

func renderStats(out io.Writer, stats limits.Stats) {
	t := newTable(out)
	t.SetTitle("Usage")
	t.AppendRow(table.Row{"Requests (last hour)", fmt.Sprintf("%d / %d", stats.RequestsLastHour, stats.MaxRequestsPerHour)})
	t.AppendRow(table.Row{"Requests (total)", stats.TotalRequests})
	t.AppendRow(table.Row{"Average response time", stats.AverageResponseTime.Round(time.Millisecond).String()})
	t.AppendRow(table.Row{"Error rate", fmt.Sprintf("%.1f%%", stats.ErrorRate*100)})
	next := "now"
	if !stats.LastRequest.IsZero() && stats.NextAllowed.After(stats.LastRequest) {
		next = stats.NextAllowed.Format(time.Kitchen)
	}
	t.AppendRow(table.Row{"Next request allowed", next})
	t.Render()
}

func renderQueries(out io.Writer, queries []export.Query) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Id", "When", "Kind", "Input", "Status", "Items"})
	for _, q := range queries {
		status := string(q.Status)
		if q.ErrorMessage != "" {
			status += " (" + q.ErrorMessage + ")"
		}
		t.AppendRow(table.Row{q.Id, q.CreatedAt.Format(time.DateTime), q.Kind, q.Input, status, q.ItemCount})
	}
	t.Render()
}
