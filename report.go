package gtfsman

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theoremus-urban-solutions/gtfs-manager/history"
	"github.com/theoremus-urban-solutions/gtfs-manager/utils"
)

var (
	colorActive   = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}
	colorExpiring = lipgloss.AdaptiveColor{Light: "#B58900", Dark: "#E3B341"}
	colorExpired  = lipgloss.AdaptiveColor{Light: "#D1242F", Dark: "#F85149"}
	colorUpcoming = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#58A6FF"}

	// list rows are tab separated
	baseStyle = lipgloss.NewStyle().TabWidth(lipgloss.NoTabConversion)

	statusStyles = map[Status]lipgloss.Style{
		StatusActive:   baseStyle.Foreground(colorActive),
		StatusExpiring: baseStyle.Foreground(colorExpiring),
		StatusExpired:  baseStyle.Foreground(colorExpired),
		StatusUpcoming: baseStyle.Foreground(colorUpcoming),
	}

	labelStyle = lipgloss.NewStyle().Width(17)
	errorStyle = lipgloss.NewStyle().Foreground(colorExpired)
)

// ListFilter narrows RenderList output.
type ListFilter int

const (
	ListAll ListFilter = iota
	ListActive
	ListNotActive
)

// RenderList writes one coloured line per feed: name, valid from, valid to and the flags
// s (has shapes), u (has URL) and r (newer remote copy).
func RenderList(w io.Writer, feeds []*Feed, now time.Time, filter ListFilter) error {
	for _, f := range feeds {
		expired := Expired(f.ValidTo, now)
		if (filter == ListActive && expired) || (filter == ListNotActive && !expired) {
			continue
		}
		line := fmt.Sprintf("%-30s\t%-10s\t%-15s\t%s\t%s\t%s",
			f.Name,
			utils.DisplayDate(f.ValidFrom),
			utils.DisplayDate(f.ValidTo),
			flag(f.HasShapes, "s"),
			flag(f.SourceURL != "", "u"),
			flag(f.RemoteNewer(), "r"),
		)
		style := statusStyles[FeedStatus(f.ValidFrom, f.ValidTo, now)]
		if _, err := fmt.Fprintln(w, style.Render(line)); err != nil {
			return err
		}
	}
	return nil
}

// RenderFeed writes the details of a single feed. last, when set, is its latest successful update.
func RenderFeed(w io.Writer, f *Feed, now time.Time, last *history.Event) error {
	fromStyle := statusStyles[StatusActive]
	if utils.DaysBetween(f.ValidFrom, now) < 0 {
		fromStyle = statusStyles[StatusUpcoming]
	}
	toStatus := FeedStatus(f.ValidFrom, f.ValidTo, now)
	if toStatus == StatusUpcoming {
		toStatus = StatusActive
	}

	var b strings.Builder
	b.WriteString(f.Name + "\n")
	row(&b, "data from:", fromStyle.Render(utils.DisplayDate(f.ValidFrom)))
	row(&b, "data until:", statusStyles[toStatus].Render(utils.DisplayDate(f.ValidTo)))
	row(&b, "url:", orNone(f.SourceURL))
	switch {
	case f.ProbeErr != nil:
		row(&b, "newer at url:", errorStyle.Render("check failed: "+f.ProbeErr.Error()))
	case f.Freshness != nil:
		row(&b, "newer at url:", fmt.Sprintf("%s (remote: %s, local: %s)",
			yesNo(f.Freshness.RemoteNewer),
			utils.DisplayDate(f.Freshness.Remote),
			utils.DisplayDate(f.Freshness.Local)))
	}
	row(&b, "has shapes:", yesNo(f.HasShapes))
	if f.Postprocess != "" {
		row(&b, "Postprocess cmd:", f.Postprocess)
	}
	if last != nil {
		row(&b, "last update:", last.At.Local().Format("02/01/2006 15:04"))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderHistory writes events one per line, newest first.
func RenderHistory(w io.Writer, events []history.Event) error {
	for _, e := range events {
		status := statusStyles[StatusActive].Render("ok  ")
		if !e.OK {
			status = errorStyle.Render("FAIL")
		}
		span := ""
		if e.ValidFrom != "" {
			span = e.ValidFrom + "-" + e.ValidTo
		}
		if _, err := fmt.Fprintf(w, "%s\t%-30s\t%-6s\t%s\t%-17s\t%s\n",
			e.At.Local().Format("2006-01-02 15:04:05"), e.Feed, e.Kind, status, span, e.Detail); err != nil {
			return err
		}
	}
	return nil
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func flag(set bool, s string) string {
	if set {
		return s
	}
	return " "
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
