package gtfsman

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-manager/history"
	"github.com/theoremus-urban-solutions/gtfs-manager/remote"
)

func reportFeeds() []*Feed {
	return []*Feed{
		{Name: "active", ValidFrom: day(2024, 1, 1), ValidTo: day(2024, 12, 31), SourceURL: "https://example.org/a.zip", HasShapes: true},
		{Name: "expired", ValidFrom: day(2023, 1, 1), ValidTo: day(2023, 12, 31), Freshness: &remote.Freshness{RemoteNewer: true}},
	}
}

func TestRenderList(t *testing.T) {
	now := day(2024, 6, 15)
	tests := []struct {
		filter ListFilter
		want   []string
		absent []string
	}{
		{ListAll, []string{"active", "expired"}, nil},
		{ListActive, []string{"active"}, []string{"expired"}},
		{ListNotActive, []string{"expired"}, []string{"active"}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := RenderList(&buf, reportFeeds(), now, tt.filter); err != nil {
			t.Fatalf("RenderList failed: %v", err)
		}
		out := buf.String()
		for _, s := range tt.want {
			if !strings.Contains(out, s) {
				t.Errorf("filter %d: output missing %q:\n%s", tt.filter, s, out)
			}
		}
		for _, s := range tt.absent {
			if strings.Contains(out, s+" ") {
				t.Errorf("filter %d: output should not list %q:\n%s", tt.filter, s, out)
			}
		}
	}

	var buf bytes.Buffer
	_ = RenderList(&buf, reportFeeds(), now, ListAll)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "01/01/2024") || !strings.Contains(lines[0], "31/12/2024") {
		t.Errorf("dates missing from %q", lines[0])
	}
	if !strings.Contains(lines[0], "s\tu\t ") {
		t.Errorf("flags of active feed = %q", lines[0])
	}
	if !strings.Contains(lines[1], " \t \tr") {
		t.Errorf("flags of expired feed = %q", lines[1])
	}
}

func TestRenderFeed(t *testing.T) {
	now := day(2024, 6, 15)
	f := reportFeeds()[0]
	f.Postprocess = "tidy {feed_path}"
	f.Freshness = &remote.Freshness{Remote: day(2024, 6, 1), Local: day(2024, 5, 1), RemoteNewer: true}
	last := &history.Event{At: time.Date(2024, 6, 10, 8, 0, 0, 0, time.Local)}

	var buf bytes.Buffer
	if err := RenderFeed(&buf, f, now, last); err != nil {
		t.Fatalf("RenderFeed failed: %v", err)
	}
	out := buf.String()
	for _, s := range []string{
		"data from:", "01/01/2024",
		"data until:", "31/12/2024",
		"url:", "https://example.org/a.zip",
		"newer at url:", "Yes (remote: 01/06/2024, local: 01/05/2024)",
		"has shapes:", "Postprocess cmd:", "tidy {feed_path}",
		"last update:", "10/06/2024 08:00",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestRenderFeed_ProbeFailedAndNoURL(t *testing.T) {
	f := &Feed{Name: "x", ValidFrom: day(2024, 1, 1), ValidTo: day(2024, 2, 1), ProbeErr: errors.New("timeout")}
	var buf bytes.Buffer
	if err := RenderFeed(&buf, f, day(2024, 6, 15), nil); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "None") || !strings.Contains(out, "check failed: timeout") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "Postprocess cmd:") || strings.Contains(out, "last update:") {
		t.Errorf("optional rows rendered:\n%s", out)
	}
}

func TestRenderHistory(t *testing.T) {
	events := []history.Event{
		{Feed: "a", Kind: history.KindUpdate, OK: true, ValidFrom: "20240101", ValidTo: "20241231", At: time.Now()},
		{Feed: "b", Kind: history.KindProbe, OK: false, Detail: "HTTP 500", At: time.Now()},
	}
	var buf bytes.Buffer
	if err := RenderHistory(&buf, events); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "20240101-20241231") || !strings.Contains(out, "FAIL") || !strings.Contains(out, "HTTP 500") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
