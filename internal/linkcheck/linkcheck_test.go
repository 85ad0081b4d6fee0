package linkcheck

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/scalapatisserie/muffin-site/internal/domain"
	"github.com/scalapatisserie/muffin-site/internal/logger"
	"github.com/scalapatisserie/muffin-site/internal/site"
)

func htmlPage(route string, kind domain.Kind, body string) *domain.Page {
	return domain.NewPage(route, "", "en", kind, "text/html; charset=utf-8", []byte(body))
}

func TestCheck(t *testing.T) {
	pages := []*domain.Page{
		htmlPage("/muffin/", domain.KindHome, `<html><body>
			<a href="/muffin/intro">intro</a>
			<a href="intro#setup">relative with anchor</a>
			<a href="/muffin/intro/">trailing slash</a>
			<a href="https://github.com/little-inferno/muffin-original">external</a>
			<a href="mailto:team@example.com">mail</a>
			<a href="/muffin/missing">missing</a>
			<a href="/muffin/intro#nope">bad anchor</a>
			<a href="/elsewhere">outside</a>
			<img src="/muffin/img/logo.png">
			<img src="/muffin/img/none.png">
			<link rel="canonical" href="/not/checked">
			<link rel="stylesheet" href="/muffin/css/custom.css">
		</body></html>`),
		htmlPage("/muffin/intro", domain.KindDoc, `<html><body><h2 id="setup">Setup</h2><a href="#setup">self</a></body></html>`),
		htmlPage("/muffin/404.html", domain.KindNotFound, `<html><body><a href="/muffin/ignored-in-404">x</a></body></html>`),
		domain.NewPage("/muffin/img/logo.png", "img/logo.png", "", domain.KindAsset, "image/png", []byte{1}),
	}

	c, err := New("/muffin/", pages)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := c.Check()

	want := map[string]string{
		"/elsewhere":             "outside of base URL /muffin/",
		"/muffin/css/custom.css": "no such page",
		"/muffin/img/none.png":   "no such page",
		"/muffin/intro#nope":     "no such anchor",
		"/muffin/missing":        "no such page",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d broken links, want %d: %v", len(got), len(want), got)
	}
	for _, b := range got {
		if b.Source != "/muffin/" {
			t.Errorf("unexpected source %q", b.Source)
		}
		if reason, ok := want[b.Target]; !ok || reason != b.Reason {
			t.Errorf("unexpected broken link %v", b)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Target > got[i].Target {
			t.Errorf("results must be sorted: %v", got)
		}
	}
}

func TestApply(t *testing.T) {
	findings := []string{"/a -> /b (no such page)"}

	tests := []struct {
		policy    string
		wantErr   bool
		wantLevel zapcore.Level
		wantLogs  int
	}{
		{policy: site.PolicyIgnore},
		{policy: site.PolicyLog, wantLevel: zapcore.DebugLevel, wantLogs: 1},
		{policy: site.PolicyWarn, wantLevel: zapcore.WarnLevel, wantLogs: 1},
		{policy: site.PolicyThrow, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			log := logger.FromZap(zap.New(core))

			err := Apply(log, tt.policy, "broken links", findings)
			if tt.wantErr {
				if !errors.Is(err, ErrBrokenLinks) {
					t.Fatalf("expected ErrBrokenLinks, got %v", err)
				}
				if !strings.Contains(err.Error(), findings[0]) {
					t.Errorf("error must list the finding: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logs.Len() != tt.wantLogs {
				t.Fatalf("logs = %d, want %d", logs.Len(), tt.wantLogs)
			}
			if tt.wantLogs > 0 && logs.All()[0].Level != tt.wantLevel {
				t.Errorf("level = %v, want %v", logs.All()[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestApplyNoFindings(t *testing.T) {
	if err := Apply(logger.NewNop(), site.PolicyThrow, "broken links", nil); err != nil {
		t.Fatalf("no findings must never fail: %v", err)
	}
}
