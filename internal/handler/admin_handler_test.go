package handler

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/podclub/internal/model"
)

func TestAdminCreateEpisode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/admin/episodes", "sess-admin", url.Values{
		"title":       {"第10回 夏の振り返り"},
		"spotify_url": {"https://open.spotify.com/episode/xyz789"},
		"bonus_text":  {"# おまけ\n- 収録後の雑談"},
	})

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/admin?tab=episodes" {
		t.Errorf("Location = %q", got)
	}
	if len(env.episodes.created) != 1 {
		t.Fatalf("created = %d, want 1", len(env.episodes.created))
	}
	if env.episodes.created[0].SpotifyURL != "https://open.spotify.com/episode/xyz789" {
		t.Errorf("SpotifyURL = %q", env.episodes.created[0].SpotifyURL)
	}
}

func TestAdminCreateEpisodeDeniedForRegularUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/admin/episodes", "sess-user", url.Values{
		"title":       {"勝手に作る"},
		"spotify_url": {"https://open.spotify.com/episode/abc123"},
	})

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Errorf("Location = %q, want /", got)
	}
	if len(env.episodes.created) != 0 {
		t.Error("episode must not be created")
	}
}

func TestAdminUpdateAndDeleteEpisode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/admin/episodes/ep-1", "sess-admin", url.Values{
		"title":       {"改題"},
		"spotify_url": {"https://open.spotify.com/episode/aaa111"},
	})
	if rec.Code != http.StatusFound {
		t.Fatalf("update status = %d, want 302", rec.Code)
	}
	if env.episodes.updated["ep-1"].Title != "改題" {
		t.Errorf("updated = %+v", env.episodes.updated)
	}

	rec = env.postForm("/admin/episodes/ep-1/delete", "sess-admin", url.Values{})
	if rec.Code != http.StatusFound {
		t.Fatalf("delete status = %d, want 302", rec.Code)
	}
	if len(env.episodes.deleted) != 1 || env.episodes.deleted[0] != "ep-1" {
		t.Errorf("deleted = %v", env.episodes.deleted)
	}
}

func TestAdminEditModeShowsCurrentValues(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/admin?tab=episodes&edit=ep-1", "sess-admin")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="第1回"`) {
		t.Error("edit form should be pre-filled with the episode title")
	}
	if !strings.Contains(body, "/admin/episodes/ep-1") {
		t.Error("edit form should post to the update endpoint")
	}
}

func TestAdminChallengeCRUD(t *testing.T) {
	env := newTestEnv(t)
	env.challenges.challenges = []*model.Challenge{{ID: "ch-1", Title: "お題1"}}

	rec := env.postForm("/admin/challenges", "sess-admin", url.Values{
		"title":   {"今週のお題"},
		"content": {"## 聴きどころ"},
	})
	if rec.Code != http.StatusFound {
		t.Fatalf("create status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/admin?tab=challenges" {
		t.Errorf("Location = %q", got)
	}

	rec = env.get("/admin?tab=challenges&edit=ch-1", "sess-admin")
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="お題1"`) {
		t.Error("edit form should be pre-filled with the challenge title")
	}
}

func TestAdminChallengeEditUnknownIDRedirectsWithFlash(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/admin?tab=challenges&edit=no-such", "sess-admin")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if findCookie(t, rec, flashCookieName) == nil {
		t.Error("flash cookie should carry the not-found message")
	}
}

func TestAdminImportRendersResult(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/admin/import", "sess-admin", url.Values{
		"url": {"https://example.com/podcast"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(env.importer.urls) != 1 || env.importer.urls[0] != "https://example.com/podcast" {
		t.Errorf("urls = %v", env.importer.urls)
	}
	if !strings.Contains(rec.Body.String(), "2件のエピソードを取り込みました") {
		t.Error("import summary should be rendered")
	}
}

func TestAdminImportSSRFBlocked(t *testing.T) {
	env := newTestEnv(t)
	env.importer.err = model.NewSSRFBlockedError()

	rec := env.postForm("/admin/import", "sess-admin", url.Values{
		"url": {"http://169.254.169.254/latest/meta-data"},
	})

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/admin?tab=import" {
		t.Errorf("Location = %q", got)
	}
	if findCookie(t, rec, flashCookieName) == nil {
		t.Error("flash cookie should carry the blocked message")
	}
}
