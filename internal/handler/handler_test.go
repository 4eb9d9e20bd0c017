package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/podclub/internal/challenge"
	"github.com/hitoshi/podclub/internal/comment"
	"github.com/hitoshi/podclub/internal/episode"
	"github.com/hitoshi/podclub/internal/feedimport"
	"github.com/hitoshi/podclub/internal/middleware"
	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
	"github.com/hitoshi/podclub/internal/view"
)

// --- テスト用スタブ ---

type stubEpisodeService struct {
	views   []*episode.View
	getErr  error
	listErr error
	created []episode.CreateInput
	updated map[string]episode.CreateInput
	deleted []string
	opErr   error
}

func (s *stubEpisodeService) List(_ context.Context) ([]*episode.View, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.views, nil
}

func (s *stubEpisodeService) GetByID(_ context.Context, id string) (*episode.View, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, v := range s.views {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, model.NewEpisodeNotFoundError(id)
}

func (s *stubEpisodeService) Create(_ context.Context, _ repository.Authz, input episode.CreateInput) (*episode.View, error) {
	if s.opErr != nil {
		return nil, s.opErr
	}
	s.created = append(s.created, input)
	return &episode.View{Episode: model.Episode{ID: "ep-new", Title: input.Title}}, nil
}

func (s *stubEpisodeService) Update(_ context.Context, _ repository.Authz, id string, input episode.CreateInput) (*episode.View, error) {
	if s.opErr != nil {
		return nil, s.opErr
	}
	if s.updated == nil {
		s.updated = map[string]episode.CreateInput{}
	}
	s.updated[id] = input
	return &episode.View{Episode: model.Episode{ID: id, Title: input.Title}}, nil
}

func (s *stubEpisodeService) Delete(_ context.Context, _ repository.Authz, id string) error {
	if s.opErr != nil {
		return s.opErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubChallengeService struct {
	challenges []*model.Challenge
	current    *model.Challenge
	err        error
}

func (s *stubChallengeService) List(_ context.Context) ([]*model.Challenge, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.challenges, nil
}

func (s *stubChallengeService) Current(_ context.Context) (*model.Challenge, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.current, nil
}

func (s *stubChallengeService) Create(_ context.Context, _ repository.Authz, input challenge.Input) (*model.Challenge, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Challenge{ID: "ch-new", Title: input.Title, Content: input.Content}, nil
}

func (s *stubChallengeService) Update(_ context.Context, _ repository.Authz, id string, input challenge.Input) (*model.Challenge, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Challenge{ID: id, Title: input.Title, Content: input.Content}, nil
}

func (s *stubChallengeService) Delete(_ context.Context, _ repository.Authz, _ string) error {
	return s.err
}

type stubCommentService struct {
	comments []*comment.View
	err      error
	created  []string
	deleted  []string
}

func (s *stubCommentService) ListByEpisode(_ context.Context, _ string) ([]*comment.View, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.comments, nil
}

func (s *stubCommentService) Create(_ context.Context, authz repository.Authz, author *model.User, episodeID, content string) (*comment.View, error) {
	if s.err != nil {
		return nil, s.err
	}
	if authz.UserID == "" || author == nil {
		return nil, model.NewUnauthorizedError()
	}
	s.created = append(s.created, content)
	return &comment.View{
		Comment:        model.Comment{ID: "cm-new", UserID: authz.UserID, EpisodeID: episodeID, Content: content, Username: author.DisplayName()},
		CreatedAtLabel: "2026/08/29 12:00",
	}, nil
}

func (s *stubCommentService) Delete(_ context.Context, authz repository.Authz, id string) error {
	if s.err != nil {
		return s.err
	}
	if !authz.IsAdmin {
		return model.NewPermissionDeniedError("コメントの削除")
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubImportService struct {
	result *feedimport.Result
	err    error
	urls   []string
}

func (s *stubImportService) Import(_ context.Context, _ repository.Authz, url string) (*feedimport.Result, error) {
	s.urls = append(s.urls, url)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubAuthService struct {
	user       *model.User
	session    *model.Session
	err        error
	loggedOut  []string
	metaUpdate map[string]string
}

func (s *stubAuthService) SignUp(_ context.Context, _, _ string) (*model.User, *model.Session, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.user, s.session, nil
}

func (s *stubAuthService) SignIn(_ context.Context, _, _ string) (*model.User, *model.Session, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.user, s.session, nil
}

func (s *stubAuthService) Logout(_ context.Context, sessionID string) error {
	s.loggedOut = append(s.loggedOut, sessionID)
	return s.err
}

func (s *stubAuthService) UpdateUserMetadata(_ context.Context, userID, username string) error {
	if s.err != nil {
		return s.err
	}
	if s.metaUpdate == nil {
		s.metaUpdate = map[string]string{}
	}
	s.metaUpdate[userID] = username
	return nil
}

// stubResolver はセッションIDからユーザーを解決するテスト用スタブ。
type stubResolver struct {
	sessions map[string]*model.User
}

func (s *stubResolver) GetCurrentUser(_ context.Context, sessionID string) (*model.User, error) {
	user, ok := s.sessions[sessionID]
	if !ok {
		return nil, model.NewUnauthorizedError()
	}
	return user, nil
}

// --- テスト環境の組み立て ---

type testEnv struct {
	router     http.Handler
	limiter    *middleware.RateLimiter
	episodes   *stubEpisodeService
	challenges *stubChallengeService
	comments   *stubCommentService
	importer   *stubImportService
	auth       *stubAuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	env := &testEnv{
		episodes: &stubEpisodeService{
			views: []*episode.View{
				{
					Episode:  model.Episode{ID: "ep-1", Title: "第1回", SpotifyURL: "https://open.spotify.com/episode/aaa111", CreatedAt: time.Now().Add(-24 * time.Hour)},
					IsNew:    true,
					EmbedURL: "https://open.spotify.com/embed/episode/aaa111",
				},
			},
		},
		challenges: &stubChallengeService{},
		comments:   &stubCommentService{},
		importer:   &stubImportService{result: &feedimport.Result{FeedURL: "https://example.com/feed.xml", Imported: 2, Skipped: 1}},
		auth: &stubAuthService{
			user:    &model.User{ID: "u-1", Email: "listener@example.com", Role: model.RoleUser},
			session: &model.Session{ID: "sess-1", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}

	resolver := &stubResolver{sessions: map[string]*model.User{
		"sess-user":  {ID: "u-1", Email: "listener@example.com", Role: model.RoleUser},
		"sess-admin": {ID: "u-admin", Email: "host@example.com", Role: model.RoleAdmin},
	}}

	env.limiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(env.limiter.Stop)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	page := NewPageHandler(renderer, env.episodes, env.challenges, env.comments)
	admin := NewAdminHandler(renderer, env.episodes, env.challenges, env.importer)
	api := NewAPIHandler(env.episodes, env.challenges, env.comments)
	authHandler := NewAuthHandler(env.auth, CookieConfig{MaxAge: 86400})

	env.router = NewRouter(RouterDeps{
		Logger:            logger,
		AuthHandler:       authHandler,
		PageHandler:       page,
		AdminHandler:      admin,
		APIHandler:        api,
		SessionResolver:   resolver,
		RateLimiter:       env.limiter,
		CSRFConfig:        middleware.CSRFConfig{},
		CORSAllowedOrigin: "http://localhost:3000",
	})

	return env
}

// get はGETリクエストを実行する。sessionIDが空でなければセッションCookieを付ける。
func (env *testEnv) get(path, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// postForm はCSRFトークン付きのフォームPOSTを実行する。
func (env *testEnv) postForm(path, sessionID string, form url.Values) *httptest.ResponseRecorder {
	const token = "test-csrf-token"
	form.Set("csrf_token", token)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sessionID})
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// findCookie はレスポンスから名前でCookieを探す。
func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
