package httpx

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"clonerp/internal/app"
	"clonerp/internal/auth"
	"clonerp/internal/models"
	"clonerp/internal/pages"
	"clonerp/internal/requestlog"
	"clonerp/internal/topics"
	"clonerp/internal/util"
)

type Server struct {
	Auth   *auth.Service
	Topics *topics.Registry
	Logs   *requestlog.Recorder
	Pages  *pages.Catalogue
	Cfg    app.Config
	Mux    *http.ServeMux

	log     zerolog.Logger
	limiter *ipLimiter
	handler http.Handler
}

type Deps struct {
	Auth   *auth.Service
	Topics *topics.Registry
	Logs   *requestlog.Recorder
	Pages  *pages.Catalogue
	Cfg    app.Config
	Logger zerolog.Logger
}

func NewServer(d Deps) *Server {
	s := &Server{
		Auth:    d.Auth,
		Topics:  d.Topics,
		Logs:    d.Logs,
		Pages:   d.Pages,
		Cfg:     d.Cfg,
		Mux:     http.NewServeMux(),
		log:     d.Logger.With().Str("component", "http").Logger(),
		limiter: newIPLimiter(d.Cfg.AuthRatePerMin),
	}

	// routes
	s.Mux.HandleFunc("GET /{$}", s.handleIndex)
	s.Mux.Handle("POST /register", s.rateLimited(http.HandlerFunc(s.handleRegister)))
	s.Mux.Handle("POST /login", s.rateLimited(http.HandlerFunc(s.handleLogin)))
	s.Mux.HandleFunc("GET /logout", s.handleLogout)

	s.Mux.Handle("GET /main", s.requireAuth(http.HandlerFunc(s.handleMain)))
	s.Mux.Handle("GET /create-topic", s.requireAuth(http.HandlerFunc(s.handleTopicNew)))
	s.Mux.Handle("POST /create-topic", s.requireAuth(http.HandlerFunc(s.handleTopicCreate)))
	s.Mux.Handle("GET /topic/{id}", s.requireAuth(http.HandlerFunc(s.handleTopicView)))

	s.Mux.Handle("GET /setrole", s.requireAdmin(http.HandlerFunc(s.handleSetRoleForm)))
	s.Mux.Handle("POST /setrole", s.requireAdmin(http.HandlerFunc(s.handleSetRole)))
	s.Mux.Handle("GET /admin/logs", s.requireAdmin(http.HandlerFunc(s.handleLogs)))

	for _, p := range s.Pages.Official {
		s.Mux.HandleFunc("GET /"+p.Link, s.handleOfficial(p))
	}
	if dl := s.Pages.Download; dl.Link != "" {
		s.Mux.HandleFunc("GET /"+dl.Link, s.handleDownload(dl))
	}

	s.Mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	s.Mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = s.withAccessLog(WithTimeout(s.withRequestLog(s.withSession(s.Mux))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

// ------------------------------------------------------------------------------
// page data and notices
// ------------------------------------------------------------------------------

const (
	noticeErr = "err"
	noticeOK  = "ok"
)

type notice struct {
	Kind string // "error" | "success"
	Text string
}

type pageData struct {
	Session  *models.Session
	Notice   *notice
	Topics   []models.Topic
	Popular  []models.Topic
	Official []models.OfficialPage
	Admins   []string
	Topic    models.Topic
	Users    []models.User
	Logs     []models.LogEntry
}

func (s *Server) page(r *http.Request) pageData {
	var data pageData
	data.Session, _ = auth.SessionFrom(r.Context())
	q := r.URL.Query()
	if msg := q.Get(noticeErr); msg != "" {
		data.Notice = &notice{Kind: "error", Text: msg}
	} else if msg := q.Get(noticeOK); msg != "" {
		data.Notice = &notice{Kind: "success", Text: msg}
	}
	return data
}

// redirectWith sends the client to path carrying a one-shot notice.
func redirectWith(w http.ResponseWriter, r *http.Request, path, kind, msg string) {
	http.Redirect(w, r, path+"?"+kind+"="+url.QueryEscape(msg), http.StatusSeeOther)
}

// fail turns an unexpected error into a generic notice; the details only go
// to the log.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, path string, err error) {
	s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	redirectWith(w, r, path, noticeErr, "Beklenmeyen bir hata oluştu, tekrar dene.")
}

// ------------------------------------------------------------------------------
// landing, register, login, logout
// ------------------------------------------------------------------------------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	util.Render(w, "index.html", s.page(r))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password")

	err := s.Auth.Register(r.Context(), username, email, password)
	switch {
	case err == nil:
		redirectWith(w, r, "/", noticeOK, "Kayıt başarılı! Şimdi giriş yapabilirsin.")
	case errors.Is(err, app.ErrValidation):
		redirectWith(w, r, "/", noticeErr, "Kullanıcı adı ve şifre gerekli.")
	case errors.Is(err, app.ErrDuplicateUser):
		redirectWith(w, r, "/", noticeErr, "Bu kullanıcı adı zaten alınmış!")
	default:
		s.fail(w, r, "/", err)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	sess, token, err := s.Auth.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, app.ErrNotFound):
		redirectWith(w, r, "/", noticeErr, "Kullanıcı bulunamadı!")
		return
	case errors.Is(err, app.ErrInvalidCredential):
		redirectWith(w, r, "/", noticeErr, "Hatalı şifre!")
		return
	case err != nil:
		s.fail(w, r, "/", err)
		return
	}

	// a browser holds one session at a time
	if c, err := r.Cookie(CookieName); err == nil {
		s.Auth.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	redirectWith(w, r, "/main", noticeOK, "Giriş başarılı!")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		s.Auth.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	redirectWith(w, r, "/", noticeOK, "Başarıyla çıkış yaptın!")
}

// ------------------------------------------------------------------------------
// board
// ------------------------------------------------------------------------------

func (s *Server) handleMain(w http.ResponseWriter, r *http.Request) {
	data := s.page(r)
	listing := s.Topics.List()
	data.Topics = listing.Topics
	data.Popular = listing.Popular
	data.Official = s.Pages.Official
	data.Admins = s.Auth.Admins()
	util.Render(w, "main.html", data)
}

func (s *Server) handleTopicNew(w http.ResponseWriter, r *http.Request) {
	util.Render(w, "createk.html", s.page(r))
}

func (s *Server) handleTopicCreate(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFrom(r.Context())
	title := r.FormValue("title")
	content := r.FormValue("content")

	_, err := s.Topics.Create(r.Context(), title, content, sess.Username)
	switch {
	case err == nil:
		redirectWith(w, r, "/main", noticeOK, "Konu başarıyla oluşturuldu!")
	case errors.Is(err, app.ErrValidation):
		redirectWith(w, r, "/create-topic", noticeErr, "Başlık ve içerik gerekli.")
	default:
		s.fail(w, r, "/main", err)
	}
}

func (s *Server) handleTopicView(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		redirectWith(w, r, "/main", noticeErr, "Konu bulunamadı!")
		return
	}
	topic, err := s.Topics.View(r.Context(), id)
	switch {
	case errors.Is(err, app.ErrNotFound):
		redirectWith(w, r, "/main", noticeErr, "Konu bulunamadı!")
		return
	case err != nil:
		s.fail(w, r, "/main", err)
		return
	}
	data := s.page(r)
	data.Topic = topic
	util.Render(w, "topic.html", data)
}

// ------------------------------------------------------------------------------
// administration
// ------------------------------------------------------------------------------

func (s *Server) handleSetRoleForm(w http.ResponseWriter, r *http.Request) {
	data := s.page(r)
	data.Users = s.Auth.Users()
	util.Render(w, "setrole.html", data)
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFrom(r.Context())
	username := r.FormValue("username")
	role := r.FormValue("role")

	err := s.Auth.SetRole(r.Context(), sess, username, role)
	switch {
	case err == nil:
		redirectWith(w, r, "/setrole", noticeOK,
			fmt.Sprintf("%s adlı kullanıcının rolü '%s' olarak güncellendi!", username, role))
	case errors.Is(err, app.ErrNotFound):
		redirectWith(w, r, "/setrole", noticeErr, "Kullanıcı bulunamadı!")
	case errors.Is(err, app.ErrValidation):
		redirectWith(w, r, "/setrole", noticeErr, "Geçersiz rol!")
	case errors.Is(err, app.ErrUnauthorized):
		redirectWith(w, r, "/main", noticeErr, "Bu sayfaya erişim iznin yok!")
	default:
		s.fail(w, r, "/setrole", err)
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFrom(r.Context())
	logs, err := s.Logs.List(sess)
	if err != nil {
		redirectWith(w, r, "/main", noticeErr, "Bu sayfaya sadece adminler erişebilir!")
		return
	}
	data := s.page(r)
	data.Logs = logs
	util.Render(w, "log.html", data)
}

// ------------------------------------------------------------------------------
// official pages
// ------------------------------------------------------------------------------

func (s *Server) handleOfficial(p models.OfficialPage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		util.Render(w, p.Template, s.page(r))
	}
}

func (s *Server) handleDownload(dl pages.Download) http.HandlerFunc {
	path := filepath.Join(s.Cfg.DownloadsDir, dl.File)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": dl.File})
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", disposition)
		http.ServeFile(w, r, path)
	}
}
