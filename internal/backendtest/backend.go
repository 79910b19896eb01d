// Package backendtest runs an in-process fake of the document analysis
// backend for tests. Behavior can be scripted per route: canned failures,
// queued summaries and gates that hold a request until released.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"llmontreal/internal/model"
)

// Route keys identify endpoints for Fail and Block.
const (
	RouteLogin      = "POST /api/auth/login"
	RouteRegister   = "POST /api/auth/register"
	RouteDocuments  = "GET /api/documents"
	RouteDocument   = "GET /api/documents/:id"
	RouteUpload     = "POST /api/documents/upload"
	RouteSummary    = "GET /api/documents/:id/summary"
	RouteRegenerate = "POST /api/documents/:id/summary/regenerate"
	RouteChat       = "POST /api/chat/:id"
	RouteLogs       = "GET /api/logs/download"
)

const jwtSecret = "backendtest-secret"

type Failure struct {
	Status int
	Body   string
	// Times limits how often the failure fires; 0 means always.
	Times int
}

type Request struct {
	Route         string
	Path          string
	Authorization string
	RequestID     string
}

type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     []byte
}

type account struct {
	user     model.User
	password string
}

type Backend struct {
	Server *httptest.Server

	// RequireAuth rejects non-auth routes without a valid bearer token.
	RequireAuth bool
	// ChatReply overrides the default echo reply.
	ChatReply func(documentID, prompt string) model.ChatResponse
	// IssueToken controls whether login/register include a token.
	IssueToken bool

	mu          sync.Mutex
	documents   []model.Document
	summaries   map[string]string
	queued      map[string][]string
	accounts    map[string]account
	failures    map[string]*Failure
	gates       map[string]chan struct{}
	requests    []Request
	uploads     []Upload
	chats       []model.ChatRequest
	regenerates int
	logs        []byte
	nextID      int64
}

func New(t testing.TB) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		IssueToken: true,
		summaries:  make(map[string]string),
		queued:     make(map[string][]string),
		accounts:   make(map[string]account),
		failures:   make(map[string]*Failure),
		gates:      make(map[string]chan struct{}),
		logs:       []byte("timestamp,method,path,status\n"),
		nextID:     1,
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(func() {
		b.ReleaseAll()
		b.Server.Close()
	})
	return b
}

// URL is the API base URL, including the /api prefix.
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

func (b *Backend) AddDocument(doc model.Document) model.Document {
	b.mu.Lock()
	defer b.mu.Unlock()

	if doc.ID == 0 {
		doc.ID = b.nextID
	}
	if doc.ID >= b.nextID {
		b.nextID = doc.ID + 1
	}
	if doc.Status == "" {
		doc.Status = model.DocumentCompleted
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		doc.UpdatedAt = doc.CreatedAt
	}
	b.documents = append(b.documents, doc)
	return doc
}

func (b *Backend) SetSummary(documentID, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summaries[documentID] = text
	delete(b.queued, documentID)
}

// QueueSummaries makes successive summary reads return texts in order. Once
// the queue drains, the last value sticks.
func (b *Backend) QueueSummaries(documentID string, texts ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queued[documentID] = append(b.queued[documentID], texts...)
}

func (b *Backend) AddAccount(id, username, email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[username] = account{
		user:     model.User{ID: id, Name: username, Email: email},
		password: password,
	}
}

func (b *Backend) SetLogs(content []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append([]byte(nil), content...)
}

func (b *Backend) Fail(route string, f Failure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := f
	b.failures[route] = &copied
}

func (b *Backend) ClearFailure(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Block holds every request to route until the returned release func is
// called or the client goes away.
func (b *Backend) Block(route string) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gate := make(chan struct{})
	b.gates[route] = gate
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.gates[route] == gate {
			delete(b.gates, route)
			close(gate)
		}
	}
}

func (b *Backend) ReleaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for route, gate := range b.gates {
		close(gate)
		delete(b.gates, route)
	}
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many requests hit route.
func (b *Backend) Count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.Route == route {
			n++
		}
	}
	return n
}

func (b *Backend) Uploads() []Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Upload(nil), b.uploads...)
}

func (b *Backend) Chats() []model.ChatRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.ChatRequest(nil), b.chats...)
}

func (b *Backend) Regenerates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regenerates
}

func (b *Backend) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), b.record(), b.inject())

	api := router.Group("/api")
	authGroup := api.Group("/auth")
	authGroup.POST("/login", b.login)
	authGroup.POST("/register", b.register)

	protected := api.Group("")
	protected.Use(b.authJWT())
	protected.GET("/documents", b.listDocuments)
	protected.GET("/documents/:id", b.getDocument)
	protected.POST("/documents/upload", b.upload)
	protected.GET("/documents/:id/summary", b.getSummary)
	protected.POST("/documents/:id/summary/regenerate", b.regenerate)
	protected.POST("/chat/:id", b.chat)
	protected.GET("/logs/download", b.downloadLogs)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "route not found"})
	})
	return router
}
