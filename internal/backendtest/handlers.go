package backendtest

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"llmontreal/internal/model"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (b *Backend) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request payload"})
		return
	}
	b.mu.Lock()
	acc, ok := b.accounts[req.Username]
	b.mu.Unlock()
	if !ok || acc.password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid username or password"})
		return
	}
	b.respondAuth(c, http.StatusOK, acc.user)
}

func (b *Backend) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request payload"})
		return
	}
	b.mu.Lock()
	if _, exists := b.accounts[req.Username]; exists {
		b.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"message": "username already exists"})
		return
	}
	user := model.User{ID: strconv.Itoa(len(b.accounts) + 1), Name: req.Username, Email: req.Email}
	b.accounts[req.Username] = account{user: user, password: req.Password}
	b.mu.Unlock()

	b.respondAuth(c, http.StatusCreated, user)
}

func (b *Backend) respondAuth(c *gin.Context, status int, user model.User) {
	result := model.AuthResult{User: user}
	if b.IssueToken {
		token, err := SignToken(user.Name, time.Hour)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "sign token failed"})
			return
		}
		result.Token = token
	}
	c.JSON(status, result)
}

func (b *Backend) listDocuments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	if size <= 0 {
		size = 10
	}
	if page < 0 {
		page = 0
	}
	status := model.DocumentStatus(c.Query("status"))

	b.mu.Lock()
	filtered := make([]model.Document, 0, len(b.documents))
	for _, doc := range b.documents {
		if status == "" || doc.Status == status {
			filtered = append(filtered, doc)
		}
	}
	b.mu.Unlock()

	total := len(filtered)
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	content := filtered[start:end]
	totalPages := (total + size - 1) / size

	c.JSON(http.StatusOK, model.Page[model.Document]{
		Content:          content,
		TotalPages:       totalPages,
		TotalElements:    total,
		Size:             size,
		Number:           page,
		NumberOfElements: len(content),
		First:            page == 0,
		Last:             page >= totalPages-1,
		Empty:            len(content) == 0,
	})
}

func (b *Backend) getDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid document id"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, doc := range b.documents {
		if doc.ID == id {
			c.JSON(http.StatusOK, doc)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "document not found"})
}

func (b *Backend) upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "file is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "open upload failed"})
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "read upload failed"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	b.mu.Lock()
	b.uploads = append(b.uploads, Upload{
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Content:     content,
	})
	b.mu.Unlock()

	doc := b.AddDocument(model.Document{
		FileName: header.Filename,
		FileType: contentType,
		Status:   model.DocumentPending,
	})
	c.JSON(http.StatusOK, model.UploadResult{
		ID:        strconv.FormatInt(doc.ID, 10),
		FileName:  doc.FileName,
		FileURL:   "/files/" + strconv.FormatInt(doc.ID, 10),
		FileType:  contentType,
		FileSize:  header.Size,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
		Message:   "upload received",
	})
}

func (b *Backend) getSummary(c *gin.Context) {
	id := c.Param("id")

	b.mu.Lock()
	if queue := b.queued[id]; len(queue) > 0 {
		b.summaries[id] = queue[0]
		b.queued[id] = queue[1:]
	}
	text, ok := b.summaries[id]
	b.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "summary not found"})
		return
	}
	c.String(http.StatusOK, text)
}

func (b *Backend) regenerate(c *gin.Context) {
	b.mu.Lock()
	b.regenerates++
	b.mu.Unlock()
	c.Status(http.StatusAccepted)
}

func (b *Backend) chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "prompt is required"})
		return
	}
	b.mu.Lock()
	b.chats = append(b.chats, req)
	reply := b.ChatReply
	b.mu.Unlock()

	id := c.Param("id")
	var resp model.ChatResponse
	if reply != nil {
		resp = reply(id, req.Prompt)
	} else {
		now := time.Now().UTC()
		resp = model.ChatResponse{
			Author:    model.AuthorModel,
			Response:  "echo: " + req.Prompt,
			CreatedAt: &now,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (b *Backend) downloadLogs(c *gin.Context) {
	b.mu.Lock()
	logs := append([]byte(nil), b.logs...)
	b.mu.Unlock()

	c.Header("Content-Disposition", `attachment; filename="api_logs.csv"`)
	c.Data(http.StatusOK, "text/csv", logs)
}
