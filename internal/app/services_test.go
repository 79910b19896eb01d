package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"llmontreal/internal/api"
	"llmontreal/internal/backendtest"
	"llmontreal/internal/model"
	"llmontreal/internal/store"
)

func newBackendClient(t *testing.T, tokens api.TokenSource) (*api.Client, *backendtest.Backend) {
	t.Helper()
	backend := backendtest.New(t)
	client := api.NewClient(api.Config{
		BaseURL:   backend.URL(),
		Timeout:   5 * time.Second,
		Transport: api.NewAuthTransport(nil, tokens),
	})
	return client, backend
}

func TestObservable(t *testing.T) {
	o := NewObservable(1)
	var seen []int
	unsubscribe := o.Subscribe(func(v int) { seen = append(seen, v) })

	o.Set(2)
	unsubscribe()
	o.Set(3)

	require.Equal(t, []int{1, 2}, seen)
	require.Equal(t, 3, o.Get())
}

func TestDocumentServiceList(t *testing.T) {
	client, backend := newBackendClient(t, nil)
	backend.AddDocument(model.Document{FileName: "Invoice-March.pdf", Status: model.DocumentCompleted})
	backend.AddDocument(model.Document{FileName: "contract.docx", Status: model.DocumentProcessing})
	backend.AddDocument(model.Document{FileName: "invoice-april.pdf", Status: model.DocumentPending})

	svc := NewDocumentService(client, nil)
	page, err := svc.List(context.Background(), ListDocumentsInput{})
	require.NoError(t, err)
	require.Len(t, page.Content, 3)
	require.Equal(t, DefaultPageSize, page.Size)

	svc.Search().SetTerm("INVOICE")
	page, err = svc.List(context.Background(), ListDocumentsInput{})
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	require.Equal(t, 2, page.NumberOfElements)
	require.Equal(t, 3, page.TotalElements)

	page, err = svc.List(context.Background(), ListDocumentsInput{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	require.Equal(t, "invoice-april.pdf", page.Content[0].FileName)

	_, err = svc.List(context.Background(), ListDocumentsInput{Status: "archived"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDocumentServiceListDegradesToEmptyPage(t *testing.T) {
	client, backend := newBackendClient(t, nil)
	backend.Fail(backendtest.RouteDocuments, backendtest.Failure{Status: http.StatusInternalServerError, Body: "down"})

	page, err := NewDocumentService(client, nil).List(context.Background(), ListDocumentsInput{Page: 2, Size: 5})
	require.NoError(t, err)
	require.Empty(t, page.Content)
	require.NotNil(t, page.Content)
	require.True(t, page.Empty)
	require.Equal(t, 2, page.Number)
	require.Equal(t, 5, page.Size)
}

func TestDocumentServiceGet(t *testing.T) {
	client, backend := newBackendClient(t, nil)
	backend.AddDocument(model.Document{FileName: "a.pdf"})
	svc := NewDocumentService(client, nil)

	doc, err := svc.Get(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "a.pdf", doc.FileName)

	_, err = svc.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrDocumentIDMissing)
}

func TestAuthServiceLoginLogout(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	var auth *AuthService
	client, backend := newBackendClient(t, api.TokenFunc(func(ctx context.Context) (string, error) {
		return auth.Token(ctx)
	}))
	backend.AddAccount("7", "ana", "ana@example.com", "secret123")
	backend.RequireAuth = true
	auth = NewAuthService(ctx, client, st)
	require.False(t, auth.IsAuthenticated())

	var users []*model.User
	auth.Subscribe(func(u *model.User) { users = append(users, u) })

	_, err := auth.Login(ctx, LoginInput{Username: "ana", Password: " "})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = auth.Login(ctx, LoginInput{Username: "ana", Password: "wrong-pass"})
	require.ErrorIs(t, err, ErrInvalidCredential)

	user, err := auth.Login(ctx, LoginInput{Username: "ana", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, "7", user.ID)
	require.True(t, auth.IsAuthenticated())

	token, err := auth.Token(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = client.ListDocuments(ctx, api.ListOptions{})
	require.NoError(t, err)

	restored := NewAuthService(ctx, client, st)
	require.Equal(t, "ana", restored.CurrentUser().Name)

	require.NoError(t, auth.Logout(ctx))
	require.False(t, auth.IsAuthenticated())
	token, err = auth.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)

	_, err = client.ListDocuments(ctx, api.ListOptions{})
	require.ErrorIs(t, err, api.ErrUnauthorized)

	require.Len(t, users, 3)
	require.Nil(t, users[0])
	require.Equal(t, "ana", users[1].Name)
	require.Nil(t, users[2])
}

func TestAuthServiceRegisterWithoutToken(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, store.KeyAuthToken, "stale"))

	client, backend := newBackendClient(t, nil)
	backend.IssueToken = false
	auth := NewAuthService(ctx, client, st)

	_, err := auth.Register(ctx, RegisterInput{Username: "bob", Email: "not-an-email", Password: "hunter22"})
	require.ErrorIs(t, err, ErrInvalidInput)

	user, err := auth.Register(ctx, RegisterInput{Username: "bob", Email: "Bob@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", user.Email)

	_, ok, err := st.Get(ctx, store.KeyAuthToken)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = auth.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, ErrUnexpected)
}

func TestAuthServiceKeepsPasswordWhitespace(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	client, _ := newBackendClient(t, nil)
	auth := NewAuthService(ctx, client, st)

	_, err := auth.Register(ctx, RegisterInput{Username: " carol ", Email: "carol@example.com", Password: " padded pass "})
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx))

	_, err = auth.Login(ctx, LoginInput{Username: "carol", Password: "padded pass"})
	require.ErrorIs(t, err, ErrInvalidCredential)

	user, err := auth.Login(ctx, LoginInput{Username: "carol", Password: " padded pass "})
	require.NoError(t, err)
	require.Equal(t, "carol", user.Name)
}

func TestAuthServiceIgnoresCorruptStoredUser(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, store.KeyCurrentUser, "{broken"))

	auth := NewAuthService(ctx, nil, st)
	require.False(t, auth.IsAuthenticated())
}

func TestThemeService(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	svc := NewThemeService(ctx, st, func() bool { return true })
	require.Equal(t, ThemeDark, svc.Theme())
	stored, _, err := st.Get(ctx, store.KeyTheme)
	require.NoError(t, err)
	require.Equal(t, "dark", stored)

	next, err := svc.Toggle(ctx)
	require.NoError(t, err)
	require.Equal(t, ThemeLight, next)

	again := NewThemeService(ctx, st, func() bool { return true })
	require.Equal(t, ThemeLight, again.Theme())

	require.ErrorIs(t, svc.SetTheme(ctx, Theme("sepia")), ErrInvalidInput)
}

func TestThemeServiceIgnoresInvalidStoredValue(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, store.KeyTheme, "neon"))

	svc := NewThemeService(ctx, st, func() bool { return false })
	require.Equal(t, ThemeLight, svc.Theme())
}

func TestSystemPrefersDark(t *testing.T) {
	t.Setenv("LLMONTREAL_THEME", "")
	t.Setenv("COLORFGBG", "15;0")
	require.True(t, SystemPrefersDark())

	t.Setenv("COLORFGBG", "0;15")
	require.False(t, SystemPrefersDark())

	t.Setenv("LLMONTREAL_THEME", "dark")
	require.True(t, SystemPrefersDark())
}
