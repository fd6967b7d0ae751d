package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAvatarService struct {
	lastRespond *dto.RespondRequest
	lastUserId  int64
	refreshed   bool
	err         error
}

func (f *fakeAvatarService) GenerateResponse(ctx context.Context, avatarUserId int64, msg *entity.Message) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeAvatarService) Respond(ctx context.Context, req *dto.RespondRequest) (*dto.RespondResponse, error) {
	f.lastRespond = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.RespondResponse{Reply: "Bo, hi"}, nil
}

func (f *fakeAvatarService) GetPersona(ctx context.Context, userId int64) (*dto.PersonaResponse, error) {
	f.lastUserId = userId
	if f.err != nil {
		return nil, f.err
	}
	return &dto.PersonaResponse{UserId: userId, ResponseStyle: "casual"}, nil
}

func (f *fakeAvatarService) RefreshPersona(ctx context.Context, userId int64) (*dto.PersonaResponse, error) {
	f.refreshed = true
	return f.GetPersona(ctx, userId)
}

type fakeIndexService struct {
	last *dto.IndexMessagesRequest
	err  error
}

func (f *fakeIndexService) Enqueue(ctx context.Context, req *dto.IndexMessagesRequest) (*dto.IndexMessagesResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.IndexMessagesResponse{Queued: len(req.Messages)}, nil
}

func (f *fakeIndexService) IndexNow(ctx context.Context, msgs []*entity.Message) error {
	return nil
}

func passThrough(ctx *fiber.Ctx) error { return ctx.Next() }

func newApp(avatar *fakeAvatarService, index *fakeIndexService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewAvatarController(avatar).RegisterRoutes(api, passThrough)
	NewIndexController(index).RegisterRoutes(api, passThrough)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, serverutils.BaseResponse[json.RawMessage]) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var out serverutils.BaseResponse[json.RawMessage]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestRespondEndpoint(t *testing.T) {
	avatar := &fakeAvatarService{}
	app := newApp(avatar, &fakeIndexService{})

	resp, body := doJSON(t, app, "POST", "/api/avatar/v1/respond", map[string]any{
		"avatar_user_id": 8,
		"message": map[string]any{
			"id":         1,
			"content":    "hi",
			"created_at": "2024-05-01T12:00:00Z",
			"channel_id": 42,
			"author":     map[string]any{"id": 5, "display_name": "Bo"},
		},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	assert.JSONEq(t, `{"reply":"Bo, hi"}`, string(body.Data))
	require.NotNil(t, avatar.lastRespond)
	assert.Equal(t, int64(8), avatar.lastRespond.AvatarUserId)
	assert.Equal(t, int64(42), *avatar.lastRespond.Message.ChannelId)
}

func TestRespondEndpointErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperror.NewValidationError("recipient.id", "mismatch"), fiber.StatusBadRequest},
		{"generation", apperror.NewGenerationError("answer", errors.New("empty completion")), fiber.StatusBadGateway},
		{"retrieval", apperror.NewRetrievalError("recency", errors.New("down")), fiber.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(&fakeAvatarService{err: tt.err}, &fakeIndexService{})
			resp, body := doJSON(t, app, "POST", "/api/avatar/v1/respond", map[string]any{"avatar_user_id": 8})
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.False(t, body.Success)
			assert.Equal(t, tt.err.Error(), body.Message)
		})
	}

	app := newApp(&fakeAvatarService{}, &fakeIndexService{})
	req := httptest.NewRequest("POST", "/api/avatar/v1/respond", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPersonaEndpoints(t *testing.T) {
	avatar := &fakeAvatarService{}
	app := newApp(avatar, &fakeIndexService{})

	resp, body := doJSON(t, app, "GET", "/api/avatar/v1/8/persona", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(8), avatar.lastUserId)
	assert.Contains(t, string(body.Data), `"response_style":"casual"`)
	assert.False(t, avatar.refreshed)

	resp, _ = doJSON(t, app, "POST", "/api/avatar/v1/9/persona/refresh", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, avatar.refreshed)
	assert.Equal(t, int64(9), avatar.lastUserId)

	resp, _ = doJSON(t, app, "GET", "/api/avatar/v1/abc/persona", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestIndexEndpointAcceptsSingleAndBatch(t *testing.T) {
	message := map[string]any{
		"id":         1,
		"content":    "hi",
		"created_at": "2024-05-01T12:00:00Z",
		"channel_id": 42,
		"author":     map[string]any{"id": 5, "display_name": "Bo"},
	}

	tests := []struct {
		name   string
		body   any
		queued int
	}{
		{"single", message, 1},
		{"batch", map[string]any{"messages": []any{message, message}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeIndexService{}
			app := newApp(&fakeAvatarService{}, index)

			resp, body := doJSON(t, app, "POST", "/api/index/v1/messages", tt.body)
			assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
			require.NotNil(t, index.last)
			assert.Len(t, index.last.Messages, tt.queued)

			var res dto.IndexMessagesResponse
			require.NoError(t, json.Unmarshal(body.Data, &res))
			assert.Equal(t, tt.queued, res.Queued)
		})
	}

	index := &fakeIndexService{err: apperror.NewValidationError("Messages", "failed on 'required'")}
	app := newApp(&fakeAvatarService{}, index)
	resp, _ := doJSON(t, app, "POST", "/api/index/v1/messages", map[string]any{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, index.last.Messages)
}

func TestHealthEndpoint(t *testing.T) {
	app := fiber.New()
	NewHealthController(map[string]HealthCheck{
		"store": func(ctx context.Context) error { return nil },
	}).RegisterRoutes(app)

	resp, body := doJSON(t, app, "GET", "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"store":"ok"}`, string(body.Data))

	app = fiber.New()
	NewHealthController(map[string]HealthCheck{
		"store": func(ctx context.Context) error { return errors.New("connection refused") },
	}).RegisterRoutes(app)

	resp, body = doJSON(t, app, "GET", "/health", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.False(t, body.Success)
	assert.JSONEq(t, `{"store":"connection refused"}`, string(body.Data))
}
