package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studentnest/internal/roomshares/service"
	"studentnest/pkg/auth"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubShareService embeds the interface so only the methods a test exercises
// need an implementation.
type stubShareService struct {
	service.ShareService

	leaveFunc func(ctx context.Context, actor *auth.Identity, id string) (*model.RoomShare, error)
	calcFunc  func(ctx context.Context, id string, prefs map[string]string) (int, error)
}

func (s *stubShareService) Leave(ctx context.Context, actor *auth.Identity, id string) (*model.RoomShare, error) {
	return s.leaveFunc(ctx, actor, id)
}

func (s *stubShareService) CalculateCompatibility(ctx context.Context, id string, prefs map[string]string) (int, error) {
	return s.calcFunc(ctx, id, prefs)
}

func newTestHandler(svc service.ShareService) *ShareHandler {
	return NewShareHandler(svc, logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"}))
}

func actRequest(t *testing.T, body string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/roomshares/65b000000000000000000001", strings.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: "stud-2", Role: model.RoleStudent}))
	return httptest.NewRecorder(), req
}

func shareParams() httprouter.Params {
	return httprouter.Params{{Key: "id", Value: "65b000000000000000000001"}}
}

func TestAct_LeaveSharingAliasDispatchesLeave(t *testing.T) {
	called := false
	svc := &stubShareService{
		leaveFunc: func(ctx context.Context, actor *auth.Identity, id string) (*model.RoomShare, error) {
			called = true
			return &model.RoomShare{ID: id}, nil
		},
	}
	h := newTestHandler(svc)

	w, req := actRequest(t, `{"action":"leave_sharing"}`)
	h.Act(w, req, shareParams())

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAct_CalculateCompatibilityReturnsScore(t *testing.T) {
	svc := &stubShareService{
		calcFunc: func(ctx context.Context, id string, prefs map[string]string) (int, error) {
			assert.Equal(t, "65b000000000000000000001", id)
			assert.Equal(t, map[string]string{"cleanliness": "high"}, prefs)
			return 50, nil
		},
	}
	h := newTestHandler(svc)

	w, req := actRequest(t, `{"action":"calculate_compatibility","preferences":{"cleanliness":"high"}}`)
	h.Act(w, req, shareParams())

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data compatibilityResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 50, resp.Data.CompatibilityScore)
}

func TestAct_UnrecognizedActionBadRequest(t *testing.T) {
	h := newTestHandler(&stubShareService{})

	w, req := actRequest(t, `{"action":"frobnicate"}`)
	h.Act(w, req, shareParams())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
