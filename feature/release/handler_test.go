package release

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"release-builder/core/storage/mocks"
)

func setupTestApp(client *mocks.Client) *fiber.App {
	app := fiber.New()
	handler := NewHandler(newTestService(client, &idClientMock{}, Config{}))
	handler.RegisterRoutes(app)
	return app
}

func TestHandleExportFirstTimeRelease(t *testing.T) {
	client := &mocks.Client{}
	uploads := newUploadCapture()
	uploads.install(client)

	deltaName := "sct2_Concept_Delta_INT_20210131.txt"
	client.On("ListObjects", mock.Anything, buildBucket, mock.Anything).
		Return(objectChannel("build-9/transformed-files/" + deltaName))
	client.On("GetObject", mock.Anything, buildBucket, "build-9/transformed-files/"+deltaName, mock.Anything).
		Return(body(
			conceptHeader,
			"138875005\t20210131\t1\t900000000000207008\t900000000000074008",
		), nil)

	app := setupTestApp(client)
	req := httptest.NewRequest("POST", "/release/build-9/export",
		strings.NewReader(`{"effective_time":"20210131","first_time_release":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "completed", result["status"])
	assert.Equal(t, "build-9", result["build_id"])

	_, ok := uploads.get("build-9/output-files/" + deltaName)
	assert.True(t, ok)
}

func TestHandleExportBadBody(t *testing.T) {
	app := setupTestApp(&mocks.Client{})

	req := httptest.NewRequest("POST", "/release/build-9/export", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleCancelUnknownBuild(t *testing.T) {
	app := setupTestApp(&mocks.Client{})

	req := httptest.NewRequest("POST", "/release/build-404/cancel", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
