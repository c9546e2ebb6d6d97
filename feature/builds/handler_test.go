package builds

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"release-builder/feature/builds/models"
)

func setupTestApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	app := fiber.New()
	db, mock := setupMockDB(t)
	handler := NewHandler(NewService(db, zap.NewNop()))
	handler.RegisterRoutes(app)
	return app, mock
}

func TestHandleCreateProduct(t *testing.T) {
	app, mock := setupTestApp(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `products`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest("POST", "/products",
		strings.NewReader(`{"key":"international_edition","name":"International Edition","release_center":"international"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var product models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&product))
	assert.Equal(t, "international_edition", product.Key)
}

func TestHandleGetBuild(t *testing.T) {
	app, mock := setupTestApp(t)

	rows := sqlmock.NewRows([]string{"id", "product_id", "status", "effective_time"}).
		AddRow(3, 7, "EXPORTING", "20210131")
	mock.ExpectQuery("SELECT \\* FROM `builds`").WillReturnRows(rows)

	req := httptest.NewRequest("GET", "/builds/3", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var build models.Build
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&build))
	assert.Equal(t, models.StatusExporting, build.Status)
}

func TestHandleGetBuildNotFound(t *testing.T) {
	app, mock := setupTestApp(t)

	mock.ExpectQuery("SELECT \\* FROM `builds`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest("GET", "/builds/99", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleRequestCancel(t *testing.T) {
	app, mock := setupTestApp(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `builds`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest("POST", "/builds/3/cancel", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}
