package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"recipe-box/backend/pkg/config"
	"recipe-box/backend/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", JSON: true, Output: io.Discard})
}

func testClasses() map[string]config.RouteClassConfig {
	return map[string]config.RouteClassConfig{
		config.ClassAuth: {Window: 15 * time.Minute, MaxRequests: 5},
		config.ClassAPI:  {Window: time.Minute, MaxRequests: 60},
	}
}

// failingStore simulates an unreachable key-value backend.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) (string, error) { return "", errStoreDown }
func (failingStore) SetWithExpiry(context.Context, string, string, time.Duration) error {
	return errStoreDown
}
func (failingStore) Increment(context.Context, string) (int64, error) { return 0, errStoreDown }
func (failingStore) Expire(context.Context, string, time.Duration) error {
	return errStoreDown
}
func (failingStore) Delete(context.Context, ...string) error { return errStoreDown }
func (failingStore) DeleteByPattern(context.Context, string) (int64, error) {
	return 0, errStoreDown
}

func doRequest(engine *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
