package logger

import (
	"EnterpriseAgent/backend/go/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextCarriesIDs(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug", "json")

	ctx := WithUserID(WithTraceID(context.Background(), "trace-1"), "42")
	FromContext(ctx, "query-service").
		WithPayload(map[string]interface{}{"record_id": 7}).
		WithError(models.ErrorInfo{Message: "boom", Type: "upstream_error"}).
		Warn("生成失败")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "query-service", line["service_name"])
	assert.Equal(t, "trace-1", line["trace_id"])
	assert.Equal(t, "42", line["user_id"])
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "生成失败", line["message"])
	assert.Equal(t, float64(7), line["payload"].(map[string]interface{})["record_id"])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "info", "json")

	base := New("svc", "", "")
	_ = base.WithPayload(map[string]interface{}{"x": 1})
	base.Info("plain")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "payload")
	assert.NotContains(t, line, "trace_id")
}

func TestLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "not-a-level", "json")

	New("svc", "", "").Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestRequestAndErrorFieldNames(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "info", "json")

	New("svc", "", "").
		WithRequest(models.RequestInfo{Method: "POST", Path: "/api/v1/queries", RemoteAddr: "10.0.0.1"}).
		WithError(models.ErrorInfo{Message: "down", Type: "store_error", StatusCode: 500}).
		Error("failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	req := line["request_info"].(map[string]interface{})
	assert.Equal(t, "POST", req["method"])
	assert.Equal(t, "/api/v1/queries", req["path"])
	assert.Equal(t, "10.0.0.1", req["remote_addr"])
	e := line["error"].(map[string]interface{})
	assert.Equal(t, "store_error", e["type"])
	assert.Equal(t, float64(500), e["status_code"])
	assert.NotContains(t, e, "stack")
}
