package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecore/ztedge/edgeerr"
)

type widget struct {
	Name string `json:"name"`
}

func TestDecodeSuccess(t *testing.T) {
	body := []byte(`{"meta":{"pagination":{"limit":25,"offset":0,"totalCount":1}},"data":{"name":"router-1"}}`)
	w, raw, err := Decode[widget](body, 200, zap.NewNop())
	require.Nil(t, err)
	assert.Equal(t, "router-1", w.Name)
	assert.Equal(t, 1, raw.Meta.Pagination.TotalCount)
}

func TestDecodeEmptyData(t *testing.T) {
	body := []byte(`{"meta":{"pagination":{}},"data":null}`)
	w, raw, err := Decode[widget](body, 200, zap.NewNop())
	require.Nil(t, err)
	assert.Equal(t, widget{}, w)
	assert.NotNil(t, raw)
}

func TestDecodeServerErrorMapped(t *testing.T) {
	body := []byte(`{"meta":{},"error":{"code":"INVALID_AUTHENTICATION","message":"bad creds"}}`)
	_, _, err := Decode[widget](body, 401, zap.NewNop())
	require.NotNil(t, err)
	assert.Equal(t, edgeerr.AuthFailed, err.Kind)
	assert.Equal(t, 401, err.HTTPStatus)
	assert.Equal(t, "INVALID_AUTHENTICATION", err.ServerCode)
}

func TestDecodeServerErrorUnrecognizedCode(t *testing.T) {
	body := []byte(`{"meta":{},"error":{"code":"SOMETHING_NEW","message":"huh"}}`)
	_, _, err := Decode[widget](body, 500, zap.NewNop())
	require.NotNil(t, err)
	assert.Equal(t, edgeerr.Unspecified, err.Kind)
}

func TestDecodeMalformedBodyOnErrorStatus(t *testing.T) {
	_, _, err := Decode[widget]([]byte("not json"), 503, zap.NewNop())
	require.NotNil(t, err)
	assert.Equal(t, edgeerr.InvalidControllerReply, err.Kind)
	assert.Equal(t, 503, err.HTTPStatus)
}

func TestCodeToKind(t *testing.T) {
	assert.Equal(t, edgeerr.OK, CodeToKind("", 200, nil))
	assert.Equal(t, edgeerr.GatewayUnavailable, CodeToKind("NO_EDGE_ROUTERS_AVAILABLE", 503, nil))
	assert.Equal(t, edgeerr.Unspecified, CodeToKind("NOVEL", 500, nil))
}
