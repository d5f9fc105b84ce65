package httphost_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/bridge"
	"github.com/GoCodeAlone/bridge/host/httphost"
	"github.com/GoCodeAlone/bridge/lifecycle"
)

var errDivideByZero = errors.New("divide by zero")

type calc struct {
	bridge.BaseModule
	foreground int
}

func (c *calc) Definition() []bridge.Definition {
	return []bridge.Definition{
		bridge.Name("Calc"),
		bridge.Method("div", func(c *calc, a, b float64) (float64, error) {
			if b == 0 {
				return 0, errDivideByZero
			}
			return a / b, nil
		}),
		bridge.Method("tags", func(c *calc, tags map[string]int) int { return len(tags) }),
		bridge.Events("onResult"),
		bridge.OnAppEntersForeground(func(c *calc) { c.foreground++ }),
	}
}

func newServer(t *testing.T) (*httptest.Server, *bridge.AppContext, *calc) {
	t.Helper()
	ac, err := bridge.NewAppContext()
	require.NoError(t, err)
	c := &calc{}
	_, err = ac.RegisterModule(context.Background(), c)
	require.NoError(t, err)
	srv := httptest.NewServer(httphost.NewHandler(ac, nil).Router())
	t.Cleanup(srv.Close)
	return srv, ac, c
}

func do(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestDescribeModules(t *testing.T) {
	srv, _, _ := newServer(t)

	var all []bridge.Description
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/modules", "", &all))
	require.Len(t, all, 1)
	assert.Equal(t, "Calc", all[0].Name)

	var one bridge.Description
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/modules/Calc", "", &one))
	assert.Equal(t, []string{"number", "number"}, one.Methods[0].Args)

	var e httphost.ErrorResponse
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/modules/Nope", "", &e))
	assert.Equal(t, bridge.ErrorKindModuleNotFound, e.Kind)
}

func TestInvokeMethod(t *testing.T) {
	srv, _, _ := newServer(t)
	url := srv.URL + "/modules/Calc/methods/"

	var res httphost.InvokeResponse
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, url+"div", `{"args":[9, 2]}`, &res))
	assert.Equal(t, 4.5, res.Result)

	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, url+"tags", `{"args":[{"a":1,"b":2}]}`, &res))
	assert.Equal(t, float64(2), res.Result)

	tests := []struct {
		name   string
		method string
		body   string
		status int
		kind   string
	}{
		{"coercion", "div", `{"args":["9", 2]}`, http.StatusBadRequest, bridge.ErrorKindCoercion},
		{"arity", "div", `{"args":[9]}`, http.StatusBadRequest, bridge.ErrorKindArity},
		{"no args", "div", ``, http.StatusBadRequest, bridge.ErrorKindArity},
		{"native", "div", `{"args":[1, 0]}`, http.StatusInternalServerError, bridge.ErrorKindNative},
		{"unknown method", "mul", `{"args":[]}`, http.StatusNotFound, bridge.ErrorKindUnknownMethod},
		{"bad json", "div", `{"args":`, http.StatusBadRequest, httphost.ErrorKindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e httphost.ErrorResponse
			assert.Equal(t, tt.status, do(t, http.MethodPost, url+tt.method, tt.body, &e))
			assert.Equal(t, tt.kind, e.Kind)
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestInvokeAfterDestroy(t *testing.T) {
	srv, ac, _ := newServer(t)
	require.NoError(t, ac.Destroy(context.Background()))

	var e httphost.ErrorResponse
	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, srv.URL+"/modules/Calc/methods/div", `{"args":[1,1]}`, &e))
	assert.Equal(t, bridge.ErrorKindInstanceUnavailable, e.Kind)
}

func TestChangeListeners(t *testing.T) {
	srv, _, _ := newServer(t)
	url := srv.URL + "/modules/Calc/events/onResult/listeners"

	var res httphost.ListenersResponse
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, url, `{"delta":2}`, &res))
	assert.Equal(t, 2, res.Listeners)
	assert.Equal(t, bridge.Observing.String(), res.Observing)

	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, url, `{"delta":-2}`, &res))
	assert.Equal(t, bridge.NotObserving.String(), res.Observing)

	var e httphost.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, url, `{"delta":-1}`, &e))
	assert.Equal(t, bridge.ErrorKindListenerDelta, e.Kind)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, srv.URL+"/modules/Calc/events/nope/listeners", `{"delta":1}`, &e))
	assert.Equal(t, bridge.ErrorKindUnknownEvent, e.Kind)
}

func TestLifecycle(t *testing.T) {
	srv, _, c := newServer(t)

	var res httphost.LifecycleResponse
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/lifecycle/foreground", "", &res))
	assert.Equal(t, lifecycle.AppEntersForeground, res.Kind)
	assert.Equal(t, 1, c.foreground)

	var e httphost.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, srv.URL+"/lifecycle/moduleDestroy", "", &e))
	assert.Equal(t, httphost.ErrorKindLifecycle, e.Kind)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, srv.URL+"/lifecycle/sideways", "", &e))

	var history []lifecycle.Event
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/lifecycle/history?kind=foreground&source=Calc", "", &history))
	require.Len(t, history, 1)
	assert.Equal(t, lifecycle.EventStatusCompleted, history[0].Status)
	assert.Equal(t, 1, history[0].Hooks)

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/lifecycle/history?limit=-3", "", &e))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/lifecycle/history?since=yesterday", "", &e))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, httphost.StatusFor(bridge.ErrorKindDuplicateDefinition))
	assert.Equal(t, http.StatusConflict, httphost.StatusFor(bridge.ErrorKindObservingBusy))
	assert.Equal(t, http.StatusServiceUnavailable, httphost.StatusFor(bridge.ErrorKindCanceled))
	assert.Equal(t, http.StatusInternalServerError, httphost.StatusFor(bridge.ErrorKindInternal))
}
