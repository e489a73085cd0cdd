package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, calls *atomic.Int64, handler func(method string, params json.RawMessage) (string, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := handler(req.Method, req.Params)
		w.Header().Set("Content-Type", "application/json")
		if rpcErr != "" {
			w.Write([]byte(`{"jsonrpc":"2.0","error":` + rpcErr + `,"id":1}`))
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","result":` + result + `,"id":1}`))
	}))
}

const accountJSON = `{
	"name": "alice",
	"owner": {"weight_threshold": 1, "account_auths": [], "key_auths": [["STM5ownerkey", 1]]},
	"active": {"weight_threshold": 1, "account_auths": [], "key_auths": [["STM5activekey", 1]]},
	"posting": {"weight_threshold": 1, "account_auths": [["hivesigner", 1]], "key_auths": [["STM5postingkey", 1]]}
}`

func TestGetAccount(t *testing.T) {
	var calls atomic.Int64
	srv := rpcServer(t, &calls, func(method string, params json.RawMessage) (string, string) {
		assert.Equal(t, "condenser_api.get_accounts", method)
		assert.JSONEq(t, `[["alice"]]`, string(params))
		return "[" + accountJSON + "]", ""
	})
	defer srv.Close()

	client := NewClient([]string{srv.URL}, time.Second, 2)
	account, err := client.GetAccount(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, account)

	assert.Equal(t, "alice", account.Name)
	assert.Equal(t, "STM5postingkey", account.Posting.KeyAuths[0].PublicKey)
	assert.Equal(t, 1, account.Posting.KeyAuths[0].Weight)
	assert.True(t, account.Posting.HasAccountAuth("hivesigner"))
	assert.True(t, account.Active.HasKeyWithThreshold("STM5activekey"))
}

func TestGetAccountUnknown(t *testing.T) {
	var calls atomic.Int64
	srv := rpcServer(t, &calls, func(string, json.RawMessage) (string, string) {
		return "[]", ""
	})
	defer srv.Close()

	client := NewClient([]string{srv.URL}, time.Second, 2)
	account, err := client.GetAccount(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestGetAccountCached(t *testing.T) {
	var calls atomic.Int64
	srv := rpcServer(t, &calls, func(string, json.RawMessage) (string, string) {
		return "[" + accountJSON + "]", ""
	})
	defer srv.Close()

	client := NewClient([]string{srv.URL}, time.Second, 2)
	ctx := context.Background()

	_, err := client.GetAccount(ctx, "alice")
	require.NoError(t, err)
	_, err = client.GetAccount(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
}

func TestGetProfile(t *testing.T) {
	var calls atomic.Int64
	srv := rpcServer(t, &calls, func(method string, params json.RawMessage) (string, string) {
		assert.Equal(t, "bridge.get_profile", method)
		assert.JSONEq(t, `{"account":"alice"}`, string(params))
		return `{"name":"alice","reputation":68.2,"metadata":{"profile":{"profile_image":"https://example.com/me.png","cover_image":""}}}`, ""
	})
	defer srv.Close()

	client := NewClient([]string{srv.URL}, time.Second, 2)
	profile, err := client.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, 68.2, profile.Reputation)
	assert.Equal(t, "https://example.com/me.png", profile.Metadata.Profile.ProfileImage)
}

func TestGetProfileUnknownAccount(t *testing.T) {
	var calls atomic.Int64
	srv := rpcServer(t, &calls, func(string, json.RawMessage) (string, string) {
		return "", `{"code":-31999,"message":"Account 'nonexistent' does not exist"}`
	})
	defer srv.Close()

	client := NewClient([]string{srv.URL}, time.Second, 2)
	profile, err := client.GetProfile(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestFailover(t *testing.T) {
	var badCalls atomic.Int64
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badCalls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	var goodCalls atomic.Int64
	good := rpcServer(t, &goodCalls, func(string, json.RawMessage) (string, string) {
		return "[" + accountJSON + "]", ""
	})
	defer good.Close()

	client := NewClient([]string{bad.URL, good.URL}, time.Second, 2)
	ctx := context.Background()

	// Two failures on the first node trip the fail-over threshold.
	_, err := client.GetAccount(ctx, "a1")
	assert.Error(t, err)
	_, err = client.GetAccount(ctx, "a2")
	assert.Error(t, err)

	account, err := client.GetAccount(ctx, "a3")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(2), badCalls.Load())
	assert.Equal(t, int64(1), goodCalls.Load())
}
