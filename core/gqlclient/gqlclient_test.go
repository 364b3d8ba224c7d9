package gqlclient_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gabstv/freeport"
	"github.com/pktgraph/pktgraph/core/gqlclient"
	"github.com/pktgraph/pktgraph/core/gqlserver"
	"github.com/pktgraph/pktgraph/core/testenv"
	"github.com/pktgraph/pktgraph/core/version"
)

var (
	makeAR = testenv.MakeAR

	serverURI string
)

func TestMain(m *testing.M) {
	port, e := freeport.TCP()
	if e != nil {
		panic(e)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	serverURI = "http://" + addr + "/"
	go http.ListenAndServe(addr, gqlserver.Handler())
	time.Sleep(100 * time.Millisecond)

	os.Exit(m.Run())
}

func TestClient(t *testing.T) {
	assert, require := makeAR(t)

	c, e := gqlclient.New(gqlclient.Config{HTTPUri: serverURI})
	require.NoError(e)

	var reply string
	e = c.Do(context.Background(), `
		query {
			version
		}
	`, nil, "version", &reply)
	assert.NoError(e)
	assert.Equal(version.V.String(), reply)

	e = c.Do(context.Background(), `query { version }`, nil, "missing", &reply)
	assert.Error(e)

	e = c.Do(context.Background(), `query { noSuchField }`, nil, "", nil)
	assert.Error(e)
}

func TestConfig(t *testing.T) {
	assert, _ := makeAR(t)

	_, e := gqlclient.New(gqlclient.Config{HTTPUri: "ws://127.0.0.1/"})
	assert.Error(e)
	_, e = gqlclient.New(gqlclient.Config{HTTPUri: "://"})
	assert.Error(e)
}
