package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/groundrag"

	mcpE "github.com/flarexio/groundrag/mcp"
)

type fakeService struct {
	k int
}

func (svc *fakeService) Close() error { return nil }

func (svc *fakeService) Build(ctx context.Context) (groundrag.BuildReport, error) {
	return groundrag.BuildReport{Discovered: 2, Indexed: 2, Chunks: 5}, nil
}

func (svc *fakeService) Query(ctx context.Context, question string, k ...int) ([]groundrag.Result, error) {
	if len(k) > 0 {
		svc.k = k[0]
	}

	return []groundrag.Result{{Text: "excerpt", Source: "guide.pdf", Chunk: 1}}, nil
}

func (svc *fakeService) Search(ctx context.Context, query string, k ...int) string {
	return "[1] Source: guide.pdf\n" + query
}

func (svc *fakeService) Status(ctx context.Context) (groundrag.Status, error) {
	return groundrag.Status{State: groundrag.StateReady, Entries: 5}, nil
}

type httpTransportTestSuite struct {
	suite.Suite
	svc    *fakeService
	router *gin.Engine
}

func (suite *httpTransportTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.svc = &fakeService{}

	r := gin.New()
	AddRouters(r, groundrag.MakeEndpoints(suite.svc))
	AddStreamableRouters(r, mcpE.MakeEndpoints(suite.svc))

	suite.router = r
}

func (suite *httpTransportTestSuite) serve(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *httpTransportTestSuite) TestBuild() {
	w := suite.serve(http.MethodPost, "/api/index/build", "")
	suite.Equal(http.StatusOK, w.Code)

	var report groundrag.BuildReport
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &report))
	suite.Equal(5, report.Chunks)
}

func (suite *httpTransportTestSuite) TestQuery() {
	w := suite.serve(http.MethodGet, "/api/index/query?query=naming&k=3", "")
	suite.Equal(http.StatusOK, w.Code)

	var results []groundrag.Result
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &results))
	suite.Len(results, 1)
	suite.Equal("guide.pdf", results[0].Source)
	suite.Equal(3, suite.svc.k)
}

func (suite *httpTransportTestSuite) TestQueryMissingQuery() {
	w := suite.serve(http.MethodGet, "/api/index/query", "")
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *httpTransportTestSuite) TestSearch() {
	w := suite.serve(http.MethodGet, "/api/search?query=naming", "")
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("[1] Source: guide.pdf\nnaming", w.Body.String())
	suite.Contains(w.Header().Get("Content-Type"), "text/plain")
}

func (suite *httpTransportTestSuite) TestStatus() {
	w := suite.serve(http.MethodGet, "/api/status", "")
	suite.Equal(http.StatusOK, w.Code)

	var status groundrag.Status
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &status))
	suite.Equal(groundrag.StateReady, status.State)
}

func (suite *httpTransportTestSuite) TestMCPToolsCall() {
	body := `{
		"jsonrpc": "2.0",
		"id": 7,
		"method": "tools/call",
		"params": {"name": "rag_search", "arguments": {"query": "naming"}}
	}`

	w := suite.serve(http.MethodPost, "/mcp/", body)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"id":7`)
	suite.Contains(w.Body.String(), `Source: guide.pdf`)
}

func (suite *httpTransportTestSuite) TestMCPMethodNotFound() {
	body := `{"jsonrpc": "2.0", "id": 1, "method": "resources/list"}`

	w := suite.serve(http.MethodPost, "/mcp/", body)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Contains(w.Body.String(), "method not found")
}

func TestHTTPTransportTestSuite(t *testing.T) {
	suite.Run(t, new(httpTransportTestSuite))
}
