package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/slides/v1"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/gateway"
	"pitchforge-ai-api/pkg/retry"
)

func samplePresentation() *slides.Presentation {
	return &slides.Presentation{
		Slides: []*slides.Page{
			{PageElements: []*slides.PageElement{
				{ObjectId: "title", Shape: &slides.Shape{Text: &slides.TextContent{TextElements: []*slides.TextElement{
					{TextRun: &slides.TextRun{Content: "{{COMPANY"}},
					{TextRun: &slides.TextRun{Content: "_NAME}}"}},
					{ParagraphMarker: &slides.ParagraphMarker{}},
				}}}},
				{ObjectId: "group", ElementGroup: &slides.Group{Children: []*slides.PageElement{
					{ObjectId: "chart", SheetsChart: &slides.SheetsChart{SpreadsheetId: "ss-1", ChartId: 42}},
				}}},
			}},
			{PageElements: []*slides.PageElement{
				{ObjectId: "tbl", Table: &slides.Table{TableRows: []*slides.TableRow{
					{TableCells: []*slides.TableCell{
						{Text: &slides.TextContent{TextElements: []*slides.TextElement{{TextRun: &slides.TextRun{Content: "{{RISK_1}}"}}}}},
						{},
					}},
				}}},
			}},
		},
	}
}

func TestTextFramesJoinRuns(t *testing.T) {
	frames := textFrames(samplePresentation())
	assert.Equal(t, []entity.TextFrame{
		{ObjectID: "title", Text: "{{COMPANY_NAME}}"},
		{ObjectID: "tbl[0,0]", Text: "{{RISK_1}}"},
	}, frames)
}

func TestLinkedChartsInsideGroups(t *testing.T) {
	assert.Equal(t, []entity.LinkedChart{
		{ObjectID: "chart", SpreadsheetID: "ss-1", ChartID: 42},
	}, linkedCharts(samplePresentation()))
}

func TestReplaceRequestsAreCaseSensitive(t *testing.T) {
	reqs := replaceRequests([]gateway.Replacement{{Find: "{{TAGLINE}}", Replace: ""}})
	require.Len(t, reqs, 1)

	raw, err := json.Marshal(reqs[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"replaceAllText":{"containsText":{"text":"{{TAGLINE}}","matchCase":true},"replaceText":""}}`, string(raw))
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"plain", errors.New("boom"), false},
		{"429", &googleapi.Error{Code: 429}, true},
		{"503 wrapped", fmt.Errorf("copy: %w", &googleapi.Error{Code: 503}), true},
		{"404", &googleapi.Error{Code: 404}, false},
		{"403 quota", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, true},
		{"403 denied", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "insufficientPermissions"}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
	assert.False(t, IsRateLimited(&googleapi.Error{Code: 503}))
	assert.True(t, IsRateLimited(&googleapi.Error{Code: 429}))
}

// slidesServer 模拟 batchUpdate：首次返回 503，之后按请求顺序回复替换次数
type slidesServer struct {
	mu       sync.Mutex
	calls    int
	lastBody slides.BatchUpdatePresentationRequest
}

func (s *slidesServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.HasSuffix(r.URL.Path, ":batchUpdate") {
		http.NotFound(w, r)
		return
	}
	s.calls++
	if s.calls == 1 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"backend unavailable"}}`))
		return
	}
	_ = json.NewDecoder(r.Body).Decode(&s.lastBody)

	replies := make([]map[string]any, 0, len(s.lastBody.Requests))
	for i := range s.lastBody.Requests {
		replies = append(replies, map[string]any{"replaceAllText": map[string]any{"occurrencesChanged": i + 1}})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"presentationId": "doc-1", "replies": replies})
}

func TestReplaceAllTextRetriesAndCounts(t *testing.T) {
	srv := &slidesServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx := context.Background()
	session, err := NewSessionWithOptions(ctx,
		option.WithEndpoint(ts.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)

	gw := NewGateway(session, retry.Policy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})
	counts, err := gw.ReplaceAllText(ctx, "doc-1", []gateway.Replacement{
		{Find: "{{COMPANY_NAME}}", Replace: "PawPal"},
		{Find: "{{TAGLINE}}", Replace: "Walks on demand"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"{{COMPANY_NAME}}": 1, "{{TAGLINE}}": 2}, counts)
	assert.Equal(t, 2, srv.calls)
	require.Len(t, srv.lastBody.Requests, 2)
	assert.True(t, srv.lastBody.Requests[0].ReplaceAllText.ContainsText.MatchCase)
}
