package search

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
)

// fakeESTransport 替换 HTTP 传输层，让引擎在测试里对着脚本化的响应跑
type fakeESTransport struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (t *fakeESTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.handler(req)
}

func esJSONResponse(status int, body string) (*http.Response, error) {
	return &http.Response{
		StatusCode: status,
		Header: http.Header{
			// v8 客户端会校验这个产品头
			"X-Elastic-Product": []string{"Elasticsearch"},
			"Content-Type":      []string{"application/json"},
		},
		Body: io.NopCloser(strings.NewReader(body)),
	}, nil
}

func newTestElasticSearcher(t *testing.T, handler func(req *http.Request) (*http.Response, error)) *ElasticSearcher {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://127.0.0.1:9200"},
		Transport: &fakeESTransport{handler: handler},
	})
	if err != nil {
		t.Fatalf("创建测试客户端失败: %v", err)
	}
	return &ElasticSearcher{client: client, index: "test_search"}
}

func TestDocID(t *testing.T) {
	if got := docID("post", "8ZfK"); got != "post:8ZfK" {
		t.Errorf("docID() = %q, want %q", got, "post:8ZfK")
	}
}

func TestElasticDeleteDocument(t *testing.T) {
	t.Run("按自然键查不到文档视为删除成功", func(t *testing.T) {
		var deleteCalls int32
		s := newTestElasticSearcher(t, func(req *http.Request) (*http.Response, error) {
			if req.Method == http.MethodDelete {
				atomic.AddInt32(&deleteCalls, 1)
			}
			return esJSONResponse(http.StatusOK, `{"hits":{"total":{"value":0},"hits":[]}}`)
		})

		if !s.DeleteDocument(context.Background(), "post", "missing") {
			t.Error("删除不存在的文档应返回 true")
		}
		if atomic.LoadInt32(&deleteCalls) != 0 {
			t.Error("查不到文档时不应发出删除请求")
		}
	})

	t.Run("删除时集群返回404同样视为成功", func(t *testing.T) {
		s := newTestElasticSearcher(t, func(req *http.Request) (*http.Response, error) {
			if req.Method == http.MethodDelete {
				return esJSONResponse(http.StatusNotFound, `{"result":"not_found"}`)
			}
			return esJSONResponse(http.StatusOK,
				`{"hits":{"total":{"value":1},"hits":[{"_id":"legacy-id","_source":{"entityType":"post","entityId":"abc"}}]}}`)
		})

		if !s.DeleteDocument(context.Background(), "post", "abc") {
			t.Error("删除时收到 404 应返回 true")
		}
	})

	t.Run("查找失败返回false", func(t *testing.T) {
		s := newTestElasticSearcher(t, func(req *http.Request) (*http.Response, error) {
			return esJSONResponse(http.StatusInternalServerError, `{"error":"boom"}`)
		})

		if s.DeleteDocument(context.Background(), "post", "abc") {
			t.Error("查找文档失败时应返回 false")
		}
	})
}

func TestBuildElasticQuery(t *testing.T) {
	t.Run("空查询只保留isActive过滤", func(t *testing.T) {
		body := buildElasticQuery(&model.SearchCriteria{})
		query, ok := body["query"].(map[string]interface{})
		if !ok {
			t.Fatal("缺少 query")
		}
		// 单个子句直接作为 query，不包 bool
		term, ok := query["term"].(map[string]interface{})
		if !ok {
			t.Fatalf("单子句应该是 term，实际 %v", query)
		}
		if term["isActive"] != true {
			t.Errorf("term = %v, want isActive:true", term)
		}
	})

	t.Run("多子句合并为bool must", func(t *testing.T) {
		body := buildElasticQuery(&model.SearchCriteria{
			Query:       "golang 并发",
			ContentType: "post",
		})
		query := body["query"].(map[string]interface{})
		boolQuery, ok := query["bool"].(map[string]interface{})
		if !ok {
			t.Fatalf("多子句应包进 bool，实际 %v", query)
		}
		must := boolQuery["must"].([]map[string]interface{})
		// multi_match + entityType + isActive
		if len(must) != 3 {
			t.Fatalf("must 子句数 = %d, want 3", len(must))
		}

		mm := must[0]["multi_match"].(map[string]interface{})
		if mm["type"] != "best_fields" {
			t.Errorf("multi_match type = %v, want best_fields", mm["type"])
		}
		fields := mm["fields"].([]string)
		want := []string{"title^3", "keywords^2", "content"}
		for i, f := range want {
			if fields[i] != f {
				t.Errorf("fields[%d] = %q, want %q", i, fields[i], f)
			}
		}
	})

	t.Run("日期范围按RFC3339编码", func(t *testing.T) {
		start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		body := buildElasticQuery(&model.SearchCriteria{StartDate: &start})
		query := body["query"].(map[string]interface{})
		must := query["bool"].(map[string]interface{})["must"].([]map[string]interface{})

		rangeClause := must[0]["range"].(map[string]interface{})["indexedAt"].(map[string]interface{})
		if rangeClause["gte"] != "2025-06-01T00:00:00Z" {
			t.Errorf("gte = %v", rangeClause["gte"])
		}
		if _, hasLTE := rangeClause["lte"]; hasLTE {
			t.Error("未设置 EndDate 时不应有 lte")
		}
	})

	t.Run("相关度排序不带sort子句", func(t *testing.T) {
		body := buildElasticQuery(&model.SearchCriteria{SortBy: model.SortByRelevance})
		if _, has := body["sort"]; has {
			t.Error("相关度排序应交给 _score，不应显式 sort")
		}
	})

	t.Run("按日期升序排序", func(t *testing.T) {
		body := buildElasticQuery(&model.SearchCriteria{
			SortBy:        model.SortByDate,
			SortDirection: model.SortAsc,
		})
		sorts := body["sort"].([]map[string]interface{})
		order := sorts[0]["indexedAt"].(map[string]interface{})["order"]
		if order != "asc" {
			t.Errorf("order = %v, want asc", order)
		}
	})

	t.Run("按标题排序使用keyword子字段", func(t *testing.T) {
		body := buildElasticQuery(&model.SearchCriteria{SortBy: model.SortByTitle})
		sorts := body["sort"].([]map[string]interface{})
		if _, ok := sorts[0]["title.keyword"]; !ok {
			t.Errorf("标题排序应使用 title.keyword: %v", sorts[0])
		}
	})

	t.Run("高亮配置", func(t *testing.T) {
		body := buildElasticQuery(&model.SearchCriteria{Query: "go", EnableHighlight: true})
		highlight, ok := body["highlight"].(map[string]interface{})
		if !ok {
			t.Fatal("缺少 highlight 配置")
		}
		pre := highlight["pre_tags"].([]string)
		if pre[0] != "<mark>" {
			t.Errorf("pre_tags = %v", pre)
		}
		contentField := highlight["fields"].(map[string]interface{})["content"].(map[string]interface{})
		if contentField["fragment_size"] != fragmentLength {
			t.Errorf("fragment_size = %v, want %d", contentField["fragment_size"], fragmentLength)
		}
		if contentField["number_of_fragments"] != maxFragments {
			t.Errorf("number_of_fragments = %v, want %d", contentField["number_of_fragments"], maxFragments)
		}
	})

	t.Run("关闭高亮时无highlight配置", func(t *testing.T) {
		body := buildElasticQuery(&model.SearchCriteria{Query: "go"})
		if _, has := body["highlight"]; has {
			t.Error("未开启高亮时不应有 highlight 配置")
		}
	})
}
