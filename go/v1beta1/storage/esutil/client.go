// Copyright 2021 The Rode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package esutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rode/es-relation/go/v1beta1/storage/query"
)

var ErrUnsupportedGate = errors.New("unsupported gate")

//go:generate mockgen -destination=../../../mocks/esutil_client.go -package=mocks github.com/rode/es-relation/go/v1beta1/storage/esutil Client

// Client runs compiled queries against Elasticsearch and returns the decoded response.
type Client interface {
	Execute(ctx context.Context, q *query.Query) (map[string]interface{}, error)
	MultiSearch(ctx context.Context, queries []*query.Query) ([]map[string]interface{}, error)
}

type ClientOption func(*client)

// WithSerializedRequests allows only one request in flight at a time.
func WithSerializedRequests() ClientOption {
	return func(c *client) {
		c.mu = &sync.Mutex{}
	}
}

type client struct {
	logger   *zap.Logger
	esClient *elasticsearch.Client
	mu       *sync.Mutex
}

func NewClient(logger *zap.Logger, esClient *elasticsearch.Client, opts ...ClientOption) Client {
	c := &client{
		logger:   logger,
		esClient: esClient,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *client) Execute(ctx context.Context, q *query.Query) (map[string]interface{}, error) {
	opaqueID := uuid.New().String()
	log := c.logger.Named("Execute").With(
		zap.String("gate", q.Gate()),
		zap.String("index", q.Index),
		zap.String("opaqueId", opaqueID),
	)

	if !q.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGate, q.Type)
	}
	if q.Failed() && q.IsWriteOperation() {
		log.Debug("query can never match, skipping request")
		return emptyResponse(q.Type), nil
	}

	args := q.Finalize()
	if requiresQuery(q.Type) {
		args[query.ArgBody] = withQuery(args[query.ArgBody])
	}
	body, requestJson := encodeBody(args)
	log = log.With(zap.String("request", requestJson))
	log.Debug("performing request")

	c.lock()
	res, err := c.perform(ctx, q, args, body, opaqueID)
	c.unlock()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, newResponseError(q.Gate(), res)
	}

	response := map[string]interface{}{}
	if err := DecodeResponse(res.Body, &response); err != nil {
		return nil, err
	}
	log.Debug("elasticsearch response", zap.Int("status", res.StatusCode))

	return response, nil
}

// MultiSearch sends every query in a single _msearch request. Responses keep the order of
// the queries. Queries that can never match are answered without being sent.
func (c *client) MultiSearch(ctx context.Context, queries []*query.Query) ([]map[string]interface{}, error) {
	opaqueID := uuid.New().String()
	log := c.logger.Named("MultiSearch").With(zap.Int("queries", len(queries)), zap.String("opaqueId", opaqueID))

	responses := make([]map[string]interface{}, len(queries))
	var (
		sent    []int
		payload bytes.Buffer
	)
	for i, q := range queries {
		if q.Type != query.KindSearch && q.Type != query.KindCount {
			return nil, fmt.Errorf("%w: %s in a multi search", ErrUnsupportedGate, q.Type)
		}
		if q.Failed() {
			responses[i] = emptyResponse(q.Type)
			continue
		}

		body, _ := q.Finalize()[query.ArgBody].(map[string]interface{})
		if body == nil {
			body = map[string]interface{}{}
		}
		if q.Type == query.KindCount {
			body["size"] = 0
			body["track_total_hits"] = true
		}

		writeLine(&payload, map[string]interface{}{"index": q.Index})
		writeLine(&payload, body)
		sent = append(sent, i)
	}

	if len(sent) == 0 {
		return responses, nil
	}

	log.Debug("performing multi search", zap.Int("sent", len(sent)))
	c.lock()
	res, err := c.esClient.Msearch(
		bytes.NewReader(payload.Bytes()),
		c.esClient.Msearch.WithContext(ctx),
		c.esClient.Msearch.WithOpaqueID(opaqueID),
	)
	c.unlock()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, newResponseError(query.KindMultiSearch.String(), res)
	}

	msearch := map[string]interface{}{}
	if err := DecodeResponse(res.Body, &msearch); err != nil {
		return nil, err
	}
	received, _ := msearch["responses"].([]interface{})
	if len(received) != len(sent) {
		return nil, fmt.Errorf("expected %d responses from elasticsearch, got %d", len(sent), len(received))
	}

	for i, position := range sent {
		response, _ := received[i].(map[string]interface{})
		if errorBody, ok := response["error"]; ok {
			log.Error("multi search query failed", zap.Int("position", position), zap.Any("error", errorBody))
			return nil, responseErrorFromBody(query.KindMultiSearch.String(), responseStatus(response), errorBody)
		}
		responses[position] = response
	}

	return responses, nil
}

func (c *client) perform(ctx context.Context, q *query.Query, args map[string]interface{}, body io.Reader, opaqueID string) (*esapi.Response, error) {
	es := c.esClient
	id, _ := args[query.ArgID].(string)
	refresh, hasRefresh := args[query.ArgRefresh].(bool)

	switch q.Gate() {
	case "search":
		return es.Search(
			es.Search.WithContext(ctx),
			es.Search.WithIndex(q.Index),
			es.Search.WithBody(body),
			es.Search.WithOpaqueID(opaqueID),
		)
	case "count":
		return es.Count(
			es.Count.WithContext(ctx),
			es.Count.WithIndex(q.Index),
			es.Count.WithBody(body),
			es.Count.WithOpaqueID(opaqueID),
		)
	case "sql.query":
		return es.SQL.Query(
			body,
			es.SQL.Query.WithContext(ctx),
			es.SQL.Query.WithFormat("json"),
			es.SQL.Query.WithOpaqueID(opaqueID),
		)
	case "index":
		opts := []func(*esapi.IndexRequest){
			es.Index.WithContext(ctx),
			es.Index.WithOpaqueID(opaqueID),
		}
		if id != "" {
			opts = append(opts, es.Index.WithDocumentID(id))
		}
		if hasRefresh {
			opts = append(opts, es.Index.WithRefresh(strconv.FormatBool(refresh)))
		}
		return es.Index(q.Index, body, opts...)
	case "update":
		if id == "" {
			return nil, fmt.Errorf("update of a document in %s requires an id", q.Index)
		}
		opts := []func(*esapi.UpdateRequest){
			es.Update.WithContext(ctx),
			es.Update.WithOpaqueID(opaqueID),
		}
		if hasRefresh {
			opts = append(opts, es.Update.WithRefresh(strconv.FormatBool(refresh)))
		}
		return es.Update(q.Index, id, body, opts...)
	case "update_by_query":
		opts := []func(*esapi.UpdateByQueryRequest){
			es.UpdateByQuery.WithContext(ctx),
			es.UpdateByQuery.WithBody(body),
			es.UpdateByQuery.WithOpaqueID(opaqueID),
		}
		if hasRefresh {
			opts = append(opts, es.UpdateByQuery.WithRefresh(refresh))
		}
		return es.UpdateByQuery([]string{q.Index}, opts...)
	case "delete":
		if id == "" {
			return nil, fmt.Errorf("delete of a document in %s requires an id", q.Index)
		}
		opts := []func(*esapi.DeleteRequest){
			es.Delete.WithContext(ctx),
			es.Delete.WithOpaqueID(opaqueID),
		}
		if hasRefresh {
			opts = append(opts, es.Delete.WithRefresh(strconv.FormatBool(refresh)))
		}
		return es.Delete(q.Index, id, opts...)
	case "delete_by_query":
		opts := []func(*esapi.DeleteByQueryRequest){
			es.DeleteByQuery.WithContext(ctx),
			es.DeleteByQuery.WithOpaqueID(opaqueID),
		}
		if hasRefresh {
			opts = append(opts, es.DeleteByQuery.WithRefresh(refresh))
		}
		return es.DeleteByQuery([]string{q.Index}, body, opts...)
	case "indices.create":
		return es.Indices.Create(
			q.Index,
			es.Indices.Create.WithContext(ctx),
			es.Indices.Create.WithBody(body),
			es.Indices.Create.WithOpaqueID(opaqueID),
		)
	case "indices.delete":
		return es.Indices.Delete(
			[]string{q.Index},
			es.Indices.Delete.WithContext(ctx),
			es.Indices.Delete.WithOpaqueID(opaqueID),
		)
	case "indices.refresh":
		return es.Indices.Refresh(
			es.Indices.Refresh.WithContext(ctx),
			es.Indices.Refresh.WithIndex(q.Index),
			es.Indices.Refresh.WithOpaqueID(opaqueID),
		)
	case "indices.get_mapping":
		return es.Indices.GetMapping(
			es.Indices.GetMapping.WithContext(ctx),
			es.Indices.GetMapping.WithIndex(q.Index),
			es.Indices.GetMapping.WithOpaqueID(opaqueID),
		)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedGate, q.Gate())
}

func (c *client) lock() {
	if c.mu != nil {
		c.mu.Lock()
	}
}

func (c *client) unlock() {
	if c.mu != nil {
		c.mu.Unlock()
	}
}

func encodeBody(args map[string]interface{}) (io.Reader, string) {
	body, ok := args[query.ArgBody]
	if !ok {
		return nil, ""
	}

	return EncodeRequest(body)
}

// by query operations reject a request without a query
func requiresQuery(kind query.Kind) bool {
	return kind == query.KindUpdateByQuery || kind == query.KindDeleteByQuery
}

func withQuery(body interface{}) map[string]interface{} {
	existing, _ := body.(map[string]interface{})
	if _, ok := existing["query"]; ok {
		return existing
	}

	result := make(map[string]interface{}, len(existing)+1)
	for k, v := range existing {
		result[k] = v
	}
	result["query"] = map[string]interface{}{
		"match_all": map[string]interface{}{},
	}

	return result
}

func emptyResponse(kind query.Kind) map[string]interface{} {
	switch kind {
	case query.KindSearch:
		return map[string]interface{}{
			"hits": map[string]interface{}{
				"total": map[string]interface{}{"value": 0, "relation": "eq"},
				"hits":  []interface{}{},
			},
		}
	case query.KindCount:
		return map[string]interface{}{"count": 0}
	case query.KindUpdateByQuery, query.KindDeleteByQuery:
		return map[string]interface{}{"total": 0}
	default:
		return map[string]interface{}{}
	}
}
