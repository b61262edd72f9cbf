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

package util

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/elastic/go-elasticsearch/v7"
	"go.uber.org/zap"

	"github.com/rode/es-relation/go/v1beta1/storage/esutil"
	"github.com/rode/es-relation/go/v1beta1/storage/filtering"
	"github.com/rode/es-relation/go/v1beta1/storage/relation"
	"github.com/rode/es-relation/go/v1beta1/storage/schema"
)

var fake = gofakeit.New(0)

const defaultElasticsearchURL = "http://localhost:9200"

type Setup struct {
	Ctx    context.Context
	Client esutil.Client
	Schema *schema.Manager
	Logger *zap.Logger
}

func checkErrFatal(e error) {
	if e != nil {
		log.Fatalf("Failed to create test setup.\nError: %v", e)
	}
}

func NewSetup() *Setup {
	ctx := context.Background()
	logger := zap.NewNop()

	url := os.Getenv("ELASTICSEARCH_URL")
	if url == "" {
		url = defaultElasticsearchURL
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	checkErrFatal(err)

	client := esutil.NewClient(logger, esClient)

	return &Setup{
		Ctx:    ctx,
		Client: client,
		Schema: schema.NewManager(logger, client),
		Logger: logger,
	}
}

// Relation returns a relation on index wired to the test cluster.
func (s *Setup) Relation(index string) *relation.Relation {
	return relation.New(index,
		relation.WithClient(s.Client),
		relation.WithSchema(s.Schema),
		relation.WithFilterer(filtering.NewFilterer()),
		relation.WithLogger(s.Logger),
		relation.WithRefresh(true),
	)
}

// RandomIndexName is a valid index name that is unlikely to exist.
func RandomIndexName() string {
	return "esquery-test-" + strings.ToLower(fake.LetterN(12))
}
