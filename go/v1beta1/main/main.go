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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rode/es-relation/go/config"
	"github.com/rode/es-relation/go/v1beta1/storage/esutil"
	"github.com/rode/es-relation/go/v1beta1/storage/filtering"
	"github.com/rode/es-relation/go/v1beta1/storage/relation"
	"github.com/rode/es-relation/go/v1beta1/storage/result"
	"github.com/rode/es-relation/go/v1beta1/storage/schema"
)

type options struct {
	configPath string
	index      string
	filter     string
	sort       []string
	limit      int
	offset     int
	columns    []string
	count      bool
	timeout    time.Duration
}

func main() {
	opts := parseFlags(os.Args[1:])

	_, debugEnabled := os.LookupEnv("DEBUG")
	logger, err := createLogger(debugEnabled)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	if err := run(logger, opts); err != nil {
		logger.Fatal("query failed", zap.NamedError("error", err))
	}
}

func parseFlags(args []string) *options {
	opts := &options{}
	flags := pflag.NewFlagSet("esquery", pflag.ExitOnError)
	flags.StringVar(&opts.configPath, "config", "", "path to a configuration file")
	flags.StringVarP(&opts.index, "index", "i", "", "index or alias to query")
	flags.StringVarP(&opts.filter, "filter", "f", "", "CEL filter expression")
	flags.StringSliceVar(&opts.sort, "sort", nil, "fields to sort by, prefixed with - for descending order")
	flags.IntVar(&opts.limit, "limit", -1, "maximum number of documents")
	flags.IntVar(&opts.offset, "offset", -1, "number of documents to skip")
	flags.StringSliceVar(&opts.columns, "columns", nil, "source fields to return")
	flags.BoolVar(&opts.count, "count", false, "only count matching documents")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	_ = flags.Parse(args)

	if opts.index == "" {
		fmt.Fprintln(os.Stderr, "--index is required")
		flags.PrintDefaults()
		os.Exit(2)
	}

	return opts
}

func run(logger *zap.Logger, opts *options) error {
	c, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	esClient, err := createESClient(logger, c.URL, c.Username, c.Password)
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	var clientOpts []esutil.ClientOption
	if c.SerializeRequests {
		clientOpts = append(clientOpts, esutil.WithSerializedRequests())
	}
	client := esutil.NewClient(logger.Named("Client"), esClient, clientOpts...)

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	manager := schema.NewManager(logger.Named("Schema"), client)
	if c.MappingsDir != "" {
		if err := manager.LoadMappings(c.MappingsDir); err != nil {
			return err
		}
	} else if _, err := manager.FetchMapping(ctx, opts.index); err != nil {
		logger.Warn("unable to fetch mapping, values are not cast", zap.Error(err))
	}

	r := relation.New(opts.index,
		relation.WithClient(client),
		relation.WithSchema(manager),
		relation.WithFilterer(filtering.NewFilterer()),
		relation.WithLogger(logger.Named("Relation")),
		relation.WithRefresh(c.Refresh.Bool()),
	)
	r, err = buildRelation(r, opts)
	if err != nil {
		return err
	}

	if opts.count {
		count, err := r.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Println(count)

		return nil
	}

	res, err := r.Load(ctx)
	if err != nil {
		return err
	}

	return printRows(res)
}

func buildRelation(r *relation.Relation, opts *options) (*relation.Relation, error) {
	if opts.filter != "" {
		var err error
		if r, err = r.WhereExpression(opts.filter); err != nil {
			return nil, err
		}
	}
	if len(opts.sort) > 0 {
		r = r.Order(opts.sort...)
	}
	if opts.limit >= 0 {
		r = r.Limit(opts.limit)
	}
	if opts.offset >= 0 {
		r = r.Offset(opts.offset)
	}
	if len(opts.columns) > 0 {
		r = r.Select(opts.columns...)
	}

	return r, nil
}

// printRows writes one JSON document per row with the cast values of the columns.
func printRows(res *result.Result) error {
	encoder := json.NewEncoder(os.Stdout)
	columns := res.Columns()
	values := res.CastValues(nil)

	for i, row := range res.Rows() {
		document := map[string]interface{}{
			"_id":    row.Value("_id"),
			"_index": row.Value("_index"),
		}
		switch {
		case len(columns) == 1:
			document[columns[0]] = values[i]
		case len(columns) > 1:
			tuple := values[i].([]interface{})
			for j, column := range columns {
				if tuple[j] != nil {
					document[column] = tuple[j]
				}
			}
		default:
			for k, v := range row.Map() {
				document[k] = v
			}
		}

		if err := encoder.Encode(document); err != nil {
			return err
		}
	}

	return nil
}

func createESClient(logger *zap.Logger, elasticsearchEndpoint, username, password string) (*elasticsearch.Client, error) {
	c, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{
			elasticsearchEndpoint,
		},
		Username: username,
		Password: password,
	})

	if err != nil {
		return nil, err
	}

	res, err := c.Info()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	version, _ := r["version"].(map[string]interface{})
	logger.Debug("Successful Elasticsearch connection", zap.Any("ES Server version", version["number"]))

	return c, nil
}

func createLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
