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

package query

// Kind is the operation a Query performs against Elasticsearch.
type Kind string

const (
	KindCount         Kind = "count"
	KindSearch        Kind = "search"
	KindMultiSearch   Kind = "msearch"
	KindSQL           Kind = "sql"
	KindCreate        Kind = "create"
	KindUpdate        Kind = "update"
	KindUpdateByQuery Kind = "update_by_query"
	KindDelete        Kind = "delete"
	KindDeleteByQuery Kind = "delete_by_query"
	KindIndexCreate   Kind = "index_create"
	KindIndexDelete   Kind = "index_delete"
	KindIndexRefresh  Kind = "index_refresh"
	KindIndexMapping  Kind = "index_mapping"
)

func (k Kind) String() string {
	return string(k)
}

type Status string

const (
	StatusValid  Status = "valid"
	StatusFailed Status = "failed"
)

var kinds = map[Kind]bool{
	KindCount:         true,
	KindSearch:        true,
	KindMultiSearch:   true,
	KindSQL:           true,
	KindCreate:        true,
	KindUpdate:        true,
	KindUpdateByQuery: true,
	KindDelete:        true,
	KindDeleteByQuery: true,
	KindIndexCreate:   true,
	KindIndexDelete:   true,
	KindIndexRefresh:  true,
	KindIndexMapping:  true,
}

var readKinds = map[Kind]bool{
	KindCount:       true,
	KindSearch:      true,
	KindMultiSearch: true,
	KindSQL:         true,
}

// gates overrides the endpoint derived from the kind name
var gates = map[Kind]string{
	KindCreate:       "index",
	KindSQL:          "sql.query",
	KindIndexCreate:  "indices.create",
	KindIndexDelete:  "indices.delete",
	KindIndexRefresh: "indices.refresh",
	KindIndexMapping: "indices.get_mapping",
}

// Argument keys understood by the transport.
const (
	ArgIndex   = "index"
	ArgBody    = "body"
	ArgRefresh = "refresh"
	ArgID      = "id"
)

const failedFilterValue = "_"
