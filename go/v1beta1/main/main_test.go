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
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/rode/es-relation/go/v1beta1/storage/filtering"
	"github.com/rode/es-relation/go/v1beta1/storage/relation"
)

var _ = Describe("esquery", func() {
	It("should parse the flags", func() {
		opts := parseFlags([]string{"--index", "notes", "--filter", `kind == "a"`, "--sort", "-created,name", "--limit", "5", "--columns", "kind,created", "--count"})

		Expect(opts.index).To(Equal("notes"))
		Expect(opts.filter).To(Equal(`kind == "a"`))
		Expect(opts.sort).To(Equal([]string{"-created", "name"}))
		Expect(opts.limit).To(Equal(5))
		Expect(opts.offset).To(Equal(-1))
		Expect(opts.columns).To(Equal([]string{"kind", "created"}))
		Expect(opts.count).To(BeTrue())
	})

	It("should build the relation from the flags", func() {
		r := relation.New("notes", relation.WithFilterer(filtering.NewFilterer()))
		opts := &options{
			filter:  `kind == "a"`,
			sort:    []string{"-created"},
			limit:   5,
			offset:  -1,
			columns: []string{"kind"},
		}

		built, err := buildRelation(r, opts)
		Expect(err).NotTo(HaveOccurred())

		q, err := built.Compile()
		Expect(err).NotTo(HaveOccurred())

		body, err := json.Marshal(q.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(MatchJSON(`{
			"query": {"bool": {"filter": [{"term": {"kind": "a"}}]}},
			"sort": [{"created": "desc"}],
			"size": 5,
			"_source": ["kind"]
		}`))
	})

	It("should return filter errors", func() {
		r := relation.New("notes", relation.WithFilterer(filtering.NewFilterer()))

		_, err := buildRelation(r, &options{filter: "kind ==", limit: -1, offset: -1})

		Expect(err).To(HaveOccurred())
	})
})
