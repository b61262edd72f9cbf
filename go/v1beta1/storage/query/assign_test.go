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

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Merge", func() {
	DescribeTable("merge rules", func(existing, incoming interface{}, concat bool, expected interface{}, expectedKeep bool) {
		actual, keep := Merge(existing, incoming, concat)

		Expect(keep).To(Equal(expectedKeep))
		if expected == nil {
			Expect(actual).To(BeNil())
		} else {
			Expect(actual).To(Equal(expected))
		}
	},
		Entry("nil incoming removes the value", "a", nil, true, nil, false),
		Entry("arrays concatenate", []interface{}{1, 2}, []interface{}{3}, true, []interface{}{1, 2, 3}, true),
		Entry("a scalar overwrites an array", []interface{}{"a"}, "b", true, "b", true),
		Entry("a map overwrites an array", []interface{}{"a"}, map[string]interface{}{"b": 1}, true, map[string]interface{}{"b": 1}, true),
		Entry("strings concatenate at the top level", "ctx._source.a = 1; ", "ctx._source.b = 2", true, "ctx._source.a = 1; ctx._source.b = 2", true),
		Entry("strings overwrite when nested", "a", "b", false, "b", true),
		Entry("scalars overwrite", 10, 20, true, 20, true),
		Entry("mismatched shapes overwrite", map[string]interface{}{"a": 1}, "b", true, "b", true),
		Entry("nil existing takes the incoming value", nil, map[string]interface{}{"a": 1}, true, map[string]interface{}{"a": 1}, true),
		Entry("maps merge deeply",
			map[string]interface{}{
				"bool": map[string]interface{}{
					"filter":               []interface{}{"x"},
					"minimum_should_match": 1,
					"_name":                "first",
				},
			},
			map[string]interface{}{
				"bool": map[string]interface{}{
					"filter":               []interface{}{"y"},
					"minimum_should_match": 2,
					"_name":                nil,
				},
			},
			true,
			map[string]interface{}{
				"bool": map[string]interface{}{
					"filter":               []interface{}{"x", "y"},
					"minimum_should_match": 2,
				},
			},
			true,
		),
		Entry("nested strings are overwritten, not concatenated",
			map[string]interface{}{"inline": "a"},
			map[string]interface{}{"inline": "b"},
			true,
			map[string]interface{}{"inline": "b"},
			true,
		),
	)

	It("should not retain the incoming value by reference", func() {
		incoming := map[string]interface{}{"terms": map[string]interface{}{"field": "status"}}

		actual, _ := Merge(nil, incoming, true)
		actual.(map[string]interface{})["terms"].(map[string]interface{})["field"] = "changed"

		Expect(incoming["terms"].(map[string]interface{})["field"]).To(Equal("status"))
	})
})

var _ = Describe("scoped assignment", func() {
	var (
		q *Query
	)

	BeforeEach(func() {
		q = New(fake.LetterN(10), KindSearch)
	})

	It("should assign into the body when there is no scope", func() {
		q.Assign("size", 10)

		Expect(q.Body).To(Equal(map[string]interface{}{"size": 10}))
	})

	It("should build nested structures through blocks", func() {
		q.AssignBlock("query", func() {
			q.AssignBlock("bool", func() {
				Expect(q.Scope()).To(Equal([]string{"query", "bool"}))
				q.Assign("filter", []interface{}{"a"})
				q.Assign("filter", []interface{}{"b"})
				q.Assign("must", []interface{}{"c"})
			})
		})

		Expect(q.Scope()).To(BeEmpty())
		Expect(q.Body).To(Equal(map[string]interface{}{
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"filter": []interface{}{"a", "b"},
					"must":   []interface{}{"c"},
				},
			},
		}))
	})

	It("should merge repeated blocks into the same node", func() {
		for _, v := range []string{"a", "b"} {
			value := v
			q.AssignBlock("query", func() {
				q.AssignBlock("bool", func() {
					q.Assign("filter", []interface{}{value})
				})
			})
		}

		Expect(q.Body["query"]).To(Equal(map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{"a", "b"},
			},
		}))
	})

	It("should not create a key for an empty block", func() {
		q.AssignBlock("query", func() {})

		Expect(q.Body).ToNot(HaveKey("query"))
	})

	It("should delete a key when assigning nil", func() {
		q.Assign("size", 10)
		q.Assign("size", nil)

		Expect(q.Body).ToNot(HaveKey("size"))
	})

	It("should build detached values without touching the body", func() {
		q.Assign("size", 1)
		var detached map[string]interface{}

		q.AssignBlock("query", func() {
			detached = q.Detached(func() {
				Expect(q.Scope()).To(BeEmpty())
				q.AssignBlock("bool", func() {
					q.Assign("must", []interface{}{"x"})
				})
			})
			Expect(q.Scope()).To(Equal([]string{"query"}))
		})

		Expect(detached).To(Equal(map[string]interface{}{
			"bool": map[string]interface{}{"must": []interface{}{"x"}},
		}))
		Expect(q.Body).To(Equal(map[string]interface{}{"size": 1}))
	})

	It("should replace and delete top-level keys with Override", func() {
		q.Assign("sort", []interface{}{"a"})
		q.Assign("size", 10)

		q.Override("sort", []interface{}{"b"})
		q.Override("size", nil)

		Expect(q.Body).To(Equal(map[string]interface{}{"sort": []interface{}{"b"}}))
	})
})
