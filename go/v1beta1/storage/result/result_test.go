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

package result

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Result", func() {
	var (
		index    string
		response map[string]interface{}
		columns  []string
		opts     []Option
		result   *Result
	)

	hit := func(id string, source map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{
			"_id":     id,
			"_index":  index,
			"_score":  1.5,
			"_source": source,
		}
	}

	BeforeEach(func() {
		index = fake.LetterN(10)
		columns = []string{"name", "age"}
		opts = nil
		response = map[string]interface{}{
			"hits": map[string]interface{}{
				"total": map[string]interface{}{"value": 2, "relation": "eq"},
				"hits": []interface{}{
					hit("a", map[string]interface{}{"name": "alice", "age": "30", "ignored": true}),
					hit("b", map[string]interface{}{"name": "bob", "age": nil}),
				},
			},
		}
	})

	JustBeforeEach(func() {
		result = New(response, columns, opts...)
	})

	Context("Total", func() {
		DescribeTable("resolution order", func(response map[string]interface{}, expected int) {
			Expect(New(response, nil).Total()).To(Equal(expected))
		},
			Entry("explicit total", map[string]interface{}{
				"total": 9,
				"hits":  map[string]interface{}{"total": map[string]interface{}{"value": 2}},
			}, 9),
			Entry("count response", map[string]interface{}{"count": int64(4)}, 4),
			Entry("hit total object", map[string]interface{}{
				"hits": map[string]interface{}{"total": map[string]interface{}{"value": float64(3)}},
			}, 3),
			Entry("legacy numeric hit total", map[string]interface{}{
				"hits": map[string]interface{}{"total": 5},
			}, 5),
			Entry("aggregation count", map[string]interface{}{
				"aggregations": map[string]interface{}{"a": map[string]interface{}{}, "b": map[string]interface{}{}},
			}, 2),
			Entry("nothing", map[string]interface{}{}, 0),
		)
	})

	It("should expose hits and aggregations", func() {
		Expect(result.Hits()).To(HaveKey("hits"))
		Expect(result.Aggregations()).To(BeEmpty())
		Expect(result.Aggregation("missing")).To(BeEmpty())
		Expect(result.Buckets("missing")).To(BeNil())
	})

	When("the response has bucket aggregations", func() {
		BeforeEach(func() {
			response["aggregations"] = map[string]interface{}{
				"by_name": map[string]interface{}{
					"buckets": []interface{}{map[string]interface{}{"key": "alice", "doc_count": 1}},
				},
			}
		})

		It("should return the buckets", func() {
			Expect(result.Buckets("by_name")).To(HaveLen(1))
			Expect(result.Aggregation("by_name")).To(HaveKey("buckets"))
		})
	})

	Context("Rows", func() {
		It("should flatten every hit", func() {
			rows := result.Rows()

			Expect(rows).To(HaveLen(2))
			Expect(rows[0].Columns()).To(Equal([]string{"_id", "_score", "_index", "_type", "name", "age"}))
			Expect(rows[0].Map()).To(Equal(map[string]interface{}{
				"_id":    "a",
				"_score": 1.5,
				"_index": index,
				"_type":  nil,
				"name":   "alice",
				"age":    "30",
			}))
		})

		It("should leave null source values absent", func() {
			_, ok := result.Rows()[1].Get("age")

			Expect(ok).To(BeFalse())
		})

		It("should always include metadata", func() {
			_, ok := result.Rows()[1].Get("_type")

			Expect(ok).To(BeTrue())
		})

		It("should build rows once", func() {
			first := result.Rows()
			second := result.Rows()

			Expect(&first[0]).To(BeIdenticalTo(&second[0]))
		})

		It("should visit each row", func() {
			var ids []interface{}
			result.Each(func(row Row) {
				ids = append(ids, row.Value("_id"))
			})

			Expect(ids).To(Equal([]interface{}{"a", "b"}))
		})

		When("columns are dotted paths", func() {
			BeforeEach(func() {
				columns = []string{"owner.name"}
				response["hits"].(map[string]interface{})["hits"] = []interface{}{
					hit("c", map[string]interface{}{"owner": map[string]interface{}{"name": "carol"}}),
				}
			})

			It("should read the nested value", func() {
				Expect(result.Rows()[0].Value("owner.name")).To(Equal("carol"))
			})
		})

		When("no columns are declared", func() {
			BeforeEach(func() {
				columns = nil
			})

			It("should read every source field", func() {
				Expect(result.Rows()[0].Columns()).To(Equal([]string{"_id", "_score", "_index", "_type", "age", "ignored", "name"}))
			})
		})

		When("there are no hits", func() {
			BeforeEach(func() {
				response = map[string]interface{}{"count": 3}
			})

			It("should return no rows", func() {
				Expect(result.Rows()).To(BeEmpty())
			})
		})
	})

	Context("CastValues", func() {
		When("several columns are declared", func() {
			BeforeEach(func() {
				opts = []Option{WithCasters(map[string]Caster{"age": MulticastForType("long")})}
			})

			It("should return one tuple per row", func() {
				Expect(result.CastValues(nil)).To(Equal([]interface{}{
					[]interface{}{"alice", int64(30)},
					[]interface{}{"bob", nil},
				}))
			})

			It("should prefer overrides", func() {
				Expect(result.CastValues(map[string]Caster{"age": MulticastForType("keyword")})).To(Equal([]interface{}{
					[]interface{}{"alice", "30"},
					[]interface{}{"bob", nil},
				}))
			})

			It("should fall back to the raw value when a caster fails", func() {
				values := result.CastValues(map[string]Caster{"name": CasterForType("long")})

				Expect(values[0]).To(Equal([]interface{}{"alice", int64(30)}))
			})
		})

		When("a single column is declared", func() {
			BeforeEach(func() {
				columns = []string{"_id"}
			})

			It("should return a flat list", func() {
				Expect(result.CastValues(nil)).To(Equal([]interface{}{"a", "b"}))
			})
		})
	})

	Context("Decode", func() {
		It("should decode integral numbers as integers", func() {
			raw := []byte(`{"hits":{"total":{"value":1},"hits":[{"_id":"x","_score":0.5,"_source":{"age":30,"ratio":0.25}}]}}`)

			actual, err := Decode(raw, []string{"age", "ratio"})

			Expect(err).NotTo(HaveOccurred())
			Expect(actual.Total()).To(Equal(1))
			Expect(actual.Rows()[0].Value("age")).To(Equal(int64(30)))
			Expect(actual.Rows()[0].Value("ratio")).To(Equal(0.25))
			Expect(actual.Rows()[0].Value("_score")).To(Equal(0.5))
		})

		It("should return an error for invalid json", func() {
			_, err := Decode([]byte(fake.Word()), nil)

			Expect(err).To(HaveOccurred())
		})
	})

	Context("NewMulti", func() {
		It("should keep the order of the responses", func() {
			responses := []map[string]interface{}{
				{"hits": map[string]interface{}{"total": map[string]interface{}{"value": 1}}},
				{"count": 7},
				{"hits": map[string]interface{}{"hits": []interface{}{hit("z", map[string]interface{}{"name": "zed"})}}},
			}

			results := NewMulti(responses, [][]string{nil, nil, {"name"}}, []map[string]Caster{nil, nil, {"name": CasterForType("keyword")}})

			Expect(results).To(HaveLen(3))
			Expect(results[0].Total()).To(Equal(1))
			Expect(results[1].Total()).To(Equal(7))
			Expect(results[2].Rows()[0].Value("name")).To(Equal("zed"))
			Expect(results[2].Columns()).To(Equal([]string{"name"}))
			Expect(results[2].CastValues(nil)).To(Equal([]interface{}{"zed"}))
		})
	})
})
