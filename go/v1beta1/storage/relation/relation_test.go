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

package relation

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/rode/es-relation/go/v1beta1/storage/ast"
	"github.com/rode/es-relation/go/v1beta1/storage/clause"
	"github.com/rode/es-relation/go/v1beta1/storage/query"
	"github.com/rode/es-relation/go/v1beta1/storage/translator"
)

var _ = Describe("Relation", func() {
	var (
		index string
		base  *Relation
	)

	BeforeEach(func() {
		index = fake.LetterN(10)
		base = New(index, WithLogger(logger))
	})

	Context("building", func() {
		It("should leave the receiver untouched", func() {
			filtered := base.Where(ast.Eq("name", "a")).Select("name").Order("age").Limit(1)

			Expect(base.Clauses().IsEmpty()).To(BeTrue())
			Expect(base.Arel().Core.Projections).To(BeEmpty())
			Expect(base.Arel().Orders).To(BeEmpty())
			Expect(base.Arel().Limit).To(BeNil())
			Expect(filtered.Clauses().Len()).To(Equal(1))
		})

		It("should not share state between spawned relations", func() {
			parent := base.Select("a")
			first := parent.Select("b")
			second := parent.Select("c")

			Expect(first.Arel().Core.Projections).To(Equal([]ast.Node{base.table.Attr("a"), base.table.Attr("b")}))
			Expect(second.Arel().Core.Projections).To(Equal([]ast.Node{base.table.Attr("a"), base.table.Attr("c")}))
		})

		It("should accumulate conditions under the same clause", func() {
			r := base.Where(ast.Eq("a", 1)).Filter(ast.Eq("b", 2)).Should(ast.Eq("c", 3))

			filter, ok := r.Clauses().Get(clause.Filter)
			Expect(ok).To(BeTrue())
			Expect(filter.Len()).To(Equal(2))
			Expect(r.Clauses().Keys()).To(Equal([]string{clause.Filter, clause.Should}))
		})

		It("should ignore empty conditions", func() {
			Expect(base.Where()).To(BeIdenticalTo(base))
		})

		It("should remove a clause", func() {
			r := base.Where(ast.Eq("a", 1)).MustNot(ast.Eq("b", 2)).Unscope(clause.Filter)

			Expect(r.Clauses().Keys()).To(Equal([]string{clause.MustNot}))
			Expect(r.Unscope(clause.Should)).To(BeIdenticalTo(r))
		})

		It("should merge the conditions of another relation", func() {
			r := base.Where(ast.Eq("a", 1)).Merge(base.Where(ast.Eq("b", 2)).Must(ast.Eq("c", 3)))

			filter, _ := r.Clauses().Get(clause.Filter)
			Expect(filter.Values()).To(Equal([]interface{}{ast.Eq("a", 1), ast.Eq("b", 2)}))
			Expect(r.Clauses().Keys()).To(Equal([]string{clause.Filter, clause.Must}))
		})
	})

	Context("Compile", func() {
		It("should compile a search", func() {
			q, err := base.
				Where(ast.Eq("name", "a")).
				MustNot(ast.Eq("deleted", true)).
				Select("name").
				Order("-created").
				Limit(10).
				Offset(5).
				Compile()

			Expect(err).NotTo(HaveOccurred())
			Expect(q.Index).To(Equal(index))
			Expect(q.Type).To(Equal(query.KindSearch))
			Expect(q.Columns).To(Equal([]string{"name"}))
			Expect(toJson(q.Body)).To(MatchJSON(`{
				"query": {"bool": {
					"filter": [{"term": {"name": "a"}}],
					"must_not": [{"term": {"deleted": true}}]
				}},
				"_source": ["name"],
				"sort": [{"created": "desc"}],
				"size": 10,
				"from": 5
			}`))
		})

		It("should compile an empty relation to an empty body", func() {
			q, err := base.Compile()

			Expect(err).NotTo(HaveOccurred())
			Expect(q.Body).To(BeEmpty())
		})

		It("should name the query", func() {
			q, err := base.Where(ast.Eq("a", 1)).Named("by-a").Compile()

			Expect(err).NotTo(HaveOccurred())
			Expect(toJson(q.Body)).To(MatchJSON(`{"query":{"bool":{"filter":[{"term":{"a":1}}],"_name":"by-a"}}}`))
		})

		It("should compile other compound queries", func() {
			q, err := base.
				Kind("boosting", map[string]interface{}{"negative_boost": 0.5}).
				Clause("positive", map[string]interface{}{"match_all": map[string]interface{}{}}).
				Clause("negative", ast.Eq("spam", true)).
				Compile()

			Expect(err).NotTo(HaveOccurred())
			Expect(toJson(q.Body)).To(MatchJSON(`{"query":{"boosting":{
				"negative_boost": 0.5,
				"positive": {"match_all": {}},
				"negative": {"term": {"spam": true}}
			}}}`))
		})

		It("should add aggregations", func() {
			q, err := base.
				Aggregate("names", map[string]interface{}{"terms": map[string]interface{}{"field": "name"}}, nil).
				Limit(0).
				Compile()

			Expect(err).NotTo(HaveOccurred())
			Expect(toJson(q.Body)).To(MatchJSON(`{"aggs":{"names":{"terms":{"field":"name"}}},"size":0}`))
		})

		It("should sort randomly", func() {
			q, err := base.Random().Compile()

			Expect(err).NotTo(HaveOccurred())
			Expect(q.Body["sort"]).To(HaveLen(1))
			Expect(q.Body["sort"].([]interface{})[0]).To(HaveKey("_script"))
		})

		It("should apply raw sorts and configuration last", func() {
			q, err := base.
				Sort(map[string]interface{}{"_score": "desc"}).
				Limit(5).
				Configure(map[string]interface{}{"size": nil, "track_total_hits": true}).
				Compile()

			Expect(err).NotTo(HaveOccurred())
			Expect(toJson(q.Body)).To(MatchJSON(`{"sort":[{"_score":"desc"}],"track_total_hits":true}`))
		})

		It("should fail on a clause a bool query does not know", func() {
			_, err := base.Clause("positive", ast.Eq("a", 1)).Compile()

			Expect(errors.Is(err, translator.ErrInvalidTranslation)).To(BeTrue())
		})

		It("should compile conditions that can never match", func() {
			q, err := base.Where(&ast.In{Left: ast.Attr("a")}).Compile()

			Expect(err).NotTo(HaveOccurred())
			Expect(q.Failed()).To(BeTrue())
		})
	})
})
