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

package clause

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Clause", func() {
	var (
		a *Clause
		b *Clause
	)

	BeforeEach(func() {
		a = New(Filter, randomTerm(), randomTerm())
		b = New(Filter, randomTerm(), randomTerm(), randomTerm())
	})

	Context("Add", func() {
		It("should append the fragments in order", func() {
			actual := a.Add(b)

			Expect(actual.Key()).To(Equal(Filter))
			Expect(actual.Values()).To(Equal(append(a.Values(), b.Values()...)))
		})

		It("should not modify either input", func() {
			before := a.Values()
			a.Add(b)

			Expect(a.Values()).To(Equal(before))
			Expect(b.Len()).To(Equal(3))
		})

		It("should merge the options with the right-hand side winning", func() {
			left := NewWithOptions(Should, map[string]interface{}{"minimum_should_match": 1, "boost": 2})
			right := NewWithOptions(Should, map[string]interface{}{"boost": 5})

			Expect(left.Add(right).Options()).To(Equal(map[string]interface{}{
				"minimum_should_match": 1,
				"boost":                5,
			}))
		})
	})

	Context("laws", func() {
		It("should cancel out a disjoint addition", func() {
			Expect(a.Add(b).Sub(b).Equal(a)).To(BeTrue())
		})

		It("should be idempotent under union", func() {
			Expect(a.Or(a).Equal(a)).To(BeTrue())
		})

		It("should be empty after subtracting itself", func() {
			Expect(a.Sub(a).IsEmpty()).To(BeTrue())
		})
	})

	Context("Or", func() {
		It("should not repeat fragments that are equal by value", func() {
			shared := map[string]interface{}{"term": map[string]interface{}{"status": "active"}}
			left := New(Must, shared, randomTerm())
			right := New(Must, map[string]interface{}{"term": map[string]interface{}{"status": "active"}})

			actual := left.Or(right)

			Expect(actual.Len()).To(Equal(2))
			Expect(actual.Values()[0]).To(Equal(shared))
		})
	})

	Context("Equal", func() {
		It("should ignore fragment order", func() {
			first, second := randomTerm(), randomTerm()

			Expect(New(Filter, first, second).Equal(New(Filter, second, first))).To(BeTrue())
		})

		It("should respect duplicate counts", func() {
			first, second := randomTerm(), randomTerm()

			Expect(New(Filter, first, first, second).Equal(New(Filter, first, second, second))).To(BeFalse())
		})

		It("should not consider clauses with different keys equal", func() {
			term := randomTerm()

			Expect(New(Filter, term).Equal(New(Must, term))).To(BeFalse())
		})
	})
})

func randomTerm() map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{
			fake.LetterN(10): fake.LetterN(10),
		},
	}
}
