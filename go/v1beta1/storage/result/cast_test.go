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
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("casters", func() {
	DescribeTable("mapping types", func(mappingType string, raw, expected interface{}) {
		actual, err := CasterForType(mappingType).Cast(raw)

		Expect(err).NotTo(HaveOccurred())
		Expect(actual).To(Equal(expected))
	},
		Entry("keyword from number", "keyword", 42, "42"),
		Entry("text", "text", "hello", "hello"),
		Entry("long from string", "long", "42", int64(42)),
		Entry("integer from float", "integer", float64(7), int64(7)),
		Entry("unsigned long", "unsigned_long", int64(9), uint64(9)),
		Entry("double from string", "double", "1.5", 1.5),
		Entry("boolean from string", "boolean", "true", true),
		Entry("date", "date", "2021-05-01T10:00:00Z", time.Date(2021, 5, 1, 10, 0, 0, 0, time.UTC)),
		Entry("object", "object", map[string]interface{}{"a": "b"}, map[string]interface{}{"a": "b"}),
		Entry("unknown type", "geo_point", "41.12,-71.34", "41.12,-71.34"),
	)

	DescribeTable("rejected values", func(mappingType string, raw interface{}) {
		_, err := CasterForType(mappingType).Cast(raw)

		Expect(err).To(HaveOccurred())
	},
		Entry("word as long", "long", "forty-two"),
		Entry("word as boolean", "boolean", "maybe"),
		Entry("string as object", "nested", "value"),
	)

	Context("multicast", func() {
		It("should cast single values", func() {
			result := MulticastForType("long").CastValue("12")

			Expect(result.Fallback).To(BeFalse())
			Expect(result.Value).To(Equal(int64(12)))
		})

		It("should cast every element of a list", func() {
			result := MulticastForType("long").CastValue([]interface{}{"1", float64(2)})

			Expect(result.Fallback).To(BeFalse())
			Expect(result.Value).To(Equal([]interface{}{int64(1), int64(2)}))
		})

		It("should cast every value of a map", func() {
			result := MulticastForType("keyword").CastValue(map[string]interface{}{"a": 1})

			Expect(result.Value).To(Equal(map[string]interface{}{"a": "1"}))
		})

		It("should cast objects as a whole", func() {
			object := map[string]interface{}{"name": fake.Name(), "count": 3}

			result := NewMulticast(Object).CastValue(object)

			Expect(result.Fallback).To(BeFalse())
			Expect(result.Value).To(Equal(object))
		})

		It("should cast lists of objects", func() {
			objects := []interface{}{map[string]interface{}{"a": 1}, map[string]interface{}{"b": 2}}

			result := MulticastForType("nested").CastValue(objects)

			Expect(result.Fallback).To(BeFalse())
			Expect(result.Value).To(Equal(objects))
		})

		It("should leave null alone", func() {
			result := MulticastForType("long").CastValue(nil)

			Expect(result.Fallback).To(BeFalse())
			Expect(result.Value).To(BeNil())
		})

		When("the nested caster fails", func() {
			It("should return the raw list", func() {
				raw := []interface{}{"1", "two"}

				result := MulticastForType("long").CastValue(raw)

				Expect(result.Fallback).To(BeTrue())
				Expect(result.Err).To(HaveOccurred())
				Expect(result.Value).To(Equal(raw))
			})

			It("should never return an error from Cast", func() {
				failing := CasterFunc(func(interface{}) (interface{}, error) {
					return nil, errors.New(fake.Word())
				})
				raw := fake.Word()

				value, err := NewMulticast(failing).Cast(raw)

				Expect(err).NotTo(HaveOccurred())
				Expect(value).To(Equal(raw))
			})
		})

		It("should default to passing values through", func() {
			value, err := NewMulticast(nil).Cast(3)

			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(3))
		})
	})
})
