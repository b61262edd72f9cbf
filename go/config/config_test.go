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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("ElasticsearchConfig", func() {
	DescribeTable("validation", func(c ElasticsearchConfig, shouldErr bool) {
		err := c.IsValid()

		if shouldErr {
			Expect(err).To(HaveOccurred())
		} else {
			Expect(err).ToNot(HaveOccurred())
		}
	},
		Entry("valid url, refresh true", ElasticsearchConfig{
			URL:     fake.URL(),
			Refresh: RefreshTrue,
		}, false),
		Entry("valid url, refresh wait_for", ElasticsearchConfig{
			URL:     fake.URL(),
			Refresh: RefreshWaitFor,
		}, false),
		Entry("valid url, refresh false", ElasticsearchConfig{
			URL:     fake.URL(),
			Refresh: RefreshFalse,
		}, false),
		Entry("valid url with credentials", ElasticsearchConfig{
			URL:      fake.URL(),
			Username: fake.Username(),
			Password: fake.Password(true, true, true, false, false, 12),
			Refresh:  RefreshTrue,
		}, false),
		Entry("valid url, invalid refresh option", ElasticsearchConfig{
			URL:     fake.URL(),
			Refresh: "somethingInvalid",
		}, true),
		Entry("missing url", ElasticsearchConfig{
			Refresh: RefreshTrue,
		}, true),
		Entry("url without scheme", ElasticsearchConfig{
			URL:     "localhost",
			Refresh: RefreshTrue,
		}, true),
		Entry("username without password", ElasticsearchConfig{
			URL:      fake.URL(),
			Username: fake.Username(),
			Refresh:  RefreshTrue,
		}, true),
	)

	It("should report every problem", func() {
		err := (&ElasticsearchConfig{Refresh: "sometimes"}).IsValid()

		Expect(err).To(MatchError(ContainSubstring("url is required")))
		Expect(err).To(MatchError(ContainSubstring("invalid refresh value")))
	})

	DescribeTable("refresh as a boolean", func(option RefreshOption, expected bool) {
		Expect(option.Bool()).To(Equal(expected))
	},
		Entry("true", RefreshOption(RefreshTrue), true),
		Entry("wait_for", RefreshOption(RefreshWaitFor), true),
		Entry("false", RefreshOption(RefreshFalse), false),
	)

	Context("Load", func() {
		var (
			dir         string
			path        string
			actual      *ElasticsearchConfig
			actualError error
		)

		BeforeEach(func() {
			var err error
			dir, err = ioutil.TempDir("", "esquery")
			Expect(err).NotTo(HaveOccurred())
			path = ""
		})

		AfterEach(func() {
			os.RemoveAll(dir)
			os.Unsetenv("ESQUERY_URL")
			os.Unsetenv("ESQUERY_SERIALIZE_REQUESTS")
		})

		JustBeforeEach(func() {
			actual, actualError = Load(path)
		})

		When("there is no file", func() {
			It("should use the defaults", func() {
				Expect(actualError).NotTo(HaveOccurred())
				Expect(actual.URL).To(Equal("http://localhost:9200"))
				Expect(actual.Refresh).To(Equal(RefreshOption(RefreshTrue)))
				Expect(actual.SerializeRequests).To(BeFalse())
			})
		})

		When("a file is given", func() {
			BeforeEach(func() {
				path = filepath.Join(dir, "config.yaml")
				content := "url: https://search.example.com:9200\nrefresh: wait_for\nmappings_dir: mappings\n"
				Expect(ioutil.WriteFile(path, []byte(content), 0600)).To(Succeed())
			})

			It("should read the file", func() {
				Expect(actualError).NotTo(HaveOccurred())
				Expect(actual.URL).To(Equal("https://search.example.com:9200"))
				Expect(actual.Refresh).To(Equal(RefreshOption(RefreshWaitFor)))
				Expect(actual.MappingsDir).To(Equal("mappings"))
			})

			When("the environment overrides the file", func() {
				BeforeEach(func() {
					os.Setenv("ESQUERY_URL", "http://other:9200")
					os.Setenv("ESQUERY_SERIALIZE_REQUESTS", "true")
				})

				It("should prefer the environment", func() {
					Expect(actualError).NotTo(HaveOccurred())
					Expect(actual.URL).To(Equal("http://other:9200"))
					Expect(actual.SerializeRequests).To(BeTrue())
				})
			})
		})

		When("the file does not exist", func() {
			BeforeEach(func() {
				path = filepath.Join(dir, "missing.yaml")
			})

			It("should return an error", func() {
				Expect(actualError).To(HaveOccurred())
			})
		})

		When("the file is invalid", func() {
			BeforeEach(func() {
				path = filepath.Join(dir, "config.yaml")
				Expect(ioutil.WriteFile(path, []byte("refresh: sometimes\n"), 0600)).To(Succeed())
			})

			It("should return the validation error", func() {
				Expect(actualError).To(MatchError(ContainSubstring("invalid refresh value")))
			})
		})
	})
})
