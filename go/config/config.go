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
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

type ElasticsearchConfig struct {
	URL               string        `mapstructure:"url"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	Refresh           RefreshOption `mapstructure:"refresh"`
	SerializeRequests bool          `mapstructure:"serialize_requests"`
	MappingsDir       string        `mapstructure:"mappings_dir"`
}

// https://www.elastic.co/guide/en/elasticsearch/reference/current/docs-refresh.html
type RefreshOption string

func (r RefreshOption) String() string {
	return string(r)
}

// Bool reports whether writes should be visible to searches once they return. wait_for
// also makes writes visible, so it is true as well.
func (r RefreshOption) Bool() bool {
	return r != RefreshFalse
}

const (
	RefreshTrue    = "true"
	RefreshWaitFor = "wait_for"
	RefreshFalse   = "false"
)

const envPrefix = "esquery"

func (c *ElasticsearchConfig) IsValid() error {
	var result error

	if c.URL == "" {
		result = multierror.Append(result, errors.New("elasticsearch url is required"))
	} else if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("invalid elasticsearch url %q", c.URL))
	}

	switch c.Refresh {
	case RefreshTrue, RefreshWaitFor, RefreshFalse:
	default:
		result = multierror.Append(result, fmt.Errorf("invalid refresh value %q, expected one of %s, %s or %s", c.Refresh, RefreshTrue, RefreshWaitFor, RefreshFalse))
	}

	if c.Username != "" && c.Password == "" {
		result = multierror.Append(result, errors.New("a password is required when a username is set"))
	}

	return result
}

// Load reads the configuration from an optional file and ESQUERY_ environment variables,
// which take precedence over the file.
func Load(path string) (*ElasticsearchConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("url", "http://localhost:9200")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("refresh", RefreshTrue)
	v.SetDefault("serialize_requests", false)
	v.SetDefault("mappings_dir", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	c := &ElasticsearchConfig{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if err := c.IsValid(); err != nil {
		return nil, err
	}

	return c, nil
}
