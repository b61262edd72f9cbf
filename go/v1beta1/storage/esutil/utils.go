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

package esutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rode/es-relation/go/v1beta1/storage/result"
)

// DecodeResponse decodes a response body. Numbers decoded into generic maps are integers when
// they are integral.
func DecodeResponse(r io.Reader, i interface{}) error {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	err := decoder.Decode(i)
	if err != nil {
		return errors.New(fmt.Sprintf("error decoding elasticsearch response: %s", err))
	}

	if m, ok := i.(*map[string]interface{}); ok {
		*m = result.Normalize(*m).(map[string]interface{})
	}

	return nil
}

func EncodeRequest(body interface{}) (io.Reader, string) {
	b, err := json.Marshal(body)
	if err != nil {
		// request bodies are built from json compatible values
		panic(err)
	}

	return bytes.NewReader(b), string(b)
}

func writeLine(buf *bytes.Buffer, body interface{}) {
	_, line := EncodeRequest(body)
	buf.WriteString(line)
	buf.WriteByte('\n')
}
