// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package governance

import (
	"regexp"
)

const redacted = "[redacted]"

var (
	bearerPattern   = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/\-]+=*`)
	keyPairPattern  = regexp.MustCompile(`(?i)\b(api[_-]?key|apikey|token|secret|password)\b(\s*[=:]\s*)\S+`)
	openAIKeyFormat = regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{8,}\b`)
)

// SanitizeText 在文本进入日志或提示词前抹掉凭据
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = bearerPattern.ReplaceAllString(s, "Bearer "+redacted)
	s = keyPairPattern.ReplaceAllString(s, "$1$2"+redacted)
	s = openAIKeyFormat.ReplaceAllString(s, redacted)
	return s
}
