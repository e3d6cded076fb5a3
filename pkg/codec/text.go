// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package codec

import (
	"fmt"
)

// checkTextDepth rejects text format inputs with messages nested deeper than limit.
// It only tracks brackets outside of strings and comments; the actual parsing is left to prototext.
func checkTextDepth(data []byte, limit int) error {
	// The top-level message is the first level.
	depth := 1
	for i := 0; i < len(data); i++ {
		switch c := data[i]; c {
		case '#':
			for i < len(data) && data[i] != '\n' {
				i++
			}
		case '"', '\'':
			for i++; i < len(data) && data[i] != c && data[i] != '\n'; i++ {
				if data[i] == '\\' {
					i++
				}
			}
		case '{', '<':
			depth++
			if depth > limit {
				return fmt.Errorf("message nesting exceeds %v levels at offset %v", limit, i)
			}
		case '}', '>':
			depth--
		}
	}
	return nil
}
