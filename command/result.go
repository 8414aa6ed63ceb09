/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package command

// ResultSet collects read results in first-seen order without duplicates.
// Zero values are never added.
type ResultSet[R comparable] struct {
	items []R
	seen  map[R]struct{}
}

func NewResultSet[R comparable]() *ResultSet[R] {
	return &ResultSet[R]{seen: make(map[R]struct{})}
}

// Add appends the values not seen before and returns how many were added.
func (s *ResultSet[R]) Add(values ...R) int {
	var zero R
	added := 0
	for _, v := range values {
		if v == zero {
			continue
		}
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.items = append(s.items, v)
		added++
	}
	return added
}

func (s *ResultSet[R]) Contains(v R) bool {
	_, ok := s.seen[v]
	return ok
}

func (s *ResultSet[R]) Len() int { return len(s.items) }

// Items returns a copy of the collected values.
func (s *ResultSet[R]) Items() []R {
	out := make([]R, len(s.items))
	copy(out, s.items)
	return out
}
