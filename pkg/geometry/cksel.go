/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package geometry

// ckselRule selects a sensor clock divisor once optical/requested reaches
// minRatio (in thousandths)
type ckselRule struct {
	minRatio int
	ckSel    int
}

// Ordered from the coarsest divisor, first match wins
var ckselRules = []ckselRule{
	{minRatio: 4000, ckSel: 4},
	{minRatio: 2000, ckSel: 2},
	{minRatio: 0, ckSel: 1},
}

// SelectCkSel picks the divisor for scanning at dpi on a sensor running at
// optical dpi. A positive limit caps the result.
func SelectCkSel(optical, dpi, limit int) int {
	ratio := optical * 1000 / dpi
	ckSel := 1
	for _, rule := range ckselRules {
		if ratio >= rule.minRatio {
			ckSel = rule.ckSel
			break
		}
	}
	for limit > 0 && ckSel > limit {
		ckSel = nextDivisor(ckSel)
	}
	return ckSel
}

// nextDivisor steps down to the next finer divisor of the rule table
func nextDivisor(ckSel int) int {
	for _, rule := range ckselRules {
		if rule.ckSel < ckSel {
			return rule.ckSel
		}
	}
	return 1
}
